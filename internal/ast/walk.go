package ast

// StepVisitor is called for every step in source order. depth is 0 for steps
// directly inside a workflow and grows by one per enclosing conditional.
// Returning false skips the step's nested branches.
type StepVisitor func(wf *Workflow, step *Step, depth int) bool

// WalkSteps visits every step of every workflow in source order,
// descending into both branches of each conditional.
func WalkSteps(p *Program, visit StepVisitor) {
	for _, wf := range p.Workflows {
		walkSteps(wf, wf.Steps, 0, visit)
	}
}

func walkSteps(wf *Workflow, steps []*Step, depth int, visit StepVisitor) {
	for _, s := range steps {
		if !visit(wf, s, depth) {
			continue
		}
		if c, ok := s.Content.(*Conditional); ok {
			walkSteps(wf, c.Then, depth+1, visit)
			walkSteps(wf, c.Else, depth+1, visit)
		}
	}
}

// WalkExpr calls visit for e and each sub-expression, parents first.
func WalkExpr(e Expression, visit func(Expression)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *BinaryExpression:
		WalkExpr(n.Left, visit)
		WalkExpr(n.Right, visit)
	case *PropertyAccess:
		WalkExpr(n.Object, visit)
	}
}

// StepExpressions returns the expressions a step evaluates directly: command
// arguments, or the condition of a conditional.
func StepExpressions(s *Step) []Expression {
	switch c := s.Content.(type) {
	case *Command:
		return c.Arguments
	case *Conditional:
		return []Expression{c.Condition}
	}
	return nil
}
