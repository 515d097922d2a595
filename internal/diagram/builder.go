package diagram

import (
	"fmt"
	"strconv"

	"github.com/rendis/stepflow/internal/ast"
	"github.com/rendis/stepflow/pkg/schema"
)

const (
	startID = "__start__"
	endID   = "__end__"
)

// Labeler names command steps for human readers.
// Satisfied by *commands.Registry.
type Labeler interface {
	Label(command string) string
}

// genericLabels is used when no Labeler is given.
type genericLabels struct{}

func (genericLabels) Label(command string) string { return "Execute " + command }

// Build constructs a DiagramModel from a parsed program. Workflows and their
// steps form one chain in execution order between virtual start and end
// nodes; conditional branches become SubGraph children of their step.
func Build(prog *ast.Program, labels Labeler) *DiagramModel {
	if labels == nil {
		labels = genericLabels{}
	}
	b := &builder{labels: labels, seen: make(map[string]int)}

	start := &Node{ID: startID, Label: "Start", Kind: NodeKindStart}
	b.nodes = append(b.nodes, start)
	b.levels = append(b.levels, []string{startID})
	prev := startID

	for i, wf := range prog.Workflows {
		prefix := fmt.Sprintf("wf%d", i+1)
		wfNode := &Node{ID: prefix, Label: "Workflow: " + wf.Name, Kind: NodeKindWorkflow}
		b.top(wfNode, prev)
		prev = wfNode.ID

		for _, s := range wf.Steps {
			node := b.step(prefix, s)
			b.top(node, prev)
			prev = node.ID
		}
	}

	end := &Node{ID: endID, Label: "End", Kind: NodeKindEnd}
	b.top(end, prev)

	return &DiagramModel{
		Title:  title(prog),
		Nodes:  b.nodes,
		Edges:  b.edges,
		Levels: b.levels,
	}
}

type builder struct {
	labels Labeler
	seen   map[string]int
	nodes  []*Node
	edges  []Edge
	levels [][]string
}

// top appends a node to the main chain after prev.
func (b *builder) top(node *Node, prev string) {
	if node.ID != startID {
		b.edges = append(b.edges, Edge{From: prev, To: node.ID})
	}
	b.nodes = append(b.nodes, node)
	b.levels = append(b.levels, []string{node.ID})
}

// id returns a node ID unique within the model. Repeated step numbers get a
// numeric suffix.
func (b *builder) id(base string) string {
	b.seen[base]++
	if n := b.seen[base]; n > 1 {
		return fmt.Sprintf("%s_%d", base, n)
	}
	return base
}

// step maps a step to a node, building branch subgraphs for conditionals.
func (b *builder) step(prefix string, s *ast.Step) *Node {
	stepID := strconv.FormatUint(uint64(s.ID), 10)
	node := &Node{
		ID:     b.id(prefix + "_s" + stepID),
		StepID: stepID,
	}

	switch c := s.Content.(type) {
	case *ast.Command:
		node.Kind = NodeKindCommand
		node.Label = fmt.Sprintf("Step %s: %s", stepID, b.labels.Label(c.Name))
	case *ast.Conditional:
		node.Kind = NodeKindCondition
		node.Label = fmt.Sprintf("Step %s: if %s", stepID, c.Condition.String())
		if sg := b.branch(prefix, node.ID, "then", "true", c.Then); sg != nil {
			node.Children = append(node.Children, sg)
		}
		if sg := b.branch(prefix, node.ID, "else", "false", c.Else); sg != nil {
			node.Children = append(node.Children, sg)
		}
	}
	return node
}

// branch builds the subgraph of one conditional branch. The first step is
// entered from the conditional through an edge labelled with the outcome.
func (b *builder) branch(prefix, parentID, label, outcome string, steps []*ast.Step) *SubGraph {
	if len(steps) == 0 {
		return nil
	}
	sg := &SubGraph{Label: label}
	prev := parentID
	for i, s := range steps {
		node := b.step(prefix, s)
		sg.Nodes = append(sg.Nodes, node)
		edge := Edge{From: prev, To: node.ID}
		if i == 0 {
			edge.Label = outcome
		}
		sg.Edges = append(sg.Edges, edge)
		prev = node.ID
	}
	return sg
}

// Overlay marks command nodes with the outcome recorded for their step id:
// completed or failed when a result exists, skipped otherwise.
func Overlay(model *DiagramModel, results map[uint32]schema.StepResult) {
	byID := make(map[string]schema.StepResult, len(results))
	for id, r := range results {
		byID[strconv.FormatUint(uint64(id), 10)] = r
	}

	walkNodes(model.Nodes, func(n *Node) {
		if n.Kind != NodeKindCommand {
			return
		}
		r, ok := byID[n.StepID]
		if !ok {
			n.Status = &StatusOverlay{Status: StatusSkipped}
			return
		}
		status := StatusCompleted
		if !r.Success {
			status = StatusFailed
		}
		n.Status = &StatusOverlay{Status: status, StatusCode: r.Status, Message: r.Message}
	})
}

// title names the diagram after its workflow, or counts them.
func title(prog *ast.Program) string {
	switch len(prog.Workflows) {
	case 0:
		return "Program"
	case 1:
		return prog.Workflows[0].Name
	default:
		return fmt.Sprintf("Program (%d workflows)", len(prog.Workflows))
	}
}
