// Package diagram turns a parsed program into readable views: a plain list of
// human step descriptions and a flowchart model rendered as Mermaid, ASCII or
// a graphviz PNG.
package diagram

// NodeKind classifies a diagram node.
type NodeKind string

const (
	NodeKindCommand   NodeKind = "command"
	NodeKindCondition NodeKind = "condition"
	NodeKindWorkflow  NodeKind = "workflow"
	NodeKindStart     NodeKind = "start"
	NodeKindEnd       NodeKind = "end"
)

// Status values applied by Overlay.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents a workflow, a step or a virtual start/end marker.
type Node struct {
	ID    string
	Label string
	Kind  NodeKind
	// StepID is the declared step number, "" for workflow and virtual nodes.
	StepID   string
	Status   *StatusOverlay
	Children []*SubGraph // conditional branches
}

// SubGraph holds the steps of one conditional branch.
type SubGraph struct {
	Label string
	Nodes []*Node
	Edges []Edge
}

// StatusOverlay carries the recorded outcome of a step.
type StatusOverlay struct {
	Status     string
	StatusCode int
	Message    string
}

// Edge connects two nodes in execution order.
type Edge struct {
	From  string
	To    string
	Label string
}

// walkNodes visits every node of the model, descending into branches.
func walkNodes(nodes []*Node, visit func(*Node)) {
	for _, n := range nodes {
		visit(n)
		for _, sg := range n.Children {
			walkNodes(sg.Nodes, visit)
		}
	}
}
