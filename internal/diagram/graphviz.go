package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderImage renders a DiagramModel as a PNG image using graphviz.
// Returns the PNG bytes.
func RenderImage(model *DiagramModel) ([]byte, error) {
	ctx := context.Background()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	r := &gvRenderer{root: graph, nodes: make(map[string]*cgraph.Node)}
	if err := r.addNodes(graph, model.Nodes); err != nil {
		return nil, err
	}
	r.addEdges(model.Edges)

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}

	return buf.Bytes(), nil
}

type gvRenderer struct {
	root  *cgraph.Graph
	nodes map[string]*cgraph.Node
}

// addNodes creates nodes in g and a dashed cluster per conditional branch.
func (r *gvRenderer) addNodes(g *cgraph.Graph, nodes []*Node) error {
	for _, node := range nodes {
		gvNode, err := g.CreateNodeByName(node.ID)
		if err != nil {
			return fmt.Errorf("diagram: create node %s: %w", node.ID, err)
		}
		gvNode.SetLabel(firstLine(node.Label))
		applyNodeStyle(gvNode, node)
		r.nodes[node.ID] = gvNode

		for _, sg := range node.Children {
			sub, err := g.CreateSubGraphByName("cluster_" + node.ID + "_" + sg.Label)
			if err != nil {
				return fmt.Errorf("diagram: create cluster %s/%s: %w", node.ID, sg.Label, err)
			}
			sub.SetLabel(sg.Label)
			sub.SetStyle(cgraph.DashedGraphStyle)
			if err := r.addNodes(sub, sg.Nodes); err != nil {
				return err
			}
			r.addEdges(sg.Edges)
		}
	}
	return nil
}

// addEdges connects already created nodes; edges to unknown nodes are skipped.
func (r *gvRenderer) addEdges(edges []Edge) {
	for _, edge := range edges {
		from, to := r.nodes[edge.From], r.nodes[edge.To]
		if from == nil || to == nil {
			continue
		}
		e, err := r.root.CreateEdgeByName("", from, to)
		if err == nil && edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}
}

// applyNodeStyle sets graphviz attributes based on node kind and status.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	switch node.Kind {
	case NodeKindCommand:
		gvNode.SetShape(cgraph.BoxShape)
	case NodeKindCondition:
		gvNode.SetShape(cgraph.DiamondShape)
	case NodeKindWorkflow:
		gvNode.SetShape(cgraph.Box3DShape)
	case NodeKindStart, NodeKindEnd:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetWidth(0.5)
		gvNode.SetHeight(0.5)
	}

	if node.Status != nil {
		applyStatusColor(gvNode, node.Status.Status)
	}
}

// applyStatusColor sets fill color and style based on status.
func applyStatusColor(gvNode *cgraph.Node, status string) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch status {
	case StatusCompleted:
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case StatusFailed:
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case StatusSkipped:
		gvNode.SetFillColor("#e8e8e8")
		gvNode.SetFontColor("#888888")
		gvNode.SetStyle(cgraph.DashedNodeStyle)
	}
}
