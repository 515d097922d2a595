package diagram

import (
	"fmt"
	"strings"
)

// statusTag returns a short ASCII indicator for a status string.
func statusTag(status string) string {
	switch status {
	case StatusCompleted:
		return "[OK]"
	case StatusFailed:
		return "[FAIL]"
	case StatusSkipped:
		return "[SKIP]"
	default:
		return ""
	}
}

// RenderASCII draws the main chain top to bottom: workflows and steps as
// boxes, start and end as terminals. The branches of a conditional hang
// below its box as a tree, before the chain continues.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", model.Title)
	}

	first := true
	for _, level := range model.Levels {
		for _, id := range level {
			node := findNode(model.Nodes, id)
			if node == nil {
				continue
			}
			if !first {
				b.WriteString("    │\n    ▼\n")
			}
			first = false
			renderChainNode(&b, node)
		}
	}

	return b.String()
}

func renderChainNode(b *strings.Builder, node *Node) {
	switch node.Kind {
	case NodeKindStart, NodeKindEnd:
		fmt.Fprintf(b, "( %s )\n", node.Label)
	default:
		for _, line := range makeBox(node).lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		renderBranches(b, node.Children, "  ")
	}
}

// renderBranches writes one labelled arm per branch, with the branch steps
// on the arm's rail. Nested conditionals open a deeper tree on that rail.
func renderBranches(b *strings.Builder, branches []*SubGraph, prefix string) {
	for i, sg := range branches {
		joint, rail := "├─ ", "│  "
		if i == len(branches)-1 {
			joint, rail = "└─ ", "   "
		}
		fmt.Fprintf(b, "%s%s[%s]\n", prefix, joint, sg.Label)
		for _, n := range sg.Nodes {
			fmt.Fprintf(b, "%s%s%s%s\n", prefix, rail, firstLine(n.Label), inlineTag(n))
			renderBranches(b, n.Children, prefix+rail)
		}
	}
}

func inlineTag(n *Node) string {
	if n.Status == nil {
		return ""
	}
	if tag := statusTag(n.Status.Status); tag != "" {
		return " " + tag
	}
	return ""
}

type asciiBox struct {
	lines []string
	width int
}

// makeBox frames the node label plus its status tag and code, if any.
// Widths count runes so labels with accents stay aligned.
func makeBox(node *Node) asciiBox {
	content := []string{firstLine(node.Label)}
	if node.Status != nil {
		if tag := statusTag(node.Status.Status); tag != "" {
			content = append(content, tag)
		}
		if node.Status.StatusCode != 0 {
			content = append(content, fmt.Sprintf("status %d", node.Status.StatusCode))
		}
	}

	inner := 0
	for _, line := range content {
		inner = max(inner, len([]rune(line)))
	}
	width := inner + 4

	lines := make([]string, 0, len(content)+2)
	lines = append(lines, "┌"+strings.Repeat("─", width-2)+"┐")
	for _, line := range content {
		lines = append(lines, "│ "+line+strings.Repeat(" ", inner-len([]rune(line)))+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")

	return asciiBox{lines: lines, width: width}
}

func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
