package diagram

import (
	"strconv"
	"strings"

	"github.com/rendis/stepflow/internal/ast"
)

// HumanSteps describes every step in source order as "Step N: <label>".
// Conditionals read "Conditional logic"; their branch steps follow, indented
// two spaces per level.
func HumanSteps(prog *ast.Program, labels Labeler) []string {
	if labels == nil {
		labels = genericLabels{}
	}

	var lines []string
	ast.WalkSteps(prog, func(_ *ast.Workflow, s *ast.Step, depth int) bool {
		label := "Conditional logic"
		if c, ok := s.Content.(*ast.Command); ok {
			label = labels.Label(c.Name)
		}
		lines = append(lines, strings.Repeat("  ", depth)+"Step "+strconv.FormatUint(uint64(s.ID), 10)+": "+label)
		return true
	})
	return lines
}
