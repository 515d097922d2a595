package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanSteps(t *testing.T) {
	got := HumanSteps(mustParse(t, branchSource), labels(t))
	assert.Equal(t, []string{
		"Step 1: Fetch data from URL",
		"Step 2: Conditional logic",
		"  Step 3: Execute print",
		"  Step 4: Execute notify",
		"Step 5: Execute send_email",
	}, got)
}

func TestHumanStepsNested(t *testing.T) {
	got := HumanSteps(mustParse(t, nestedSource), nil)
	assert.Equal(t, []string{
		"Step 1: Conditional logic",
		"  Step 2: Conditional logic",
		"    Step 3: Execute log",
	}, got)
}

func TestHumanStepsAcrossWorkflows(t *testing.T) {
	got := HumanSteps(mustParse(t, `
workflow "A" { step 1: input("name") }
workflow "B" { step 2: generate("p") }`), labels(t))
	assert.Equal(t, []string{
		"Step 1: Collect user input",
		"Step 2: Generate AI content",
	}, got)
}

func TestHumanStepsEmpty(t *testing.T) {
	assert.Empty(t, HumanSteps(mustParse(t, `let a = "x"`), nil))
}
