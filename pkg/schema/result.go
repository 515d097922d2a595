package schema

import "strconv"

// Status codes produced by command handlers.
const (
	StatusOK                  = 200
	StatusUnknownCommand      = 400
	StatusAssertionFailed     = 417
	StatusUnprocessableEntity = 422
)

// StepResult is the recorded outcome of a command step, keyed by step id
// and readable by later step references.
type StepResult struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// OK builds a successful result with status 200.
func OK(data, message string) StepResult {
	return StepResult{Success: true, Data: data, Status: StatusOK, Message: message}
}

// Failed builds an unsuccessful result with the given status.
func Failed(status int, data, message string) StepResult {
	return StepResult{Success: false, Data: data, Status: status, Message: message}
}

// Property projects a step reference property. Unknown or empty property
// names fall back to Data.
func (r StepResult) Property(name string) string {
	switch name {
	case "status":
		return strconv.Itoa(r.Status)
	case "message":
		return r.Message
	case "success":
		return strconv.FormatBool(r.Success)
	default:
		return r.Data
	}
}
