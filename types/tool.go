package types

// ToolResult is the outcome of executing a tool. Ordinary failures are reported
// with Success=false and a message in Error, never as a Go error.
type ToolResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewToolSuccess returns a successful result.
func NewToolSuccess(name string, output any) ToolResult {
	return ToolResult{Name: name, Success: true, Output: output}
}

// NewToolFailure returns a failed result carrying msg.
func NewToolFailure(name, msg string) ToolResult {
	return ToolResult{Name: name, Success: false, Error: msg}
}
