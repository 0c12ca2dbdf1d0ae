package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Orchestration error codes. All of them are fatal to the current run.
const (
	ErrUnknownAgent        ErrorCode = "UNKNOWN_AGENT"
	ErrUnknownTool         ErrorCode = "UNKNOWN_TOOL"
	ErrApprovalRequired    ErrorCode = "APPROVAL_REQUIRED"
	ErrCheckpointMismatch  ErrorCode = "CHECKPOINT_MISMATCH"
	ErrMalformedCheckpoint ErrorCode = "MALFORMED_CHECKPOINT"
	ErrNoApprovalDecision  ErrorCode = "NO_APPROVAL_DECISION"
	ErrProxyNotRegistered  ErrorCode = "PROXY_NOT_REGISTERED"
	ErrToolFailure         ErrorCode = "TOOL_FAILURE"
	ErrAgentFailure        ErrorCode = "AGENT_FAILURE"
	ErrPersistence         ErrorCode = "PERSISTENCE"
)

// General error codes
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	AgentID string    `json:"agent_id,omitempty"`
	Tool    string    `json:"tool,omitempty"`
	Caller  string    `json:"caller,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithAgent tags the error with an agent id.
func (e *Error) WithAgent(agentID string) *Error {
	e.AgentID = agentID
	return e
}

// WithTool tags the error with the tool name and the calling agent.
func (e *Error) WithTool(tool, caller string) *Error {
	e.Tool = tool
	e.Caller = caller
	return e
}

// AsError extracts a *Error from anywhere in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
