package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeDuplicateID         = "DUPLICATE_ID"
	ErrCodeUnknownNodeType     = "UNKNOWN_NODE_TYPE"
	ErrCodeDanglingEdge        = "DANGLING_EDGE"
	ErrCodeMigrationInProgress = "MIGRATION_IN_PROGRESS"
	ErrCodeSaveConflict        = "SAVE_CONFLICT"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeCompile             = "COMPILE_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeStore               = "STORE_ERROR"
)

// CadenceError is the structured error type for all sequence-authoring operations.
type CadenceError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *CadenceError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CadenceError) Unwrap() error {
	return e.Cause
}

// NewError creates a new CadenceError.
func NewError(code, message string) *CadenceError {
	return &CadenceError{Code: code, Message: message}
}

// NewErrorf creates a new CadenceError with a formatted message.
func NewErrorf(code, format string, args ...any) *CadenceError {
	return &CadenceError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *CadenceError) WithNode(nodeID string) *CadenceError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *CadenceError) WithCause(err error) *CadenceError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *CadenceError) WithDetails(details map[string]any) *CadenceError {
	e.Details = details
	return e
}

// CodeOf returns the structured error code of err, or "" when err is not a
// CadenceError.
func CodeOf(err error) string {
	if ce, ok := err.(*CadenceError); ok {
		return ce.Code
	}
	return ""
}
