// Package tools defines the tool registry and the error envelope shared
// by every transport. Handlers return either a result value or an *Error
// carrying one of the stable error codes.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Stable error codes surfaced to clients.
const (
	CodeInvalidQuery      = "INVALID_QUERY"
	CodeAccessDenied      = "ACCESS_DENIED"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodePoolExhausted     = "POOL_EXHAUSTED"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeToolNotFound      = "TOOL_NOT_FOUND"
	CodeExecutionError    = "EXECUTION_ERROR"
)

// Error is the classified failure a tool handler reports. Detail carries
// machine-readable context such as retry_after_seconds.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds an Error with a formatted message.
func NewError(code, format string, v ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, v...)}
}

// InvalidQuery reports a statement rejected by validation.
func InvalidQuery(format string, v ...interface{}) *Error {
	return NewError(CodeInvalidQuery, format, v...)
}

// InvalidArgument reports a malformed or missing tool argument.
func InvalidArgument(format string, v ...interface{}) *Error {
	return NewError(CodeInvalidArgument, format, v...)
}

// DatabaseError wraps a failure from the database engine.
func DatabaseError(err error) *Error {
	return NewError(CodeDatabaseError, "database error: %v", err)
}

// AsError classifies err. Untyped errors land on EXECUTION_ERROR so an
// unexpected failure never leaks a raw error as a success.
func AsError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return NewError(CodeExecutionError, "%v", err)
}

// Handler executes one tool call.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Tool couples a tool's metadata with its handler. ReadOnly tools are
// callable in every mode; the rest require FULL_ACCESS.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	ReadOnly    bool
	Handler     Handler
}

// Registry stores the available tools. Registration happens at startup;
// lookups happen on every call, hence the read lock.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Get returns the named tool, or nil when unknown.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all tools sorted by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
