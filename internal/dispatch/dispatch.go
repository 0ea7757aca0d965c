// Package dispatch runs every tool call through the same pipeline: rate
// check, mode check, handler execution, row truncation. Failures are
// converted into an error response; nothing escapes to the transports.
package dispatch

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dbmcp/sql-gateway/internal/logger"
	"github.com/dbmcp/sql-gateway/internal/policy"
	"github.com/dbmcp/sql-gateway/internal/ratelimit"
	"github.com/dbmcp/sql-gateway/pkg/dbtools"
	"github.com/dbmcp/sql-gateway/pkg/tools"
)

// anonymousClient buckets requests that carry no client identity.
const anonymousClient = "anonymous"

// Request is a tool invocation from any transport.
type Request struct {
	Tool      string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
	ClientID  string                 `json:"client_id,omitempty"`
}

// Response is the uniform envelope returned for every call, success or
// failure.
type Response struct {
	Success       bool                   `json:"success"`
	Tool          string                 `json:"tool_name"`
	RequestID     string                 `json:"request_id"`
	Data          interface{}            `json:"data,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ErrorCode     string                 `json:"error_code,omitempty"`
	ErrorDetail   map[string]interface{} `json:"error_detail,omitempty"`
	Truncated     bool                   `json:"truncated,omitempty"`
	ExecutionTime float64                `json:"execution_time_ms"`
	Timestamp     string                 `json:"timestamp"`
}

// Dispatcher owns the call pipeline.
type Dispatcher struct {
	registry *tools.Registry
	limiter  *ratelimit.Limiter
	mode     policy.Mode
	maxRows  int
}

func NewDispatcher(registry *tools.Registry, limiter *ratelimit.Limiter, mode policy.Mode, maxRows int) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		limiter:  limiter,
		mode:     mode,
		maxRows:  maxRows,
	}
}

// Mode reports the active access mode.
func (d *Dispatcher) Mode() policy.Mode { return d.mode }

// Tools lists the registered tools callable under the active mode.
func (d *Dispatcher) Tools() []*tools.Tool {
	var out []*tools.Tool
	for _, t := range d.registry.List() {
		if d.mode.Allowed(t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// Dispatch runs one tool call through the pipeline and always returns a
// response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Response {
	start := time.Now()
	requestID := uuid.NewString()

	client := req.ClientID
	if client == "" {
		client = anonymousClient
	}

	resp := d.run(ctx, req, client)
	resp.Tool = req.Tool
	resp.RequestID = requestID
	resp.ExecutionTime = float64(time.Since(start)) / float64(time.Millisecond)
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	outcome := "ok"
	if resp.ErrorCode != "" {
		outcome = resp.ErrorCode
	}
	logger.ToolCall(requestID, req.Tool, client, time.Since(start), outcome)
	return resp
}

func (d *Dispatcher) run(ctx context.Context, req Request, client string) *Response {
	if allowed, retryAfter := d.limiter.Allow(client); !allowed {
		te := tools.NewError(tools.CodeRateLimitExceeded, "rate limit exceeded, retry after %d seconds", int(math.Ceil(retryAfter.Seconds())))
		te.Detail = map[string]interface{}{
			"retry_after_seconds": int(math.Ceil(retryAfter.Seconds())),
		}
		return failure(te)
	}

	if !policy.Known(req.Tool) {
		return failure(tools.NewError(tools.CodeToolNotFound, "unknown tool: %s", req.Tool))
	}
	if !d.mode.Allowed(req.Tool) {
		return failure(tools.NewError(tools.CodeAccessDenied, "tool %s is not permitted in %s mode", req.Tool, d.mode))
	}

	tool := d.registry.Get(req.Tool)
	if tool == nil {
		return failure(tools.NewError(tools.CodeToolNotFound, "unknown tool: %s", req.Tool))
	}

	result, err := d.invoke(ctx, tool, req.Arguments)
	if err != nil {
		return failure(tools.AsError(err))
	}

	resp := &Response{Success: true, Data: result}
	if rs, ok := result.(*dbtools.RowSet); ok {
		rs.Truncate(d.maxRows)
		resp.Truncated = rs.Truncated
	}
	return resp
}

// invoke runs the handler with a panic guard so a handler bug degrades to
// an error response instead of killing the process.
func (d *Dispatcher) invoke(ctx context.Context, tool *tools.Tool, args map[string]interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool %s panicked: %v", tool.Name, r)
			err = tools.NewError(tools.CodeExecutionError, "internal error executing %s", tool.Name)
		}
	}()

	if args == nil {
		args = map[string]interface{}{}
	}
	return tool.Handler(ctx, args)
}

func failure(te *tools.Error) *Response {
	return &Response{
		Success:     false,
		Error:       te.Message,
		ErrorCode:   te.Code,
		ErrorDetail: te.Detail,
	}
}
