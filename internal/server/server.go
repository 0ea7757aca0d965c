// Package server exposes the dispatcher over HTTP: a generic tool-call
// endpoint plus convenience routes that project common database reads
// onto the same pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dbmcp/sql-gateway/internal/dispatch"
	"github.com/dbmcp/sql-gateway/internal/logger"
	"github.com/dbmcp/sql-gateway/pkg/db"
	"github.com/dbmcp/sql-gateway/pkg/tools"
)

// Version is reported by /info and /health.
const Version = "1.0.0"

// Server is the HTTP front end of the gateway.
type Server struct {
	httpServer *http.Server
	dispatcher *dispatch.Dispatcher
	database   db.Database
}

func New(host string, port int, dispatcher *dispatch.Dispatcher, database db.Database) *Server {
	s := &Server{
		dispatcher: dispatcher,
		database:   database,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("POST /tools/call", s.handleToolCall)

	mux.HandleFunc("GET /database/tables", s.forwardQuery("list_tables", nil))
	mux.HandleFunc("GET /database/tables/{table}", s.forwardTable("describe_table"))
	mux.HandleFunc("GET /database/tables/{table}/data", s.handleTableData)
	mux.HandleFunc("GET /database/views", s.forwardQuery("list_views", nil))
	mux.HandleFunc("GET /database/procedures", s.forwardQuery("list_procedures", nil))
	mux.HandleFunc("GET /database/functions", s.forwardQuery("list_functions", nil))
	mux.HandleFunc("GET /database/schema", s.forwardQuery("get_database_schema", nil))
	mux.HandleFunc("POST /database/select", s.handleSelect)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Handler exposes the route table.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	connected := true
	status := "healthy"
	httpStatus := http.StatusOK
	if err := s.database.Ping(ctx); err != nil {
		logger.Warn("health check ping failed: %v", err)
		connected = false
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":              status,
		"database_connection": connected,
		"server_running":      true,
		"mode":                string(s.dispatcher.Mode()),
		"version":             Version,
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":     "sql-gateway",
		"version":  Version,
		"mode":     string(s.dispatcher.Mode()),
		"database": s.database.DriverName(),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	type toolInfo struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"input_schema"`
	}

	available := s.dispatcher.Tools()
	out := make([]toolInfo, 0, len(available))
	for _, t := range available {
		out = append(out, toolInfo{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":  string(s.dispatcher.Mode()),
		"tools": out,
	})
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, tools.InvalidArgument("invalid request body: %v", err))
		return
	}
	if req.Tool == "" {
		writeError(w, tools.InvalidArgument("tool_name is required"))
		return
	}
	req.ClientID = clientID(r, req.ClientID)

	resp := s.dispatcher.Dispatch(r.Context(), req)
	writeJSON(w, statusFor(resp), resp)
}

// forwardQuery builds a GET handler projecting onto a tool. extraArgs may
// add fixed arguments.
func (s *Server) forwardQuery(tool string, extraArgs map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args := map[string]interface{}{}
		if schema := r.URL.Query().Get("schema"); schema != "" {
			args["schema"] = schema
		}
		for k, v := range extraArgs {
			args[k] = v
		}
		s.dispatch(w, r, tool, args)
	}
}

// forwardTable builds a GET handler for routes with a {table} path value.
func (s *Server) forwardTable(tool string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args := map[string]interface{}{"table": r.PathValue("table")}
		if schema := r.URL.Query().Get("schema"); schema != "" {
			args["schema"] = schema
		}
		s.dispatch(w, r, tool, args)
	}
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	args := map[string]interface{}{"table": r.PathValue("table")}
	if schema := r.URL.Query().Get("schema"); schema != "" {
		args["schema"] = schema
	}
	for _, key := range []string{"limit", "offset"} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, tools.InvalidArgument("%s must be an integer", key))
			return
		}
		args[key] = n
	}
	s.dispatch(w, r, "get_table_data", args)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query    string        `json:"query"`
		Params   []interface{} `json:"params"`
		ClientID string        `json:"client_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, tools.InvalidArgument("invalid request body: %v", err))
		return
	}

	args := map[string]interface{}{"query": body.Query}
	if len(body.Params) > 0 {
		args["params"] = body.Params
	}
	resp := s.dispatcher.Dispatch(r.Context(), dispatch.Request{
		Tool:      "execute_select",
		Arguments: args,
		ClientID:  clientID(r, body.ClientID),
	})
	writeJSON(w, statusFor(resp), resp)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, tool string, args map[string]interface{}) {
	resp := s.dispatcher.Dispatch(r.Context(), dispatch.Request{
		Tool:      tool,
		Arguments: args,
		ClientID:  clientID(r, ""),
	})
	writeJSON(w, statusFor(resp), resp)
}

// clientID resolves the rate-limit identity: explicit client_id in the
// body, then the X-API-Key header, then the remote host.
func clientID(r *http.Request, bodyID string) string {
	if bodyID != "" {
		return bodyID
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusFor maps an error code to an HTTP status. Successful calls are
// always 200.
func statusFor(resp *dispatch.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.ErrorCode {
	case tools.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case tools.CodeToolNotFound:
		return http.StatusNotFound
	case tools.CodeAccessDenied:
		return http.StatusForbidden
	case tools.CodeInvalidQuery, tools.CodeInvalidArgument:
		return http.StatusBadRequest
	case tools.CodePoolExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, te *tools.Error) {
	resp := &dispatch.Response{
		Success:     false,
		Error:       te.Message,
		ErrorCode:   te.Code,
		ErrorDetail: te.Detail,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, statusFor(resp), resp)
}
