package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditFileName is the JSONL file tool invocations are appended to.
const AuditFileName = "audit.jsonl"

// AuditEntry records one MCP tool invocation. It holds the shape of the
// request (party size, trial count) and the outcome, never the full result.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	RunID      string            `json:"run_id,omitempty"`
}

// AuditLogger appends entries to a JSONL file. It is safe for concurrent
// use. A nil AuditLogger is valid and discards everything.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewAuditLogger opens dir/audit.jsonl for appending, creating dir if
// needed.
func NewAuditLogger(dir string) (*AuditLogger, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, AuditFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	return &AuditLogger{file: f, path: path}, nil
}

// Path returns the audit file location, or "" for a nil logger.
func (a *AuditLogger) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Log appends entry as a single JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		_, _ = a.file.Write(data)
	}
}

// Close closes the audit file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// auditParams reduces tool arguments to loggable values. Only the keys
// listed here are kept; a "_param_count" key records how many were given.
func auditParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}

	keep := map[string]bool{
		"paths":      true,
		"dogs":       true,
		"trials":     true,
		"seed":       true,
		"workers":    true,
		"strategies": true,
		"record":     true,
		"limit":      true,
		"id":         true,
	}

	out := make(map[string]string)
	for k, v := range params {
		if keep[k] {
			out[k] = fmt.Sprint(v)
		}
	}
	out["_param_count"] = fmt.Sprint(len(params))
	return out
}

// auditTool writes an audit entry for a finished tool call and mirrors it
// to the debug log.
func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]string, runID string) {
	entry := AuditEntry{
		Timestamp:  start.UTC(),
		Tool:       tool,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "success",
		Params:     params,
		RunID:      runID,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.audit.Log(entry)

	s.logger.Debug("tool call",
		slog.String("tool", tool),
		slog.String("status", entry.Status),
		slog.Int64("duration_ms", entry.DurationMs),
	)
}
