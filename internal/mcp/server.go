// Package mcp provides an MCP (Model Context Protocol) server for hounds.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/hounds/internal/config"
	"github.com/nvandessel/hounds/internal/logging"
	"github.com/nvandessel/hounds/internal/ratelimit"
	"github.com/nvandessel/hounds/internal/store"
	"github.com/nvandessel/hounds/internal/trial"
)

// Server wraps the MCP SDK server and exposes the trial engine as tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	defaults     config.SimulationConfig
	logger       *slog.Logger
	audit        *AuditLogger
	toolLimiters ratelimit.ToolLimiters

	// newEngine builds the engine for one hounds_simulate call.
	newEngine func(opts ...trial.Option) *trial.Engine
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "hounds")
	Version string // Server version

	// Store records runs requested with record=true and backs
	// hounds_history. Nil disables both. The server closes it.
	Store store.RunStore

	// Defaults supplies trial counts, workers, and strategies when a tool
	// call leaves them unset. Nil means config.Default().
	Defaults *config.HoundsConfig

	// AuditDir, when set, receives audit.jsonl with one line per tool call.
	AuditDir string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with hounds tools.
func NewServer(cfg *Config) (*Server, error) {
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var audit *AuditLogger
	if cfg.AuditDir != "" {
		a, err := NewAuditLogger(cfg.AuditDir)
		if err != nil {
			// Auditing is best effort; the tools still work without it.
			logger.Warn("audit log disabled", slog.String("error", err.Error()))
		} else {
			audit = a
		}
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        cfg.Store,
		defaults:     defaults.Simulation,
		logger:       logger,
		audit:        audit,
		toolLimiters: ratelimit.NewToolLimiters(),
		newEngine:    trial.NewEngine,
	}

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := s.registerResources(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the store and the audit log. It is safe to call twice.
func (s *Server) Close() error {
	var firstErr error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			firstErr = err
		}
		s.store = nil
	}
	if err := s.audit.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
