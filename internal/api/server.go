// Package api provides the HTTP REST API and WebSocket relay for the printer.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/bambu-core/internal/bambu"
	"github.com/nerrad567/bambu-core/internal/command"
	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
	"github.com/nerrad567/bambu-core/internal/infrastructure/logging"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/protocol"
	"github.com/nerrad567/bambu-core/internal/status"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Printer is the part of the printer client the API serves. *bambu.Client
// satisfies it.
type Printer interface {
	Connected() bool
	Status() (status.Status, bool)
	Device() (protocol.GetVersion, bool)
	CurrentJob() *job.Job
	LastJob() *job.Job
	Invoke(cmd command.Command) error

	OnStatus(fn func(status.Status)) (off func())
	OnAnyJob(fn func(event.Name, *job.Job)) (off func())
	OnAnyConnection(fn func(event.Name, bambu.ConnectionEvent)) (off func())
}

// HMSResolver looks up alert descriptions. *hms.Resolver satisfies it.
type HMSResolver interface {
	URL(code string) string
	Describe(ctx context.Context, code string) (string, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Printer Printer
	HMS     HMSResolver // optional: /hms lookups return 404 without it
	Version string
}

// Server is the HTTP API server for the printer.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	printer Printer
	hms     HMSResolver
	version string
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc // cancels background goroutines on Close()
	relays  []func()           // removes the event relay handlers
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, printer)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Printer == nil {
		return nil, fmt.Errorf("printer is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		printer: deps.Printer,
		hms:     deps.HMS,
		version: deps.Version,
	}
	s.hub = NewHub(deps.WS, deps.Logger, s.replayEvent)
	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, relays printer events to it, and launches
// the HTTP listener in a background goroutine. The server can be stopped
// with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	s.relayEvents()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	for _, off := range s.relays {
		off()
	}
	s.relays = nil

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
