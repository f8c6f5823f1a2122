package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/infrastructure/ftps"
	"github.com/nerrad567/bambu-core/internal/job"
)

// Remote locations on the printer.
const (
	RemoteArchiveDir   = "/cache"
	RemoteThumbnailDir = "/ipcam/thumbnail"
)

const scratchDirPermissions = 0o750

// Transport is the side-channel connection. Implementations need not be
// safe for concurrent use.
type Transport interface {
	Connect(ctx context.Context) error
	Closed() bool
	List(ctx context.Context, dir string) ([]ftps.Entry, error)
	Download(ctx context.Context, remote, local string) error
	Close() error
}

// Jobs is the source of job lifecycle events.
type Jobs interface {
	OnJob(name event.Name, fn func(*job.Job)) (off func())
	IsCurrent(j *job.Job) bool
}

// Logger is the logging interface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the service timings and scratch location.
type Config struct {
	ScratchDir        string
	PollInterval      time.Duration
	StartGrace        time.Duration
	RetryDelay        time.Duration
	ThumbnailInterval time.Duration
}

// Service is the file transfer service.
type Service struct {
	cfg       Config
	transport Transport
	jobs      Jobs
	logger    Logger
	gate      *semaphore.Weighted
	thumbs    *throttle

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	perJob  map[*job.Job]jobScope
	offs    []func()
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New prepares the scratch directory, creating it if absent and emptying it
// if present, and returns a service that is not yet listening.
func New(cfg Config, transport Transport, jobs Jobs, opts ...Option) (*Service, error) {
	if cfg.ScratchDir == "" {
		return nil, errors.New("transfer: scratch dir is required")
	}
	if err := prepareScratchDir(cfg.ScratchDir); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:       cfg,
		transport: transport,
		jobs:      jobs,
		logger:    noopLogger{},
		gate:      semaphore.NewWeighted(1),
		ctx:       ctx,
		cancel:    cancel,
		perJob:    make(map[*job.Job]jobScope),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.thumbs = newThrottle(cfg.ThumbnailInterval, func(j *job.Job) {
		s.spawn(func() { s.refreshThumbnail(j) })
	})

	return s, nil
}

// Start subscribes to job events, makes a first connection attempt in the
// background and starts the reconnect poll.
func (s *Service) Start() {
	s.mu.Lock()
	s.offs = append(s.offs,
		s.jobs.OnJob(event.PrintStart, s.onStart),
		s.jobs.OnJob(event.PrintUpdate, s.thumbs.Trigger),
		s.jobs.OnJob(event.PrintFinish, s.onFinish),
	)
	s.mu.Unlock()

	s.spawn(func() {
		if err := s.Connect(s.ctx); err != nil {
			s.logger.Warn("ftps connection failed", "error", err)
		}
	})
	s.spawn(s.poll)
}

// Stop unsubscribes, cancels pending work, waits for it to drain and closes
// the transport.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	offs := s.offs
	s.offs = nil
	s.mu.Unlock()

	for _, off := range offs {
		off()
	}
	s.thumbs.Stop()
	s.cancel()
	s.wg.Wait()

	// Nothing else can hold the gate now.
	return s.transport.Close()
}

// Connect authenticates if the transport is closed. It waits its turn at
// the gate like any transfer.
func (s *Service) Connect(ctx context.Context) error {
	return s.run(ctx, func(ctx context.Context) error {
		if !s.transport.Closed() {
			return nil
		}
		if err := s.transport.Connect(ctx); err != nil {
			return err
		}
		s.logger.Info("ftps connected")
		return nil
	})
}

// run executes fn while holding the gate.
func (s *Service) run(ctx context.Context, fn func(context.Context) error) error {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.gate.Release(1)
	return fn(ctx)
}

// spawn runs fn on a tracked goroutine unless the service is stopping.
func (s *Service) spawn(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
	return true
}

func (s *Service) poll() {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.Connect(s.ctx); err != nil && s.ctx.Err() == nil {
				s.logger.Warn("ftps reconnect failed", "error", err)
			}
		}
	}
}

type jobScope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// jobContext returns the context bounding work for j, creating it on first
// use. It reports false once j is no longer the current job, so a scope is
// never recreated after cancelJob removed it.
func (s *Service) jobContext(j *job.Job) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scope, ok := s.perJob[j]; ok {
		return scope.ctx, true
	}
	// print:finish is emitted after the tracker drops j, so checking under
	// s.mu orders this against cancelJob.
	if !s.jobs.IsCurrent(j) {
		return nil, false
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.perJob[j] = jobScope{ctx: ctx, cancel: cancel}
	return ctx, true
}

// cancelJob stops all pending work for j.
func (s *Service) cancelJob(j *job.Job) {
	s.mu.Lock()
	scope, ok := s.perJob[j]
	delete(s.perJob, j)
	s.mu.Unlock()

	if ok {
		scope.cancel()
	}
}

func (s *Service) onFinish(j *job.Job) {
	s.cancelJob(j)
	s.thumbs.Cancel(j)

	s.spawn(func() {
		// Holding the gate guarantees no download for j is still writing.
		err := s.run(s.ctx, func(context.Context) error {
			return s.cleanUp(j)
		})
		if err != nil && s.ctx.Err() == nil {
			s.logger.Warn("cleaning up job files failed", "job", j.ID(), "error", err)
		}
	})
}

func (s *Service) cleanUp(j *job.Job) error {
	var errs []error

	if name := ArchiveName(j.SubtaskName()); name != "" {
		if err := os.Remove(filepath.Join(s.cfg.ScratchDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	thumbs, err := filepath.Glob(filepath.Join(s.cfg.ScratchDir, thumbnailPrefix(j)+"*.jpg"))
	if err != nil {
		errs = append(errs, err)
	}
	for _, path := range thumbs {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func prepareScratchDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, scratchDirPermissions); err != nil {
			return fmt.Errorf("creating scratch dir: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading scratch dir: %w", err)
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("purging scratch dir: %w", err)
		}
	}
	return nil
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
