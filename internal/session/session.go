package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gofrs/flock"

	"bioviz/internal/config"
	"bioviz/internal/engine"
	"bioviz/internal/history"
	"bioviz/internal/logging"
	"bioviz/internal/protocol"
	"bioviz/internal/sidecar"
)

// ErrSessionActive indicates another bioviz process holds the session lock.
var ErrSessionActive = errors.New("another bioviz session is already running")

// Option configures session startup.
type Option func(*settings)

type settings struct {
	logger   *slog.Logger
	observer func(*protocol.Response)
	policy   engine.TimeoutPolicy
}

// WithLogger attaches a logger to the session and everything it starts.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithEnvelopeObserver forwards every decoded worker envelope, terminal or
// not, to fn. Used by the interactive console transcript.
func WithEnvelopeObserver(fn func(*protocol.Response)) Option {
	return func(s *settings) { s.observer = fn }
}

// WithTimeoutPolicy overrides the config-derived per-command deadlines.
func WithTimeoutPolicy(policy engine.TimeoutPolicy) Option {
	return func(s *settings) { s.policy = policy }
}

// Session is a live connection to one worker process.
type Session struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *flock.Flock
	lockPath string
	client   *engine.Client
	journal  *history.Store
	pid      int

	closeOnce sync.Once
	closeErr  error
}

// Start acquires the instance lock, launches the worker, and blocks until it
// announces readiness (bounded by engine.startup_timeout_seconds).
func Start(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session: config required")
	}
	var opt settings
	for _, o := range opts {
		o(&opt)
	}
	logger := logging.NewComponentLogger(opt.logger, "session")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "bioviz.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrSessionActive
	}

	s := &Session{
		cfg:      cfg,
		logger:   logger,
		lock:     lock,
		lockPath: lockPath,
	}

	if cfg.History.Enabled {
		journal, err := history.Open(cfg.HistoryPath(), history.WithMaxEntries(cfg.History.MaxEntries))
		if err != nil {
			s.release()
			return nil, fmt.Errorf("open history journal: %w", err)
		}
		s.journal = journal
	}

	launch := sidecar.FromConfig(cfg)
	launch.Logger = opt.logger
	proc, err := sidecar.Start(launch)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("launch worker: %w", err)
	}

	policy := opt.policy
	if policy == nil {
		policy = cfg.CommandTimeout
	}
	clientOpts := []engine.Option{
		engine.WithLogger(opt.logger),
		engine.WithTimeoutPolicy(policy),
		engine.WithHeartbeatInterval(cfg.EngineHeartbeatInterval()),
		engine.WithStderrEcho(cfg.Logging.EchoWorkerStderr),
	}
	if opt.observer != nil {
		clientOpts = append(clientOpts, engine.WithEnvelopeObserver(opt.observer))
	}
	client, err := engine.New(proc, clientOpts...)
	if err != nil {
		_ = proc.Close()
		s.release()
		return nil, fmt.Errorf("start engine client: %w", err)
	}
	s.client = client

	readyCtx, cancel := context.WithTimeout(ctx, cfg.EngineStartupTimeout())
	defer cancel()
	if err := client.WaitReady(readyCtx); err != nil {
		_ = client.Close()
		s.release()
		return nil, fmt.Errorf("worker startup: %w", err)
	}
	s.pid = proc.PID()
	s.checkProtocolVersion()

	logger.Info("session started",
		logging.WorkerPID(proc.PID()),
		logging.String("lock", lockPath),
	)
	return s, nil
}

// Client exposes the correlation client for callers that need raw access.
func (s *Session) Client() *engine.Client {
	return s.client
}

// History returns the journal, or nil when history is disabled.
func (s *Session) History() *history.Store {
	return s.journal
}

// LockPath returns the instance lock location.
func (s *Session) LockPath() string {
	return s.lockPath
}

// WorkerPID returns the worker's process id.
func (s *Session) WorkerPID() int {
	return s.pid
}

// Call dispatches cmd, awaits its terminal reply, and journals the outcome.
func (s *Session) Call(ctx context.Context, cmd string, payload any) (*protocol.Response, error) {
	started := time.Now()
	resp, err := s.client.Call(ctx, cmd, payload)
	s.record(cmd, resp, err, time.Since(started))
	return resp, err
}

// Notify dispatches cmd without awaiting a reply. Fire-and-forget commands
// never produce journal entries: there is no completion to record.
func (s *Session) Notify(ctx context.Context, cmd string, payload any) error {
	return s.client.Notify(ctx, cmd, payload)
}

// Heartbeat sends a single liveness probe.
func (s *Session) Heartbeat(ctx context.Context) error {
	return s.client.Heartbeat(ctx)
}

// Close drains pending requests, stops the worker, and releases the lock.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.client != nil {
			s.closeErr = s.client.Close()
		}
		s.release()
		s.logger.Info("session closed")
	})
	return s.closeErr
}

// release closes the journal and drops the instance lock. The journal pointer
// stays set so a Call racing with Close records against a closed store (an
// error we log) instead of racing on the field itself.
func (s *Session) release() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("close history journal", logging.Error(err))
		}
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("release session lock", logging.Error(err))
	}
}

func (s *Session) record(cmd string, resp *protocol.Response, callErr error, elapsed time.Duration) {
	if s.journal == nil {
		return
	}
	entry := history.Entry{
		Command: strings.ToUpper(strings.TrimSpace(cmd)),
		Status:  history.OutcomeOK,
		Elapsed: elapsed,
	}
	switch {
	case callErr == nil:
		entry.RequestID = resp.RequestID
	case errors.Is(callErr, engine.ErrTimeout):
		entry.Status = history.OutcomeTimeout
		entry.ErrorMessage = callErr.Error()
	case errors.Is(callErr, engine.ErrWorkerTerminated):
		entry.Status = history.OutcomeTerminated
		entry.ErrorMessage = callErr.Error()
	case errors.Is(callErr, context.Canceled), errors.Is(callErr, context.DeadlineExceeded):
		entry.Status = history.OutcomeCancelled
		entry.ErrorMessage = callErr.Error()
	default:
		entry.Status = history.OutcomeError
		entry.ErrorMessage = callErr.Error()
	}
	if entry.RequestID == "" {
		entry.RequestID = requestIDFromError(callErr)
	}

	// Journal writes use their own short deadline so a slow disk cannot
	// stall command completion.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := s.journal.Record(ctx, entry); err != nil {
		s.logger.Warn("record history entry", logging.Error(err), logging.Command(entry.Command))
	}
}

func requestIDFromError(err error) string {
	var timeoutErr *engine.TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.RequestID
	}
	var termErr *engine.TerminatedError
	if errors.As(err, &termErr) {
		return termErr.RequestID
	}
	var workerErr *engine.WorkerError
	if errors.As(err, &workerErr) {
		return workerErr.RequestID
	}
	return ""
}

// checkProtocolVersion compares the ready announcement against
// engine.min_protocol_version. Older workers stay usable: their bare replies
// are matched through the sole-pending heuristic, so this only warns.
func (s *Session) checkProtocolVersion() {
	minimum := strings.TrimSpace(s.cfg.Engine.MinProtocolVersion)
	if minimum == "" {
		return
	}
	minVersion, err := semver.NewVersion(minimum)
	if err != nil {
		s.logger.Warn("invalid engine.min_protocol_version", logging.String("value", minimum), logging.Error(err))
		return
	}
	info, ok := s.client.ReadyInfo()
	if !ok || strings.TrimSpace(info.Version) == "" {
		s.logger.Warn("worker did not report a protocol version",
			logging.String("minimum", minimum),
			logging.Alert("legacy_worker"),
		)
		return
	}
	version, err := semver.NewVersion(strings.TrimPrefix(info.Version, "v"))
	if err != nil {
		s.logger.Warn("unparseable worker protocol version",
			logging.String("version", info.Version),
			logging.Error(err),
		)
		return
	}
	if version.LessThan(minVersion) {
		s.logger.Warn("worker predates the request id protocol, sole-pending matching in effect",
			logging.String("version", version.String()),
			logging.String("minimum", minimum),
			logging.Alert("legacy_worker"),
		)
	}
}
