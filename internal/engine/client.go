package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bioviz/internal/logging"
	"bioviz/internal/protocol"
)

const probeTimeout = 5 * time.Second

// stderrDiagnosticPrefix marks stderr lines the worker writes deliberately,
// as opposed to tracebacks and stray prints.
const stderrDiagnosticPrefix = "[BioEngine]"

// Option configures the client.
type Option func(*Client)

// WithLogger attaches a logger. A component attribute is added automatically.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeoutPolicy overrides the per-command response deadlines.
func WithTimeoutPolicy(policy TimeoutPolicy) Option {
	return func(c *Client) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// WithHeartbeatInterval enables background liveness probes at the given
// cadence. Zero leaves probing disabled.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.hbInterval = interval
		}
	}
}

// WithIDGenerator overrides request id generation (primarily for tests).
func WithIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithEnvelopeObserver registers a hook invoked for every decoded envelope,
// including non-terminal and unknown statuses. The hook runs on the reader
// goroutine and must not block.
func WithEnvelopeObserver(fn func(*protocol.Response)) Option {
	return func(c *Client) { c.observer = fn }
}

// WithStderrEcho controls whether worker stderr lines are logged. On by default.
func WithStderrEcho(enabled bool) Option {
	return func(c *Client) { c.echoStderr = enabled }
}

// ReadyInfo captures the worker's startup announcement.
type ReadyInfo struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// Client drives the analysis worker: it dispatches commands, correlates
// replies, and supervises liveness. Safe for concurrent use.
type Client struct {
	transport  Transport
	logger     *slog.Logger
	policy     TimeoutPolicy
	newID      func() string
	observer   func(*protocol.Response)
	echoStderr bool
	hbInterval time.Duration

	reg     *registry
	writeMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once
	readyInfo atomic.Pointer[ReadyInfo]
	lastAlive atomic.Int64

	closed     atomic.Bool
	closeOnce  sync.Once
	closeErr   error
	hbStop     chan struct{}
	done       chan struct{}
	exitReason atomic.Pointer[string]
}

// New wires a client to the given transport and starts its reader. Callers
// own the returned client and must Close it to release the transport.
func New(transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.New("engine: transport required")
	}
	c := &Client{
		transport:  transport,
		policy:     StaticTimeout(DefaultTimeout),
		newID:      newRequestID,
		echoStderr: true,
		reg:        newRegistry(),
		ready:      make(chan struct{}),
		hbStop:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "engine")

	go c.readLoop()
	if c.hbInterval > 0 {
		go c.heartbeatLoop(c.hbInterval)
	}
	return c, nil
}

// Call dispatches cmd with payload and blocks until the matching terminal
// reply arrives, the command's deadline passes, ctx is cancelled, or the
// worker dies. Each outcome resolves the request exactly once.
func (c *Client) Call(ctx context.Context, cmd string, payload any) (*protocol.Response, error) {
	cmd = strings.ToUpper(strings.TrimSpace(cmd))
	if err := c.guard(); err != nil {
		return nil, err
	}

	p := newPending(cmd, c.newID())
	if err := c.reg.register(p); err != nil {
		return nil, err
	}

	line, err := protocol.EncodeRequest(protocol.Request{Cmd: cmd, Payload: payload, RequestID: p.id})
	if err != nil {
		c.reg.take(p.id)
		return nil, err
	}

	c.logger.Debug("dispatching command", logging.Command(cmd), logging.RequestID(p.id))
	sendCtx := logging.WithCommandContext(logging.WithRequestIDContext(ctx, p.id), cmd)
	if err := c.send(sendCtx, line); err != nil {
		if _, ok := c.reg.take(p.id); ok {
			return nil, fmt.Errorf("dispatch %s: %w", cmd, err)
		}
		// The exit handler beat us to the entry; surface its verdict.
		res := <-p.ch
		return nil, res.err
	}

	if timeout := c.policy(cmd); timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case res := <-p.ch:
			return res.resp, res.err
		case <-timer.C:
			if _, ok := c.reg.take(p.id); ok {
				elapsed := time.Since(p.registeredAt)
				c.logger.Warn("command timed out",
					logging.Command(cmd),
					logging.RequestID(p.id),
					logging.Duration("timeout", timeout),
					logging.Duration("elapsed", elapsed),
				)
				return nil, &TimeoutError{Cmd: cmd, RequestID: p.id, Timeout: timeout, Elapsed: elapsed}
			}
			// The reply won the race; it is already in the channel.
			res := <-p.ch
			return res.resp, res.err
		case <-ctx.Done():
			return c.abandon(ctx, p)
		}
	}

	select {
	case res := <-p.ch:
		return res.resp, res.err
	case <-ctx.Done():
		return c.abandon(ctx, p)
	}
}

// abandon gives up waiting on behalf of a cancelled caller. If the entry is
// already gone a result is guaranteed to be in flight, so surface that
// instead of the cancellation.
func (c *Client) abandon(ctx context.Context, p *pending) (*protocol.Response, error) {
	if _, ok := c.reg.take(p.id); ok {
		c.logger.Debug("caller abandoned command",
			logging.Command(p.cmd),
			logging.RequestID(p.id),
		)
		return nil, fmt.Errorf("awaiting %s: %w", p.cmd, ctx.Err())
	}
	res := <-p.ch
	return res.resp, res.err
}

// Notify dispatches cmd without a request id and without occupying the
// registry. Any reply the worker sends is informational only.
func (c *Client) Notify(ctx context.Context, cmd string, payload any) error {
	cmd = strings.ToUpper(strings.TrimSpace(cmd))
	if err := c.guard(); err != nil {
		return err
	}
	line, err := protocol.EncodeRequest(protocol.Request{Cmd: cmd, Payload: payload})
	if err != nil {
		return err
	}
	if err := c.send(logging.WithCommandContext(ctx, cmd), line); err != nil {
		return fmt.Errorf("dispatch %s: %w", cmd, err)
	}
	return nil
}

// Heartbeat sends one fire-and-forget liveness probe. The worker's alive
// reply is non-terminal and shows up via LastAlive rather than a result.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.Notify(ctx, CmdHeartbeat, nil)
}

// WaitReady blocks until the worker announces readiness, the worker dies, or
// ctx expires.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return &TerminatedError{Reason: c.ExitReason()}
	case <-ctx.Done():
		return fmt.Errorf("awaiting worker ready: %w", ctx.Err())
	}
}

// Ready reports whether the worker has announced readiness.
func (c *Client) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// ReadyInfo returns the worker's startup announcement, if seen.
func (c *Client) ReadyInfo() (ReadyInfo, bool) {
	if info := c.readyInfo.Load(); info != nil {
		return *info, true
	}
	return ReadyInfo{}, false
}

// LastAlive returns when the worker last answered a heartbeat probe.
func (c *Client) LastAlive() (time.Time, bool) {
	nanos := c.lastAlive.Load()
	if nanos == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

// Pending reports the number of in-flight requests.
func (c *Client) Pending() int {
	return c.reg.size()
}

// InFlight lists in-flight requests oldest first.
func (c *Client) InFlight() []InFlight {
	return c.reg.snapshot()
}

// Connected reports whether the worker is running and the client usable.
func (c *Client) Connected() bool {
	return !c.closed.Load() && c.reg.sealError() == nil && c.transport.Alive()
}

// ExitReason describes why the worker stopped, or "" while it runs.
func (c *Client) ExitReason() string {
	if reason := c.exitReason.Load(); reason != nil {
		return *reason
	}
	return ""
}

// Done is closed once the reader has processed the worker's final output.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close drains every pending request with ErrClientClosed, tears the
// transport down, and waits for the reader to finish.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.hbStop)
		for _, p := range c.reg.seal(ErrClientClosed) {
			p.deliver(result{err: fmt.Errorf("command %s abandoned: %w", p.cmd, ErrClientClosed)})
		}
		c.closeErr = c.transport.Close()
		<-c.done
	})
	return c.closeErr
}

func (c *Client) guard() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if err := c.reg.sealError(); err != nil {
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, line []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.Send(ctx, line)
}

func (c *Client) readLoop() {
	defer close(c.done)

	stdout := protocol.NewFramer()
	stderr := protocol.NewFramer()
	exitReason := "event stream closed"

	for ev := range c.transport.Events() {
		switch ev.Kind {
		case EventStdout:
			for _, line := range stdout.Push(ev.Data) {
				c.handleLine(line)
			}
		case EventStderr:
			for _, line := range stderr.Push(ev.Data) {
				c.handleStderrLine(line)
			}
		case EventExit:
			if ev.Reason != "" {
				exitReason = ev.Reason
			}
		}
	}

	if line := stdout.Flush(); line != nil {
		c.handleLine(line)
	}
	if line := stderr.Flush(); line != nil {
		c.handleStderrLine(line)
	}
	c.handleExit(exitReason)
}

func (c *Client) handleLine(line []byte) {
	resp, err := protocol.ParseResponse(line)
	if err != nil {
		// One bad document never poisons the stream.
		c.logger.Warn("discarding malformed worker line",
			logging.Error(err),
			logging.String("line", clip(line, 200)),
		)
		return
	}

	if c.observer != nil {
		c.observer(resp)
	}

	switch resp.Status {
	case protocol.StatusReady:
		c.markReady(resp)
		return
	case protocol.StatusAlive:
		c.lastAlive.Store(time.Now().UnixNano())
		return
	}

	if !resp.Terminal() {
		c.logger.Debug("non-terminal envelope",
			logging.String(logging.FieldStatus, resp.Status),
			logging.RequestID(resp.RequestID),
		)
		return
	}

	if resp.RequestID != "" {
		if p, ok := c.reg.take(resp.RequestID); ok {
			c.resolve(p, resp)
			return
		}
		// Typically a reply that lost the timeout race.
		c.logger.Debug("dropping stray reply",
			logging.RequestID(resp.RequestID),
			logging.String(logging.FieldStatus, resp.Status),
		)
		return
	}

	// Workers predating request id echo send bare terminal replies. They are
	// only safe to correlate when exactly one request is in flight.
	if p, ok := c.reg.takeSole(); ok {
		c.logger.Debug("correlating bare reply to sole pending request",
			logging.Command(p.cmd),
			logging.RequestID(p.id),
		)
		c.resolve(p, resp)
		return
	}

	c.logger.Warn("dropping uncorrelatable reply",
		logging.String(logging.FieldStatus, resp.Status),
		logging.Int("pending", c.reg.size()),
		logging.Alert("uncorrelatable_reply"),
	)
}

func (c *Client) resolve(p *pending, resp *protocol.Response) {
	if resp.Status == protocol.StatusError {
		cmd := resp.Cmd
		if cmd == "" {
			cmd = p.cmd
		}
		p.deliver(result{err: &WorkerError{Cmd: cmd, RequestID: p.id, Message: resp.ErrorMessage()}})
		return
	}
	p.deliver(result{resp: resp})
}

func (c *Client) markReady(resp *protocol.Response) {
	c.readyOnce.Do(func() {
		info := ReadyInfo{}
		if err := resp.DecodePayload(&info); err != nil {
			info.Message = resp.Message
		}
		c.readyInfo.Store(&info)
		close(c.ready)
		c.logger.Info("worker ready",
			logging.String("message", info.Message),
			logging.String("version", info.Version),
		)
	})
}

func (c *Client) handleStderrLine(line []byte) {
	if !c.echoStderr {
		return
	}
	text := string(line)
	// The worker tags its own diagnostics with a fixed prefix. Anything
	// unprefixed is an interpreter crash or stray print and deserves attention.
	if strings.HasPrefix(text, stderrDiagnosticPrefix) {
		c.logger.Debug("worker stderr", logging.String("line", text))
		return
	}
	c.logger.Warn("worker stderr", logging.String("line", text), logging.Alert("worker_stderr"))
}

func (c *Client) handleExit(reason string) {
	c.exitReason.Store(&reason)

	drained := c.reg.seal(fmt.Errorf("%w: %s", ErrWorkerTerminated, reason))
	for _, p := range drained {
		p.deliver(result{err: &TerminatedError{Cmd: p.cmd, RequestID: p.id, Reason: reason}})
	}

	if c.closed.Load() {
		c.logger.Debug("worker stopped", logging.String("reason", reason))
		return
	}
	c.logger.Warn("worker terminated",
		logging.String("reason", reason),
		logging.Int("failed_requests", len(drained)),
	)
}

func (c *Client) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.hbStop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			if err := c.Heartbeat(ctx); err != nil {
				c.logger.Debug("heartbeat dispatch failed", logging.Error(err))
			}
			cancel()
		}
	}
}

// newRequestID returns a UUIDv4, falling back to a timestamp-plus-random id
// when the entropy source is unavailable.
func newRequestID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackRequestID()
	}
	return id.String()
}

func fallbackRequestID() string {
	return fmt.Sprintf("req-%d-%08x", time.Now().UnixNano(), rand.Uint32())
}

func clip(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
