package sidecar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"bioviz/internal/engine"
	"bioviz/internal/logging"
)

const (
	defaultStopTimeout = 5 * time.Second
	readBufferSize     = 32 * 1024
	eventBufferSize    = 64
)

// ErrProcessExited is returned by Send once the worker is gone.
var ErrProcessExited = errors.New("sidecar: worker process exited")

// Process is a running worker subprocess. It satisfies engine.Transport:
// stdout and stderr arrive as raw chunk events, followed by exactly one exit
// event, after which the event channel closes.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *slog.Logger

	events chan engine.Event
	done   chan struct{}
	dead   atomic.Bool

	sendMu sync.Mutex

	stopTimeout time.Duration
	stopOnce    sync.Once
	stopErr     error
}

// Start launches the worker in its own process group and begins pumping its
// output. The caller must Close the returned process.
func Start(opts Options) (*Process, error) {
	if opts.Command == "" {
		return nil, errors.New("sidecar: command required")
	}
	stopTimeout := opts.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.ExtraEnv...)
	// Own process group so teardown reaps grandchildren too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %s: %w", opts.Command, err)
	}

	p := &Process{
		cmd:         cmd,
		stdin:       stdin,
		logger:      logging.NewComponentLogger(opts.Logger, "sidecar"),
		events:      make(chan engine.Event, eventBufferSize),
		done:        make(chan struct{}),
		stopTimeout: stopTimeout,
	}
	p.logger.Info("worker started",
		logging.WorkerPID(cmd.Process.Pid),
		logging.String("command", opts.Command),
	)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go p.pump(stdout, engine.EventStdout, &pumps)
	go p.pump(stderr, engine.EventStderr, &pumps)
	go p.wait(&pumps)
	return p, nil
}

// PID returns the worker's process id.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Send writes one framed line to the worker's stdin.
func (p *Process) Send(ctx context.Context, line []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.dead.Load() {
		return ErrProcessExited
	}
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if _, err := p.stdin.Write(line); err != nil {
		logging.WithContext(ctx, p.logger).Debug("worker stdin write failed", logging.Error(err))
		return fmt.Errorf("write worker stdin: %w", err)
	}
	return nil
}

// Events returns the worker's output stream.
func (p *Process) Events() <-chan engine.Event {
	return p.events
}

// Alive reports whether the worker process is still running.
func (p *Process) Alive() bool {
	return !p.dead.Load()
}

// Close shuts the worker down: stdin EOF first, then SIGTERM, then SIGKILL
// after the grace period. It returns once the exit event has been published.
func (p *Process) Close() error {
	p.stopOnce.Do(func() { p.stopErr = p.shutdown() })
	return p.stopErr
}

func (p *Process) shutdown() error {
	_ = p.stdin.Close()

	if !p.dead.Load() {
		// EOF asks politely; SIGTERM backs it up for a worker stuck outside
		// its read loop.
		p.signal(unix.SIGTERM)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(p.stopTimeout):
	}

	p.logger.Warn("worker ignored SIGTERM, killing process group", logging.WorkerPID(p.PID()))
	p.signal(unix.SIGKILL)

	select {
	case <-p.done:
		return nil
	case <-time.After(p.stopTimeout):
		return fmt.Errorf("worker pid %d did not exit after SIGKILL", p.PID())
	}
}

// signal targets the whole process group.
func (p *Process) signal(sig unix.Signal) {
	pid := p.PID()
	if pid <= 0 {
		return
	}
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		p.logger.Debug("signal worker group",
			logging.Error(err),
			logging.String("signal", sig.String()),
		)
	}
}

func (p *Process) pump(r io.Reader, kind engine.EventKind, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			p.events <- engine.Event{Kind: kind, Data: chunk}
		}
		if err != nil {
			return
		}
	}
}

// wait reaps the process after both pumps drain and publishes the exit event.
func (p *Process) wait(pumps *sync.WaitGroup) {
	pumps.Wait()
	err := p.cmd.Wait()
	p.dead.Store(true)

	reason := exitReason(err)
	p.logger.Debug("worker exited", logging.String("reason", reason))
	p.events <- engine.Event{Kind: engine.EventExit, Reason: reason}
	close(p.events)
	close(p.done)
}

func exitReason(err error) string {
	if err == nil {
		return "exited cleanly"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "exited: " + exitErr.Error()
	}
	return "wait failed: " + err.Error()
}
