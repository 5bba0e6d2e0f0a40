package childproc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
	"github.com/digitallysavvy/claude-code-gateway/internal/telemetry"
)

// Options configures one child lifecycle (§4.4).
type Options struct {
	Command string
	Args    []string
	Dir     string
	Stdin   string

	TotalTimeout      time.Duration
	InactivityTimeout time.Duration
	KillGrace         time.Duration

	// Telemetry configures the spawn/exit spans recorded for this child.
	// Nil disables tracing (the zero value behaves identically to a
	// disabled Settings).
	Telemetry *telemetry.Settings
}

// Supervisor manages one child process and surfaces its classified event
// stream. It implements registry.Cancellable so the gateway's process
// registry can force every live child to terminate on shutdown.
type Supervisor struct {
	opts   Options
	log    *slog.Logger
	events chan Event
	tracer trace.Tracer

	mu        sync.Mutex
	cmd       *exec.Cmd
	cancelled bool
	killTimer *time.Timer
}

// New spawns the child immediately, returning a Supervisor whose Events
// channel will be closed once the lifecycle ends (§4.4 step 1). The spawn
// itself is recorded as a span; a second span covers the child's run from
// here until it exits.
func New(opts Options, log *slog.Logger) (*Supervisor, error) {
	if log == nil {
		log = slog.Default()
	}
	tracer := telemetry.GetTracer(opts.Telemetry)
	s := &Supervisor{
		opts:   opts,
		log:    log,
		events: make(chan Event, 16),
		tracer: tracer,
	}

	var stdin io.WriteCloser
	var stdout, stderr io.ReadCloser
	cmd, err := telemetry.RecordSpan(context.Background(), tracer, telemetry.SpanOptions{
		Name:       "childproc.spawn",
		Attributes: spawnAttrs(opts),
	}, func(_ context.Context, span trace.Span) (*exec.Cmd, error) {
		cmd := exec.Command(opts.Command, opts.Args...)
		cmd.Dir = opts.Dir

		var err error
		if stdin, err = cmd.StdinPipe(); err != nil {
			return nil, gwerrors.NewChildSpawnError(opts.Command, err)
		}
		if stdout, err = cmd.StdoutPipe(); err != nil {
			return nil, gwerrors.NewChildSpawnError(opts.Command, err)
		}
		if stderr, err = cmd.StderrPipe(); err != nil {
			return nil, gwerrors.NewChildSpawnError(opts.Command, err)
		}
		if err := cmd.Start(); err != nil {
			return nil, gwerrors.NewChildSpawnError(opts.Command, err)
		}
		span.SetAttributes(attribute.Int("childproc.pid", cmd.Process.Pid))
		return cmd, nil
	})
	if err != nil {
		return nil, err
	}
	s.cmd = cmd

	if _, err := io.WriteString(stdin, opts.Stdin); err != nil {
		s.log.Warn("write prompt to child stdin failed", "error", err)
	}
	stdin.Close()

	go s.readStderr(stderr)
	go s.run(stdout)

	return s, nil
}

func spawnAttrs(opts Options) []attribute.KeyValue {
	return append(telemetry.BaseAttributes(opts.Dir, ""),
		attribute.String("childproc.command", opts.Command))
}

// Events returns the channel of classified events. It is closed exactly
// once, after which no further sends occur (§4.4 ordering guarantees).
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// run drives the supervisor's entire lifecycle: timers, stdout scanning,
// and exit cleanup. It owns the events channel and is the only goroutine
// that sends on or closes it, which is what makes event emission
// serialized per §4.4.
func (s *Supervisor) run(stdout io.ReadCloser) {
	defer close(s.events)

	_, exitSpan := s.tracer.Start(context.Background(), "childproc.exit", trace.WithAttributes(spawnAttrs(s.opts)...))
	defer func() {
		if s.cmd.ProcessState != nil {
			code := s.cmd.ProcessState.ExitCode()
			exitSpan.SetAttributes(attribute.Int("childproc.exit_code", code))
			if code != 0 {
				telemetry.RecordErrorOnSpan(exitSpan, fmt.Errorf("child exited with code %d", code))
			}
		}
		exitSpan.End()
	}()

	totalTimer := time.NewTimer(orDefault(s.opts.TotalTimeout, 3_600_000*time.Millisecond))
	defer totalTimer.Stop()

	inactivity := orDefault(s.opts.InactivityTimeout, 300_000*time.Millisecond)
	inactivityTimer := time.NewTimer(inactivity)
	defer inactivityTimer.Stop()

	lines := make(chan []byte, 16)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			cp := append([]byte(nil), line...)
			lines <- cp
		}
		close(lines)
	}()

	cmdDone := make(chan error, 1)
	go func() { cmdDone <- s.cmd.Wait() }()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				// The scanner only closes lines after every line it read has
				// already been sent on it, so this — not cmdDone — is the
				// authoritative end of the event stream. cmd.Wait() races
				// with our reads of the stdout pipe (exec.Cmd: "it is
				// incorrect to call Wait before all reads from the pipe have
				// completed"), so returning on cmdDone first can drop lines
				// still sitting in the buffered channel.
				s.awaitExit(cmdDone)
				return
			}
			if !inactivityTimer.Stop() {
				drainTimer(inactivityTimer)
			}
			inactivityTimer.Reset(inactivity)

			ev, err := ParseEvent(line)
			if err != nil {
				s.log.Warn("skipping malformed child event", "error", err, "line", string(line))
				continue
			}
			s.events <- ev

		case <-totalTimer.C:
			s.log.Warn("child total deadline exceeded", "dir", s.opts.Dir)
			s.terminate()
			s.events <- Event{Kind: KindTimeout, Timeout: TimeoutTotal}
			s.drainUntilExit(cmdDone, lines)
			return

		case <-inactivityTimer.C:
			s.log.Warn("child inactivity deadline exceeded", "dir", s.opts.Dir)
			s.terminate()
			s.events <- Event{Kind: KindTimeout, Timeout: TimeoutInactivity}
			s.drainUntilExit(cmdDone, lines)
			return

		case <-cmdDone:
			// The process exited before its stdout pipe was fully drained
			// from our side. Stop the kill timer but keep looping: we still
			// need to consume whatever is left in lines until the scanner
			// itself closes it, so no already-read event is lost.
			s.mu.Lock()
			if s.killTimer != nil {
				s.killTimer.Stop()
			}
			s.mu.Unlock()
			cmdDone = nil
		}
	}
}

// awaitExit waits for cmd.Wait() to report the process has exited (stopping
// the kill timer once it does) after the event stream itself has already
// ended, with a bounded fallback so a process that somehow never reports
// exit cannot wedge the supervisor goroutine forever.
func (s *Supervisor) awaitExit(cmdDone <-chan error) {
	select {
	case <-cmdDone:
		s.mu.Lock()
		if s.killTimer != nil {
			s.killTimer.Stop()
		}
		s.mu.Unlock()
	case <-time.After(s.killGrace() + time.Second):
	}
}

// drainUntilExit is used after a timeout fires: it keeps classifying any
// remaining buffered lines (so nothing already read is lost) while waiting
// for the process to actually exit after the two-phase kill.
func (s *Supervisor) drainUntilExit(cmdDone <-chan error, lines <-chan []byte) {
	for {
		select {
		case <-cmdDone:
			return
		case _, ok := <-lines:
			if !ok {
				lines = nil
			}
		case <-time.After(s.killGrace() + time.Second):
			return
		}
	}
}

func (s *Supervisor) readStderr(stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.log.Debug("child stderr", "line", scanner.Text())
	}
}

// Cancel triggers Phase 1 of termination immediately (client disconnect,
// request abort, or registry shutdown). It is idempotent.
func (s *Supervisor) Cancel() {
	s.terminate()
}

func (s *Supervisor) killGrace() time.Duration {
	return orDefault(s.opts.KillGrace, 5_000*time.Millisecond)
}

// terminate runs the two-phase kill: graceful signal now, forceful signal
// after killGrace if the process is still alive. Calling it more than once
// (e.g. both a timeout and a client cancel) is safe — later calls see the
// cancelled flag set by the first one and return without signaling again.
func (s *Supervisor) terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled || s.cmd == nil || s.cmd.Process == nil {
		return
	}
	s.cancelled = true

	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		s.log.Debug("graceful signal failed (process likely already exited)", "error", err)
		return
	}
	s.log.Info("sent graceful termination signal to child", "pid", s.cmd.Process.Pid)

	s.killTimer = time.AfterFunc(s.killGrace(), func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		if s.cmd.ProcessState != nil {
			return
		}
		if err := s.cmd.Process.Signal(syscall.SIGKILL); err == nil {
			s.log.Warn("force-killed child after grace period", "pid", s.cmd.Process.Pid)
		}
	})
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
