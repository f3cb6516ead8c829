// Package action runs one supervised invocation of an external binary,
// streaming its output to registered hooks while still allowing
// synchronous waits.
package action

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/clouddeck/stackd/internal/log"
	"github.com/clouddeck/stackd/internal/supervisor"
)

// maxLineBytes caps a single streamed output line.
const maxLineBytes = 1 << 20

// Stream identifies which output stream a line was produced on.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Result is the exit outcome of an Action. A non-zero exit code is not an
// error at this layer; callers decide whether it constitutes failure.
type Result struct {
	ExitCode int
}

func (r Result) Success() bool { return r.ExitCode == 0 }

// StartHook runs after the process has been spawned.
type StartHook func(*Action)

// IOHook runs once per complete output line.
type IOHook func(line string, stream Stream)

// CompleteHook runs exactly once, after all buffered IO has been delivered.
type CompleteHook func(Result, *Action)

// Option configures an Action at construction time.
type Option func(*Action)

// WithDir sets the working directory of the spawned process.
func WithDir(dir string) Option {
	return func(a *Action) { a.dir = dir }
}

// WithEnv sets the environment of the spawned process.
func WithEnv(env []string) Option {
	return func(a *Action) { a.env = env }
}

// WithSupervisor registers the Action with sup while its process runs.
func WithSupervisor(sup *supervisor.Supervisor) Option {
	return func(a *Action) { a.sup = sup }
}

// WithAutoStart spawns the process inside New.
func WithAutoStart() Option {
	return func(a *Action) { a.autoStart = true }
}

// Action is one external-process invocation. The command is immutable after
// construction; hooks must be registered before Start.
type Action struct {
	bin       string
	args      []string
	dir       string
	env       []string
	sup       *supervisor.Supervisor
	autoStart bool
	logger    *slog.Logger

	startHooks    []StartHook
	ioHooks       []IOHook
	completeHooks []CompleteHook

	mu        sync.Mutex
	cmd       *exec.Cmd
	started   bool
	streaming bool
	supID     int

	stdoutBuf lockedBuffer
	stderrBuf lockedBuffer

	readers sync.WaitGroup
	join    sync.Once
	done    chan struct{}
	result  Result
	waitErr error
}

// New constructs an Action for bin args. With WithAutoStart the process is
// spawned before New returns; spawn failure propagates as New's error.
func New(bin string, args []string, opts ...Option) (*Action, error) {
	if bin == "" {
		return nil, fmt.Errorf("binary is empty")
	}
	a := &Action{
		bin:    bin,
		args:   args,
		done:   make(chan struct{}),
		logger: log.WithComponent("action"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.autoStart {
		if err := a.Start(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Command returns the full command line, for logs and error messages.
func (a *Action) Command() string {
	return strings.TrimSpace(a.bin + " " + strings.Join(a.args, " "))
}

// OnStart registers a start hook. Hooks accumulate and fire in
// registration order.
func (a *Action) OnStart(h StartHook) {
	a.startHooks = append(a.startHooks, h)
}

// OnIO registers a per-line output hook.
func (a *Action) OnIO(h IOHook) {
	a.ioHooks = append(a.ioHooks, h)
}

// OnComplete registers a completion hook.
func (a *Action) OnComplete(h CompleteHook) {
	a.completeHooks = append(a.completeHooks, h)
}

// Start spawns the process and returns without waiting for exit. When IO or
// completion hooks are registered, a background task streams both output
// pipes line by line; otherwise output is captured into in-memory buffers
// for synchronous readers.
func (a *Action) Start() error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("action %q already started", a.Command())
	}

	cmd := exec.Command(a.bin, a.args...)
	cmd.Dir = a.dir
	if a.env != nil {
		cmd.Env = a.env
	}

	streaming := len(a.ioHooks) > 0 || len(a.completeHooks) > 0

	var outPipe, errPipe io.ReadCloser
	if streaming {
		var err error
		if outPipe, err = cmd.StdoutPipe(); err != nil {
			a.mu.Unlock()
			return fmt.Errorf("stdout pipe: %w", err)
		}
		if errPipe, err = cmd.StderrPipe(); err != nil {
			a.mu.Unlock()
			return fmt.Errorf("stderr pipe: %w", err)
		}
	} else {
		cmd.Stdout = &a.stdoutBuf
		cmd.Stderr = &a.stderrBuf
	}

	a.logger.Debug("spawning", "command", a.Command(), "dir", a.dir)
	if err := cmd.Start(); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("start %q: %w", a.Command(), err)
	}

	a.cmd = cmd
	a.started = true
	a.streaming = streaming
	if a.sup != nil {
		a.supID = a.sup.Register(a)
	}
	a.mu.Unlock()

	for _, h := range a.startHooks {
		h(a)
	}

	if streaming {
		a.readers.Add(2)
		go a.consume(outPipe, Stdout)
		go a.consume(errPipe, Stderr)
		go a.background()
	}
	return nil
}

// Complete blocks until the process has exited and, for streaming Actions,
// until all completion hooks have fired. An Action that was never started
// is started first. The returned error reports spawn or wait infrastructure
// failure only, never a non-zero exit.
func (a *Action) Complete() (Result, error) {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if !started {
		if err := a.Start(); err != nil {
			return Result{}, err
		}
	}

	a.mu.Lock()
	streaming := a.streaming
	a.mu.Unlock()

	if !streaming {
		a.join.Do(func() {
			a.finalize(a.cmd.Wait())
			a.deregister()
			close(a.done)
		})
	}
	<-a.done
	return a.result, a.waitErr
}

// Wait satisfies supervisor.Process.
func (a *Action) Wait() {
	_, _ = a.Complete()
}

// Running reports whether the process has started and not yet completed.
func (a *Action) Running() bool {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

// Stdout returns everything buffered from stdout so far.
func (a *Action) Stdout() string { return a.stdoutBuf.String() }

// Stderr returns everything buffered from stderr so far.
func (a *Action) Stderr() string { return a.stderrBuf.String() }

// consume reads one pipe to end of stream, appending to the stream's buffer
// and firing IO hooks once per complete line. Read errors end the stream
// without failing the Action; the exit result is authoritative.
func (a *Action) consume(r io.Reader, stream Stream) {
	defer a.readers.Done()

	buf := &a.stdoutBuf
	if stream == Stderr {
		buf = &a.stderrBuf
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteLine(line)
		for _, h := range a.ioHooks {
			h(line, stream)
		}
	}
	if err := scanner.Err(); err != nil {
		a.logger.Debug("stream read ended", "stream", stream.String(), "error", err)
	}
}

// background joins the stream readers, waits for exit, fires completion
// hooks exactly once, and deregisters from the supervisor.
func (a *Action) background() {
	a.readers.Wait()
	a.finalize(a.cmd.Wait())
	for _, h := range a.completeHooks {
		h(a.result, a)
	}
	a.deregister()
	close(a.done)
}

func (a *Action) finalize(err error) {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		a.result = Result{ExitCode: 0}
	case errors.As(err, &exitErr):
		a.result = Result{ExitCode: exitErr.ExitCode()}
	default:
		a.result = Result{ExitCode: -1}
		a.waitErr = fmt.Errorf("wait for %q: %w", a.Command(), err)
	}
}

func (a *Action) deregister() {
	if a.sup != nil {
		a.sup.Deregister(a.supID)
	}
}

// lockedBuffer is a mutex-guarded output accumulator. It is written by the
// stream readers (or by the process directly in the non-streaming case) and
// snapshotted by Stdout/Stderr.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) WriteLine(line string) {
	b.mu.Lock()
	b.buf.WriteString(line)
	b.buf.WriteByte('\n')
	b.mu.Unlock()
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
