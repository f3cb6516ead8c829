package action

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clouddeck/stackd/internal/supervisor"
)

func shAction(t *testing.T, script string, opts ...Option) *Action {
	t.Helper()
	a, err := New("/bin/sh", []string{"-c", script}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestCompleteImplicitlyStarts(t *testing.T) {
	t.Parallel()

	a := shAction(t, "exit 0")
	res, err := a.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !res.Success() {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestNonZeroExitIsResultNotError(t *testing.T) {
	t.Parallel()

	a := shAction(t, "exit 3")
	res, err := a.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Success() || res.ExitCode != 3 {
		t.Fatalf("Result = %+v, want exit code 3", res)
	}
}

func TestSpawnFailurePropagates(t *testing.T) {
	t.Parallel()

	a, err := New("/nonexistent/prov-binary", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(); err == nil {
		t.Fatalf("Start of nonexistent binary expected error")
	}

	if _, err := New("/nonexistent/prov-binary", nil, WithAutoStart()); err == nil {
		t.Fatalf("New with auto-start expected spawn error")
	}
}

func TestSyncOutputCapture(t *testing.T) {
	t.Parallel()

	a := shAction(t, "echo out-line; echo err-line >&2")
	if _, err := a.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := a.Stdout(); got != "out-line\n" {
		t.Fatalf("Stdout = %q, want %q", got, "out-line\n")
	}
	if got := a.Stderr(); got != "err-line\n" {
		t.Fatalf("Stderr = %q, want %q", got, "err-line\n")
	}
}

func TestStreamingLinesAndCompletionOrder(t *testing.T) {
	t.Parallel()

	a := shAction(t, "echo one; echo two; echo three >&2; exit 0")

	var mu sync.Mutex
	var stdoutLines []string
	var stderrLines []string
	ioDelivered := 0
	ioAtCompletion := -1

	a.OnIO(func(line string, stream Stream) {
		mu.Lock()
		defer mu.Unlock()
		ioDelivered++
		if stream == Stdout {
			stdoutLines = append(stdoutLines, line)
		} else {
			stderrLines = append(stderrLines, line)
		}
	})

	var completions atomic.Int32
	a.OnComplete(func(res Result, _ *Action) {
		mu.Lock()
		ioAtCompletion = ioDelivered
		mu.Unlock()
		completions.Add(1)
	})

	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := a.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !res.Success() {
		t.Fatalf("ExitCode = %d", res.ExitCode)
	}

	mu.Lock()
	defer mu.Unlock()
	if want := []string{"one", "two"}; strings.Join(stdoutLines, ",") != strings.Join(want, ",") {
		t.Fatalf("stdout lines = %v, want %v", stdoutLines, want)
	}
	if len(stderrLines) != 1 || stderrLines[0] != "three" {
		t.Fatalf("stderr lines = %v, want [three]", stderrLines)
	}
	// Completion fires exactly once, strictly after all buffered IO.
	if got := completions.Load(); got != 1 {
		t.Fatalf("completion hooks fired %d times, want 1", got)
	}
	if ioAtCompletion != 3 {
		t.Fatalf("IO delivered at completion = %d, want 3", ioAtCompletion)
	}
	if a.Stdout() != "one\ntwo\n" {
		t.Fatalf("buffered stdout = %q", a.Stdout())
	}
}

func TestHooksFireInRegistrationOrder(t *testing.T) {
	t.Parallel()

	a := shAction(t, "true")

	var mu sync.Mutex
	var order []string
	a.OnStart(func(*Action) { mu.Lock(); order = append(order, "start-1"); mu.Unlock() })
	a.OnStart(func(*Action) { mu.Lock(); order = append(order, "start-2"); mu.Unlock() })
	a.OnComplete(func(Result, *Action) { mu.Lock(); order = append(order, "done-1"); mu.Unlock() })
	a.OnComplete(func(Result, *Action) { mu.Lock(); order = append(order, "done-2"); mu.Unlock() })

	if _, err := a.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := "start-1,start-2,done-1,done-2"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("hook order = %s, want %s", got, want)
	}
}

func TestSupervisorRegistration(t *testing.T) {
	t.Parallel()

	sup := supervisor.New()
	a := shAction(t, "sleep 0.1", WithSupervisor(sup))
	a.OnComplete(func(Result, *Action) {})

	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sup.Len() != 1 {
		t.Fatalf("supervisor Len = %d after start, want 1", sup.Len())
	}
	if !a.Running() {
		t.Fatalf("Running() = false while process alive")
	}

	if _, err := a.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if a.Running() {
		t.Fatalf("Running() = true after completion")
	}

	deadline := time.Now().Add(time.Second)
	for sup.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("supervisor Len = %d after completion, want 0", sup.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDoubleStartFails(t *testing.T) {
	t.Parallel()

	a := shAction(t, "sleep 0.05")
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Start(); err == nil {
		t.Fatalf("second Start expected error")
	}
	if _, err := a.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}
