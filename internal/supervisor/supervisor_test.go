package supervisor

import (
	"sync/atomic"
	"testing"
	"time"
)

type fakeProcess struct {
	waited  atomic.Int32
	blockCh chan struct{}
}

func (p *fakeProcess) Wait() {
	if p.blockCh != nil {
		<-p.blockCh
	}
	p.waited.Add(1)
}

func TestRegisterDeregister(t *testing.T) {
	t.Parallel()

	s := New()
	a := &fakeProcess{}
	b := &fakeProcess{}

	idA := s.Register(a)
	idB := s.Register(b)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	s.Deregister(idA)
	if s.Len() != 1 {
		t.Fatalf("Len() after deregister = %d, want 1", s.Len())
	}

	// Deregistering twice or with an unknown id must be harmless.
	s.Deregister(idA)
	s.Deregister(9999)
	s.Deregister(idB)
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}

func TestShutdownDrainsAndRunsOnce(t *testing.T) {
	t.Parallel()

	s := New()
	p := &fakeProcess{blockCh: make(chan struct{})}
	s.Register(p)

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Shutdown returned before process finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(p.blockCh)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Shutdown did not return after process finished")
	}

	// Second call must be a no-op and must not wait again.
	s.Shutdown()
	if got := p.waited.Load(); got != 1 {
		t.Fatalf("process waited %d times, want 1", got)
	}
}
