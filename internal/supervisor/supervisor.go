// Package supervisor tracks in-flight external processes so none are
// orphaned when the host shuts down.
package supervisor

import (
	"log/slog"
	"sync"

	"github.com/clouddeck/stackd/internal/log"
)

// Process is an in-flight external-process wrapper that can be waited to
// completion.
type Process interface {
	// Wait blocks until the process has exited and all of its buffered
	// output has been delivered.
	Wait()
}

// Supervisor is an injectable registry of running processes. It holds only
// non-owning tracking references; the entries own their process lifecycle.
type Supervisor struct {
	mu     sync.Mutex
	nextID int
	procs  map[int]Process

	shutdown sync.Once
	logger   *slog.Logger
}

// New creates an empty Supervisor.
func New() *Supervisor {
	return &Supervisor{
		procs:  make(map[int]Process),
		logger: log.WithComponent("supervisor"),
	}
}

// Register tracks p and returns a handle for Deregister.
func (s *Supervisor) Register(p Process) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.procs[id] = p
	return id
}

// Deregister stops tracking the process registered under id. Unknown ids
// are ignored.
func (s *Supervisor) Deregister(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.procs, id)
}

// Len returns the number of currently tracked processes.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// Shutdown waits for every tracked process to finish. It runs at most once;
// later calls return immediately. Callers are responsible for not handing
// the supervisor a process that can never finish.
func (s *Supervisor) Shutdown() {
	s.shutdown.Do(func() {
		s.mu.Lock()
		remaining := make([]Process, 0, len(s.procs))
		for _, p := range s.procs {
			remaining = append(remaining, p)
		}
		s.mu.Unlock()

		if len(remaining) > 0 {
			s.logger.Info("draining running processes", "count", len(remaining))
		}
		for _, p := range remaining {
			p.Wait()
		}
	})
}
