// Package stack manages directory-backed provisioning workspaces by
// driving an external provisioning binary and persisting lifecycle state.
package stack

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/clouddeck/stackd/internal/action"
	"github.com/clouddeck/stackd/internal/events"
	"github.com/clouddeck/stackd/internal/history"
	"github.com/clouddeck/stackd/internal/lock"
	"github.com/clouddeck/stackd/internal/log"
	"github.com/clouddeck/stackd/internal/supervisor"
)

// Stack is one named, directory-backed provisioning target. Mutations are
// serialized by the workspace's advisory file lock; queries run short-lived
// sub-commands to completion inline.
type Stack struct {
	name      string
	container string
	dir       string
	binary    string
	sup       *supervisor.Supervisor
	hub       *events.Hub
	history   *history.Store
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	actions []*action.Action
	held    *lock.FileLock

	// infoMu serializes read-modify-write cycles on info.json within this
	// process; the file lock covers cross-process exclusion.
	infoMu sync.Mutex
}

// Option configures a Stack at construction time.
type Option func(*Stack)

// WithBinary overrides the provisioning binary (default "terraform").
func WithBinary(bin string) Option {
	return func(s *Stack) {
		if bin != "" {
			s.binary = bin
		}
	}
}

// WithSupervisor registers every spawned Action with sup.
func WithSupervisor(sup *supervisor.Supervisor) Option {
	return func(s *Stack) { s.sup = sup }
}

// WithHub publishes lifecycle transitions to hub.
func WithHub(hub *events.Hub) Option {
	return func(s *Stack) { s.hub = hub }
}

// WithHistory records save/destroy operations in st.
func WithHistory(st *history.Store) Option {
	return func(s *Stack) { s.history = st }
}

// withClock fixes the time source, for tests.
func withClock(now func() time.Time) Option {
	return func(s *Stack) { s.now = now }
}

// New constructs a Stack for name under container. Both are required; the
// workspace directory is container/name and is created lazily by Save.
func New(name, container string, opts ...Option) (*Stack, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(container) == "" {
		return nil, fmt.Errorf("container directory is empty")
	}

	s := &Stack{
		name:      name,
		container: filepath.Clean(container),
		binary:    DefaultBinary,
		logger:    log.WithStack(name),
		now:       time.Now,
	}
	s.dir = filepath.Join(s.container, name)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Stack) Name() string { return s.name }
func (s *Stack) Dir() string  { return s.dir }

// Exists reports whether the workspace directory is present.
func (s *Stack) Exists() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// Active reports whether any tracked Action's process is still running.
func (s *Stack) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.actions {
		if a.Running() {
			return true
		}
	}
	return false
}

// Validate is explicitly unsupported by this local-process variant.
func (s *Stack) Validate(template any) error {
	return ErrUnimplemented
}

// Template returns the stored template's raw text, or the empty-object
// literal if no template has been written yet.
func (s *Stack) Template() (string, error) {
	if !s.Exists() {
		return "", ErrNotFound
	}
	b, err := os.ReadFile(filepath.Join(s.dir, TemplateFileName))
	if os.IsNotExist(err) {
		return "{}", nil
	}
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(b), nil
}

// Events returns the persisted event log, most-recent-first, with each
// composite "type.name" split on its first separator.
func (s *Stack) Events() ([]WorkspaceEvent, error) {
	if !s.Exists() {
		return nil, ErrNotFound
	}
	rec, err := s.loadInfo()
	if err != nil {
		return nil, err
	}

	out := make([]WorkspaceEvent, 0, len(rec.Events))
	for _, ev := range rec.Events {
		resType, resName := splitResource(ev.ResourceName)
		out = append(out, WorkspaceEvent{
			ID:             ev.ID,
			Timestamp:      ev.Timestamp,
			ResourceType:   resType,
			ResourceName:   resName,
			ResourceStatus: ev.ResourceStatus,
		})
	}
	return out, nil
}

// Resources lists the workspace's top-level resources with their physical
// identifiers. It returns an empty slice when the external binary has not
// written a state file yet.
func (s *Stack) Resources() ([]Resource, error) {
	if !s.Exists() {
		return nil, ErrNotFound
	}
	if !s.hasStateFile() {
		return []Resource{}, nil
	}

	listOut, err := s.runCommand("state", "list")
	if err != nil {
		return nil, err
	}

	resources := []Resource{}
	for _, line := range strings.Split(listOut, "\n") {
		// Top-level resources start at column zero; indented lines belong
		// to modules and are skipped.
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		addr := strings.TrimSpace(line)

		showOut, err := s.runCommand("state", "show", addr)
		if err != nil {
			return nil, err
		}

		resType, resName := splitResource(addr)
		resources = append(resources, Resource{
			Type:       resType,
			Name:       resName,
			PhysicalID: attributeValue(showOut, "id"),
		})
	}
	return resources, nil
}

// Outputs returns the mapping from output key to output value, or an empty
// map when no state file exists.
func (s *Stack) Outputs() (map[string]any, error) {
	if !s.Exists() {
		return nil, ErrNotFound
	}
	if !s.hasStateFile() {
		return map[string]any{}, nil
	}

	out, err := s.runCommand("output", "-json")
	if err != nil {
		return nil, err
	}

	var raw map[string]struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("decode outputs: %w", err)
	}

	outputs := make(map[string]any, len(raw))
	for k, v := range raw {
		outputs[k] = v.Value
	}
	return outputs, nil
}

// Info composes identity, current state, coarse status, timestamps and
// outputs into one descriptive record.
func (s *Stack) Info() (Info, error) {
	if !s.Exists() {
		return Info{}, ErrNotFound
	}
	rec, err := s.loadInfo()
	if err != nil {
		return Info{}, err
	}
	outputs, err := s.Outputs()
	if err != nil {
		return Info{}, err
	}

	return Info{
		Name:      s.name,
		Dir:       s.dir,
		State:     rec.State,
		Status:    rec.State.Phase(),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Outputs:   outputs,
	}, nil
}

// List enumerates immediate subdirectories of container as workspace names,
// skipping hidden entries. A nonexistent container yields an empty slice;
// an empty container path is an argument error.
func List(container string) ([]string, error) {
	if strings.TrimSpace(container) == "" {
		return nil, fmt.Errorf("container directory is empty")
	}

	entries, err := os.ReadDir(container)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read container directory: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// runCommand runs one sub-command of the external binary to completion in
// the workspace directory and returns its stdout. A non-zero exit becomes a
// CommandError carrying the captured stderr.
func (s *Stack) runCommand(args ...string) (string, error) {
	args = append(args, "--no-color")
	a, err := action.New(s.binary, args,
		action.WithDir(s.dir),
		action.WithEnv(s.commandEnv()),
		action.WithSupervisor(s.sup),
	)
	if err != nil {
		return "", err
	}

	res, err := a.Complete()
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", &CommandError{Command: a.Command(), ExitCode: res.ExitCode, Stderr: a.Stderr()}
	}
	return a.Stdout(), nil
}

// commandEnv is the inherited environment plus the terraform automation
// marker, which suppresses interactive prompts and hints in its output.
func (s *Stack) commandEnv() []string {
	return append(os.Environ(), "TF_IN_AUTOMATION=1")
}

func (s *Stack) hasStateFile() bool {
	_, err := os.Stat(filepath.Join(s.dir, StateFileName))
	return err == nil
}

func (s *Stack) track(a *action.Action) {
	s.mu.Lock()
	s.actions = append(s.actions, a)
	s.mu.Unlock()
}

func (s *Stack) untrack(a *action.Action) {
	s.mu.Lock()
	for i, cur := range s.actions {
		if cur == a {
			s.actions = append(s.actions[:i], s.actions[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (s *Stack) publish(eventType string, state State, detail string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(eventType, s.name, string(state), detail)
}

func (s *Stack) nowMillis() int64 {
	return s.now().UnixMilli()
}

// splitResource splits a composite "type.name" on the first separator.
func splitResource(composite string) (resType, resName string) {
	if i := strings.Index(composite, "."); i >= 0 {
		return composite[:i], composite[i+1:]
	}
	return "", composite
}

// attributeValue extracts the value of key from line-oriented
// "key = value" output.
func attributeValue(out, key string) string {
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("workspace name is empty")
	}
	if trimmed == "." || trimmed == ".." {
		return fmt.Errorf("workspace name %q is invalid", name)
	}
	if strings.Contains(trimmed, "/") || strings.Contains(trimmed, `\`) {
		return fmt.Errorf("workspace name %q must not contain path separators", name)
	}
	if filepath.Clean(trimmed) != trimmed {
		return fmt.Errorf("workspace name %q is invalid", name)
	}
	return nil
}
