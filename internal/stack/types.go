package stack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clouddeck/stackd/internal/lock"
)

// Workspace directory layout. Everything except the state file is written
// by stackd; the state file belongs to the external binary.
const (
	TemplateFileName = "main.tf.json"
	VarsFileName     = "terraform.tfvars.json"
	StateFileName    = "terraform.tfstate"
	InfoFileName     = "info.json"

	// DefaultBinary is the external provisioning binary driven by a Stack.
	DefaultBinary = "terraform"
)

// State is a workspace lifecycle state persisted in the info record.
type State string

const (
	StateUnknown          State = "unknown"
	StateCreateInProgress State = "create_in_progress"
	StateCreateComplete   State = "create_complete"
	StateCreateFailed     State = "create_failed"
	StateUpdateInProgress State = "update_in_progress"
	StateUpdateComplete   State = "update_complete"
	StateUpdateFailed     State = "update_failed"
	StateDeleteInProgress State = "delete_in_progress"
	StateDeleteFailed     State = "delete_failed"
)

// Phase collapses a state into the coarse vocabulary consumed by the
// mapping layer: unknown, in_progress, complete or failed.
func (s State) Phase() string {
	str := string(s)
	switch {
	case strings.HasSuffix(str, "_in_progress"):
		return "in_progress"
	case strings.HasSuffix(str, "_complete"):
		return "complete"
	case strings.HasSuffix(str, "_failed"):
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one per-resource status transition extracted from process
// output. Immutable once appended to the info record.
type Event struct {
	ID             string `json:"id"`
	Timestamp      int64  `json:"timestamp"` // ms epoch
	ResourceName   string `json:"resource_name"`
	ResourceStatus string `json:"resource_status"`
}

// InfoRecord is the persisted per-workspace metadata, stored as info.json.
// Events are kept most-recent-first.
type InfoRecord struct {
	State     State   `json:"state"`
	CreatedAt int64   `json:"created_at"` // ms epoch, set at most once
	UpdatedAt int64   `json:"updated_at"` // ms epoch
	Events    []Event `json:"events"`
}

// WorkspaceEvent is an Event with its composite resource name split into
// type and name, as returned by Events.
type WorkspaceEvent struct {
	ID             string `json:"id"`
	Timestamp      int64  `json:"timestamp"`
	ResourceType   string `json:"resource_type"`
	ResourceName   string `json:"resource_name"`
	ResourceStatus string `json:"resource_status"`
}

// Resource is one top-level provisioned resource.
type Resource struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	PhysicalID string `json:"physical_id"`
}

// Info is the composed descriptive record returned by Stack.Info.
type Info struct {
	Name      string         `json:"name"`
	Dir       string         `json:"dir"`
	State     State          `json:"state"`
	Status    string         `json:"status"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
	Outputs   map[string]any `json:"outputs"`
}

var (
	// ErrNotFound is returned when an operation targets a workspace whose
	// directory does not exist.
	ErrNotFound = errors.New("workspace not found")

	// ErrBusy is returned when a mutation is attempted while another holds
	// the workspace lock.
	ErrBusy = lock.ErrBusy

	// ErrUnimplemented is returned by Validate; the local driver does not
	// interpret template semantics.
	ErrUnimplemented = errors.New("validate is not supported by the local driver")
)

// CommandError reports a synchronously awaited sub-command that exited
// non-zero. It carries the captured standard-error text.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}
