package stack

import (
	"path/filepath"
	"testing"
)

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(""); err == nil {
		t.Error("expected error for empty container")
	}
	if _, err := NewManager(t.TempDir()); err != nil {
		t.Errorf("valid container rejected: %v", err)
	}
}

func TestManagerSaveAndQueriesShareDisk(t *testing.T) {
	container := filepath.Join(t.TempDir(), "workspaces")
	bin := writeStub(t, happyStub)

	mgr, err := NewManager(container, WithBinary(bin))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := mgr.Save("web-prod", map[string]any{"resource": map[string]any{}}, map[string]any{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second handle for the same name observes the same workspace.
	s, err := mgr.Stack("web-prod")
	if err != nil {
		t.Fatalf("Stack: %v", err)
	}
	waitForState(t, s, StateCreateComplete)

	names, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "web-prod" {
		t.Fatalf("List = %v", names)
	}

	info, err := mgr.Info("web-prod")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.State != StateCreateComplete {
		t.Errorf("state = %q", info.State)
	}

	tmpl, err := mgr.Template("web-prod")
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	if tmpl == "" || tmpl == "{}" {
		t.Errorf("template not persisted: %q", tmpl)
	}
}
