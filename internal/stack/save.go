package stack

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clouddeck/stackd/internal/action"
	"github.com/clouddeck/stackd/internal/atomicfile"
	"github.com/clouddeck/stackd/internal/history"
	"github.com/clouddeck/stackd/internal/lock"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Save applies template and params to the workspace. It acquires the
// workspace lock (ErrBusy if held), writes the input files atomically,
// starts an apply Action and returns once the process has started. The
// outcome is observable later via Info, Events or the operation history;
// a downstream process failure is never raised past this call.
func (s *Stack) Save(template, params any) error {
	tmplJSON, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	varsJSON, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}

	lk, err := lock.Acquire(s.dir)
	if err != nil {
		return err
	}

	// Classification happens before this operation writes anything: a
	// workspace with no completed operation on record is a create.
	op, inProgress, complete, failed := "update", StateUpdateInProgress, StateUpdateComplete, StateUpdateFailed
	if !s.hasPriorState() {
		op, inProgress, complete, failed = "create", StateCreateInProgress, StateCreateComplete, StateCreateFailed
	}

	if err := atomicfile.WriteFile(filepath.Join(s.dir, TemplateFileName), tmplJSON, 0o644); err != nil {
		_ = lk.Release()
		return fmt.Errorf("write template: %w", err)
	}
	if err := atomicfile.WriteFile(filepath.Join(s.dir, VarsFileName), varsJSON, 0o644); err != nil {
		_ = lk.Release()
		return fmt.Errorf("write parameters: %w", err)
	}

	opID := uuid.NewString()
	digest := blake3.Sum256(tmplJSON)

	a, err := action.New(s.binary, []string{"apply", "--no-color"},
		action.WithDir(s.dir),
		action.WithEnv(s.commandEnv()),
		action.WithSupervisor(s.sup),
	)
	if err != nil {
		_ = lk.Release()
		return err
	}

	a.OnStart(func(act *action.Action) {
		s.track(act)
		if err := s.updateInfo(func(rec *InfoRecord) { rec.State = inProgress }); err != nil {
			s.logger.Error("failed to persist in-progress state", "error", err)
		}
		s.historyBegin(opID, op, inProgress, hex.EncodeToString(digest[:]))
		s.publish("workspace.save", inProgress, "")
		s.logger.Info("save started", "op", op, "op_id", opID)
	})
	a.OnIO(s.extractEvent)
	a.OnComplete(func(res action.Result, act *action.Action) {
		final := failed
		if res.Success() {
			final = complete
		}
		if err := s.updateInfo(func(rec *InfoRecord) {
			rec.State = final
			rec.UpdatedAt = s.nowMillis()
		}); err != nil {
			s.logger.Error("failed to persist final state", "error", err)
		}
		s.untrack(act)
		s.releaseLock(lk)
		s.historyFinish(opID, final, res.ExitCode, act.Stderr())
		s.publish("workspace.save", final, "")
		s.logger.Info("save finished", "op", op, "op_id", opID, "state", final, "exit_code", res.ExitCode)
	})

	s.mu.Lock()
	s.held = lk
	s.mu.Unlock()

	if err := a.Start(); err != nil {
		s.releaseLock(lk)
		return err
	}
	return nil
}

// Destroy tears the workspace down with a forced destroy. Like Save it
// returns once the process has started. On success the whole workspace
// directory is removed; on failure the workspace stays present in state
// delete_failed so the destroy can be retried.
func (s *Stack) Destroy() error {
	if !s.Exists() {
		return ErrNotFound
	}

	lk, err := lock.Acquire(s.dir)
	if err != nil {
		return err
	}

	opID := uuid.NewString()
	a, err := action.New(s.binary, []string{"destroy", "-force", "--no-color"},
		action.WithDir(s.dir),
		action.WithEnv(s.commandEnv()),
		action.WithSupervisor(s.sup),
	)
	if err != nil {
		_ = lk.Release()
		return err
	}

	a.OnStart(func(act *action.Action) {
		s.track(act)
		if err := s.updateInfo(func(rec *InfoRecord) { rec.State = StateDeleteInProgress }); err != nil {
			s.logger.Error("failed to persist in-progress state", "error", err)
		}
		s.historyBegin(opID, "delete", StateDeleteInProgress, "")
		s.publish("workspace.destroy", StateDeleteInProgress, "")
		s.logger.Info("destroy started", "op_id", opID)
	})
	a.OnIO(s.extractEvent)
	a.OnComplete(func(res action.Result, act *action.Action) {
		s.untrack(act)
		if !res.Success() {
			if err := s.updateInfo(func(rec *InfoRecord) {
				rec.State = StateDeleteFailed
				rec.UpdatedAt = s.nowMillis()
			}); err != nil {
				s.logger.Error("failed to persist final state", "error", err)
			}
			s.releaseLock(lk)
			s.historyFinish(opID, StateDeleteFailed, res.ExitCode, act.Stderr())
			s.publish("workspace.destroy", StateDeleteFailed, "")
			s.logger.Warn("destroy failed", "op_id", opID, "exit_code", res.ExitCode)
			return
		}

		// The info record is destroyed with the directory; no terminal
		// delete_complete state is persisted there.
		s.releaseLock(lk)
		if err := os.RemoveAll(s.dir); err != nil {
			s.logger.Error("failed to remove workspace directory", "error", err)
		}
		s.historyFinish(opID, "deleted", res.ExitCode, "")
		s.publish("workspace.destroy", "deleted", "")
		s.logger.Info("destroy finished", "op_id", opID)
	})

	s.mu.Lock()
	s.held = lk
	s.mu.Unlock()

	if err := a.Start(); err != nil {
		s.releaseLock(lk)
		return err
	}
	return nil
}

func (s *Stack) releaseLock(lk *lock.FileLock) {
	s.mu.Lock()
	if s.held == lk {
		s.held = nil
	}
	s.mu.Unlock()
	_ = lk.Release()
}

func (s *Stack) historyBegin(opID, op string, state State, digest string) {
	if s.history == nil {
		return
	}
	err := s.history.Begin(context.Background(), history.Record{
		ID:             opID,
		Workspace:      s.name,
		Op:             op,
		State:          string(state),
		TemplateDigest: digest,
	})
	if err != nil {
		s.logger.Warn("failed to record operation start", "op_id", opID, "error", err)
	}
}

func (s *Stack) historyFinish(opID string, state State, exitCode int, stderr string) {
	if s.history == nil {
		return
	}
	if err := s.history.Finish(context.Background(), opID, string(state), exitCode, stderr); err != nil {
		s.logger.Warn("failed to record operation end", "op_id", opID, "error", err)
	}
}
