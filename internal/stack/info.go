package stack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clouddeck/stackd/internal/atomicfile"
)

// loadInfo reads the persisted info record, defaulting state to unknown and
// created_at to now when the record or its fields are missing.
func (s *Stack) loadInfo() (InfoRecord, error) {
	rec := InfoRecord{State: StateUnknown}

	b, err := os.ReadFile(s.infoPath())
	if os.IsNotExist(err) {
		rec.CreatedAt = s.nowMillis()
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("read info record: %w", err)
	}

	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("decode info record: %w", err)
	}
	if rec.State == "" {
		rec.State = StateUnknown
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.nowMillis()
	}
	return rec, nil
}

// updateInfo applies transform to the current info record and persists the
// result atomically. Concurrent in-process updates (the event extractor
// races the completion hook) are serialized by infoMu.
func (s *Stack) updateInfo(transform func(*InfoRecord)) error {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()

	rec, err := s.loadInfo()
	if err != nil {
		return err
	}
	transform(&rec)

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode info record: %w", err)
	}
	if err := atomicfile.WriteFile(s.infoPath(), b, 0o644); err != nil {
		return fmt.Errorf("persist info record: %w", err)
	}
	return nil
}

func (s *Stack) infoPath() string {
	return filepath.Join(s.dir, InfoFileName)
}

// hasPriorState reports whether a save should be classified as an update.
// No persisted record, or a record still in the unknown state, means the
// workspace has never completed an operation and the save is a create.
func (s *Stack) hasPriorState() bool {
	b, err := os.ReadFile(s.infoPath())
	if err != nil {
		return false
	}
	var rec InfoRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return false
	}
	return rec.State != "" && rec.State != StateUnknown
}
