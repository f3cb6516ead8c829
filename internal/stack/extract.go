package stack

import (
	"regexp"

	"github.com/clouddeck/stackd/internal/action"
	"github.com/google/uuid"
)

// eventLine matches per-resource status lines in the binary's output: an
// optional leading marker, a non-whitespace token, a colon, and a status
// phrase, e.g. "* aws_instance.web: Creation complete".
var eventLine = regexp.MustCompile(`^[^A-Za-z0-9_]*([^\s:]+): +(.+?)\s*$`)

// extractEvent is installed as an IO hook on save/destroy Actions. Each
// matching output line is prepended to the persisted event log.
func (s *Stack) extractEvent(line string, _ action.Stream) {
	m := eventLine.FindStringSubmatch(line)
	if m == nil {
		return
	}

	ev := Event{
		ID:             uuid.NewString(),
		Timestamp:      s.nowMillis(),
		ResourceName:   m[1],
		ResourceStatus: m[2],
	}
	if err := s.updateInfo(func(rec *InfoRecord) {
		rec.Events = append([]Event{ev}, rec.Events...)
	}); err != nil {
		s.logger.Error("failed to persist extracted event", "error", err)
		return
	}
	s.publish("workspace.resource", "", ev.ResourceName+": "+ev.ResourceStatus)
}
