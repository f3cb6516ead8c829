package log

import (
	"log/slog"
	"testing"
)

func TestGetReturnsLoggerWithoutSetup(t *testing.T) {
	l := Get()
	if l == nil {
		t.Fatalf("Get() returned nil logger")
	}
}

func TestWithHelpersAttachFields(t *testing.T) {
	cases := []struct {
		name string
		fn   func() *slog.Logger
	}{
		{"component", func() *slog.Logger { return WithComponent("stack") }},
		{"workspace", func() *slog.Logger { return WithStack("web-prod") }},
		{"op", func() *slog.Logger { return WithOp("op-1") }},
	}
	for _, tc := range cases {
		if l := tc.fn(); l == nil {
			t.Fatalf("With%s returned nil logger", tc.name)
		}
	}
}
