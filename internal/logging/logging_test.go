// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level info, got %s", cfg.Level)
	}
}

func TestNewWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Level: "debug"})
	l.Debug("compiled flow", "table", 12, "priority", 30)

	if !strings.Contains(buf.String(), "compiled flow") {
		t.Errorf("expected log output to contain message, got %q", buf.String())
	}
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Level: "debug"})
	sub := l.With("device_id", "tap123")
	sub.Warn("skipping malformed rule")

	out := buf.String()
	if !strings.Contains(out, "tap123") {
		t.Errorf("expected sub-logger fields in output, got %q", out)
	}
}
