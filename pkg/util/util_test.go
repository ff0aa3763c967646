package util

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xplshn/gci/pkg/config"
)

func captureStderr(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Stderr
	Stderr = &buf
	t.Cleanup(func() { Stderr = prev })
	return &buf
}

func TestLowerError(t *testing.T) {
	err := error(Errorf("Shape.Area", "cannot lower %s", "thing"))
	if got, want := err.Error(), "Shape.Area: cannot lower thing"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var le *LowerError
	if !errors.As(err, &le) || le.Symbol != "Shape.Area" {
		t.Errorf("errors.As did not recover the symbol")
	}
	if got := Errorf("", "bare").Error(); got != "bare" {
		t.Errorf("Error() without symbol = %q", got)
	}
}

func TestWarnRespectsConfig(t *testing.T) {
	buf := captureStderr(t)
	cfg := config.NewConfig()

	Warn(cfg, config.WarnDiscardedShared, "Node.Chain", "dropped %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("disabled warning printed %q", buf.String())
	}

	cfg.SetWarning(config.WarnDiscardedShared, true)
	Warn(cfg, config.WarnDiscardedShared, "Node.Chain", "dropped %d", 1)
	if got, want := buf.String(), "Node.Chain: warning: dropped 1 [-Wdiscarded-shared]\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestErrorIsUncolouredOffTerminal(t *testing.T) {
	buf := captureStderr(t)
	Error(errors.New("boom"))
	if got, want := buf.String(), "gci: error: boom\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
