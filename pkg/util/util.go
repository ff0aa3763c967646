package util

import (
	"fmt"
	"io"
	"os"

	"github.com/xplshn/gci/pkg/config"
	"golang.org/x/term"
)

// LowerError is a fatal problem found while lowering; no output is produced.
type LowerError struct {
	Symbol string
	Msg    string
}

func (e *LowerError) Error() string {
	if e.Symbol == "" { return e.Msg }
	return fmt.Sprintf("%s: %s", e.Symbol, e.Msg)
}

// Errorf builds a LowerError naming symbol.
func Errorf(symbol, format string, args ...interface{}) *LowerError {
	return &LowerError{Symbol: symbol, Msg: fmt.Sprintf(format, args...)}
}

// Stderr receives diagnostics; tests swap it out.
var Stderr io.Writer = os.Stderr

func colorize(code, s string) string {
	f, ok := Stderr.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { return s }
	return "\033[" + code + "m" + s + "\033[0m"
}

// Error prints a fatal diagnostic without exiting.
func Error(err error) {
	fmt.Fprintf(Stderr, "gci: %s %v\n", colorize("31", "error:"), err)
}

// Warn prints a formatted warning if the corresponding warning is enabled.
func Warn(cfg *config.Config, wt config.Warning, symbol, format string, args ...interface{}) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	prefix := "gci"
	if symbol != "" {
		prefix = symbol
	}
	fmt.Fprintf(Stderr, "%s: %s ", prefix, colorize("33", "warning:"))
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintf(Stderr, " [-W%s]\n", cfg.Warnings[wt].Name)
}
