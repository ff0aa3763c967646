package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gci/pkg/cli"
	"go.uber.org/multierr"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	for _, ft := range []Feature{FeatCollapseThrow, FeatStrictTemps, FeatCppGuard} {
		if !cfg.IsFeatureEnabled(ft) {
			t.Errorf("feature %s should default on", cfg.Features[ft].Name)
		}
	}
	if cfg.IsWarningEnabled(WarnDiscardedShared) || cfg.IsWarningEnabled(WarnPedantic) {
		t.Errorf("noisy warnings should default off")
	}
	if cfg.OutputName != "out" || cfg.WordSize != 8 {
		t.Errorf("got output %q word size %d", cfg.OutputName, cfg.WordSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestDirectiveFlags(t *testing.T) {
	tests := []struct {
		flags   string
		feature map[Feature]bool
		warning map[Warning]bool
		unknown []string
	}{
		{
			flags:   "-Fno-collapse-throw -Wdiscarded-shared",
			feature: map[Feature]bool{FeatCollapseThrow: false, FeatStrictTemps: true},
			warning: map[Warning]bool{WarnDiscardedShared: true},
		},
		{
			flags:   "-Wno-all",
			warning: map[Warning]bool{WarnFillSideEffects: false, WarnExtra: false, WarnDiscardedShared: false},
		},
		{
			flags:   "-pedantic",
			warning: map[Warning]bool{WarnPedantic: true, WarnDiscardedShared: true},
		},
		{
			flags:   "-Fcpp-guard -Fbogus -Wnothing",
			feature: map[Feature]bool{FeatCppGuard: true},
			unknown: []string{"-Fbogus", "-Wnothing"},
		},
	}
	for _, tt := range tests {
		cfg := NewConfig()
		cfg.ProcessDirectiveFlags(tt.flags)
		for ft, want := range tt.feature {
			if got := cfg.IsFeatureEnabled(ft); got != want {
				t.Errorf("%q: feature %s = %v, want %v", tt.flags, cfg.Features[ft].Name, got, want)
			}
		}
		for wt, want := range tt.warning {
			if got := cfg.IsWarningEnabled(wt); got != want {
				t.Errorf("%q: warning %s = %v, want %v", tt.flags, cfg.Warnings[wt].Name, got, want)
			}
		}
		if diff := cmp.Diff(tt.unknown, cfg.UnknownFlags()); diff != "" {
			t.Errorf("%q: unknown flags (-want +got):\n%s", tt.flags, diff)
		}
	}
}

func TestProcessFlagsAppliesWallFirst(t *testing.T) {
	cfg := NewConfig()
	cfg.ProcessFlags(func(fn func(name string)) {
		for _, name := range []string{"Wfill-side-effects", "Wno-all"} {
			fn(name)
		}
	})
	if !cfg.IsWarningEnabled(WarnFillSideEffects) {
		t.Errorf("a specific warning must override -Wno-all regardless of order")
	}
	if cfg.IsWarningEnabled(WarnExtra) {
		t.Errorf("-Wno-all should disable extra")
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
namespace = "Demo"
output = "demo"
target = "arm"
flags = ["-Fno-cpp-guard", "-Wdiscarded-shared"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := struct {
		Namespace, Output, Target string
		WordSize                  int
		CppGuard, Discarded       bool
	}{cfg.Namespace, cfg.OutputName, cfg.TargetName, cfg.WordSize, cfg.IsFeatureEnabled(FeatCppGuard), cfg.IsWarningEnabled(WarnDiscardedShared)}
	want := struct {
		Namespace, Output, Target string
		WordSize                  int
		CppGuard, Discarded       bool
	}{"Demo", "demo", "arm", 4, false, true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsMalformedToml(t *testing.T) {
	if _, err := Parse([]byte("namespace = ")); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gci.toml")
	if err := os.WriteFile(path, []byte(`output = "lib"`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.OutputName != "lib" {
		t.Errorf("output = %q, want lib", cfg.OutputName)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := NewConfig()
	cfg.Namespace = "9bad"
	cfg.OutputName = "dir/out"
	cfg.SetTarget("linux", "amd64", "pdp11")

	errs := multierr.Errors(cfg.Validate())
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}
	for i, want := range []string{"namespace", "path separator", "unsupported target"} {
		if !strings.Contains(errs[i].Error(), want) {
			t.Errorf("error %d = %q, want mention of %q", i, errs[i], want)
		}
	}
}

func TestSetTargetWordSize(t *testing.T) {
	tests := map[string]int{"amd64_sysv": 8, "arm64_apple": 8, "rv64": 8, "arm": 4, "rv32": 4}
	for target, want := range tests {
		cfg := NewConfig()
		cfg.SetTarget("linux", "amd64", target)
		if cfg.WordSize != want {
			t.Errorf("%s: word size %d, want %d", target, cfg.WordSize, want)
		}
	}
}

func TestCommandLineFlagGroups(t *testing.T) {
	fs := cli.NewFlagSet("gci")
	var all bool
	fs.Bool(&all, "Wall", "", false, "")
	NewConfig().SetupFlagGroups(fs)
	for _, name := range []string{"Wextra", "Wno-extra", "Fcpp-guard", "Fno-strict-temps"} {
		if fs.Lookup(name) == nil {
			t.Errorf("flag %s not registered", name)
		}
	}
	if err := fs.Parse([]string{"-Fno-cpp-guard", "-Wdiscarded-shared", "-Wall", "sample"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Parse([]byte(`flags = ["-Fno-strict-temps"]`))
	if err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlags(fs)
	if cfg.IsFeatureEnabled(FeatCppGuard) || cfg.IsFeatureEnabled(FeatStrictTemps) {
		t.Errorf("command line and file toggles should both disable their features")
	}
	if !cfg.IsWarningEnabled(WarnDiscardedShared) || !cfg.IsWarningEnabled(WarnExtra) {
		t.Errorf("-Wall and -Wdiscarded-shared should enable their warnings")
	}
	if len(cfg.UnknownFlags()) != 0 {
		t.Errorf("unexpected unknown flags %v", cfg.UnknownFlags())
	}
}
