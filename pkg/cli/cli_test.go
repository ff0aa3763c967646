package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		args    []string
		out     string
		verbose bool
		defs    []string
		rest    []string
	}{
		{args: []string{"shapes"}, out: ".", rest: []string{"shapes"}},
		{args: []string{"-o", "build", "nodes"}, out: "build", rest: []string{"nodes"}},
		{args: []string{"-obuild", "-v"}, out: "build", verbose: true, rest: []string{}},
		{args: []string{"--output=gen", "--verbose=false"}, out: "gen", rest: []string{}},
		{args: []string{"-D", "a", "--define", "b"}, out: ".", defs: []string{"a", "b"}, rest: []string{}},
		{args: []string{"-v", "--", "-o", "x"}, out: ".", verbose: true, rest: []string{"-o", "x"}},
	}
	for _, tt := range tests {
		fs := NewFlagSet("gci")
		var out string
		var verbose bool
		var defs []string
		fs.String(&out, "output", "o", ".", "Output directory.", "dir")
		fs.Bool(&verbose, "verbose", "v", false, "Log each lowering step.")
		fs.List(&defs, "define", "D", nil, "Extra definitions.", "name")

		if err := fs.Parse(tt.args); err != nil {
			t.Errorf("%v: %v", tt.args, err)
			continue
		}
		if out != tt.out || verbose != tt.verbose {
			t.Errorf("%v: got output=%q verbose=%v", tt.args, out, verbose)
		}
		if diff := cmp.Diff(tt.defs, defs); diff != "" {
			t.Errorf("%v: defines (-want +got):\n%s", tt.args, diff)
		}
		if diff := cmp.Diff(tt.rest, fs.Args()); diff != "" {
			t.Errorf("%v: args (-want +got):\n%s", tt.args, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for args, want := range map[string]string{
		"--missing":   "unknown flag: --missing",
		"-x":          "unknown shorthand flag: -x",
		"-o":          "flag needs an argument: -o",
		"--output":    "flag needs an argument: --output",
		"-v=maybe":    "invalid boolean value 'maybe'",
		"--":          "",
		"--=anything": "unknown flag: --",
	} {
		fs := NewFlagSet("gci")
		var out string
		var verbose bool
		fs.String(&out, "output", "o", ".", "", "dir")
		fs.Bool(&verbose, "v", "", false, "")
		err := fs.Parse(strings.Fields(args))
		switch {
		case want == "" && err != nil:
			t.Errorf("%q: unexpected error %v", args, err)
		case want != "" && (err == nil || !strings.Contains(err.Error(), want)):
			t.Errorf("%q: got %v, want %q", args, err, want)
		}
	}
}

func TestFlagGroup(t *testing.T) {
	on, off := true, false
	entries := []FlagGroupEntry{{Name: "extra", Usage: "Extra warnings.", Enabled: &on, Disabled: &off}}
	fs := NewFlagSet("gci")
	fs.AddFlagGroup("Warning Flags", "W", "warning", entries)

	if err := fs.Parse([]string{"-Wno-extra"}); err != nil {
		t.Fatal(err)
	}
	if !*entries[0].Disabled {
		t.Errorf("-Wno-extra did not set the disable toggle")
	}
	if fs.Lookup("Wextra") == nil || fs.Lookup("Wno-extra") == nil {
		t.Errorf("group flags were not defined")
	}
}

func TestRunHelpAndUsage(t *testing.T) {
	newApp := func() (*App, *bytes.Buffer, *bytes.Buffer, *bool) {
		app := NewApp("gci")
		app.Synopsis = "[options] <sample>"
		app.Description = "Lowers a sample program to C."
		var stdout, stderr bytes.Buffer
		app.Stdout, app.Stderr = &stdout, &stderr
		ran := false
		app.Action = func([]string) error { ran = true; return nil }
		var out string
		app.FlagSet.String(&out, "output", "o", ".", "Output directory.", "dir")
		on := true
		app.FlagSet.AddFlagGroup("Feature Flags", "F", "feature", []FlagGroupEntry{{Name: "cpp-guard", Usage: "Guard the header.", Enabled: &on}})
		return app, &stdout, &stderr, &ran
	}

	app, stdout, _, ran := newApp()
	if err := app.Run([]string{"--help"}); err != nil || *ran {
		t.Fatalf("help: err=%v ran=%v", err, *ran)
	}
	for _, want := range []string{"Synopsis", "gci <options> <sample>", "Lowers a sample program to C.", "--output <dir>", "|.|", "Feature Flags", "-F<feature>", "-Fno-<feature>", "cpp-guard", "|x|"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("help page lacks %q:\n%s", want, stdout.String())
		}
	}
	if strings.Contains(stdout.String(), "--Fcpp-guard") {
		t.Errorf("group flags leaked into the options list")
	}

	app, _, stderr, ran := newApp()
	if err := app.Run([]string{"--nope"}); err == nil || *ran {
		t.Fatalf("bad flag: err=%v ran=%v", err, *ran)
	}
	if !strings.HasPrefix(stderr.String(), "unknown flag: --nope\nUsage: gci [options] <sample>\n") {
		t.Errorf("usage page:\n%s", stderr.String())
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if diff := cmp.Diff([]string{"one two", "three", "four"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := wrapText("   ", 9); len(got) != 0 {
		t.Errorf("blank text wrapped to %q", got)
	}
}

func TestVisitFollowsCommandLine(t *testing.T) {
	fs := NewFlagSet("gci")
	var a, b, c bool
	var out string
	fs.Bool(&a, "Wextra", "", true, "")
	fs.Bool(&b, "Wno-extra", "", false, "")
	fs.Bool(&c, "pedantic", "", false, "")
	fs.String(&out, "output", "o", ".", "", "dir")
	if err := fs.Parse([]string{"-Wno-extra", "-o", "gen", "--pedantic=false", "-Wextra"}); err != nil {
		t.Fatal(err)
	}
	var got []string
	fs.Visit(func(name string) { got = append(got, name) })
	if diff := cmp.Diff([]string{"Wno-extra", "output", "Wextra"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
