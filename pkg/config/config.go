package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xplshn/gci/pkg/cli"
	"go.uber.org/multierr"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatCollapseThrow Feature = iota
	FeatStrictTemps
	FeatCppGuard
	FeatCount
)

type Warning int

const (
	WarnFillSideEffects Warning = iota
	WarnDiscardedShared
	WarnPedantic
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	Namespace  string
	OutputName string
	TargetName string
	WordSize   int
	unknown    []string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		OutputName: "out",
		WordSize:   8,
	}

	features := map[Feature]Info{
		FeatCollapseThrow: {"collapse-throw", true, "Fold a trailing throwing call and return into one conditional return."},
		FeatStrictTemps:   {"strict-temps", true, "Never share a temporary between two sub-expressions of one statement."},
		FeatCppGuard:      {"cpp-guard", true, "Wrap header declarations in an `extern \"C\"` block."},
	}

	warnings := map[Warning]Info{
		WarnFillSideEffects: {"fill-side-effects", true, "Warn when an array Fill loop re-evaluates an argument with side effects."},
		WarnDiscardedShared: {"discarded-shared", false, "Warn when a shared result of a call statement is released immediately."},
		WarnPedantic:        {"pedantic", false, "Issue every warning, including noisy ones."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings (e.g. unrecognized flags)."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget selects the C target whose word size constrains container slots.
// An empty target defaults to the host.
func (c *Config) SetTarget(goos, goarch, target string) {
	if target == "" {
		target = libqbe.DefaultTarget(goos, goarch)
	}
	c.TargetName = target

	switch target {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize = 8
	case "arm", "rv32":
		c.WordSize = 4
	default:
		c.WordSize = 0
	}
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// UnknownFlags lists flag names that matched no feature or warning.
func (c *Config) UnknownFlags() []string { return c.unknown }

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return
	}

	if name == "pedantic" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, true)
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
			return
		}
	} else if f, ok := c.FeatureMap[name]; ok {
		c.SetFeature(f, enable)
		return
	}
	c.unknown = append(c.unknown, flag)
}

func (c *Config) ProcessFlags(visitFlag func(fn func(name string))) {
	visitFlag(func(name string) {
		if name == "Wall" || name == "Wno-all" || name == "pedantic" {
			c.applyFlag("-" + name)
		}
	})
	visitFlag(func(name string) {
		if name != "Wall" && name != "Wno-all" && name != "pedantic" {
			c.applyFlag("-" + name)
		}
	})
}

// SetupFlagGroups registers -W<name>/-Wno-<name> for every warning and
// -F<name>/-Fno-<name> for every feature, defaulting to the current state.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) {
	warnings := make([]cli.FlagGroupEntry, 0, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		on, off := info.Enabled, false
		warnings = append(warnings, cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Enabled: &on, Disabled: &off})
	}
	features := make([]cli.FlagGroupEntry, 0, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		on, off := info.Enabled, false
		features = append(features, cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Enabled: &on, Disabled: &off})
	}
	fs.AddFlagGroup("Warning Flags", "W", "warning", warnings)
	fs.AddFlagGroup("Feature Flags", "F", "feature", features)
}

// ApplyFlags applies the toggles given on the command line over the current settings.
func (c *Config) ApplyFlags(fs *cli.FlagSet) {
	c.ProcessFlags(func(fn func(name string)) {
		fs.Visit(func(name string) {
			if name == "pedantic" || strings.HasPrefix(name, "W") || strings.HasPrefix(name, "F") {
				fn(name)
			}
		})
	})
}

func (c *Config) ProcessDirectiveFlags(flagStr string) {
	for _, flag := range strings.Fields(flagStr) {
		c.applyFlag(flag)
	}
}

type fileConfig struct {
	Namespace string   `toml:"namespace"`
	Output    string   `toml:"output"`
	Target    string   `toml:"target"`
	Flags     []string `toml:"flags"`
}

// LoadFile reads a TOML configuration file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := NewConfig()
	cfg.Namespace = fc.Namespace
	if fc.Output != "" {
		cfg.OutputName = fc.Output
	}
	cfg.SetTarget(runtime.GOOS, runtime.GOARCH, fc.Target)
	cfg.ProcessDirectiveFlags(strings.Join(fc.Flags, " "))
	return cfg, nil
}

var cIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var err error
	if c.Namespace != "" && !cIdent.MatchString(c.Namespace) {
		err = multierr.Append(err, fmt.Errorf("namespace %q is not a C identifier", c.Namespace))
	}
	if c.OutputName == "" {
		err = multierr.Append(err, fmt.Errorf("output name is empty"))
	} else if strings.ContainsAny(c.OutputName, `/\`) {
		err = multierr.Append(err, fmt.Errorf("output name %q must not contain a path separator", c.OutputName))
	}
	if c.WordSize != 4 && c.WordSize != 8 {
		err = multierr.Append(err, fmt.Errorf("unsupported target %q", c.TargetName))
	}
	return err
}
