package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/xplshn/gci/pkg/cli"
	"github.com/xplshn/gci/pkg/codegen"
	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/samples"
	"github.com/xplshn/gci/pkg/util"
	"go.uber.org/zap"
)

func main() {
	app := cli.NewApp("gci")
	app.Synopsis = "[options] <sample> ..."
	app.Description = "Lowers type-checked sample programs to a C header and source file, with reference-counted sharing, vtables and sentinel error propagation."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/gci>"

	var (
		outDir     string
		outName    string
		configPath string
		target     string
		namespace  string
		verbose    bool
		list       bool
		wall       bool
		pedantic   bool
	)

	fs := app.FlagSet
	fs.String(&outDir, "output", "o", ".", "Write the generated files into <dir>, or to stdout when <dir> is '-'.", "dir")
	fs.String(&outName, "name", "", "", "Base name of the generated .h/.c pair (default: the sample name).", "name")
	fs.String(&configPath, "config", "c", "", "Read settings from a TOML file.", "file")
	fs.String(&target, "target", "t", "", "Target ABI whose word size constrains container slots.", "target")
	fs.String(&namespace, "namespace", "n", "", "Prefix every generated type and function.", "prefix")
	fs.Bool(&verbose, "verbose", "v", false, "Log each lowering step.")
	fs.Bool(&list, "list", "l", false, "List the available samples and exit.")
	fs.Bool(&wall, "Wall", "", false, "Enable most warnings.")
	fs.Bool(&pedantic, "pedantic", "p", false, "Issue every warning, including noisy ones.")

	config.NewConfig().SetupFlagGroups(fs)

	app.Action = func(names []string) error {
		if list || len(names) == 0 {
			listSamples()
			if len(names) == 0 && !list {
				return fmt.Errorf("no sample specified")
			}
			return nil
		}

		log := zap.NewNop()
		if verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				util.Error(err)
				return err
			}
			log = l
		}
		defer log.Sync()

		for _, name := range names {
			if err := lowerSample(name, func() (*config.Config, error) {
				cfg, err := loadConfig(configPath)
				if err != nil { return nil, err }
				cfg.ApplyFlags(fs)
				if target != "" { cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target) }
				if namespace != "" { cfg.Namespace = namespace }
				cfg.OutputName = name
				if outName != "" { cfg.OutputName = outName }
				return cfg, cfg.Validate()
			}, outDir, log); err != nil {
				util.Error(err)
				return err
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" { return config.LoadFile(path) }
	cfg := config.NewConfig()
	cfg.SetTarget(runtime.GOOS, runtime.GOARCH, "")
	return cfg, nil
}

func listSamples() {
	for _, name := range samples.Names() {
		s, _ := samples.Lookup(name)
		fmt.Printf("  %-10s %s\n", s.Name, s.Description)
	}
}

func lowerSample(name string, configure func() (*config.Config, error), outDir string, log *zap.Logger) error {
	sample, ok := samples.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown sample '%s' (available: %s)", name, strings.Join(samples.Names(), ", "))
	}
	cfg, err := configure()
	if err != nil { return err }
	for _, flag := range cfg.UnknownFlags() {
		util.Warn(cfg, config.WarnExtra, "", "unrecognized flag '%s'", flag)
	}

	log = log.With(zap.String("sample", name))
	out, err := codegen.NewCBackend(log).Generate(sample.Build(), cfg)
	if err != nil { return err }

	// Lowering must not depend on map order or pointer identity.
	again, err := codegen.NewCBackend(log).Generate(sample.Build(), cfg)
	if err != nil { return err }
	if out.Sum64() != again.Sum64() {
		return fmt.Errorf("%s: output differs between two runs (%016x vs %016x)", name, out.Sum64(), again.Sum64())
	}

	if outDir == "-" {
		fmt.Printf("/* %s */\n%s\n/* %s */\n%s", out.HeaderName, out.Header, out.SourceName, out.Source)
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := out.WriteFiles(outDir); err != nil { return err }
	fmt.Printf("%s: wrote %s and %s [%016x]\n", name, out.HeaderName, out.SourceName, out.Sum64())
	return nil
}
