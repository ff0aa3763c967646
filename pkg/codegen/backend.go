package codegen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/ir"
	"go.uber.org/multierr"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate lowers a type-checked program into the target's artifacts.
	// On a fatal lowering error no output is returned.
	Generate(prog *ir.Program, cfg *config.Config) (*Output, error)
}

// Output holds the declarations and definitions artifacts of one program.
type Output struct {
	HeaderName string
	SourceName string
	Header     []byte
	Source     []byte
}

// Sum64 fingerprints both artifacts.
func (o *Output) Sum64() uint64 {
	d := xxhash.New()
	d.WriteString(o.HeaderName)
	d.Write([]byte{0})
	d.Write(o.Header)
	d.Write([]byte{0})
	d.WriteString(o.SourceName)
	d.Write([]byte{0})
	d.Write(o.Source)
	return d.Sum64()
}

// WriteFiles stores both artifacts in dir, reporting every failed write.
func (o *Output) WriteFiles(dir string) error {
	var err error
	if e := os.WriteFile(filepath.Join(dir, o.HeaderName), o.Header, 0o644); e != nil {
		err = multierr.Append(err, fmt.Errorf("writing header: %w", e))
	}
	if e := os.WriteFile(filepath.Join(dir, o.SourceName), o.Source, 0o644); e != nil {
		err = multierr.Append(err, fmt.Errorf("writing source: %w", e))
	}
	return err
}
