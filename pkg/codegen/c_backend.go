package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/ir"
	"github.com/xplshn/gci/pkg/util"
	"go.uber.org/zap"
)

// cBackend lowers a program to a C header and source file. One Generate call
// owns all of the state below; the backend is not safe for concurrent use.
type cBackend struct {
	log  *zap.Logger
	cfg  *config.Config
	prog *ir.Program
	own  *Analyzer

	out         *strings.Builder
	indent      int
	atLineStart bool
	includes    map[string]bool
	use         usage

	written       map[*ir.Class]bool
	currentClass  *ir.Class
	currentMethod *ir.Method

	temps      []tempSlot
	pending    []*ir.Var
	scopes     []*jumpScope
	foreachOf  map[*ir.Var]*ir.Foreach
	labelCount int
}

func NewCBackend(log *zap.Logger) Backend {
	if log == nil { log = zap.NewNop() }
	return &cBackend{log: log}
}

func (b *cBackend) reset(prog *ir.Program, cfg *config.Config) {
	b.cfg, b.prog = cfg, prog
	b.own = NewAnalyzer()
	b.out = &strings.Builder{}
	b.indent, b.atLineStart = 0, true
	b.includes = make(map[string]bool)
	b.use = newUsage()
	b.written = make(map[*ir.Class]bool)
	b.currentClass, b.currentMethod = nil, nil
	b.temps, b.pending, b.scopes = nil, nil, nil
	b.foreachOf = make(map[*ir.Var]*ir.Foreach)
	b.labelCount = 0
}

// failf aborts lowering; Generate turns the panic back into an error.
func (b *cBackend) failf(format string, args ...interface{}) {
	panic(util.Errorf(b.symbolContext(), format, args...))
}

// symbolContext names the class or method being lowered, for diagnostics.
func (b *cBackend) symbolContext() string {
	switch {
	case b.currentMethod != nil && b.currentMethod.Parent != nil:
		return b.currentMethod.Parent.Name + "." + b.currentMethod.Name
	case b.currentClass != nil:
		return b.currentClass.Name
	}
	return ""
}

func (b *cBackend) Generate(prog *ir.Program, cfg *config.Config) (out *Output, err error) {
	if cfg == nil { cfg = config.NewConfig() }
	b.reset(prog, cfg)
	defer func() {
		if r := recover(); r != nil {
			le, ok := r.(*util.LowerError)
			if !ok { panic(r) }
			b.log.Debug("lowering failed", zap.String("symbol", le.Symbol), zap.String("reason", le.Msg))
			out, err = nil, le
		}
	}()

	out = &Output{HeaderName: cfg.OutputName + ".h", SourceName: cfg.OutputName + ".c"}
	header, headerIncludes := b.generateHeader()
	out.Header = []byte(header)
	out.Source = []byte(b.generateSource(out.HeaderName, headerIncludes))
	b.log.Info("lowered program",
		zap.String("header", out.HeaderName),
		zap.String("source", out.SourceName),
		zap.Int("classes", len(prog.Classes)),
		zap.Int("enums", len(prog.Enums)),
		zap.String("hash", fmt.Sprintf("%016x", out.Sum64())))
	return out, nil
}

func (b *cBackend) generateHeader() (string, map[string]bool) {
	decls := b.capture(func() {
		for _, c := range b.prog.Classes {
			if !c.Public { continue }
			b.currentClass = c
			b.writeNewDelete(c, false)
			b.writeSignatures(c, true)
		}
		b.currentClass = nil
	})
	typedefs := b.capture(func() { b.writeTypedefs(true) })

	var sb strings.Builder
	sb.WriteString("#pragma once\n")
	b.writeIncludes(&sb, b.includes)
	guard := b.cfg.IsFeatureEnabled(config.FeatCppGuard)
	if guard {
		sb.WriteString("#ifdef __cplusplus\nextern \"C\" {\n#endif\n")
	}
	sb.WriteString(typedefs)
	sb.WriteString(decls)
	sb.WriteString("\n")
	if guard {
		sb.WriteString("#ifdef __cplusplus\n}\n#endif\n")
	}
	return sb.String(), b.includes
}

func (b *cBackend) generateSource(headerName string, headerIncludes map[string]bool) string {
	b.includes = make(map[string]bool)
	b.use = newUsage()

	body := b.capture(func() {
		for _, c := range b.prog.Classes {
			b.writeStruct(c)
		}
		b.currentClass = nil
		b.writeResources()
		for _, c := range b.prog.Classes {
			b.currentClass = c
			b.log.Debug("lowering class", zap.String("class", c.Name))
			b.writeConstructor(c)
			b.writeDestructor(c)
			b.writeNewDelete(c, true)
			for _, m := range c.Methods {
				b.writeMethod(m)
			}
		}
		b.currentClass = nil
	})
	allocDecls := b.capture(func() { b.writeAllocators(false) })
	allocDefs := b.capture(func() { b.writeAllocators(true) })
	library := b.capture(b.writeLibrary)
	typedefs := b.capture(func() { b.writeTypedefs(false) })

	includes := make(map[string]bool)
	for name := range b.includes {
		if !headerIncludes[name] { includes[name] = true }
	}
	includes["stdlib.h"] = true

	var sb strings.Builder
	b.writeIncludes(&sb, includes)
	sb.WriteString("#include \"" + headerName + "\"\n")
	sb.WriteString(library)
	sb.WriteString(typedefs)
	sb.WriteString(allocDecls)
	sb.WriteString(body)
	sb.WriteString(allocDefs)
	return sb.String()
}
