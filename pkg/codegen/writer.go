package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// priority of the enclosing C expression, lowest binding first.
type priority int

const (
	prioStatement priority = iota
	prioArgument
	prioSelect
	prioSelectCond
	prioCondOr
	prioCondAnd
	prioOr
	prioXor
	prioAnd
	prioEquality
	prioRel
	prioShift
	prioAdd
	prioMul
	prioPrimary
)

func (b *cBackend) write(s string) {
	if s == "" { return }
	if b.atLineStart {
		for i := 0; i < b.indent; i++ {
			b.out.WriteByte('\t')
		}
		b.atLineStart = false
	}
	b.out.WriteString(s)
}

func (b *cBackend) writef(format string, args ...interface{}) { b.write(fmt.Sprintf(format, args...)) }

func (b *cBackend) writeLine(s string) {
	b.write(s)
	b.out.WriteByte('\n')
	b.atLineStart = true
}

func (b *cBackend) writeInt(v int64) { b.write(strconv.FormatInt(v, 10)) }

func (b *cBackend) openBlock() {
	b.writeLine("{")
	b.indent++
}

func (b *cBackend) closeBlock() {
	b.indent--
	b.writeLine("}")
}

func (b *cBackend) include(name string) { b.includes[name] = true }

// capture runs f against a fresh buffer and returns what it wrote.
func (b *cBackend) capture(f func()) string {
	prev, prevStart, prevIndent := b.out, b.atLineStart, b.indent
	b.out, b.atLineStart, b.indent = &strings.Builder{}, true, 0
	f()
	s := b.out.String()
	b.out, b.atLineStart, b.indent = prev, prevStart, prevIndent
	return s
}

func (b *cBackend) writeIncludes(w *strings.Builder, includes map[string]bool) {
	names := make([]string, 0, len(includes))
	for n := range includes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "#include <%s>\n", n)
	}
}

func (b *cBackend) writeCharLiteral(c byte) {
	switch c {
	case '\n':
		b.write(`'\n'`)
	case '\t':
		b.write(`'\t'`)
	case '\r':
		b.write(`'\r'`)
	case '\\':
		b.write(`'\\'`)
	case '\'':
		b.write(`'\''`)
	case 0:
		b.write(`'\0'`)
	default:
		b.write("'" + string(c) + "'")
	}
}

func escapeString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&sb, `\%03o`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}

func (b *cBackend) writeStringLiteral(s string) { b.write(`"` + escapeString(s) + `"`) }
