package codegen

import (
	"strings"

	"github.com/xplshn/gci/pkg/ir"
)

var cKeywords = map[string]bool{
	"asm": true, "auto": true, "char": true, "extern": true, "goto": true, "inline": true,
	"register": true, "restrict": true, "signed": true, "sizeof": true, "struct": true,
	"typedef": true, "typeof": true, "union": true, "unsigned": true, "volatile": true,
}

var reservedCamel = map[string]bool{
	"Asm": true, "Assert": true, "Auto": true, "Bool": true, "Break": true, "Byte": true,
	"Case": true, "Char": true, "Class": true, "Const": true, "Continue": true, "Default": true,
	"Do": true, "Double": true, "Else": true, "Enum": true, "Extern": true, "False": true,
	"Float": true, "For": true, "Foreach": true, "Goto": true, "If": true, "Inline": true,
	"Int": true, "Long": true, "Register": true, "Restrict": true, "Return": true, "Short": true,
	"Signed": true, "Sizeof": true, "Static": true, "Struct": true, "Switch": true, "True": true,
	"Typedef": true, "Typeof": true, "Union": true, "Unsigned": true, "Void": true,
	"Volatile": true, "While": true,
}

func camelCase(name string) string {
	if name == "" { return name }
	return strings.ToLower(name[:1]) + name[1:]
}

// localName maps a variable, parameter or field name to a C identifier.
func localName(name string) string {
	if name == "this" { return "self" }
	if reservedCamel[name] || cKeywords[name] { return camelCase(name) + "_" }
	return camelCase(name)
}

func upperWithUnderscores(name string) string {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if i > 0 && c >= 'A' && c <= 'Z' {
			sb.WriteByte('_')
			sb.WriteByte(c)
		} else {
			sb.WriteString(strings.ToUpper(string(c)))
		}
	}
	return sb.String()
}

func (b *cBackend) typeName(name string) string { return b.cfg.Namespace + name }

func (b *cBackend) className(c *ir.Class) string { return b.typeName(c.Name) }

func (b *cBackend) methodName(m *ir.Method) string {
	return b.cfg.Namespace + m.Parent.Name + "_" + m.Name
}

func (b *cBackend) constName(k *ir.Const) string {
	if k.Parent == nil { return upperWithUnderscores(k.Name) }
	return b.cfg.Namespace + k.Parent.Name + "_" + upperWithUnderscores(k.Name)
}

func (b *cBackend) enumMemberName(m *ir.EnumMember) string {
	return b.typeName(m.Parent.Name) + "_" + upperWithUnderscores(m.Name)
}

// resourceName replaces every non-alphanumeric character with an underscore.
func resourceName(name string) string {
	var sb strings.Builder
	sb.WriteString("CiResource_")
	for _, r := range name {
		if r < 128 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
