package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	indentUnit = "    "
	minWidth   = 20
)

func indentAt(level int) string { return strings.Repeat(indentUnit, level) }

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

// Set treats an empty value as true, so a bare -flag enables it.
func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroup is a family of toggles such as -W<name>/-Wno-<name>.
type FlagGroup struct {
	Name      string
	Prefix    string
	GroupType string
	Entries   []FlagGroupEntry
}

type FlagGroupEntry struct {
	Name     string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []FlagGroup
	args       []string
	visited    []*Flag
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{name: name, flags: make(map[string]*Flag), shorthands: make(map[string]*Flag)}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

// Visit calls fn for each flag given on the command line, in order.
// A boolean flag explicitly set to false is skipped.
func (f *FlagSet) Visit(fn func(name string)) {
	for _, flag := range f.visited {
		if on, ok := flag.Value.Get().(bool); ok && !on { continue }
		fn(flag.Name)
	}
}

func (f *FlagSet) assign(flag *Flag, value string) error {
	if err := flag.Value.Set(value); err != nil { return err }
	f.visited = append(f.visited, flag)
	return nil
}

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" { panic("flag name cannot be empty") }
	if _, ok := f.flags[name]; ok { panic(fmt.Sprintf("flag redefined: %s", name)) }
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand == "" { return }
	if _, ok := f.shorthands[shorthand]; ok { panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand)) }
	f.shorthands[shorthand] = flag
}

// AddFlagGroup defines prefix+name and prefix+"no-"+name for every entry.
func (f *FlagSet) AddFlagGroup(name, prefix, groupType string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.groups = append(f.groups, FlagGroup{Name: name, Prefix: prefix, GroupType: groupType, Entries: entries})
}

// Parse accepts -name, -name=value, --name, --name=value, bundled shorthands
// (-ofile) and "--" to end flag processing.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	f.visited = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		default:
			if err := f.parseOne(arg, arguments, &i); err != nil { return err }
		}
	}
	return nil
}

func (f *FlagSet) parseOne(arg string, arguments []string, i *int) error {
	dashes := "-"
	body := arg[1:]
	if strings.HasPrefix(arg, "--") {
		dashes, body = "--", arg[2:]
		if body == "" { return fmt.Errorf("empty flag name") }
	}
	name, value, hasValue := strings.Cut(body, "=")
	flag, ok := f.flags[name]
	if !ok {
		if dashes == "--" { return fmt.Errorf("unknown flag: --%s", name) }
		return f.parseShorthand(arg, arguments, i)
	}
	if hasValue { return f.assign(flag, value) }
	if flag.isBool() { return f.assign(flag, "") }
	if *i+1 >= len(arguments) { return fmt.Errorf("flag needs an argument: %s%s", dashes, name) }
	*i++
	return f.assign(flag, arguments[*i])
}

func (f *FlagSet) parseShorthand(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok { return fmt.Errorf("unknown shorthand flag: -%s", shorthand) }
	if flag.isBool() { return f.assign(flag, "") }
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) { return fmt.Errorf("flag needs an argument: -%s", shorthand) }
		*i++
		value = arguments[*i]
	}
	return f.assign(flag, value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error

	Stdout io.Writer
	Stderr io.Writer
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name), Stdout: os.Stdout, Stderr: os.Stderr}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		fmt.Fprint(a.Stderr, a.usagePage())
		return err
	}
	if help {
		fmt.Fprint(a.Stdout, a.helpPage())
		return nil
	}
	if a.Action == nil { return nil }
	return a.Action(a.FlagSet.Args())
}

// optionFlags lists the flags that do not belong to a group, by name.
func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.groups {
		for _, e := range g.Entries {
			grouped[g.Prefix+e.Name] = true
			grouped[g.Prefix+"no-"+e.Name] = true
		}
	}
	var out []*Flag
	for name, flag := range a.FlagSet.flags {
		if !grouped[name] { out = append(out, flag) }
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func flagLabel(flag *Flag) string {
	var sb strings.Builder
	if flag.Shorthand != "" {
		sb.WriteString("-" + flag.Shorthand)
		if !flag.isBool() { sb.WriteString(" <" + flag.ExpectedType + ">") }
		sb.WriteString(", ")
	}
	sb.WriteString("--" + flag.Name)
	if !flag.isBool() && flag.ExpectedType != "" {
		if flag.Shorthand != "" {
			sb.WriteString(" <" + flag.ExpectedType + ">")
		} else {
			sb.WriteString("=" + flag.ExpectedType)
		}
	}
	return sb.String()
}

// layout holds the column widths shared by every entry of a page.
type layout struct {
	term, label, usage int
}

func (a *App) measure() layout {
	l := layout{term: terminalWidth()}
	grow := func(p *int, s string) {
		if len(s) > *p { *p = len(s) }
	}
	for _, flag := range a.optionFlags() {
		grow(&l.label, flagLabel(flag))
		grow(&l.usage, flag.Usage)
	}
	for _, g := range a.FlagSet.groups {
		grow(&l.label, "-"+g.Prefix+"no-<"+g.GroupType+">")
		for _, e := range g.Entries {
			grow(&l.label, e.Name)
			grow(&l.usage, e.Usage)
		}
	}
	return l
}

// writeEntry prints label, the usage wrapped to the terminal and an optional marker column.
func (l layout) writeEntry(sb *strings.Builder, label, usage, marker string) {
	lead := indentAt(2)
	room := l.term - len(lead) - l.label - 1
	if marker != "" { room -= len(marker) + 2 }
	if room < 10 { room = 10 }
	lines := wrapText(usage, room)
	first := ""
	if len(lines) > 0 { first = lines[0] }
	if marker != "" {
		width := l.usage
		if width > room { width = room }
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", lead, l.label, label, width, first, marker)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", lead, l.label, label, first)
	}
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", lead, strings.Repeat(" ", l.label+1), line)
	}
}

func (a *App) writeOptions(sb *strings.Builder, l layout) {
	flags := a.optionFlags()
	if len(flags) == 0 { return }
	fmt.Fprintf(sb, "\n%sOptions\n", indentAt(1))
	for _, flag := range flags {
		marker := ""
		if !flag.isBool() && flag.DefValue != "" && flag.DefValue != "[]" {
			marker = "|" + flag.DefValue + "|"
		}
		l.writeEntry(sb, flagLabel(flag), flag.Usage, marker)
	}
}

func (a *App) usagePage() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	a.writeOptions(&sb, a.measure())
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	return sb.String()
}

func (a *App) helpPage() string {
	var sb strings.Builder
	l := a.measure()
	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n%sWritten by %s and contributors\n", indentAt(1), strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentAt(1), a.Repository)
	}
	if a.Synopsis != "" {
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indentAt(1), indentAt(2), a.Name, synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n%s%s\n", indentAt(1), indentAt(2), a.Description)
	}
	a.writeOptions(&sb, l)

	groups := append([]FlagGroup(nil), a.FlagSet.groups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		fmt.Fprintf(&sb, "\n%s%s\n", indentAt(1), g.Name)
		fmt.Fprintf(&sb, "%s%-*s Enable a specific %s\n", indentAt(2), l.label, "-"+g.Prefix+"<"+g.GroupType+">", g.GroupType)
		fmt.Fprintf(&sb, "%s%-*s Disable a specific %s\n", indentAt(2), l.label, "-"+g.Prefix+"no-<"+g.GroupType+">", g.GroupType)
		entries := append([]FlagGroupEntry(nil), g.Entries...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			marker := "|-|"
			if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) { marker = "|x|" }
			l.writeEntry(&sb, e.Name, e.Usage, marker)
		}
	}
	return sb.String()
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil { return 80 }
	if width < minWidth { return minWidth }
	return width
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 { return words }
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}
