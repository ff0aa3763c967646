package codegen

import (
	"sort"

	"github.com/xplshn/gci/pkg/ir"
)

// usage records which runtime helpers the lowered code calls.
type usage struct {
	stringAssign       bool
	stringSubstring    bool
	stringAppend       bool
	stringIndexOf      bool
	stringLastIndexOf  bool
	stringEndsWith     bool
	stringFormat       bool
	matchFind          bool
	matchPos           bool
	ptrConstruct       bool
	sharedMake         bool
	sharedAddRef       bool
	sharedRelease      bool
	sharedAssign       bool
	treeCompareInteger bool
	treeCompareString  bool
	listFrees          map[string]string
	compares           map[string]bool
	contains           map[string]bool
	allocators         map[*ir.Class]bool
}

func newUsage() usage {
	return usage{
		listFrees:  make(map[string]string),
		compares:   make(map[string]bool),
		contains:   make(map[string]bool),
		allocators: make(map[*ir.Class]bool),
	}
}

// usesShared reports whether the CiShared header type is needed.
func (u *usage) usesShared() bool { return u.sharedMake || u.sharedAddRef || u.usesRelease() }

// usesRelease reports whether CiShared_Release is needed.
func (u *usage) usesRelease() bool {
	_, freesShared := u.listFrees["Shared"]
	return u.sharedRelease || u.sharedAssign || freesShared
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *cBackend) writeHelper(signature string, body ...string) {
	b.writeLine("")
	b.writeLine(signature)
	b.openBlock()
	for _, line := range body {
		b.writeLine(line)
	}
	b.closeBlock()
}

// writeLibrary emits the static helpers recorded in b.use, each at most once.
func (b *cBackend) writeLibrary() {
	u := &b.use
	if u.stringAssign {
		b.writeHelper("static void CiString_Assign(char **str, char *value)",
			"free(*str);",
			"*str = value;")
	}
	if u.stringSubstring {
		b.include("string.h")
		b.writeHelper("static char *CiString_Substring(const char *str, int len)",
			"char *p = malloc(len + 1);",
			"memcpy(p, str, len);",
			`p[len] = '\0';`,
			"return p;")
	}
	if u.stringAppend {
		b.include("string.h")
		b.writeHelper("static void CiString_Append(char **str, const char *suffix)",
			"size_t suffixLen = strlen(suffix);",
			"if (suffixLen == 0)",
			"\treturn;",
			"size_t prefixLen = strlen(*str);",
			"*str = realloc(*str, prefixLen + suffixLen + 1);",
			"memcpy(*str + prefixLen, suffix, suffixLen + 1);")
	}
	if u.stringIndexOf {
		b.include("string.h")
		b.writeHelper("static int CiString_IndexOf(const char *str, const char *needle)",
			"const char *p = strstr(str, needle);",
			"return p == NULL ? -1 : (int) (p - str);")
	}
	if u.stringLastIndexOf {
		b.include("string.h")
		b.writeLine("")
		b.writeLine("static int CiString_LastIndexOf(const char *str, const char *needle)")
		b.openBlock()
		b.writeLine(`if (needle[0] == '\0')`)
		b.writeLine("\treturn (int) strlen(str);")
		b.writeLine("int result = -1;")
		b.writeLine("const char *p = strstr(str, needle);")
		b.write("while (p != NULL) ")
		b.openBlock()
		b.writeLine("result = (int) (p - str);")
		b.writeLine("p = strstr(p + 1, needle);")
		b.closeBlock()
		b.writeLine("return result;")
		b.closeBlock()
	}
	if u.stringEndsWith {
		b.include("stdbool.h")
		b.include("string.h")
		b.writeHelper("static bool CiString_EndsWith(const char *str, const char *suffix)",
			"size_t strLen = strlen(str);",
			"size_t suffixLen = strlen(suffix);",
			"return strLen >= suffixLen && memcmp(str + strLen - suffixLen, suffix, suffixLen) == 0;")
	}
	if u.stringFormat {
		b.writeHelper("static char *CiString_Format(const char *format, ...)",
			"va_list args1;",
			"va_start(args1, format);",
			"va_list args2;",
			"va_copy(args2, args1);",
			"size_t len = vsnprintf(NULL, 0, format, args1) + 1;",
			"va_end(args1);",
			"char *str = malloc(len);",
			"vsnprintf(str, len, format, args2);",
			"va_end(args2);",
			"return str;")
	}
	if u.matchFind {
		b.include("stdbool.h")
		b.writeHelper("static bool CiMatch_Find(GMatchInfo **match_info, const char *input, const char *pattern, GRegexCompileFlags options)",
			"GRegex *regex = g_regex_new(pattern, options, 0, NULL);",
			"bool result = g_regex_match(regex, input, 0, match_info);",
			"g_regex_unref(regex);",
			"return result;")
	}
	if u.matchPos {
		b.include("glib.h")
		b.writeHelper("static int CiMatch_GetPos(const GMatchInfo *match_info, int which)",
			"int start;",
			"int end;",
			"g_match_info_fetch_pos(match_info, 0, &start, &end);",
			"switch (which) {",
			"case 0:",
			"\treturn start;",
			"case 1:",
			"\treturn end;",
			"default:",
			"\treturn end - start;",
			"}")
	}
	if u.ptrConstruct {
		b.writeHelper("static void CiPtr_Construct(void **ptr)", "*ptr = NULL;")
	}
	b.writeSharedLibrary()
	b.writeContainerLibrary()
}

// writeSharedLibrary emits the reference-counting runtime. A shared block is
// a CiShared header followed by count elements of unitSize bytes.
func (b *cBackend) writeSharedLibrary() {
	u := &b.use
	if u.usesShared() {
		b.writeLine("")
		b.writeLine("typedef void (*CiMethodPtr)(void *);")
		b.writeLine("typedef struct {")
		b.indent++
		b.writeLine("size_t count;")
		b.writeLine("size_t unitSize;")
		b.writeLine("size_t refCount;")
		b.writeLine("CiMethodPtr destructor;")
		b.indent--
		b.writeLine("} CiShared;")
	}
	if u.sharedMake {
		b.writeLine("")
		b.writeLine("static void *CiShared_Make(size_t count, size_t unitSize, CiMethodPtr constructor, CiMethodPtr destructor)")
		b.openBlock()
		b.writeLine("CiShared *self = (CiShared *) malloc(sizeof(CiShared) + count * unitSize);")
		b.writeLine("self->count = count;")
		b.writeLine("self->unitSize = unitSize;")
		b.writeLine("self->refCount = 1;")
		b.writeLine("self->destructor = destructor;")
		b.write("if (constructor != NULL) ")
		b.openBlock()
		b.writeLine("for (size_t i = 0; i < count; i++)")
		b.writeLine("\tconstructor((char *) (self + 1) + i * unitSize);")
		b.closeBlock()
		b.writeLine("return self + 1;")
		b.closeBlock()
	}
	if u.sharedAddRef {
		b.writeHelper("static void *CiShared_AddRef(void *ptr)",
			"if (ptr != NULL)",
			"\t((CiShared *) ptr)[-1].refCount++;",
			"return ptr;")
	}
	if u.usesRelease() {
		b.writeLine("")
		b.writeLine("static void CiShared_Release(void *ptr)")
		b.openBlock()
		b.writeLine("if (ptr == NULL)")
		b.writeLine("\treturn;")
		b.writeLine("CiShared *self = (CiShared *) ptr - 1;")
		b.writeLine("if (--self->refCount != 0)")
		b.writeLine("\treturn;")
		b.write("if (self->destructor != NULL) ")
		b.openBlock()
		b.writeLine("for (size_t i = self->count; i > 0;)")
		b.writeLine("\tself->destructor((char *) ptr + --i * self->unitSize);")
		b.closeBlock()
		b.writeLine("free(self);")
		b.closeBlock()
	}
	if u.sharedAssign {
		b.writeHelper("static void CiShared_Assign(void **ptr, void *value)",
			"CiShared_Release(*ptr);",
			"*ptr = value;")
	}
}

func (b *cBackend) writeContainerLibrary() {
	u := &b.use
	names := make([]string, 0, len(u.listFrees))
	for name := range u.listFrees {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.writeHelper("static void CiList_Free"+name+"(void *ptr)", u.listFrees[name]+";")
	}
	if u.treeCompareInteger {
		b.writeHelper("static int CiTree_CompareInteger(gconstpointer pa, gconstpointer pb, gpointer user_data)",
			"gintptr a = (gintptr) pa;",
			"gintptr b = (gintptr) pb;",
			"return (a > b) - (a < b);")
	}
	if u.treeCompareString {
		b.writeHelper("static int CiTree_CompareString(gconstpointer a, gconstpointer b, gpointer user_data)",
			"return strcmp((const char *) a, (const char *) b);")
	}
	for _, code := range sortedKeys(u.compares) {
		if code == "string" {
			b.include("string.h")
			b.writeHelper("static int CiCompare_string(const void *pa, const void *pb)",
				"return strcmp(*(const char * const *) pa, *(const char * const *) pb);")
			continue
		}
		result := "return (a > b) - (a < b);"
		switch code {
		case "uint8_t", "int8_t", "int16_t", "uint16_t":
			// Promoted to int, so the difference cannot overflow.
			result = "return a - b;"
		}
		b.writeHelper("static int CiCompare_"+code+"(const void *pa, const void *pb)",
			code+" a = *(const "+code+" *) pa;",
			code+" b = *(const "+code+" *) pb;",
			result)
	}
	for _, code := range sortedKeys(u.contains) {
		b.include("stdbool.h")
		signature, test := "string(const char * const *a, size_t len, const char *", "\tif (strcmp(a[i], value) == 0)"
		if code != "string" {
			signature, test = code+"(const "+code+" *a, size_t len, "+code, "\tif (a[i] == value)"
		}
		b.writeHelper("static bool CiArray_Contains_"+signature+" value)",
			"for (size_t i = 0; i < len; i++)",
			test,
			"\t\treturn true;",
			"return false;")
	}
}
