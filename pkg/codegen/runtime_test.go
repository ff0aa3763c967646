package codegen

import (
	"strings"
	"testing"

	"github.com/xplshn/gci/pkg/ir"
	"github.com/xplshn/gci/pkg/samples"
)

func TestLibraryOmittedWhenUnused(t *testing.T) {
	src := string(lower(t, samples.Shapes()).Source)
	assertLacks(t, src, "CiString_", "CiList_", "CiCompare_", "CiShared_AddRef(void", "CiShared_Assign(void")
	assertContains(t, src, "static void *CiShared_Make(", "static void CiShared_Release(void *ptr)")

	src = string(lower(t, samples.Digits()).Source)
	assertLacks(t, src, "CiShared", "CiMethodPtr")
}

func TestRefcountRuntime(t *testing.T) {
	src := string(lower(t, samples.Nodes()).Source)
	assertOrder(t, src,
		"static void CiString_Assign(char **str, char *value)\n{\n\tfree(*str);\n\t*str = value;\n}\n",
		"typedef void (*CiMethodPtr)(void *);\ntypedef struct {\n\tsize_t count;\n\tsize_t unitSize;\n\tsize_t refCount;\n\tCiMethodPtr destructor;\n} CiShared;\n",
		"static void *CiShared_Make(size_t count, size_t unitSize, CiMethodPtr constructor, CiMethodPtr destructor)\n",
		"static void *CiShared_AddRef(void *ptr)\n",
		"static void CiShared_Release(void *ptr)\n{\n\tif (ptr == NULL)\n\t\treturn;\n\tCiShared *self = (CiShared *) ptr - 1;\n\tif (--self->refCount != 0)\n\t\treturn;\n",
		"static void CiShared_Assign(void **ptr, void *value)\n{\n\tCiShared_Release(*ptr);\n\t*ptr = value;\n}\n",
		"struct Node {",
	)
	for _, helper := range []string{"CiShared_Make(size_t", "CiShared_Release(void *ptr)\n", "CiShared;\n"} {
		if n := strings.Count(src, helper); n != 1 {
			t.Errorf("%q emitted %d times", helper, n)
		}
	}
}

func TestSharedLifetimes(t *testing.T) {
	src := string(lower(t, samples.Nodes()).Source)
	assertContains(t, src,
		"static void Node_Construct(Node *self)\n{\n\tself->next = NULL;\n\tself->label = NULL;\n}\n",
		"static void Node_Destruct(Node *self)\n{\n\tfree(self->label);\n\tCiShared_Release(self->next);\n}\n",
		"void Node_Link(Node *self, Node *other)\n{\n\tCiShared_Assign((void **) &self->next, CiShared_AddRef(other));\n\tCiShared_Release(other);\n}\n",
		"void Node_Rename(Node *self, const char *name)\n{\n\tCiString_Assign(&self->label, strdup(name));\n}\n",
		"int Node_Chain(void)\n{\n"+
			"\tNode *a = (Node *) CiShared_Make(1, sizeof(Node), (CiMethodPtr) Node_Construct, (CiMethodPtr) Node_Destruct);\n"+
			"\tNode *b = (Node *) CiShared_Make(1, sizeof(Node), (CiMethodPtr) Node_Construct, (CiMethodPtr) Node_Destruct);\n"+
			"\tNode_Link(a, (Node *) CiShared_AddRef(b));\n"+
			"\tNode_Rename(b, \"tail\");\n"+
			"\tCiShared_Release(b);\n\tCiShared_Release(a);\n"+
			"\treturn 2;\n}\n",
		"Node *Node_New(void)\n{\n\tNode *self = (Node *) malloc(sizeof(Node));\n\tif (self != NULL)\n\t\tNode_Construct(self);\n\treturn self;\n}\n",
		"void Node_Delete(Node *self)\n{\n\tif (self == NULL)\n\t\treturn;\n\tNode_Destruct(self);\n\tfree(self);\n}\n",
	)
}

func TestReleaseOnlyStillDeclaresSharedHeader(t *testing.T) {
	item := ir.NewClass("Item", nil)
	holder := ir.NewClass("Holder", nil)
	holder.AddField("Item", ir.SharedPtr(item), nil)

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{item, holder}}).Source)
	assertOrder(t, src, "} CiShared;\n", "static void CiShared_Release(void *ptr)", "struct Holder {")
	assertLacks(t, src, "CiShared_Make", "CiShared_AddRef", "CiShared_Assign")
}

func TestContainerHelpers(t *testing.T) {
	c := staticClass("Sorts")
	nums := ir.NewVar("nums", &ir.ArrayStorageType{Elem: ir.Range(0, 100), Length: 4}, nil)
	words := ir.NewVar("words", &ir.ListType{Elem: ir.StringPtr}, nil)
	ids := ir.NewVar("ids", &ir.ListType{Elem: ir.Int}, nil)
	byID := ir.NewVar("byId", &ir.DictionaryType{Key: ir.Int, Value: ir.StringStorage, Sorted: true}, nil)
	staticMethod(c, "Run", ir.Bool, []*ir.Var{nums},
		words,
		ids,
		byID,
		ir.Do(ir.CallBuiltin(ir.Ref(nums), ir.ArraySort, nil)),
		ir.Do(ir.CallBuiltin(ir.Ref(words), ir.ListSort, nil)),
		&ir.Return{Value: ir.CallBuiltin(ir.Ref(ids), ir.ListContains, ir.Bool, ir.Int64(7))},
	)

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertOrder(t, src,
		"static int CiTree_CompareInteger(gconstpointer pa, gconstpointer pb, gpointer user_data)\n",
		"static int CiCompare_string(const void *pa, const void *pb)\n{\n\treturn strcmp(*(const char * const *) pa, *(const char * const *) pb);\n}\n",
		"static int CiCompare_uint8_t(const void *pa, const void *pb)\n{\n\tuint8_t a = *(const uint8_t *) pa;\n\tuint8_t b = *(const uint8_t *) pb;\n\treturn a - b;\n}\n",
		"static bool CiArray_Contains_int(const int *a, size_t len, int value)\n",
	)
	assertContains(t, src,
		"\tGTree *byId = g_tree_new_full(CiTree_CompareInteger, NULL, NULL, free);\n",
		"\tqsort(nums, 4, sizeof(uint8_t), CiCompare_uint8_t);\n",
		"\tg_array_sort(words, CiCompare_string);\n",
		"\tbool returnValue = CiArray_Contains_int((const int *) ids->data, ids->len, 7);\n"+
			"\tg_tree_unref(byId);\n\tg_array_free(ids, TRUE);\n\tg_array_free(words, TRUE);\n\treturn returnValue;\n",
	)
}
