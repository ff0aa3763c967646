package codegen

import (
	"testing"

	"github.com/xplshn/gci/pkg/ir"
)

func TestClassify(t *testing.T) {
	plain := ir.NewClass("Plain", nil)
	plain.AddField("N", ir.Int, nil)
	owner := ir.NewClass("Owner", nil)
	owner.AddField("Name", ir.StringStorage, nil)
	derived := ir.NewClass("Derived", owner)

	tests := []struct {
		name string
		typ  ir.Type
		want Ownership
	}{
		{"int", ir.Int, OwnNone},
		{"borrowed string", ir.StringPtr, OwnNone},
		{"owned string", ir.StringStorage, OwnString},
		{"array of owned strings", &ir.ArrayStorageType{Elem: &ir.ArrayStorageType{Elem: ir.StringStorage, Length: 2}, Length: 3}, OwnString},
		{"shared class pointer", ir.SharedPtr(plain), OwnShared},
		{"borrowed class pointer", ir.PtrTo(plain, ir.ReadWrite), OwnNone},
		{"shared array", &ir.ArrayPtrType{Elem: ir.Int, Modifier: ir.Shared}, OwnShared},
		{"list", &ir.ListType{Elem: ir.Int}, OwnContainer},
		{"sorted dictionary", &ir.DictionaryType{Key: ir.Int, Value: ir.Int, Sorted: true}, OwnContainer},
		{"plain class", plain, OwnNone},
		{"class with owned field", owner, OwnClass},
		{"class inheriting a destructor", derived, OwnClass},
		{"match", ir.MatchClass, OwnClass},
		{"lock", ir.LockClass, OwnClass},
	}
	a := NewAnalyzer()
	for _, tt := range tests {
		if got := a.Classify(tt.typ); got != tt.want {
			t.Errorf("%s: Classify = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestSelfReferentialClassTerminates(t *testing.T) {
	node := ir.NewClass("Node", nil)
	node.AddField("Next", ir.SharedPtr(node), nil)
	a := NewAnalyzer()
	if !a.NeedsDestructor(node) {
		t.Errorf("a shared field needs releasing")
	}
	if !a.NeedsConstructor(node) {
		t.Errorf("a shared field must start out null")
	}
}

func TestNeedsConstructor(t *testing.T) {
	empty := ir.NewClass("Empty", nil)
	withList := ir.NewClass("WithList", nil)
	withList.AddField("Items", &ir.ListType{Elem: ir.Int}, nil)
	withMatch := ir.NewClass("WithMatch", nil)
	withMatch.AddField("M", ir.MatchClass, nil)
	withInit := ir.NewClass("WithInit", nil)
	withInit.AddField("N", ir.Int, ir.Int64(5))
	child := ir.NewClass("Child", withList)
	explicit := ir.NewClass("Explicit", nil)
	explicit.Constructor = &ir.Constructor{}

	a := NewAnalyzer()
	for c, want := range map[*ir.Class]bool{
		empty: false, withList: true, withMatch: true, withInit: true, child: true, explicit: true,
	} {
		if got := a.NeedsConstructor(c); got != want {
			t.Errorf("%s: NeedsConstructor = %v, want %v", c.Name, got, want)
		}
	}
	if a.NeedsDestructor(withInit) || !a.NeedsDestructor(withMatch) {
		t.Errorf("destructor classification of fields is wrong")
	}
}
