package filter

import (
	"reflect"
	"strings"
	"testing"
)

type stubRegistry struct {
	byNamespace map[string]string
	byName      map[string][]string
}

func (s stubRegistry) ModulePrefix(namespace string) (string, bool) {
	p, ok := s.byNamespace[namespace]
	return p, ok
}

func (s stubRegistry) ModulesWithTopLevelNode(name string) []string {
	return s.byName[name]
}

func newExRegistry() stubRegistry {
	return stubRegistry{
		byNamespace: map[string]string{"urn:ex": "ex"},
		byName:      map[string][]string{"top": {"ex"}},
	}
}

// Scenario 2: subtree -> single XPath with an absorbed content-match child.
func TestCompileContentMatch(t *testing.T) {
	xmlDoc := `<top xmlns="urn:ex"><a><b>7</b></a></top>`
	got, err := Compile([]byte(xmlDoc), newExRegistry())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"/ex:top/ex:a[ex:b='7']"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Spec §4.3 "Top-level content match": a root element that is itself a leaf
// with text (no children) compiles to "/mod:name[text()='...']".
func TestCompileTopLevelContentMatch(t *testing.T) {
	xmlDoc := `<top xmlns="urn:ex">7</top>`
	got, err := Compile([]byte(xmlDoc), newExRegistry())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"/ex:top[text()='7']"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Scenario 3: branching filter produces two XPaths in document order.
func TestCompileBranching(t *testing.T) {
	xmlDoc := `<top xmlns="urn:ex"><a/><b/></top>`
	got, err := Compile([]byte(xmlDoc), newExRegistry())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"/ex:top/ex:a", "/ex:top/ex:b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCompileAttributePredicate(t *testing.T) {
	xmlDoc := `<top xmlns="urn:ex" xmlns:ex="urn:ex" ex:id="5"/>`
	got, err := Compile([]byte(xmlDoc), newExRegistry())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"/ex:top[@ex:id='5']"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCompileUnresolvableAttributeSkipped(t *testing.T) {
	xmlDoc := `<top xmlns="urn:ex" xmlns:un="urn:unknown" un:id="5"/>`
	got, err := Compile([]byte(xmlDoc), newExRegistry())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"/ex:top"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCompileUnresolvableTopLevelNamespaceDropped(t *testing.T) {
	xmlDoc := `<top xmlns="urn:unknown"/>`
	got, err := Compile([]byte(xmlDoc), newExRegistry())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty (branch dropped)", got)
	}
}

func TestCompileMalformedXMLIsFatal(t *testing.T) {
	xmlDoc := `<top xmlns="urn:ex"><a>`
	if _, err := Compile([]byte(xmlDoc), newExRegistry()); err == nil {
		t.Error("expected malformed XML to be a fatal compile error")
	}
}

// Selection-only filters are idempotent: recompiling the output XPaths as a
// trivial subtree (each output a standalone top-level selection element)
// yields an equivalent filter, per the §8 invariant.
func TestSelectionOnlyIdempotent(t *testing.T) {
	xmlDoc := `<top xmlns="urn:ex"><a/><b/></top>`
	got, err := Compile([]byte(xmlDoc), newExRegistry())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	// Recompile each output path as its own trivial one-element subtree.
	reg := newExRegistry()
	for _, xpath := range got {
		local := xpath[strings.LastIndex(xpath, ":")+1:]
		trivial := "<" + local + " xmlns=\"urn:ex\"/>"
		roundTrip, err := Compile([]byte(trivial), reg)
		if err != nil {
			t.Fatalf("Compile(%q): %v", trivial, err)
		}
		if len(roundTrip) != 1 || roundTrip[0] != "/ex:"+local {
			t.Errorf("round-trip of %q got %v", xpath, roundTrip)
		}
	}
}
