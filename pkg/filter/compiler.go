// Package filter compiles RFC 6241 §6 subtree filters into absolute XPath
// expressions the datastore backend can query directly.
package filter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Registry is the subset of the Schema Registry the compiler needs:
// resolving a namespace to the module prefix used in compiled XPath steps,
// and discovering which modules carry a top-level node of a given name (for
// namespace-less top-level fan-out).
type Registry interface {
	// ModulePrefix resolves a namespace URI to the module name used as the
	// XPath step prefix ("mod" in "/mod:name"). ok is false for an
	// unresolvable namespace.
	ModulePrefix(namespace string) (prefix string, ok bool)
	// ModulesWithTopLevelNode returns the module prefixes of every module
	// whose top-level schema declares a node named name.
	ModulesWithTopLevelNode(name string) []string
}

// netconfBaseNS is the base NETCONF 1.0 namespace; a top-level filter
// element either absent a namespace or carrying this one fans out across
// every module advertising a matching top-level node.
const netconfBaseNS = "urn:ietf:params:xml:ns:netconf:base:1.0"

// kind classifies an arena node the way spec §4.3 distinguishes filter
// element roles.
type kind int

const (
	kindContainment kind = iota
	kindContentMatch
	kindSelection
)

// node is an arena-allocated filter tree element. Children and attribute
// predicates are indices into the owning arena's slices, never pointers, so
// that unlinking an absorbed content-match child is an O(1) slice-index
// removal rather than a pointer-graph mutation.
type node struct {
	name      string
	namespace string
	kind      kind
	content   string   // trimmed text, meaningful only for kindContentMatch
	attrPreds []string // raw attribute triples and absorbed-child placeholders, rendered by render()
	children  []int    // indices into arena.nodes
	parent    int      // -1 for roots
}

type arena struct {
	nodes []node
}

func (a *arena) add(n node) int {
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

// Compile parses filterXML as an RFC 6241 subtree filter and returns the
// ordered list of absolute XPath expressions it compiles to. A malformed
// filter document is a fatal error; an unresolvable top-level namespace
// silently drops that branch rather than failing the whole compile.
func Compile(filterXML []byte, reg Registry) ([]string, error) {
	a := &arena{}
	roots, err := parseTree(filterXML, a)
	if err != nil {
		return nil, fmt.Errorf("filter: malformed subtree filter: %w", err)
	}

	absorbContentMatchChildren(a)

	var out []string
	for _, r := range roots {
		out = append(out, compileRoot(a, r, reg)...)
	}
	return out, nil
}

// parseTree tokenizes filterXML into the arena, returning the indices of the
// top-level (root) nodes in document order.
func parseTree(filterXML []byte, a *arena) ([]int, error) {
	dec := xml.NewDecoder(bytes.NewReader(filterXML))

	var stack []int // indices of currently open nodes
	var roots []int
	var pendingText strings.Builder

	flushText := func() {
		if len(stack) == 0 {
			return
		}
		top := &a.nodes[stack[len(stack)-1]]
		top.content += pendingText.String()
		pendingText.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			flushText()
			parent := -1
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			n := node{
				name:      t.Name.Local,
				namespace: t.Name.Space,
				parent:    parent,
				kind:      kindSelection,
			}
			for _, attr := range t.Attr {
				if attr.Name.Space == "" || attr.Name.Space == "xmlns" {
					continue
				}
				n.attrPreds = append(n.attrPreds, attrPredicate(attr))
			}
			idx := a.add(n)
			if parent == -1 {
				roots = append(roots, idx)
			} else {
				a.nodes[parent].children = append(a.nodes[parent].children, idx)
			}
			stack = append(stack, idx)
		case xml.CharData:
			pendingText.Write(t)
		case xml.EndElement:
			flushText()
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			finalizeKind(&a.nodes[cur])
		}
	}

	return roots, nil
}

// attrPredicate captures a filter attribute's raw namespace, local name and
// value for deferred resolution: the Registry isn't available during parse,
// so render() resolves the namespace later and drops the predicate if it
// cannot be resolved.
func attrPredicate(attr xml.Attr) string {
	return attr.Name.Space + "\x00" + attr.Name.Local + "\x00" + attr.Value
}

// finalizeKind classifies a node once its children and trimmed content are
// known: containment if it has children, content-match if it has
// non-whitespace text, selection otherwise.
func finalizeKind(n *node) {
	n.content = strings.TrimSpace(n.content)
	switch {
	case len(n.children) > 0:
		n.kind = kindContainment
	case n.content != "":
		n.kind = kindContentMatch
	default:
		n.kind = kindSelection
	}
}

// absorbContentMatchChildren folds every content-match child into its
// parent's predicate list and unlinks it from the arena's child slice, per
// spec §4.3's branching rule: "content-match children are absorbed into the
// enclosing step's predicate list before branching and are removed from the
// working tree."
func absorbContentMatchChildren(a *arena) {
	for i := range a.nodes {
		n := &a.nodes[i]
		if n.kind != kindContainment {
			continue
		}
		kept := n.children[:0]
		for _, c := range n.children {
			child := &a.nodes[c]
			if child.kind == kindContentMatch {
				n.attrPreds = append(n.attrPreds, contentPredicatePlaceholder(c))
				continue
			}
			kept = append(kept, c)
		}
		n.children = kept
	}
}

// contentPredicatePlaceholder marks an absorbed content-match child by
// index; resolved into "[mod:name='...']" during render, once the child's
// own module prefix and (already-trimmed) content can be read from the
// arena.
func contentPredicatePlaceholder(childIdx int) string {
	return fmt.Sprintf("\x01%d", childIdx)
}

// compileRoot compiles a single top-level filter element, handling the
// top-level-specific namespace fan-out and content-match rules of §4.3.
func compileRoot(a *arena, idx int, reg Registry) []string {
	n := &a.nodes[idx]

	var prefixes []string
	if n.namespace != "" && n.namespace != netconfBaseNS {
		if p, ok := reg.ModulePrefix(n.namespace); ok {
			prefixes = []string{p}
		}
		// unresolvable non-base namespace: branch silently dropped.
	} else {
		prefixes = reg.ModulesWithTopLevelNode(n.name)
	}

	var out []string
	for _, prefix := range prefixes {
		step := "/" + prefix + ":" + n.name
		preds := render(a, idx, reg)
		full := step + preds
		if n.kind == kindContainment {
			out = append(out, renderContainment(a, idx, full, reg)...)
		} else {
			// top-level content-match or selection node: one XPath, no
			// further descent (no children to branch into).
			out = append(out, full)
		}
	}
	return out
}

// render resolves idx's own value predicate (when idx is itself a
// content-match node — only possible for a top-level element, per spec
// §4.3's "Top-level content match": "/mod:name[text()='...']" with attribute
// predicates appended), idx's own attribute predicates, and (for each
// absorbed content-match child) a "[mod:name='value']" predicate, into a
// single predicate suffix string.
func render(a *arena, idx int, reg Registry) string {
	n := &a.nodes[idx]
	var b strings.Builder
	if n.kind == kindContentMatch {
		b.WriteString("[text()='")
		b.WriteString(n.content)
		b.WriteString("']")
	}
	for _, p := range n.attrPreds {
		if strings.HasPrefix(p, "\x01") {
			var childIdx int
			fmt.Sscanf(p[1:], "%d", &childIdx)
			child := a.nodes[childIdx]
			childPrefix, ok := reg.ModulePrefix(child.namespace)
			if !ok {
				continue // unresolvable namespace: predicate silently dropped
			}
			b.WriteString("[")
			b.WriteString(childPrefix)
			b.WriteString(":")
			b.WriteString(child.name)
			b.WriteString("='")
			b.WriteString(child.content)
			b.WriteString("']")
			continue
		}
		parts := strings.SplitN(p, "\x00", 3)
		ns, local, value := parts[0], parts[1], parts[2]
		if ns == "" {
			continue // unresolvable (unqualified) attribute: silently skipped
		}
		prefix, ok := reg.ModulePrefix(ns)
		if !ok {
			continue
		}
		b.WriteString("[@")
		b.WriteString(prefix)
		b.WriteString(":")
		b.WriteString(local)
		b.WriteString("='")
		b.WriteString(value)
		b.WriteString("']")
	}
	return b.String()
}

// renderContainment walks a containment node's (already content-match
// absorbed) children, branching the accumulated path per spec §4.3: when
// there is more than one child, the path is duplicated for every child but
// the last, which consumes the original string.
func renderContainment(a *arena, idx int, path string, reg Registry) []string {
	n := &a.nodes[idx]
	if len(n.children) == 0 {
		// containment node with only absorbed content-match children and no
		// remaining descendants: it is itself the final step.
		return []string{path}
	}

	var out []string
	for i, c := range n.children {
		childPath := path
		if i < len(n.children)-1 {
			childPath = strings.Clone(path)
		}
		out = append(out, compileChild(a, c, childPath, reg)...)
	}
	return out
}

// compileChild extends path with c's own "/mod:name" step and recurses per
// c's kind. An unresolvable namespace on a nested node drops the branch,
// same as a top-level node's unresolvable namespace.
func compileChild(a *arena, idx int, path string, reg Registry) []string {
	n := &a.nodes[idx]
	prefix, ok := reg.ModulePrefix(n.namespace)
	if !ok {
		return nil
	}
	step := path + "/" + prefix + ":" + n.name
	preds := render(a, idx, reg)
	full := step + preds

	switch n.kind {
	case kindContainment:
		return renderContainment(a, idx, full, reg)
	default:
		// content-match children were already absorbed by their parent and
		// never reach here as a standalone node in n.children; this branch
		// is a selection node (or a top-level-only content-match, which
		// never recurses through compileChild).
		return []string{full}
	}
}
