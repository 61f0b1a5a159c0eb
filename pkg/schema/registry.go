// Package schema is the Schema Registry: it loads a YANG module set with
// goyang and answers the lookups the rest of the agent needs — module
// resolution by namespace, top-level node iteration, and schema-path
// resolution for the Value Codec's decimal64 fraction-digits and the RPC
// Executors' node classification.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/openconfig/goyang/pkg/yang"
)

// NodeKind classifies a schema node the way the Filter Compiler and RPC
// Executors need to distinguish them.
type NodeKind int

const (
	KindContainer NodeKind = iota
	KindPresenceContainer
	KindList
	KindLeaf
	KindLeafList
	KindAnyXML
)

// Module is a loaded YANG module's identity.
type Module struct {
	Name      string
	Namespace string
	Prefix    string
}

// Node is a schema tree node: a container, list, leaf, leaf-list or anyxml.
type Node struct {
	Name           string
	Module         *Module
	Kind           NodeKind
	Keys           []string // list key leaf names, in schema order; nil otherwise
	FractionDigits uint8    // meaningful only when the node's type is decimal64
	Default        string   // declared "default" statement text; HasDefault distinguishes absence from ""
	HasDefault     bool
	Children       map[string]*Node
}

// FractionDigits implements value.FractionDigitsResolver by resolving the
// schema node at xpath and returning its declared fraction-digits.
func (r *Registry) FractionDigits(xpath string) (uint8, bool) {
	n, ok := r.NodeBySchemaPath(xpath)
	if !ok || n.Kind != KindLeaf {
		return 0, false
	}
	return n.FractionDigits, true
}

// Registry is the loaded schema: every module's top-level entries plus a
// flattened schema-path index for direct lookup.
type Registry struct {
	mu        sync.RWMutex
	modules   map[string]*Module  // by module name
	byNS      map[string]*Module  // by namespace URI
	topLevel  map[string][]*Node  // module name -> top-level nodes
	byPath    map[string]*Node    // "/module:top/child/..." -> Node
	nameOrder []string            // module names, load order
	hasData   map[string]bool     // module name -> declares a top-level data node
}

// Load parses the given YANG source files (name -> content) and builds a
// Registry covering entryModules only; other parsed modules are used to
// resolve imports but are not themselves registered.
func Load(yangSource map[string]string, entryModules []string) (*Registry, error) {
	ms := yang.NewModules()
	for name, content := range yangSource {
		if err := ms.Parse(content, name); err != nil {
			return nil, fmt.Errorf("schema: parse %s: %w", name, err)
		}
	}
	if errs := ms.Process(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("schema: process modules: %s", strings.Join(msgs, "; "))
	}

	r := &Registry{
		modules:  make(map[string]*Module),
		byNS:     make(map[string]*Module),
		topLevel: make(map[string][]*Node),
		byPath:   make(map[string]*Node),
		hasData:  make(map[string]bool),
	}

	for _, name := range entryModules {
		ym, ok := ms.Modules[name]
		if !ok {
			return nil, fmt.Errorf("schema: entry module %q not found after parse", name)
		}
		entry := yang.ToEntry(ym)
		if len(entry.Errors) > 0 {
			msgs := make([]string, len(entry.Errors))
			for i, e := range entry.Errors {
				msgs[i] = e.Error()
			}
			return nil, fmt.Errorf("schema: build entry for %q: %s", name, strings.Join(msgs, "; "))
		}

		mod := &Module{
			Name:      ym.Name,
			Namespace: nsString(ym),
			Prefix:    prefixString(ym),
		}
		r.modules[mod.Name] = mod
		if mod.Namespace != "" {
			r.byNS[mod.Namespace] = mod
		}
		r.nameOrder = append(r.nameOrder, mod.Name)

		var tops []*Node
		for childName, child := range entry.Dir {
			node := buildNode(mod, child)
			tops = append(tops, node)
			r.byPath["/"+mod.Name+":"+childName] = node
			registerChildren(r.byPath, "/"+mod.Name+":"+childName, node)
			if child.RPC == nil && child.Kind != yang.NotificationEntry {
				r.hasData[mod.Name] = true
			}
		}
		r.topLevel[mod.Name] = tops
	}

	return r, nil
}

func nsString(m *yang.Module) string {
	if m.Namespace == nil {
		return ""
	}
	return m.Namespace.Name
}

func prefixString(m *yang.Module) string {
	if m.Prefix == nil {
		return ""
	}
	return m.Prefix.Name
}

func buildNode(mod *Module, e *yang.Entry) *Node {
	n := &Node{
		Name:   e.Name,
		Module: mod,
		Kind:   classify(e),
	}
	if n.Kind == KindList && e.ListAttr != nil && e.Key != "" {
		n.Keys = strings.Fields(e.Key)
	}
	if n.Kind == KindLeaf && e.Type != nil {
		n.FractionDigits = uint8(e.Type.FractionDigits)
	}
	if n.Kind == KindLeaf {
		if d := e.DefaultValue(); d != "" {
			n.Default, n.HasDefault = d, true
		}
	}
	if len(e.Dir) > 0 {
		n.Children = make(map[string]*Node, len(e.Dir))
		for name, child := range e.Dir {
			n.Children[name] = buildNode(mod, child)
		}
	}
	return n
}

func classify(e *yang.Entry) NodeKind {
	switch {
	case e.IsLeafList():
		return KindLeafList
	case e.IsList():
		return KindList
	case e.IsLeaf():
		return KindLeaf
	case e.Kind == yang.AnyXMLEntry:
		return KindAnyXML
	case e.IsContainer():
		if isPresence(e) {
			return KindPresenceContainer
		}
		return KindContainer
	default:
		return KindContainer
	}
}

func isPresence(e *yang.Entry) bool {
	c, ok := e.Node.(*yang.Container)
	return ok && c.Presence != nil
}

func registerChildren(index map[string]*Node, prefix string, n *Node) {
	for name, child := range n.Children {
		path := prefix + "/" + name
		index[path] = child
		registerChildren(index, path, child)
	}
}

// ModuleByNamespace resolves a module by its XML namespace URI.
func (r *Registry) ModuleByNamespace(ns string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byNS[ns]
	return m, ok
}

// IterateModules returns every loaded module in load order.
func (r *Registry) IterateModules() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Module, 0, len(r.nameOrder))
	for _, name := range r.nameOrder {
		out = append(out, r.modules[name])
	}
	return out
}

// IterateTopLevel returns m's top-level data and rpc/notification nodes.
func (r *Registry) IterateTopLevel(m *Module) []*Node {
	if m == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.topLevel[m.Name]
}

// NodeBySchemaPath resolves an absolute schema path of the form
// "/module:top/child/grandchild" to its Node.
func (r *Registry) NodeBySchemaPath(path string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byPath[path]
	return n, ok
}

// HasData reports whether m declares at least one top-level data node
// (container/list/leaf/leaf-list/anyxml) — a module consisting only of
// rpc/notification/grouping statements returns false here, per the scenario
// where a rpc-only module is skipped by a filterless get.
func (r *Registry) HasData(m *Module) bool {
	if m == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasData[m.Name]
}
