package netconf

import (
	"bytes"
	"strings"

	"github.com/ncagentd/ncagentd/pkg/datastore"
	"github.com/ncagentd/ncagentd/pkg/schema"
	"github.com/ncagentd/ncagentd/pkg/value"
)

// replyTreeNode is one element of the XML tree assembled from a flat list of
// datastore items, merging items that share a path prefix into the same
// container/list-instance node the way a real NETCONF <data> reply nests
// them, per spec §4.2's "items are grouped back into a tree" note.
type replyTreeNode struct {
	local     string
	predicate string // list-instance predicate text, e.g. "name='eth0'"; empty for containers/leaves
	namespace string // set only where this step introduces (or re-enters) a module
	isLeaf    bool
	text      string
	tagged    bool // with-defaults report-all-tagged: wd:default="true"
	children  []*replyTreeNode
	schemaNode *schema.Node // nil if unresolvable (e.g. unknown module prefix)
}

func findOrCreateChild(n *replyTreeNode, local, predicate string) *replyTreeNode {
	for _, c := range n.children {
		if c.local == local && c.predicate == predicate {
			return c
		}
	}
	c := &replyTreeNode{local: local, predicate: predicate}
	n.children = append(n.children, c)
	return c
}

// buildReplyTree assembles items into a tree rooted at a synthetic node
// whose children are the actual top-level elements of the reply.
func buildReplyTree(reg *schema.Registry, items []datastore.Item) *replyTreeNode {
	root := &replyTreeNode{}
	resolver := schemaFractionResolver{reg: reg}
	var scratch [32]byte

	for _, item := range items {
		steps := splitXPathSteps(item.XPath)
		cur := root
		for i, step := range steps {
			name, predicate := splitPredicate(step)
			local := name
			prefix := ""
			if idx := strings.IndexByte(name, ':'); idx >= 0 {
				prefix, local = name[:idx], name[idx+1:]
			}
			child := findOrCreateChild(cur, local, predicate)
			if prefix != "" && child.namespace == "" {
				if mod, ok := prefixToModule(reg, prefix); ok {
					child.namespace = mod.Namespace
				}
			}
			if child.schemaNode == nil {
				child.schemaNode = childSchemaNode(reg, cur, local, prefix)
			}
			if i == len(steps)-1 {
				child.isLeaf = true
				child.text = string(value.Render(item.Value, scratch[:0], resolver))
			}
			cur = child
		}
	}
	return root
}

// childSchemaNode resolves the schema node for a step named local under
// parent (whose own schemaNode is nil at the synthetic root). At the root,
// local is a top-level element and prefix identifies which module's
// top-level list to search.
func childSchemaNode(reg *schema.Registry, parent *replyTreeNode, local, prefix string) *schema.Node {
	if parent.schemaNode == nil {
		mod, ok := prefixToModule(reg, prefix)
		if !ok {
			return nil
		}
		for _, n := range reg.IterateTopLevel(mod) {
			if n.Name == local {
				return n
			}
		}
		return nil
	}
	return parent.schemaNode.Children[local]
}

// marshalChildren writes every child of n (n itself is never emitted: it is
// either the synthetic root or, during with-defaults synthesis, a leaf's
// owner whose own tag was already written by the caller).
func marshalChildren(buf *bytes.Buffer, children []*replyTreeNode) {
	for _, c := range children {
		marshalNode(buf, c)
	}
}

func marshalNode(buf *bytes.Buffer, n *replyTreeNode) {
	buf.WriteByte('<')
	buf.WriteString(n.local)
	if n.namespace != "" {
		buf.WriteString(` xmlns="`)
		buf.WriteString(xmlEscapeAttr(n.namespace))
		buf.WriteByte('"')
	}
	if n.tagged {
		buf.WriteString(` xmlns:wd="`)
		buf.WriteString(withDefaultsNamespace)
		buf.WriteString(`" wd:default="true"`)
	}
	buf.WriteByte('>')
	if n.isLeaf {
		buf.WriteString(xmlEscapeText(n.text))
	} else {
		marshalChildren(buf, n.children)
	}
	buf.WriteString("</")
	buf.WriteString(n.local)
	buf.WriteByte('>')
}

func xmlEscapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func xmlEscapeAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
