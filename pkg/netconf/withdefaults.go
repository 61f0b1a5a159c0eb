package netconf

import "github.com/ncagentd/ncagentd/pkg/schema"

// applyWithDefaults transforms a reply tree in place per RFC 6243, within
// the simplification spec.md's design note accepts: defaults are only
// synthesized under containers that already appear in the reply (an absent
// container's defaults are never used to conjure the container itself), and
// list defaults are expanded per already-present list instance.
func applyWithDefaults(root *replyTreeNode, mode WithDefaultsMode) {
	switch mode {
	case WDTrim:
		trimDefaults(root)
	case WDReportAll:
		reportDefaults(root, false)
	case WDReportAllTagged:
		reportDefaults(root, true)
	default: // WDExplicit or unset: items already reflect exactly what was set
	}
}

func trimDefaults(n *replyTreeNode) {
	kept := n.children[:0]
	for _, c := range n.children {
		if c.isLeaf {
			if c.schemaNode != nil && c.schemaNode.HasDefault && c.text == c.schemaNode.Default {
				continue
			}
			kept = append(kept, c)
			continue
		}
		trimDefaults(c)
		kept = append(kept, c)
	}
	n.children = kept
}

func reportDefaults(n *replyTreeNode, tagged bool) {
	if n.schemaNode != nil && !n.isLeaf {
		for name, sn := range n.schemaNode.Children {
			if sn.Kind != schema.KindLeaf || !sn.HasDefault {
				continue
			}
			if hasChild(n, name) {
				continue
			}
			n.children = append(n.children, &replyTreeNode{
				local:      name,
				isLeaf:     true,
				text:       sn.Default,
				tagged:     tagged,
				schemaNode: sn,
			})
		}
	}
	for _, c := range n.children {
		if !c.isLeaf {
			reportDefaults(c, tagged)
		}
	}
}

func hasChild(n *replyTreeNode, local string) bool {
	for _, c := range n.children {
		if c.local == local {
			return true
		}
	}
	return false
}
