package netconf

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ncagentd/ncagentd/pkg/datastore"
	"github.com/ncagentd/ncagentd/pkg/schema"
	"github.com/ncagentd/ncagentd/pkg/value"
)

const ncOperationNamespace = "urn:ietf:params:xml:ns:netconf:base:1.0"

// pendingAction is a datastore call buffered because it was encountered
// before its enclosing list instance's keys were fully known, per spec
// §4.5 item 2: "no datastore call before both keys are known".
type pendingAction struct {
	rel  string // path relative to the owning editTarget
	op   EditOp
	val  value.Value
	node *schema.Node
}

// editTarget is one entry of the list-instance target stack. The root
// target is always resolved. A list target starts unresolved and becomes
// resolved (keysComplete) once every declared key leaf has been observed,
// at which point ownRelPath (this list instance's own step, relative to
// its parent target) is fixed and any buffered pending actions replay.
type editTarget struct {
	parent       *editTarget
	relStart     int // len(pathStack) baseline: path segments since this target begins
	keysComplete bool
	ownRelPath   string // this instance's own step, relative to parent; valid once keysComplete

	listNode  *schema.Node
	listOp    EditOp
	keyValues map[string]string
	keyCount  int
	pending   []pendingAction
}

func (t *editTarget) relSince(pathStack []string) string {
	return strings.Join(pathStack[t.relStart:], "/")
}

// editWalker drives the depth-first edit-config walk of spec §4.5 as an
// explicit state machine over raw xml.Decoder tokens: a frame stack mirrors
// XML nesting, pathStack mirrors the currently-open ancestor chain's step
// text (push on enter, pop on leave — §9's "push_segment/pop_segment"), and
// the target stack holds one entry per still-relevant list instance whose
// own path may not yet be resolvable.
type editWalker struct {
	ds     datastore.Datastore
	dsName datastore.Datastore_
	reg    *schema.Registry
	ctx    context.Context
	defOp  DefaultOperation

	root      *editTarget
	targets   []*editTarget
	pathStack []string
	frames    []editFrame
}

type editFrame struct {
	local    string
	module   *schema.Module
	node     *schema.Node // nil if this element has no matching schema node
	op       EditOp
	isList   bool
	keyLocal map[string]bool
	textBuf  bytes.Buffer
}

func newEditWalker(ds datastore.Datastore, dsName datastore.Datastore_, reg *schema.Registry, defOp DefaultOperation) *editWalker {
	root := &editTarget{keysComplete: true}
	return &editWalker{ds: ds, dsName: dsName, reg: reg, defOp: defOp, root: root, targets: []*editTarget{root}}
}

func defaultOpToEditOp(d DefaultOperation) EditOp {
	switch d {
	case DefaultOpReplace:
		return OpReplace
	case DefaultOpNone:
		return OpNone
	default:
		return OpMerge
	}
}

// Run parses configXML (the <config> element's raw inner XML) and executes
// the edit. An empty config is a no-op per spec §4.5.
func (w *editWalker) Run(ctx context.Context, configXML []byte) *RPCError {
	w.ctx = ctx
	trimmed := bytes.TrimSpace(configXML)
	if len(trimmed) == 0 {
		return nil
	}

	dec := xml.NewDecoder(bytes.NewReader(trimmed))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ErrMalformedMessage(err.Error())
		}
		var rerr *RPCError
		switch t := tok.(type) {
		case xml.StartElement:
			rerr = w.enter(t)
		case xml.CharData:
			if len(w.frames) > 0 {
				w.frames[len(w.frames)-1].textBuf.Write(t)
			}
		case xml.EndElement:
			rerr = w.leave()
		}
		if rerr != nil {
			return rerr
		}
	}
	return nil
}

func (w *editWalker) curTarget() *editTarget { return w.targets[len(w.targets)-1] }

func (w *editWalker) enter(t xml.StartElement) *RPCError {
	var parent *editFrame
	if len(w.frames) > 0 {
		parent = &w.frames[len(w.frames)-1]
	}

	var mod *schema.Module
	var node *schema.Node
	if parent == nil {
		if m, ok := w.reg.ModuleByNamespace(t.Name.Space); ok {
			mod = m
			for _, n := range w.reg.IterateTopLevel(mod) {
				if n.Name == t.Name.Local {
					node = n
					break
				}
			}
		}
	} else if parent.node != nil {
		mod = parent.node.Module
		if parent.node.Children != nil {
			node = parent.node.Children[t.Name.Local]
		}
	}

	op := defaultOpToEditOp(w.defOp)
	if parent != nil {
		op = parent.op
	}
	for _, attr := range t.Attr {
		if attr.Name.Space == ncOperationNamespace && attr.Name.Local == "operation" {
			op = normalizeEditOp(attr.Value)
		}
	}

	isList := node != nil && node.Kind == schema.KindList
	frame := editFrame{local: t.Name.Local, module: mod, node: node, op: op, isList: isList}

	if isList {
		keyLocal := make(map[string]bool, len(node.Keys))
		for _, k := range node.Keys {
			keyLocal[k] = true
		}
		frame.keyLocal = keyLocal
		nt := &editTarget{
			parent:    w.curTarget(),
			relStart:  len(w.pathStack),
			listNode:  node,
			listOp:    op,
			keyValues: make(map[string]string, len(node.Keys)),
			keyCount:  len(node.Keys),
		}
		w.targets = append(w.targets, nt)
	} else {
		w.pathStack = append(w.pathStack, stepText(frame, parent))
	}

	w.frames = append(w.frames, frame)
	return nil
}

func normalizeEditOp(v string) EditOp {
	switch v {
	case "create":
		return OpCreate
	case "delete":
		return OpDelete
	case "remove":
		return OpRemove
	case "replace":
		return OpReplace
	default:
		return OpMerge
	}
}

func (w *editWalker) leave() *RPCError {
	if len(w.frames) == 0 {
		return nil
	}
	f := w.frames[len(w.frames)-1]
	w.frames = w.frames[:len(w.frames)-1]
	var parent *editFrame
	if len(w.frames) > 0 {
		parent = &w.frames[len(w.frames)-1]
	}

	if f.isList {
		return w.leaveList(f)
	}

	text := strings.TrimSpace(f.textBuf.String())

	if parent != nil && parent.isList && parent.keyLocal[f.local] {
		// Pop the key leaf's own step before resolveListIfReady pushes the
		// list instance's step, so the instance step sits directly on top.
		w.pathStack = w.pathStack[:len(w.pathStack)-1]
		w.curTarget().keyValues[f.local] = text
		return w.resolveListIfReady()
	}

	// A non-list element's own step was pushed at enter(); pop it once we
	// are done using it, regardless of which branch below fires.
	defer func() { w.pathStack = w.pathStack[:len(w.pathStack)-1] }()

	if f.node == nil {
		return ErrUnknownElement("/edit-config/config", f.local)
	}

	switch f.node.Kind {
	case schema.KindContainer:
		return nil
	case schema.KindPresenceContainer, schema.KindLeaf, schema.KindLeafList, schema.KindAnyXML:
		if f.op == OpNone {
			return nil
		}
		v := leafValue(f, text)
		t := w.curTarget()
		return w.emit(t, t.relSince(w.pathStack), f.op, v, f.node)
	default:
		return nil
	}
}

// resolveListIfReady finishes the current (innermost) list target once all
// its declared keys have been observed: fixes its own relative path, issues
// its own create/delete against its parent target, and flushes whatever was
// buffered while the keys were still incomplete.
func (w *editWalker) resolveListIfReady() *RPCError {
	t := w.curTarget()
	if len(t.keyValues) < t.keyCount {
		return nil
	}
	f := w.frames[len(w.frames)-1] // the list element itself, still open

	var b strings.Builder
	var parentFrame *editFrame
	if len(w.frames) >= 2 {
		parentFrame = &w.frames[len(w.frames)-2]
	}
	b.WriteString(stepText(f, parentFrame))
	for _, k := range t.listNode.Keys {
		fmt.Fprintf(&b, "[%s='%s']", k, t.keyValues[k])
	}
	ownStep := b.String()

	prefix := t.parent.relSince(w.pathStack[:t.relStart])
	if prefix != "" {
		prefix += "/"
	}
	t.ownRelPath = prefix + ownStep

	w.pathStack = append(w.pathStack, ownStep)
	t.relStart = len(w.pathStack)
	t.keysComplete = true

	// merge/replace never issue a call for the list instance itself — the
	// keyed leaf path below implicitly materializes it, matching the
	// original's LYS_LIST dispatch (no sr_set_item for the list node under
	// merge/replace, only for its descendant leaves). create/delete/remove
	// are explicit instance-level operations and still dispatch here.
	switch t.listOp {
	case OpCreate, OpDelete, OpRemove:
		if rerr := w.emit(t.parent, t.ownRelPath, t.listOp, value.Value{Kind: value.KindEmpty}, t.listNode); rerr != nil {
			return rerr
		}
	}

	pending := t.pending
	t.pending = nil
	for _, p := range pending {
		if rerr := w.emit(t, p.rel, p.op, p.val, p.node); rerr != nil {
			return rerr
		}
	}
	return nil
}

func (w *editWalker) leaveList(f editFrame) *RPCError {
	t := w.curTarget()
	if !t.keysComplete {
		return ErrMissingElement("edit-config", f.local+" (incomplete list key)")
	}
	w.targets = w.targets[:len(w.targets)-1]
	w.pathStack = w.pathStack[:len(w.pathStack)-1] // pop this instance's own step
	return nil
}

// emit issues (or buffers) a datastore call expressed as rel, a path
// relative to t. Root always dispatches immediately; an unresolved list
// target buffers; a resolved list target folds its own relative path into
// rel and recurses one level up.
func (w *editWalker) emit(t *editTarget, rel string, op EditOp, v value.Value, node *schema.Node) *RPCError {
	if t.parent == nil {
		return w.apply("/"+rel, op, v)
	}
	if !t.keysComplete {
		t.pending = append(t.pending, pendingAction{rel: rel, op: op, val: v, node: node})
		return nil
	}
	combined := t.ownRelPath
	if rel != "" {
		combined += "/" + rel
	}
	return w.emit(t.parent, combined, op, v, node)
}

func (w *editWalker) apply(path string, op EditOp, v value.Value) *RPCError {
	v.XPath = path
	switch op {
	case OpNone:
		return nil
	case OpCreate:
		if err := w.ds.SetItem(w.ctx, w.dsName, path, v, datastore.SetFlags{Strict: true}); err != nil {
			return mapBackendErr(err, path)
		}
	case OpMerge, OpReplace:
		if err := w.ds.SetItem(w.ctx, w.dsName, path, v, datastore.SetFlags{Strict: false}); err != nil {
			return mapBackendErr(err, path)
		}
	case OpDelete:
		if err := w.ds.DeleteItem(w.ctx, w.dsName, path, datastore.DeleteFlags{Strict: true}); err != nil {
			return mapBackendErr(err, path)
		}
	case OpRemove:
		if err := w.ds.DeleteItem(w.ctx, w.dsName, path, datastore.DeleteFlags{Strict: false}); err != nil {
			return mapBackendErr(err, path)
		}
	}
	return nil
}

func mapBackendErr(err error, path string) *RPCError {
	if dsErr, ok := err.(*datastore.Error); ok {
		return ErrBackendFailure(string(dsErr.Code), dsErr.Message, path)
	}
	return ErrDatastoreError(err.Error())
}

// stepText renders f's own XPath step: module-prefixed when f's module
// differs from its parent's (root elements always carry their module's
// prefix, having no parent to compare against).
func stepText(f editFrame, parent *editFrame) string {
	if f.module == nil {
		return f.local
	}
	if parent == nil || parent.module == nil || parent.module.Name != f.module.Name {
		return f.module.Prefix + ":" + f.local
	}
	return f.local
}

func leafValue(f editFrame, text string) value.Value {
	if f.node != nil && f.node.FractionDigits > 0 {
		if mantissa, ok := value.ParseDecimal64(text, f.node.FractionDigits); ok {
			return value.Value{Kind: value.KindDecimal64, Int: mantissa}
		}
	}
	if f.node != nil && (text == "true" || text == "false") {
		return value.Value{Kind: value.KindBoolean, Bool: text == "true"}
	}
	return value.Value{Kind: value.KindString, Str: text}
}
