package netconf

import (
	"context"
	"encoding/xml"

	"github.com/ncagentd/ncagentd/pkg/datastore"
	"github.com/ncagentd/ncagentd/pkg/filter"
)

// GetRequest is the decoded <get> operation body.
type GetRequest struct {
	XMLName      xml.Name          `xml:"get"`
	Filter       *Filter           `xml:"filter"`
	WithDefaults *WithDefaultsMode `xml:"urn:ietf:params:xml:ns:yang:ietf-netconf-with-defaults with-defaults"`
}

// GetConfigRequest is the decoded <get-config> operation body.
type GetConfigRequest struct {
	XMLName      xml.Name          `xml:"get-config"`
	Source       Source            `xml:"source"`
	Filter       *Filter           `xml:"filter"`
	WithDefaults *WithDefaultsMode `xml:"urn:ietf:params:xml:ns:yang:ietf-netconf-with-defaults with-defaults"`
}

func (s *Server) handleGet(ctx context.Context, sess *Session, rpc *RPC) []byte {
	var req GetRequest
	if err := rpc.UnmarshalOperation(&req); err != nil {
		return MarshalErrorReply(rpc.MessageID, err.(*RPCError))
	}
	return s.runRead(ctx, rpc.MessageID, "get", datastore.Running, req.Filter, req.WithDefaults)
}

func (s *Server) handleGetConfig(ctx context.Context, sess *Session, rpc *RPC) []byte {
	var req GetConfigRequest
	if err := rpc.UnmarshalOperation(&req); err != nil {
		return MarshalErrorReply(rpc.MessageID, err.(*RPCError))
	}
	source, rerr := req.Source.GetDatastore()
	if rerr != nil {
		return MarshalErrorReply(rpc.MessageID, rerr)
	}
	dsName, rerr := toBackendDatastore(source, "get-config")
	if rerr != nil {
		return MarshalErrorReply(rpc.MessageID, rerr)
	}
	return s.runRead(ctx, rpc.MessageID, "get-config", dsName, req.Filter, req.WithDefaults)
}

// runRead implements the shared get/get-config executor of spec §4.5: it
// establishes a read snapshot, resolves the filter (or none) to a set of
// queries, fetches each query plus its descendant expansion, assembles the
// results into a reply tree, and applies with-defaults before marshaling.
func (s *Server) runRead(ctx context.Context, messageID, rpcName string, dsName datastore.Datastore_, f *Filter, wd *WithDefaultsMode) []byte {
	if err := s.ds.SessionRefresh(ctx, dsName); err != nil {
		return MarshalErrorReply(messageID, mapReadErr(err, rpcName))
	}

	xpaths, rerr := s.resolveQueries(f, rpcName)
	if rerr != nil {
		return MarshalErrorReply(messageID, rerr)
	}

	var items []datastore.Item
	for _, xp := range xpaths {
		got, err := s.ds.GetItems(ctx, dsName, xp)
		if err != nil {
			if isSkippableReadErr(err) {
				continue
			}
			return MarshalErrorReply(messageID, mapReadErr(err, rpcName))
		}
		for _, item := range got {
			items = appendMerged(items, item)
			desc, err := s.ds.GetItems(ctx, dsName, item.XPath+"//*")
			if err != nil {
				if isSkippableReadErr(err) {
					continue
				}
				return MarshalErrorReply(messageID, mapReadErr(err, rpcName))
			}
			for _, d := range desc {
				items = appendMerged(items, d)
			}
		}
	}

	root := buildReplyTree(s.reg, items)
	mode := s.defaultWithDefaults
	if wd != nil {
		mode = *wd
	}
	applyWithDefaults(root, mode)
	return MarshalDataReply(messageID, root)
}

// resolveQueries turns an optional <filter> into the absolute XPath queries
// to run against the backend. No filter synthesizes one "/mod:*" query per
// module the registry reports as carrying data (spec §4.5, scenario 6):
// rpc-only modules are never queried.
func (s *Server) resolveQueries(f *Filter, rpcName string) ([]string, *RPCError) {
	if f == nil {
		var out []string
		for _, m := range s.reg.IterateModules() {
			if s.reg.HasData(m) {
				out = append(out, "/"+m.Prefix+":*")
			}
		}
		return out, nil
	}

	filterType := f.Type
	if filterType == "" {
		filterType = "subtree"
	}

	switch filterType {
	case "subtree":
		xp, err := filter.Compile(f.Content, newSchemaFilterRegistry(s.reg))
		if err != nil {
			return nil, ErrInvalidFilter(rpcName, err.Error())
		}
		return xp, nil
	case "xpath":
		if f.Select == "" {
			return nil, ErrMissingElement(rpcName, "filter/@select")
		}
		return []string{f.Select}, nil
	default:
		return nil, ErrUnsupportedFilterType(rpcName, filterType)
	}
}

// appendMerged inserts item into items, replacing any existing entry at the
// same XPath, since a containment step's own query and a sibling's
// descendant expansion can both surface the same node.
func appendMerged(items []datastore.Item, item datastore.Item) []datastore.Item {
	for i, it := range items {
		if it.XPath == item.XPath {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

// isSkippableReadErr reports whether a per-query backend error should be
// silently skipped rather than aborting the whole read, per spec §4.5:
// an unknown module or a not-found node just contributes no data.
func isSkippableReadErr(err error) bool {
	dsErr, ok := err.(*datastore.Error)
	if !ok {
		return false
	}
	return dsErr.Code == datastore.ErrCodeUnknownModel || dsErr.Code == datastore.ErrCodeNotFound
}

func mapReadErr(err error, rpcName string) *RPCError {
	if dsErr, ok := err.(*datastore.Error); ok {
		return ErrBackendFailure(string(dsErr.Code), dsErr.Message, "/rpc/"+rpcName)
	}
	return ErrDatastoreError(err.Error())
}
