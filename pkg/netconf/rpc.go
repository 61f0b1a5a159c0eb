package netconf

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// maxRPCSize bounds a single incoming <rpc> document, grounded in the
// teacher's ParseRPC size guard.
const maxRPCSize = 10 * 1024 * 1024

// ParseRPC decodes data as a NETCONF <rpc> envelope, rejecting DTDs (a
// classic XML entity-expansion vector), oversized documents, a missing
// message-id, and a non-NETCONF-base envelope namespace.
func ParseRPC(data []byte) (*RPC, error) {
	if bytes.Contains(data, []byte("<!DOCTYPE")) || bytes.Contains(data, []byte("<!ENTITY")) {
		return nil, ErrDTDNotAllowed()
	}
	if len(data) > maxRPCSize {
		return nil, ErrMalformedMessage(fmt.Sprintf("rpc size exceeds maximum (%d bytes)", maxRPCSize))
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = nil

	var rpc RPC
	if err := dec.Decode(&rpc); err != nil {
		return nil, ErrMalformedMessage(fmt.Sprintf("xml parse error: %v", err))
	}
	if rpc.XMLName.Space != netconfNamespace {
		return nil, ErrInvalidNamespace(rpc.XMLName.Space)
	}
	if rpc.MessageID == "" {
		return nil, ErrMissingElement("rpc", "message-id")
	}
	if rpc.Operation.Space != "" && rpc.Operation.Space != netconfNamespace {
		return nil, ErrInvalidNamespace(rpc.Operation.Space)
	}
	return &rpc, nil
}

// UnmarshalOperation re-wraps r.Content under the operation element name and
// decodes it into v, letting each handler declare its own request shape
// instead of the envelope carrying one union of every operation's fields.
func (r *RPC) UnmarshalOperation(v interface{}) error {
	wrapped := fmt.Sprintf(`<%s xmlns="%s">%s</%s>`, r.Operation.Local, netconfNamespace, string(r.Content), r.Operation.Local)

	dec := xml.NewDecoder(bytes.NewReader([]byte(wrapped)))
	dec.Strict = true
	dec.Entity = nil
	if err := dec.Decode(v); err != nil {
		return ErrMalformedMessage(fmt.Sprintf("operation parse error: %v", err))
	}
	return nil
}
