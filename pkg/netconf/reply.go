package netconf

import "bytes"

// MarshalOKReply renders <rpc-reply message-id="..."><ok/></rpc-reply>.
func MarshalOKReply(messageID string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<rpc-reply xmlns="`)
	buf.WriteString(netconfNamespace)
	buf.WriteString(`" message-id="`)
	buf.WriteString(xmlEscapeAttr(messageID))
	buf.WriteString(`"><ok/></rpc-reply>`)
	return buf.Bytes()
}

// MarshalDataReply renders <rpc-reply message-id="..."><data>...</data></rpc-reply>
// from an already-built and with-defaults-transformed reply tree.
func MarshalDataReply(messageID string, root *replyTreeNode) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<rpc-reply xmlns="`)
	buf.WriteString(netconfNamespace)
	buf.WriteString(`" message-id="`)
	buf.WriteString(xmlEscapeAttr(messageID))
	buf.WriteString(`"><data>`)
	marshalChildren(&buf, root.children)
	buf.WriteString(`</data></rpc-reply>`)
	return buf.Bytes()
}

// MarshalErrorReply renders <rpc-reply message-id="..."><rpc-error>...</rpc-error></rpc-reply>.
// Multiple errors may be reported in a single reply per RFC 6241 §4.3.
func MarshalErrorReply(messageID string, errs ...*RPCError) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<rpc-reply xmlns="`)
	buf.WriteString(netconfNamespace)
	buf.WriteString(`" message-id="`)
	buf.WriteString(xmlEscapeAttr(messageID))
	buf.WriteString(`">`)
	for _, e := range errs {
		marshalRPCError(&buf, e)
	}
	buf.WriteString(`</rpc-reply>`)
	return buf.Bytes()
}

func marshalRPCError(buf *bytes.Buffer, e *RPCError) {
	buf.WriteString(`<rpc-error>`)
	buf.WriteString(`<error-type>` + string(e.ErrorType) + `</error-type>`)
	buf.WriteString(`<error-tag>` + string(e.ErrorTag) + `</error-tag>`)
	buf.WriteString(`<error-severity>` + string(e.ErrorSeverity) + `</error-severity>`)
	if e.ErrorAppTag != "" {
		buf.WriteString(`<error-app-tag>` + xmlEscapeText(e.ErrorAppTag) + `</error-app-tag>`)
	}
	if e.ErrorPath != "" {
		buf.WriteString(`<error-path>` + xmlEscapeText(e.ErrorPath) + `</error-path>`)
	}
	if e.ErrorMessage != "" {
		buf.WriteString(`<error-message>` + xmlEscapeText(e.ErrorMessage) + `</error-message>`)
	}
	if e.ErrorInfo != nil {
		buf.WriteString(`<error-info>`)
		if e.ErrorInfo.BadElement != "" {
			buf.WriteString(`<bad-element>` + xmlEscapeText(e.ErrorInfo.BadElement) + `</bad-element>`)
		}
		if e.ErrorInfo.BadAttribute != "" {
			buf.WriteString(`<bad-attribute>` + xmlEscapeText(e.ErrorInfo.BadAttribute) + `</bad-attribute>`)
		}
		if e.ErrorInfo.BadNamespace != "" {
			buf.WriteString(`<bad-namespace>` + xmlEscapeText(e.ErrorInfo.BadNamespace) + `</bad-namespace>`)
		}
		if e.ErrorInfo.LockOwnerSession != "" {
			buf.WriteString(`<lock-owner-session>` + xmlEscapeText(e.ErrorInfo.LockOwnerSession) + `</lock-owner-session>`)
		}
		buf.WriteString(`</error-info>`)
	}
	buf.WriteString(`</rpc-error>`)
}
