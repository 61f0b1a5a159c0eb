package netconf

import (
	"bufio"
	"bytes"
	"io"
)

// endOfMessageMarker is the RFC 6242 :base:1.0 message-framing delimiter.
// This core speaks only base:1.0 framing: chunked framing (:base:1.1) is a
// transport-capability negotiation concern, out of scope here.
const endOfMessageMarker = "]]>]]>"

// ReadFramedMessage reads one NETCONF message from r, delimited by the
// base:1.0 end-of-message marker, and returns its content with the marker
// stripped.
func ReadFramedMessage(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	marker := []byte(endOfMessageMarker)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && buf.Len() > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		buf.WriteByte(b)
		if buf.Len() >= len(marker) && bytes.Equal(buf.Bytes()[buf.Len()-len(marker):], marker) {
			return buf.Bytes()[:buf.Len()-len(marker)], nil
		}
	}
}

// WriteFramedMessage writes msg to w followed by the base:1.0 end-of-message
// marker.
func WriteFramedMessage(w io.Writer, msg []byte) error {
	if _, err := w.Write(msg); err != nil {
		return err
	}
	_, err := w.Write([]byte(endOfMessageMarker))
	return err
}
