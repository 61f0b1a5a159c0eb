package netconf

import (
	"bufio"
	"bytes"
	"testing"
)

func TestFramingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := []byte(`<rpc message-id="1"><get/></rpc>`)
	if err := WriteFramedMessage(&buf, msg); err != nil {
		t.Fatalf("WriteFramedMessage: %v", err)
	}

	got, err := ReadFramedMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadFramedMessage: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("got %q, want %q", got, msg)
	}
}

func TestReadFramedMessageTwoInSequence(t *testing.T) {
	var buf bytes.Buffer
	WriteFramedMessage(&buf, []byte("<a/>"))
	WriteFramedMessage(&buf, []byte("<b/>"))

	r := bufio.NewReader(&buf)
	first, err := ReadFramedMessage(r)
	if err != nil || string(first) != "<a/>" {
		t.Fatalf("first message = %q, %v", first, err)
	}
	second, err := ReadFramedMessage(r)
	if err != nil || string(second) != "<b/>" {
		t.Fatalf("second message = %q, %v", second, err)
	}
}
