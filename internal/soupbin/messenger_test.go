package soupbin

import (
	"bytes"
	"testing"

	"github.com/kstaniek/go-wireframe/internal/wire"
)

func TestMessengerRoundTrip(t *testing.T) {
	m := NewMessenger(256)
	s := wire.NewScratch(m.MaxMsgSize())

	buf, err := wire.Encode(s, m, Debug("hi"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f := NewFramer(256)
	var acc bytes.Buffer
	acc.Write(buf)
	frame, ok, err := f.GetFrame(&acc)
	if err != nil || !ok {
		t.Fatalf("get frame: ok=%v err=%v", ok, err)
	}

	got, err := m.Deserialize(frame)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.Type != TypeDebug || got.Text() != "hi" {
		t.Fatalf("got %+v, want Debug(hi)", got)
	}
}

func TestMessengerRejectsOversizedFrame(t *testing.T) {
	m := NewMessenger(8)
	buf := make([]byte, 8)
	if _, err := m.Serialize(Debug("too long for eight bytes"), buf); err == nil {
		t.Fatalf("expected serialization failure")
	}
}
