package framer

import (
	"bytes"
	"testing"
)

func TestFixedSizeFramerIncomplete(t *testing.T) {
	f := FixedSizeFramer{N: 4}
	buf := bytes.NewBuffer([]byte{1, 2, 3})
	frame, ok, err := f.GetFrame(buf)
	if ok || frame != nil || err != nil {
		t.Fatalf("expected no frame, got %v %v %v", frame, ok, err)
	}
	if buf.Len() != 3 {
		t.Fatalf("buffer should be untouched, got len %d", buf.Len())
	}
}

func TestFixedSizeFramerComplete(t *testing.T) {
	f := FixedSizeFramer{N: 4}
	buf := bytes.NewBuffer([]byte{1, 2, 3, 4, 5})
	frame, ok, err := f.GetFrame(buf)
	if !ok || err != nil {
		t.Fatalf("expected frame, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(frame, []byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected frame %v", frame)
	}
	if buf.Len() != 1 {
		t.Fatalf("expected 1 trailing byte, got %d", buf.Len())
	}
}

func TestLengthPrefixFramerRoundTrip(t *testing.T) {
	f := NewSoupBinFramer(0)
	payload := []byte("hello")
	wire := append([]byte{0, byte(len(payload))}, payload...)
	buf := bytes.NewBuffer(wire)
	frame, ok, err := f.GetFrame(buf)
	if !ok || err != nil {
		t.Fatalf("expected frame, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(frame, wire) {
		t.Fatalf("frame should include header, got %v want %v", frame, wire)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer should be drained, got %d", buf.Len())
	}
}

func TestLengthPrefixFramerWaitsForPayload(t *testing.T) {
	f := NewSoupBinFramer(0)
	buf := bytes.NewBuffer([]byte{0, 5, 'h', 'e'})
	frame, ok, err := f.GetFrame(buf)
	if ok || frame != nil || err != nil {
		t.Fatalf("expected incomplete frame, got %v %v %v", frame, ok, err)
	}
	if buf.Len() != 4 {
		t.Fatalf("buffer must retain partial frame, got %d", buf.Len())
	}
}

func TestLengthPrefixFramerTooLarge(t *testing.T) {
	f := NewSoupBinFramer(8)
	buf := bytes.NewBuffer([]byte{0, 100})
	_, _, err := f.GetFrame(buf)
	if err != ErrFrameTooLarge {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestLengthPrefixFramerFeedOneByteAtATime(t *testing.T) {
	f := NewSoupBinFramer(0)
	msgs := [][]byte{[]byte("hi"), []byte("there"), []byte("")}
	var wire []byte
	for _, m := range msgs {
		wire = append(wire, byte(len(m)>>8), byte(len(m)))
		wire = append(wire, m...)
	}
	buf := new(bytes.Buffer)
	var got [][]byte
	for _, b := range wire {
		buf.WriteByte(b)
		for {
			frame, ok, err := f.GetFrame(buf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				break
			}
			cp := append([]byte(nil), frame...)
			got = append(got, cp)
		}
	}
	if len(got) != len(msgs) {
		t.Fatalf("expected %d frames, got %d", len(msgs), len(got))
	}
	for i, m := range msgs {
		want := append([]byte{byte(len(m) >> 8), byte(len(m))}, m...)
		if !bytes.Equal(got[i], want) {
			t.Fatalf("frame %d mismatch: got %v want %v", i, got[i], want)
		}
	}
}
