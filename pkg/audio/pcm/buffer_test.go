package pcm

import (
	"bytes"
	"reflect"
	"testing"
)

func TestNewBufferStartsSilent(t *testing.T) {
	b := NewBuffer(L16Mono16K, 3, 100)
	if b.Channels() != 3 || b.Samples() != 100 {
		t.Fatalf("unexpected shape %d×%d", b.Channels(), b.Samples())
	}
	for ch := 0; ch < b.Channels(); ch++ {
		for i, s := range b.Channel(ch) {
			if s != 0 {
				t.Fatalf("channel %d sample %d is %d, want silence", ch, i, s)
			}
		}
	}
}

func TestWriteOverwritesRegion(t *testing.T) {
	b := NewBuffer(L16Mono16K, 2, 10)
	if err := b.Write(1, 3, []int16{5, 5, 5}); err != nil {
		t.Fatal(err)
	}
	// A later write over the same region replaces it, it does not add.
	if err := b.Write(1, 4, []int16{-9}); err != nil {
		t.Fatal(err)
	}
	want := []int16{0, 0, 0, 5, -9, 5, 0, 0, 0, 0}
	if !reflect.DeepEqual(b.Channel(1), want) {
		t.Errorf("channel 1 = %v, want %v", b.Channel(1), want)
	}
	for i, s := range b.Channel(0) {
		if s != 0 {
			t.Errorf("channel 0 sample %d touched: %d", i, s)
		}
	}
}

func TestWriteRejectsOutOfRange(t *testing.T) {
	b := NewBuffer(L16Mono16K, 2, 10)

	if err := b.Write(2, 0, []int16{1}); err == nil {
		t.Error("expected error for channel outside buffer")
	}
	if err := b.Write(0, 8, []int16{1, 2, 3}); err == nil {
		t.Error("expected error for range past end")
	}
	if err := b.Write(0, -1, []int16{1}); err == nil {
		t.Error("expected error for negative offset")
	}
	// Exactly filling the tail is fine.
	if err := b.Write(0, 8, []int16{1, 2}); err != nil {
		t.Errorf("in-range write failed: %v", err)
	}
}

func TestWriteToInterleaves(t *testing.T) {
	b := NewBuffer(L16Mono16K, 2, 3)
	if err := b.Write(0, 0, []int16{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := b.Write(1, 0, []int16{10, 20, 30}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	n, err := b.WriteTo(&out)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(out.Len()) {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, out.Len())
	}
	want := EncodeL16([]int16{1, 10, 2, 20, 3, 30})
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("interleaved output %v, want %v", out.Bytes(), want)
	}
}
