package pcm

import (
	"fmt"
	"io"
)

// Buffer is a fixed-size multichannel sample buffer. Channels are stored
// planar (one slice per channel) and zero-initialized, so an untouched
// region is silence.
//
// Buffer does no locking. Concurrent writers are safe only while they
// touch disjoint (channel, sample-range) regions.
type Buffer struct {
	format   Format
	channels [][]int16
}

// NewBuffer allocates a zeroed buffer of channels × samples.
func NewBuffer(format Format, channels int, samples int64) *Buffer {
	b := &Buffer{format: format, channels: make([][]int16, channels)}
	for i := range b.channels {
		b.channels[i] = make([]int16, samples)
	}
	return b
}

// Format returns the buffer's sample format.
func (b *Buffer) Format() Format {
	return b.format
}

// Channels returns the channel count.
func (b *Buffer) Channels() int {
	return len(b.channels)
}

// Samples returns the per-channel sample count.
func (b *Buffer) Samples() int64 {
	if len(b.channels) == 0 {
		return 0
	}
	return int64(len(b.channels[0]))
}

// Channel returns the backing slice of one channel. The slice aliases the
// buffer; writes through it are writes into the buffer.
func (b *Buffer) Channel(i int) []int16 {
	return b.channels[i]
}

// Write overwrites the region of channel ch starting at sample offset
// with the given samples. The region must lie entirely inside the buffer.
func (b *Buffer) Write(ch int, offset int64, samples []int16) error {
	if ch < 0 || ch >= len(b.channels) {
		return fmt.Errorf("pcm: channel %d outside buffer of %d channels", ch, len(b.channels))
	}
	if offset < 0 || offset+int64(len(samples)) > b.Samples() {
		return fmt.Errorf("pcm: sample range [%d, %d) outside buffer of %d samples",
			offset, offset+int64(len(samples)), b.Samples())
	}
	copy(b.channels[ch][offset:], samples)
	return nil
}

// WriteTo writes the buffer as interleaved little-endian L16 frames.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	const frameChunk = 4096
	channels := len(b.channels)
	samples := b.Samples()

	frame := make([]int16, 0, channels*frameChunk)
	var written int64
	for at := int64(0); at < samples; at += frameChunk {
		n := min(int64(frameChunk), samples-at)
		frame = frame[:0]
		for i := at; i < at+n; i++ {
			for ch := 0; ch < channels; ch++ {
				frame = append(frame, b.channels[ch][i])
			}
		}
		wn, err := w.Write(EncodeL16(frame))
		written += int64(wn)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
