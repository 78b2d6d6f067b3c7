// Package pcm provides types for working with L16 (16-bit signed
// little-endian) PCM audio: a parametric mono format and a fixed-size
// multichannel sample buffer.
//
// Time to sample conversions round half up, so two adjacent events whose
// boundary times coincide always map to the same sample index: no
// one-sample gaps, no one-sample overlaps.
package pcm

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Format describes mono L16 audio at a given sample rate.
type Format struct {
	// Rate is the sample rate in Hz.
	Rate int
}

// Common formats.
var (
	L16Mono16K = Format{Rate: 16000}
	L16Mono24K = Format{Rate: 24000}
	L16Mono44K = Format{Rate: 44100}
	L16Mono48K = Format{Rate: 48000}
)

// SamplesIn returns the number of samples covering d, rounding half up.
func (f Format) SamplesIn(d time.Duration) int64 {
	return (int64(d)*int64(f.Rate) + int64(time.Second)/2) / int64(time.Second)
}

// SampleIndex returns the sample index of the absolute time t, rounding
// half up. Identical to SamplesIn; the name states the intent at call
// sites placing events on a timeline.
func (f Format) SampleIndex(t time.Duration) int64 {
	return f.SamplesIn(t)
}

// Duration returns the duration of the given number of samples.
func (f Format) Duration(samples int64) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(f.Rate)
}

// Bytes returns the byte length of the given number of samples.
func (f Format) Bytes(samples int64) int64 {
	return samples * 2
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes / 2
}

// String returns a MIME-style description of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=1", f.Rate)
}

// DecodeL16 converts little-endian L16 bytes to samples. A trailing odd
// byte is ignored.
func DecodeL16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// EncodeL16 converts samples to little-endian L16 bytes.
func EncodeL16(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// ReadSamples reads up to n samples of L16 data from r. A short read is
// not an error: the returned slice holds whatever was available, letting
// callers zero-pad events that outlive their source material.
func ReadSamples(r io.Reader, n int64) ([]int16, error) {
	buf := make([]byte, n*2)
	read, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeL16(buf[:read&^1]), nil
}
