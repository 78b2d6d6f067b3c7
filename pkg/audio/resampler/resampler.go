// Package resampler converts mono L16 sample slices between sample rates
// using a pure Go polyphase resampler (no CGO dependencies).
package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// OutputLen returns the number of samples Resample produces for n input
// samples converted from srcRate to dstRate, rounding half up.
func OutputLen(n int64, srcRate, dstRate int) int64 {
	return (n*int64(dstRate) + int64(srcRate)/2) / int64(srcRate)
}

// Resample converts mono L16 samples from srcRate to dstRate. The output
// always has exactly OutputLen(len(samples), srcRate, dstRate) samples:
// the converter's filter tail is flushed with silence and the result is
// trimmed, so fixed timeline spans stay fixed after conversion.
func Resample(samples []int16, srcRate, dstRate int) ([]int16, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out, nil
	}

	conv, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	want := OutputLen(int64(len(samples)), srcRate, dstRate)
	out := make([]int16, 0, want)

	produced, err := conv.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	out = appendSamples(out, produced, want)

	// Push silence through until the filter has released everything the
	// input accounts for.
	flush := make([]float64, 256)
	for range 64 {
		if int64(len(out)) >= want {
			break
		}
		produced, err = conv.Process(flush)
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
		out = appendSamples(out, produced, want)
	}
	for int64(len(out)) < want {
		out = append(out, 0)
	}
	return out, nil
}

func appendSamples(dst []int16, src []float64, limit int64) []int16 {
	for _, s := range src {
		if int64(len(dst)) >= limit {
			break
		}
		switch {
		case s >= 1.0:
			dst = append(dst, 32767)
		case s <= -1.0:
			dst = append(dst, -32768)
		case s >= 0:
			dst = append(dst, int16(s*32767.0))
		default:
			dst = append(dst, int16(s*32768.0))
		}
	}
	return dst
}
