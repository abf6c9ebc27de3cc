package plan

import (
	"fmt"
	"math/bits"
	"time"
)

// Sizing fixes the block length and sample rate of a capture session.
// It is computed once before the device is opened and never changes.
type Sizing struct {
	DurationMs         int `json:"duration_ms"`
	BlockLengthSamples int `json:"block_length_samples"`
	SampleRateHz       int `json:"sample_rate_hz"`
	BytesPerSample     int `json:"bytes_per_sample"`
}

// NewSizing rounds the byte budget of durationMs at rateHz down to the
// nearest power of two and re-derives the sample rate so that one block
// covers exactly the requested duration.
//
// The rate is rounded up. That keeps the byte budget of the adjusted rate at
// or above the block size, so passing the result back through NewSizing
// yields the same plan.
func NewSizing(durationMs, rateHz, bytesPerSample int) (Sizing, error) {
	if durationMs <= 0 {
		return Sizing{}, sizingErr("record_time_ms", fmt.Sprintf("must be positive, got %d", durationMs))
	}
	if rateHz <= 0 {
		return Sizing{}, sizingErr("sample_rate_hz", fmt.Sprintf("must be positive, got %d", rateHz))
	}
	switch bytesPerSample {
	case 1, 2, 4:
	default:
		return Sizing{}, sizingErr("bytes_per_sample", fmt.Sprintf("must be 1, 2 or 4, got %d", bytesPerSample))
	}

	budget := int64(durationMs) * int64(rateHz) * int64(bytesPerSample) / 1000
	blockBytes := floorPowerOfTwo(budget)

	samples := blockBytes / int64(bytesPerSample)
	if samples == 0 {
		return Sizing{}, sizingErr("block_length", fmt.Sprintf("record time %dms at %d Hz yields no samples", durationMs, rateHz))
	}
	if samples < 2 {
		return Sizing{}, sizingErr("block_length", fmt.Sprintf("record time %dms at %d Hz yields a single sample", durationMs, rateHz))
	}

	// Below one sample per second the rounded-up rate overshoots into the
	// next power of two and the plan stops being stable.
	perSecond := int64(bytesPerSample) * int64(durationMs)
	if perSecond > blockBytes*1000 {
		return Sizing{}, sizingErr("sample_rate_hz", fmt.Sprintf("%d Hz is too low for a %dms record time", rateHz, durationMs))
	}

	rate := ceilDiv(blockBytes*1000, perSecond)

	return Sizing{
		DurationMs:         durationMs,
		BlockLengthSamples: int(samples),
		SampleRateHz:       int(rate),
		BytesPerSample:     bytesPerSample,
	}, nil
}

// ForFixedRate plans blocks for a source whose rate cannot change, such as
// a recorded file. The block is the largest power of two that fits in
// durationMs and SampleRateHz stays at rateHz, so the block may cover less
// than durationMs. Such a plan is not a fixed point of Resize.
func ForFixedRate(durationMs, rateHz, bytesPerSample int) (Sizing, error) {
	s, err := NewSizing(durationMs, rateHz, bytesPerSample)
	if err != nil {
		return Sizing{}, err
	}
	s.SampleRateHz = rateHz
	return s, nil
}

// Resize runs the plan back through NewSizing. For any plan produced by
// NewSizing the result equals the receiver.
func (s Sizing) Resize() (Sizing, error) {
	return NewSizing(s.DurationMs, s.SampleRateHz, s.BytesPerSample)
}

// BlockBytes is the size of one raw capture block.
func (s Sizing) BlockBytes() int {
	return s.BlockLengthSamples * s.BytesPerSample
}

// SpectrumLength is the number of single-sided magnitude bins, DC through Nyquist.
func (s Sizing) SpectrumLength() int {
	return s.BlockLengthSamples/2 + 1
}

// Resolution returns the width of one spectrum bin in Hz.
func (s Sizing) Resolution() float64 {
	if s.BlockLengthSamples == 0 {
		return 0
	}
	return float64(s.SampleRateHz) / float64(s.BlockLengthSamples)
}

func (s Sizing) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

func floorPowerOfTwo(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return 1 << (bits.Len64(uint64(n)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
