package spectrum

import (
	"errors"
	"fmt"
)

var (
	// ErrTransform matches every failure to turn a block into a spectrum.
	// The capture loop skips the block's result and keeps going.
	ErrTransform = errors.New("spectral transform failed")

	// ErrNotPowerOfTwo is returned by the FFT primitive for lengths it cannot transform.
	ErrNotPowerOfTwo = errors.New("length is not a power of two")

	// ErrAggregation marks an attempt to reduce an empty band. The band
	// boundary checks make it unreachable, so seeing it means a bug.
	ErrAggregation = errors.New("aggregation over empty band")
)

type TransformError struct {
	Length int
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %d samples: %v", e.Length, e.Err)
}

func (e *TransformError) Is(target error) bool { return target == ErrTransform }
func (e *TransformError) Unwrap() error        { return e.Err }

type AggregationError struct {
	Band int
	Low  int
	High int
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("band %d: empty range [%d..%d]", e.Band, e.Low, e.High)
}

func (e *AggregationError) Is(target error) bool { return target == ErrAggregation }
