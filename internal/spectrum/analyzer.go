package spectrum

import (
	"fmt"
	"math"
	"strings"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Spectrum is a single-sided magnitude spectrum. Index 0 is DC and the last
// index is Nyquist; every bin in between already carries the x2 correction.
type Spectrum []float64

// Peak returns the index of the largest magnitude, or -1 for an empty spectrum.
func (s Spectrum) Peak() int {
	if len(s) == 0 {
		return -1
	}
	return floats.MaxIdx(s)
}

// DC returns the mean level of the block.
func (s Spectrum) DC() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// Window is the taper applied before the transform.
type Window string

const (
	WindowRectangular Window = "rectangular"
	WindowHann        Window = "hann"
)

// ParseWindow accepts "rectangular" (or "none", or empty) and "hann".
func ParseWindow(raw string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "rectangular":
		return WindowRectangular, nil
	case "hann", "hanning":
		return WindowHann, nil
	default:
		return "", fmt.Errorf("unknown window %q", raw)
	}
}

// Analyzer turns blocks of n time-domain samples into magnitude spectra.
// All buffers are allocated up front; the Spectrum returned by Analyze is
// overwritten by the next call.
type Analyzer struct {
	transform Transformer
	n         int

	taper []float64
	in    []float64
	re    []float64
	im    []float64
	mag   Spectrum
}

// NewAnalyzer prepares an analyzer for blocks of n samples. n is expected to
// be a power of two; a transform that rejects n surfaces as a TransformError
// from Analyze.
func NewAnalyzer(t Transformer, n int, w Window) (*Analyzer, error) {
	if t == nil {
		return nil, fmt.Errorf("spectrum: transformer is required")
	}
	if n < 2 {
		return nil, fmt.Errorf("spectrum: block length must be at least 2, got %d", n)
	}

	a := &Analyzer{
		transform: t,
		n:         n,
		re:        make([]float64, n),
		im:        make([]float64, n),
		mag:       make(Spectrum, n/2+1),
	}

	switch w {
	case WindowRectangular, "":
	case WindowHann:
		a.taper = window.Hann(n)
		a.in = make([]float64, n)
	default:
		return nil, fmt.Errorf("spectrum: unknown window %q", w)
	}

	return a, nil
}

// BlockLength is the number of samples Analyze expects.
func (a *Analyzer) BlockLength() int { return a.n }

// Analyze computes the single-sided magnitude spectrum of samples.
func (a *Analyzer) Analyze(samples []float64) (Spectrum, error) {
	if len(samples) != a.n {
		return nil, &TransformError{Length: len(samples), Err: fmt.Errorf("analyzer expects %d samples", a.n)}
	}

	input := samples
	if a.taper != nil {
		for i, x := range samples {
			a.in[i] = x * a.taper[i]
		}
		input = a.in
	}

	if err := a.transform.Transform(input, a.re, a.im); err != nil {
		return nil, &TransformError{Length: a.n, Err: err}
	}

	scale := 1 / float64(a.n)
	half := a.n / 2
	for k := 0; k <= half; k++ {
		m := math.Hypot(a.re[k]*scale, a.im[k]*scale)
		if k > 0 && k < half {
			m *= 2
		}
		a.mag[k] = m
	}

	return a.mag, nil
}
