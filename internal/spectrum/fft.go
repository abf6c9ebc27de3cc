package spectrum

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
)

// Transformer is the FFT primitive. Given n real samples it fills re and im
// with the n complex coefficients of the forward transform.
type Transformer interface {
	Transform(samples, re, im []float64) error
}

// DSPTransformer is the go-dsp backed Transformer. go-dsp accepts any length,
// so the power-of-two contract is enforced here.
type DSPTransformer struct{}

func (DSPTransformer) Transform(samples, re, im []float64) error {
	n := len(samples)
	if n == 0 || n&(n-1) != 0 {
		return fmt.Errorf("fft of %d samples: %w", n, ErrNotPowerOfTwo)
	}
	if len(re) < n || len(im) < n {
		return fmt.Errorf("fft output buffers hold %d/%d of %d coefficients", len(re), len(im), n)
	}

	coeffs := fft.FFTReal(samples)
	for k, c := range coeffs {
		re[k] = real(c)
		im[k] = imag(c)
	}
	return nil
}

// TransformerFunc adapts a plain function to Transformer.
type TransformerFunc func(samples, re, im []float64) error

func (f TransformerFunc) Transform(samples, re, im []float64) error {
	return f(samples, re, im)
}
