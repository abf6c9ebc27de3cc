package audio

import (
	"encoding/binary"
	"fmt"
)

// Snip16 truncates 32-bit little-endian mono samples to 16 bits by keeping
// the two most significant bytes of every word. dst must hold at least
// len(src)/2 bytes. It returns the number of bytes written.
func Snip16(dst, src []byte) (int, error) {
	if len(src)%4 != 0 {
		return 0, &FormatError{Length: len(src), Reason: "not a multiple of 4"}
	}
	n := len(src) / 2
	if len(dst) < n {
		return 0, &FormatError{Length: len(src), Reason: fmt.Sprintf("output holds %d of %d bytes", len(dst), n)}
	}

	for i := 0; i < len(src)/4; i++ {
		dst[2*i] = src[4*i+2]
		dst[2*i+1] = src[4*i+3]
	}
	return n, nil
}

// DecodeSamples converts little-endian PCM into dst and returns the sample
// count. 8-bit PCM is unsigned as in WAV; wider formats are signed.
func DecodeSamples(dst []float64, src []byte, bytesPerSample int) (int, error) {
	if bytesPerSample != 1 && bytesPerSample != 2 && bytesPerSample != 4 {
		return 0, &FormatError{Length: len(src), Reason: fmt.Sprintf("unsupported sample width %d", bytesPerSample)}
	}
	if len(src)%bytesPerSample != 0 {
		return 0, &FormatError{Length: len(src), Reason: fmt.Sprintf("not a multiple of %d", bytesPerSample)}
	}
	n := len(src) / bytesPerSample
	if len(dst) < n {
		return 0, &FormatError{Length: len(src), Reason: fmt.Sprintf("output holds %d of %d samples", len(dst), n)}
	}

	switch bytesPerSample {
	case 1:
		for i := 0; i < n; i++ {
			dst[i] = float64(int(src[i]) - 128)
		}
	case 2:
		for i := 0; i < n; i++ {
			dst[i] = float64(int16(binary.LittleEndian.Uint16(src[2*i:])))
		}
	case 4:
		for i := 0; i < n; i++ {
			dst[i] = float64(int32(binary.LittleEndian.Uint32(src[4*i:])))
		}
	}
	return n, nil
}
