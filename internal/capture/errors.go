package capture

import "errors"

// ErrDeviceFatal wraps any error reported by the capture device. The device
// has been released by the time Run returns it.
var ErrDeviceFatal = errors.New("capture device failed")
