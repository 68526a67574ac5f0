//go:build !gpu || !cgo

package gpu

import "fmt"

func openCL(int) (Driver, error) {
	return nil, fmt.Errorf("%w: OpenCL support not enabled in this build", ErrUnavailable)
}
