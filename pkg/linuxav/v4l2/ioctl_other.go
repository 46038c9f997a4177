//go:build !linux

package v4l2

func openDriver(string) (driver, error) {
	return nil, ErrUnsupportedPlatform
}
