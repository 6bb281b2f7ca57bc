//go:build !linux

package notify

import (
	"context"
	"errors"
)

// ErrUnsupported is returned where no notification bus is wired
var ErrUnsupported = errors.New("desktop notifications are only supported on linux")

// Send is unavailable on this platform
func Send(ctx context.Context, msg Message) error {
	return ErrUnsupported
}
