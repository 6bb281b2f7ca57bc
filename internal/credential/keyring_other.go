//go:build !linux

package credential

import "context"

func secretServicePassword(context.Context, string) (string, error) {
	return "", ErrBackendUnavailable
}
