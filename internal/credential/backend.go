package credential

import (
	"errors"
	"fmt"

	"github.com/zhaobenny/mpvwatch/internal/model"
)

// ErrBackendUnavailable is returned where the host has no protected-data facility
var ErrBackendUnavailable = errors.New("protected data facility not available on this platform")

// Backend unwraps data protected by the host for the current user
type Backend interface {
	Name() string
	Unwrap(blob []byte) ([]byte, error)
}

type unavailableBackend struct{}

func (unavailableBackend) Name() string { return "none" }

func (unavailableBackend) Unwrap([]byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: %w", model.ErrDecrypt, ErrBackendUnavailable)
}
