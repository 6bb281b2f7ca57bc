//go:build !windows

package credential

func platformBackend() Backend {
	return unavailableBackend{}
}
