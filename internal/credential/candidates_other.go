//go:build !windows

package credential

import (
	"os"
	"path/filepath"
	"runtime"
)

// platformSources tries Firefox, then the keyring-backed Chromium
// browsers when enabled on linux
func platformSources(opts Options) []Source {
	sources := []Source{
		&firefoxSource{profilesDir: firefoxProfilesDir(), domains: opts.Domains, logger: opts.Logger},
	}
	if !opts.LinuxKeyring || runtime.GOOS != "linux" {
		return sources
	}

	config, err := os.UserConfigDir()
	if err != nil {
		return sources
	}
	return append(sources,
		&chromiumSource{
			name:     "Chrome",
			userData: filepath.Join(config, "google-chrome"),
			keys:     keyringKeys("chrome", opts.Logger),
			domains:  opts.Domains,
			logger:   opts.Logger,
		},
		&chromiumSource{
			name:     "Chromium",
			userData: filepath.Join(config, "chromium"),
			keys:     keyringKeys("chromium", opts.Logger),
			domains:  opts.Domains,
			logger:   opts.Logger,
		},
	)
}
