//go:build windows

package credential

import (
	"context"
	"os"
	"path/filepath"
)

// platformSources tries Edge, then Chrome, then Firefox
func platformSources(opts Options) []Source {
	local := os.Getenv("LOCALAPPDATA")
	keys := func(_ context.Context, userData string) (decrypter, error) {
		key, err := localStateKey(userData, opts.Backend)
		if err != nil || key == nil {
			return nil, err
		}
		return gcmDecrypter{key: key, backend: opts.Backend}, nil
	}

	return []Source{
		&chromiumSource{
			name:     "Edge",
			userData: filepath.Join(local, "Microsoft", "Edge", "User Data"),
			keys:     keys,
			domains:  opts.Domains,
			logger:   opts.Logger,
		},
		&chromiumSource{
			name:     "Chrome",
			userData: filepath.Join(local, "Google", "Chrome", "User Data"),
			keys:     keys,
			domains:  opts.Domains,
			logger:   opts.Logger,
		},
		&firefoxSource{profilesDir: firefoxProfilesDir(), domains: opts.Domains, logger: opts.Logger},
	}
}
