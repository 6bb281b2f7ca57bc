package credential

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

const firefoxQuery = `SELECT host, name, value FROM moz_cookies WHERE host = ? OR host LIKE ?`

// firefoxSource reads the plain-text Firefox cookie store
type firefoxSource struct {
	profilesDir string
	domains     []string
	logger      *slog.Logger
}

func (s *firefoxSource) Name() string { return "Firefox" }

func (s *firefoxSource) Read(ctx context.Context) (string, error) {
	db := firstFirefoxProfile(s.profilesDir)
	if db == "" {
		return "", nil
	}

	rows, err := queryCookies(ctx, db, firefoxQuery, s.domains, s.logger, func(r *sql.Rows) (cookieRow, error) {
		var c cookieRow
		var value sql.NullString
		err := r.Scan(&c.host, &c.name, &value)
		c.value = value.String
		return c, err
	})
	if err != nil {
		return "", err
	}

	var jar cookieJar
	for _, c := range rows {
		jar.add(c.name, c.value)
	}
	return jar.String(), nil
}

// firstFirefoxProfile returns the cookies.sqlite of the first profile,
// in name order, that has one
func firstFirefoxProfile(profilesDir string) string {
	entries, err := os.ReadDir(profilesDir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		candidate := filepath.Join(profilesDir, name, "cookies.sqlite")
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// firefoxProfilesDir returns where Firefox keeps profiles on this OS
func firefoxProfilesDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Mozilla", "Firefox", "Profiles")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".mozilla", "firefox")
	}
}
