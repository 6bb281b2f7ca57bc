// Package credential borrows the portal session cookie from browsers
// installed on this machine.
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zhaobenny/mpvwatch/internal/model"
)

// DefaultDomains are the cookie hosts the portal session lives on
var DefaultDomains = []string{".amazon.com", "fclm-portal.amazon.com"}

// Source reads the session cookie from one browser. An empty string with
// a nil error means the browser is not installed or holds no cookies.
type Source interface {
	Name() string
	Read(ctx context.Context) (string, error)
}

// Options configures a Store
type Options struct {
	Domains      []string
	DevToolsURL  string // tried first when set
	LinuxKeyring bool   // read Chromium cookies through the Secret Service on linux
	Backend      Backend
	Sources      []Source // replaces the platform candidates when set
	Logger       *slog.Logger
}

// Result is the outcome of one acquisition. An empty Cookie means no
// browser produced one; Errors lists why each failing browser failed.
type Result struct {
	Cookie string
	Source string
	Errors []string
}

// Err returns nil on success, otherwise ErrCredentialUnavailable with reasons
func (r Result) Err() error {
	if r.Cookie != "" {
		return nil
	}
	if len(r.Errors) == 0 {
		return fmt.Errorf("%w: no supported browser has portal cookies", model.ErrCredentialUnavailable)
	}
	return fmt.Errorf("%w:\n%s", model.ErrCredentialUnavailable, strings.Join(r.Errors, "\n"))
}

// Store tries each browser candidate in priority order
type Store struct {
	sources []Source
	logger  *slog.Logger
}

// New creates a Store with the candidates for this platform
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.Domains) == 0 {
		opts.Domains = DefaultDomains
	}
	if opts.Backend == nil {
		opts.Backend = platformBackend()
	}

	sources := opts.Sources
	if sources == nil {
		if opts.DevToolsURL != "" {
			sources = append(sources, &devToolsSource{url: opts.DevToolsURL, domains: opts.Domains})
		}
		sources = append(sources, platformSources(opts)...)
	}
	return &Store{sources: sources, logger: opts.Logger}
}

// Sources returns the candidate names in the order they are tried
func (s *Store) Sources() []string {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name()
	}
	return names
}

// Acquire returns the first non-empty cookie. A failing browser never
// stops the next one from being tried.
func (s *Store) Acquire(ctx context.Context) Result {
	var result Result
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", src.Name(), err))
			break
		}

		cookie, err := src.Read(ctx)
		if err != nil {
			s.logger.Warn("browser cookie read failed", "browser", src.Name(), "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", src.Name(), err))
		}
		cookie = Sanitize(cookie)
		if Connected(cookie) {
			s.logger.Debug("found portal cookie", "browser", src.Name())
			result.Cookie = cookie
			result.Source = src.Name()
			return result
		}
	}
	return result
}

// Sanitize strips non-ASCII characters such as a pasted ellipsis
func Sanitize(cookie string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x80 {
			return -1
		}
		return r
	}, cookie)
}

// Connected reports whether cookie holds anything besides whitespace
func Connected(cookie string) bool {
	return strings.TrimSpace(cookie) != ""
}

// cookieJar joins name=value pairs with "; ", dropping exact duplicates
type cookieJar struct {
	pairs []string
	seen  map[string]bool
}

func (j *cookieJar) add(name, value string) {
	if value == "" {
		return
	}
	pair := name + "=" + value
	if j.seen == nil {
		j.seen = make(map[string]bool)
	}
	if j.seen[pair] {
		return
	}
	j.seen[pair] = true
	j.pairs = append(j.pairs, pair)
}

func (j *cookieJar) String() string {
	return strings.Join(j.pairs, "; ")
}
