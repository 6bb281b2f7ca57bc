package credential

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// devToolsSource reads cookies from a running browser over its remote
// debugging endpoint, which also works for app-bound encrypted stores
type devToolsSource struct {
	url     string
	domains []string
}

func (s *devToolsSource) Name() string { return "DevTools" }

func (s *devToolsSource) Read(ctx context.Context) (string, error) {
	controlURL, err := launcher.ResolveURL(s.url)
	if err != nil {
		return "", fmt.Errorf("resolve debugger url: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The browser belongs to the user: cancel the context, never Close it.
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("connect to browser: %w", err)
	}

	cookies, err := browser.GetCookies()
	if err != nil {
		return "", fmt.Errorf("get cookies: %w", err)
	}

	var jar cookieJar
	for _, domain := range s.domains {
		for _, c := range cookies {
			if c.Domain == domain || strings.HasSuffix(c.Domain, domain) {
				jar.add(c.Name, c.Value)
			}
		}
	}
	return jar.String(), nil
}
