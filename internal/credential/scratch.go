package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codeGROOVE-dev/retry"
	_ "github.com/mattn/go-sqlite3"
)

// scratchCopy copies a live cookie database (and its WAL, if any) into a
// fresh temp directory so the browser's lock is never touched. The
// returned cleanup removes the directory and must always be called.
func scratchCopy(ctx context.Context, src string, logger *slog.Logger) (string, func(), error) {
	dir, err := os.MkdirTemp("", "mpvwatch-cookies-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	dst := filepath.Join(dir, filepath.Base(src))
	err = retry.Do(
		func() error {
			if err := copyFile(src, dst); err != nil {
				return err
			}
			if err := copyFile(src+"-wal", dst+"-wal"); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, fs.ErrNotExist)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("retrying cookie database copy", "path", src, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return dst, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// cookieRow is one cookie selected for a target domain
type cookieRow struct {
	host      string
	name      string
	value     string
	encrypted []byte
}

// queryCookies opens a scratch copy of path and runs query once per
// domain with the exact host and its suffix pattern as arguments
func queryCookies(ctx context.Context, path, query string, domains []string, logger *slog.Logger, scan func(*sql.Rows) (cookieRow, error)) ([]cookieRow, error) {
	scratch, cleanup, err := scratchCopy(ctx, path, logger)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", scratch)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie database: %w", err)
	}
	defer db.Close()

	var out []cookieRow
	for _, domain := range domains {
		rows, err := db.QueryContext(ctx, query, domain, "%"+domain)
		if err != nil {
			return nil, fmt.Errorf("failed to query cookies: %w", err)
		}
		for rows.Next() {
			row, err := scan(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan cookie: %w", err)
			}
			out = append(out, row)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read cookies: %w", err)
		}
	}
	return out, nil
}
