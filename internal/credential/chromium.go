package credential

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zhaobenny/mpvwatch/internal/model"
)

const chromiumQuery = `SELECT host_key, name, value, encrypted_value FROM cookies WHERE host_key = ? OR host_key LIKE ?`

// chromiumProfiles is a bounded best-effort list, not a full scan
var chromiumProfiles = []string{"Default", "Profile 1", "Profile 2"}

// decrypter turns an encrypted_value column into the cookie value
type decrypter interface {
	decrypt(host string, enc []byte) (string, error)
}

// chromiumSource reads a Chromium-family cookie store. keys returns a nil
// decrypter when the browser has no key material, i.e. is not installed.
type chromiumSource struct {
	name     string
	userData string
	keys     func(ctx context.Context, userData string) (decrypter, error)
	domains  []string
	logger   *slog.Logger
}

func (s *chromiumSource) Name() string { return s.name }

func (s *chromiumSource) Read(ctx context.Context) (string, error) {
	if info, err := os.Stat(s.userData); err != nil || !info.IsDir() {
		return "", nil
	}

	dec, err := s.keys(ctx, s.userData)
	if err != nil {
		return "", err
	}
	if dec == nil {
		return "", nil
	}

	var errs []error
	for _, profile := range chromiumProfiles {
		db := filepath.Join(s.userData, profile, "Network", "Cookies")
		if _, err := os.Stat(db); err != nil {
			continue
		}

		cookie, err := s.readProfile(ctx, db, dec)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", profile, err))
		}
		if cookie != "" {
			return cookie, errors.Join(errs...)
		}
	}
	return "", errors.Join(errs...)
}

func (s *chromiumSource) readProfile(ctx context.Context, db string, dec decrypter) (string, error) {
	rows, err := queryCookies(ctx, db, chromiumQuery, s.domains, s.logger, func(r *sql.Rows) (cookieRow, error) {
		var c cookieRow
		var value sql.NullString
		err := r.Scan(&c.host, &c.name, &value, &c.encrypted)
		c.value = value.String
		return c, err
	})
	if err != nil {
		return "", err
	}

	var jar cookieJar
	failed := 0
	var lastErr error
	for _, c := range rows {
		if c.value != "" {
			jar.add(c.name, c.value)
			continue
		}
		if len(c.encrypted) == 0 {
			continue
		}
		value, err := dec.decrypt(c.host, c.encrypted)
		if err != nil {
			failed++
			lastErr = err
			s.logger.Debug("cookie decrypt failed", "browser", s.name, "cookie", c.name, "error", err)
			continue
		}
		jar.add(c.name, value)
	}
	if failed > 0 {
		return jar.String(), fmt.Errorf("%d cookies could not be decrypted: %w", failed, lastErr)
	}
	return jar.String(), nil
}

// localStateKey unwraps the master key stored in a "Local State" file.
// A missing file yields a nil key and no error.
func localStateKey(userData string, backend Backend) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(userData, "Local State"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read Local State: %w", err)
	}

	var state struct {
		OSCrypt struct {
			EncryptedKey string `json:"encrypted_key"`
		} `json:"os_crypt"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse Local State: %w", err)
	}
	wrapped, err := base64.StdEncoding.DecodeString(state.OSCrypt.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encrypted_key: %w", model.ErrDecrypt, err)
	}
	// Drop the "DPAPI" marker.
	if len(wrapped) <= 5 {
		return nil, fmt.Errorf("%w: encrypted_key too short", model.ErrDecrypt)
	}
	return backend.Unwrap(wrapped[5:])
}

// gcmDecrypter handles v10/v11 values sealed with AES-256-GCM under the
// Local State key, and falls back to the backend for older values
type gcmDecrypter struct {
	key     []byte
	backend Backend
}

func (d gcmDecrypter) decrypt(host string, enc []byte) (string, error) {
	switch versionPrefix(enc) {
	case "v10", "v11":
		block, err := aes.NewCipher(d.key)
		if err != nil {
			return "", fmt.Errorf("%w: %w", model.ErrDecrypt, err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return "", fmt.Errorf("%w: %w", model.ErrDecrypt, err)
		}
		if len(enc) < 3+gcm.NonceSize()+gcm.Overhead() {
			return "", fmt.Errorf("%w: value too short", model.ErrDecrypt)
		}
		nonce := enc[3 : 3+gcm.NonceSize()]
		plain, err := gcm.Open(nil, nonce, enc[3+gcm.NonceSize():], nil)
		if err != nil {
			return "", fmt.Errorf("%w: %w", model.ErrDecrypt, err)
		}
		return string(stripHostDigest(host, plain)), nil
	case "v20":
		return "", fmt.Errorf("%w: app-bound (v20) cookies are not supported", model.ErrDecrypt)
	default:
		plain, err := d.backend.Unwrap(enc)
		if err != nil {
			return "", err
		}
		return string(plain), nil
	}
}

func versionPrefix(enc []byte) string {
	if len(enc) < 3 || enc[0] != 'v' {
		return ""
	}
	switch p := string(enc[:3]); p {
	case "v10", "v11", "v20":
		return p
	}
	return ""
}

// stripHostDigest removes the SHA-256 of the host that newer Chromium
// builds prepend to the plaintext
func stripHostDigest(host string, plain []byte) []byte {
	sum := sha256.Sum256([]byte(host))
	if len(plain) >= len(sum) && bytes.Equal(plain[:len(sum)], sum[:]) {
		return plain[len(sum):]
	}
	return plain
}
