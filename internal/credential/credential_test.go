package credential

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaobenny/mpvwatch/internal/model"
)

type fakeSource struct {
	name   string
	cookie string
	err    error
	calls  int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Read(context.Context) (string, error) {
	f.calls++
	return f.cookie, f.err
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "session=abc; id=1", Sanitize("session=abc…; id=1"))
	assert.Equal(t, "plain", Sanitize("plain"))
	assert.True(t, Connected("a=b"))
	assert.False(t, Connected(""))
	assert.False(t, Connected("  \t\n"))
	assert.False(t, Connected(Sanitize("…")))
}

func TestAcquireFallsThrough(t *testing.T) {
	edge := &fakeSource{name: "Edge", err: errors.New("locked")}
	chrome := &fakeSource{name: "Chrome"}
	firefox := &fakeSource{name: "Firefox", cookie: "sid=1…"}
	never := &fakeSource{name: "Never", cookie: "x=y"}

	s := New(Options{Sources: []Source{edge, chrome, firefox, never}})
	r := s.Acquire(context.Background())

	assert.Equal(t, "sid=1", r.Cookie)
	assert.Equal(t, "Firefox", r.Source)
	assert.Equal(t, []string{"Edge: locked"}, r.Errors)
	assert.NoError(t, r.Err())
	assert.Zero(t, never.calls)
	assert.Equal(t, []string{"Edge", "Chrome", "Firefox", "Never"}, s.Sources())
}

func TestAcquireAllFail(t *testing.T) {
	s := New(Options{Sources: []Source{
		&fakeSource{name: "Edge", err: errors.New("bad key")},
		&fakeSource{name: "Firefox", cookie: "   "},
	}})

	r := s.Acquire(context.Background())

	assert.Empty(t, r.Cookie)
	err := r.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrCredentialUnavailable))
	assert.Contains(t, err.Error(), "Edge: bad key")

	empty := New(Options{Sources: []Source{}}).Acquire(context.Background())
	assert.True(t, errors.Is(empty.Err(), model.ErrCredentialUnavailable))
}

func TestCookieJarDedupes(t *testing.T) {
	var jar cookieJar
	jar.add("a", "1")
	jar.add("b", "")
	jar.add("a", "1")
	jar.add("a", "2")
	assert.Equal(t, "a=1; a=2", jar.String())
}

func createDB(t *testing.T, path, schema string, rows [][]any, insert string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)
	for _, r := range rows {
		_, err = db.Exec(insert, r...)
		require.NoError(t, err)
	}
}

func leftoverScratch(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "mpvwatch-cookies-*"))
	require.NoError(t, err)
	return matches
}

func TestFirefoxSource(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	profiles := filepath.Join(tmp, "profiles")
	require.NoError(t, os.MkdirAll(filepath.Join(profiles, "aaa.empty"), 0755))
	createDB(t, filepath.Join(profiles, "bbb.default", "cookies.sqlite"),
		`CREATE TABLE moz_cookies (id INTEGER PRIMARY KEY, host TEXT, name TEXT, value TEXT)`,
		[][]any{
			{".amazon.com", "session-id", "123"},
			{"fclm-portal.amazon.com", "fclm", "abc"},
			{"fclm-portal.amazon.com", "empty", ""},
			{".example.com", "other", "nope"},
		},
		`INSERT INTO moz_cookies (host, name, value) VALUES (?, ?, ?)`)
	createDB(t, filepath.Join(profiles, "ccc.second", "cookies.sqlite"),
		`CREATE TABLE moz_cookies (id INTEGER PRIMARY KEY, host TEXT, name TEXT, value TEXT)`,
		[][]any{{".amazon.com", "ignored", "1"}},
		`INSERT INTO moz_cookies (host, name, value) VALUES (?, ?, ?)`)

	src := &firefoxSource{profilesDir: profiles, domains: DefaultDomains, logger: slog.Default()}
	cookie, err := src.Read(context.Background())

	require.NoError(t, err)
	// fclm-portal.amazon.com also matches the .amazon.com suffix query
	assert.Equal(t, "session-id=123; fclm=abc", cookie)
	assert.Empty(t, leftoverScratch(t, tmp))
}

func TestFirefoxSourceMissing(t *testing.T) {
	src := &firefoxSource{profilesDir: filepath.Join(t.TempDir(), "none"), domains: DefaultDomains, logger: slog.Default()}
	cookie, err := src.Read(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, cookie)
}

func TestScratchCopyCleansUpOnFailure(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	_, cleanup, err := scratchCopy(context.Background(), filepath.Join(tmp, "missing.sqlite"), slog.Default())
	cleanup()

	assert.Error(t, err)
	assert.Empty(t, leftoverScratch(t, tmp))
}

// fakeBackend "unwraps" blobs by stripping a "wrapped:" marker
type fakeBackend struct{}

func (fakeBackend) Name() string { return "fake" }

func (fakeBackend) Unwrap(blob []byte) ([]byte, error) {
	if !bytes.HasPrefix(blob, []byte("wrapped:")) {
		return nil, fmt.Errorf("%w: not wrapped", model.ErrDecrypt)
	}
	return blob[len("wrapped:"):], nil
}

func sealGCM(t *testing.T, key []byte, host, value string) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := bytes.Repeat([]byte{7}, gcm.NonceSize())
	digest := sha256.Sum256([]byte(host))
	plain := append(digest[:], value...)
	out := append([]byte("v10"), nonce...)
	return gcm.Seal(out, nonce, plain, nil)
}

func TestChromiumSource(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	key := bytes.Repeat([]byte{0x42}, 32)
	userData := filepath.Join(tmp, "User Data")
	require.NoError(t, os.MkdirAll(userData, 0755))

	wrapped := append([]byte("DPAPI"), append([]byte("wrapped:"), key...)...)
	state := fmt.Sprintf(`{"os_crypt":{"encrypted_key":%q}}`, base64.StdEncoding.EncodeToString(wrapped))
	require.NoError(t, os.WriteFile(filepath.Join(userData, "Local State"), []byte(state), 0600))

	corrupt := sealGCM(t, key, ".amazon.com", "x")
	corrupt[len(corrupt)-1] ^= 0xff

	createDB(t, filepath.Join(userData, "Profile 1", "Network", "Cookies"),
		`CREATE TABLE cookies (host_key TEXT, name TEXT, value TEXT, encrypted_value BLOB)`,
		[][]any{
			{".amazon.com", "session-id", "", sealGCM(t, key, ".amazon.com", "s3cret")},
			{"fclm-portal.amazon.com", "legacy", "", []byte("wrapped:old")},
			{".amazon.com", "broken", "", corrupt},
			{".amazon.com", "plain", "visible", []byte{}},
		},
		`INSERT INTO cookies (host_key, name, value, encrypted_value) VALUES (?, ?, ?, ?)`)

	src := &chromiumSource{
		name:     "Chrome",
		userData: userData,
		keys: func(_ context.Context, dir string) (decrypter, error) {
			k, err := localStateKey(dir, fakeBackend{})
			if err != nil || k == nil {
				return nil, err
			}
			return gcmDecrypter{key: k, backend: fakeBackend{}}, nil
		},
		domains: DefaultDomains,
		logger:  slog.Default(),
	}

	cookie, err := src.Read(context.Background())

	assert.Equal(t, "session-id=s3cret; legacy=old; plain=visible", cookie)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDecrypt))
	assert.Empty(t, leftoverScratch(t, tmp))
}

func TestChromiumSourceNotInstalled(t *testing.T) {
	src := &chromiumSource{
		name:     "Edge",
		userData: filepath.Join(t.TempDir(), "missing"),
		keys: func(context.Context, string) (decrypter, error) {
			t.Fatal("keys should not be loaded")
			return nil, nil
		},
	}
	cookie, err := src.Read(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, cookie)
}

func TestLocalStateKey(t *testing.T) {
	dir := t.TempDir()

	key, err := localStateKey(dir, fakeBackend{})
	assert.NoError(t, err)
	assert.Nil(t, key)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Local State"), []byte(`{"os_crypt":{"encrypted_key":"RFBB"}}`), 0600))
	_, err = localStateKey(dir, fakeBackend{})
	assert.True(t, errors.Is(err, model.ErrDecrypt))

	_, err = localStateKey(dir, unavailableBackend{})
	assert.True(t, errors.Is(err, model.ErrDecrypt))
}

func TestCBCDecrypter(t *testing.T) {
	key := keyringKey(fallbackPassword)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	plain := []byte("hello-cookie")
	pad := aes.BlockSize - len(plain)%aes.BlockSize
	plain = append(plain, bytes.Repeat([]byte{byte(pad)}, pad)...)
	sealed := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, keyringIV).CryptBlocks(sealed, plain)

	dec := cbcDecrypter{v10: key}
	got, err := dec.decrypt(".amazon.com", append([]byte("v10"), sealed...))
	require.NoError(t, err)
	assert.Equal(t, "hello-cookie", got)

	_, err = dec.decrypt(".amazon.com", append([]byte("v11"), sealed...))
	assert.True(t, errors.Is(err, model.ErrDecrypt))

	got, err = dec.decrypt(".amazon.com", []byte("unencrypted"))
	require.NoError(t, err)
	assert.Equal(t, "unencrypted", got)
}
