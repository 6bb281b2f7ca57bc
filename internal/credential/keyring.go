package credential

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/pbkdf2"

	"github.com/zhaobenny/mpvwatch/internal/model"
)

// Chromium's fixed parameters for cookies sealed with a keyring password
const (
	keyringSalt       = "saltysalt"
	keyringIterations = 1
	keyringKeyLen     = 16
	fallbackPassword  = "peanuts"
)

var keyringIV = bytes.Repeat([]byte{' '}, aes.BlockSize)

func keyringKey(password string) []byte {
	return pbkdf2.Key([]byte(password), []byte(keyringSalt), keyringIterations, keyringKeyLen, sha1.New)
}

// cbcDecrypter handles values sealed with AES-128-CBC: v10 under the
// fallback password, v11 under the password held in the keyring
type cbcDecrypter struct {
	v10 []byte
	v11 []byte
}

func (d cbcDecrypter) decrypt(host string, enc []byte) (string, error) {
	var key []byte
	switch versionPrefix(enc) {
	case "v10":
		key = d.v10
	case "v11":
		key = d.v11
	default:
		return string(enc), nil
	}
	if key == nil {
		return "", fmt.Errorf("%w: no keyring password for %s", model.ErrDecrypt, enc[:3])
	}

	body := enc[3:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad ciphertext length %d", model.ErrDecrypt, len(body))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrDecrypt, err)
	}
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, keyringIV).CryptBlocks(plain, body)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}
	return string(stripHostDigest(host, plain)), nil
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", model.ErrDecrypt)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", model.ErrDecrypt)
		}
	}
	return b[:len(b)-n], nil
}

// keyringKeys builds the decrypter for a Chromium browser on linux. The
// Secret Service password is optional; without it only v10 values open.
func keyringKeys(application string, logger *slog.Logger) func(context.Context, string) (decrypter, error) {
	return func(ctx context.Context, _ string) (decrypter, error) {
		dec := cbcDecrypter{v10: keyringKey(fallbackPassword)}
		password, err := secretServicePassword(ctx, application)
		if err != nil {
			logger.Debug("secret service lookup failed", "application", application, "error", err)
		}
		if password != "" {
			dec.v11 = keyringKey(password)
		}
		return dec, nil
	}
}
