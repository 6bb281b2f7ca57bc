package model

import "errors"

var (
	// ErrAuthExpired means the portal answered with its login page
	ErrAuthExpired = errors.New("session expired: portal returned a login page")
	// ErrCredentialUnavailable means no browser held a usable session cookie
	ErrCredentialUnavailable = errors.New("no session cookie available")
	// ErrNetwork covers timeouts, connection errors and HTTP error statuses
	ErrNetwork = errors.New("network failure")
	// ErrDecrypt means a key unwrap or cookie decryption failed
	ErrDecrypt = errors.New("decryption failed")
)
