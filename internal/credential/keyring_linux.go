//go:build linux

package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	secretsDest = "org.freedesktop.secrets"
	secretsPath = "/org/freedesktop/secrets"
)

// secretServicePassword looks up the "Safe Storage" password a Chromium
// browser keeps in the desktop keyring
func secretServicePassword(ctx context.Context, application string) (string, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return "", fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	svc := conn.Object(secretsDest, secretsPath)

	var output dbus.Variant
	var session dbus.ObjectPath
	err = svc.CallWithContext(ctx, "org.freedesktop.Secret.Service.OpenSession", 0,
		"plain", dbus.MakeVariant("")).Store(&output, &session)
	if err != nil {
		return "", fmt.Errorf("failed to open secret session: %w", err)
	}

	var unlocked, locked []dbus.ObjectPath
	err = svc.CallWithContext(ctx, "org.freedesktop.Secret.Service.SearchItems", 0,
		map[string]string{"application": application}).Store(&unlocked, &locked)
	if err != nil {
		return "", fmt.Errorf("failed to search keyring: %w", err)
	}
	if len(unlocked) == 0 {
		if len(locked) > 0 {
			return "", errors.New("keyring is locked")
		}
		return "", nil
	}

	var secret struct {
		Session     dbus.ObjectPath
		Parameters  []byte
		Value       []byte
		ContentType string
	}
	err = conn.Object(secretsDest, unlocked[0]).
		CallWithContext(ctx, "org.freedesktop.Secret.Item.GetSecret", 0, session).
		Store(&secret)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return string(secret.Value), nil
}
