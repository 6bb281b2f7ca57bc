//go:build linux

package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Send shows msg through org.freedesktop.Notifications on the session bus
func Send(ctx context.Context, msg Message) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.CallWithContext(ctx, "org.freedesktop.Notifications.Notify", 0,
		"mpvwatch",       // app_name
		uint32(0),        // replaces_id
		"dialog-warning", // app_icon
		msg.Summary,
		msg.Body,
		[]string{},
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(byte(2)), // critical
		},
		int32(-1),
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}
	return nil
}
