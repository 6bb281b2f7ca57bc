// Package notify raises a desktop alert when associates hit the path ceiling.
package notify

import (
	"fmt"
	"strings"

	"github.com/zhaobenny/mpvwatch/internal/export"
)

const maxListed = 5

// Message is a desktop notification
type Message struct {
	Summary string
	Body    string
}

// Violations builds the alert for rows at VIOLATION status. ok is false
// when no row qualifies.
func Violations(rows []export.PathRow) (Message, bool) {
	var lines []string
	for _, r := range rows {
		if r.Status == "VIOLATION" {
			lines = append(lines, fmt.Sprintf("%s (%s) %.2fh on %s", r.Name, r.BadgeID, r.Hours, r.Path))
		}
	}
	if len(lines) == 0 {
		return Message{}, false
	}

	n := len(lines)
	if n > maxListed {
		lines = append(lines[:maxListed], fmt.Sprintf("and %d more", n-maxListed))
	}
	return Message{
		Summary: fmt.Sprintf("MPV: %d associate(s) over the path limit", n),
		Body:    strings.Join(lines, "\n"),
	}, true
}
