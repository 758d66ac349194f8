// Package store keeps per-user activity: who talked to the bot, when, and
// how many videos they downloaded.
package store

import (
	"context"
	"strings"
	"time"
)

// Profile is the identity data carried by an inbound Telegram event.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Language  string
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type UserRecord struct {
	ID        int64
	Name      string
	Username  string
	Language  string
	Downloads int
	FirstSeen time.Time
	LastSeen  time.Time
}

// Handle is "@username" or "no_username".
func (u UserRecord) Handle() string {
	if u.Username == "" {
		return "no_username"
	}
	return "@" + u.Username
}

// Store is implemented by Memory and Redis. Records returned are copies.
type Store interface {
	// Touch creates the user if needed, refreshes profile fields and
	// LastSeen. Downloads is left as is.
	Touch(ctx context.Context, p Profile) (UserRecord, error)
	// RecordDownload increments Downloads, creating the user if absent.
	RecordDownload(ctx context.Context, userID int64) (UserRecord, error)
	Get(ctx context.Context, userID int64) (UserRecord, bool, error)
	// All returns every record in first-seen order.
	All(ctx context.Context) ([]UserRecord, error)
}

func applyProfile(u *UserRecord, p Profile) {
	if name := p.FullName(); name != "" {
		u.Name = name
	}
	if p.Username != "" {
		u.Username = p.Username
	}
	if p.Language != "" {
		u.Language = p.Language
	}
}
