// Package auth defines sessions and OTP challenges.
package auth

import "time"

// Session is a server-side record of an issued token, keyed by its SHA-256
// hash so raw tokens are never stored.
type Session struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Channel is the delivery route for an OTP.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Valid reports whether the channel is known.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// OTP is a pending one-time code challenge.
type OTP struct {
	Destination string
	Channel     Channel
	Code        string
	Attempts    int
	ExpiresAt   time.Time
}
