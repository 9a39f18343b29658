package domain

import "time"

// Session is a signed, time-bounded credential issued after authentication.
type Session struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}
