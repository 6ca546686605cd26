package models

import "time"

// Session maps an opaque session token generated by this service to the
// Webshare credential obtained at login time.
type Session struct {
	Token      string     `json:"token"`
	Credential Credential `json:"credential"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// IsExpired returns true if the session has expired.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
