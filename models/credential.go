package models

// Credential holds the opaque Webshare access token obtained by a login
// exchange, plus the optional sticky PHPSESSID cookie some upstream nodes
// hand out. Immutable once created; it expires with the session store TTL.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	StickyCookie string `json:"stickyCookie,omitempty"`
}
