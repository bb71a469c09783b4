// Package domain contains core domain types for the Wazobia session client.
package domain

// User is the account record returned by the auth endpoints.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// Session is the caller identity attached to outbound requests.
// A zero Session is an anonymous visitor.
type Session struct {
	User  *User
	Token string
}

// Authenticated returns true if the session carries a user record.
func (s Session) Authenticated() bool {
	return s.User != nil
}
