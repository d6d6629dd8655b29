// Package identity defines actor identity references and the resolution
// strategy used to match decisions to approver records.
//
// External reviewers (clients acting through a portal link) are not always
// registered users, so an identity may carry only a display name or email.
// Matching follows a fixed precedence: user ID, then display name, then a
// new record is created.
package identity

import "strings"

// Ref identifies an actor. Any populated field may stand in for the others.
type Ref struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Empty reports whether the ref carries no identifying information.
func (r Ref) Empty() bool {
	return r.UserID == "" && strings.TrimSpace(r.Name) == "" && r.Email == ""
}

// Display returns the best human-readable label for the ref.
func (r Ref) Display() string {
	if n := strings.TrimSpace(r.Name); n != "" {
		return n
	}
	if r.Email != "" {
		return r.Email
	}
	return r.UserID
}

// Matcher resolves a Ref against a candidate record's identity fields.
type Matcher struct {
	UserID string
	Name   string
}

// Match applies the resolution precedence: an exact user ID match wins; when
// the ref has no user ID (or the candidate does not), a case-insensitive
// display-name match is accepted as a fallback for unregistered reviewers.
func (m Matcher) Match(r Ref) bool {
	if r.UserID != "" && m.UserID != "" {
		return r.UserID == m.UserID
	}
	name := strings.TrimSpace(r.Name)
	return name != "" && strings.EqualFold(m.Name, name)
}
