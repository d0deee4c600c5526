// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen  = 36
	DefaultUsername = "Anonymous"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// ClientID addresses one signaling connection for targeted relay.
type ClientID string

// NewClientID returns a fresh random identity.
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

type User struct {
	ID       ClientID `json:"id"`
	Username string   `json:"username"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// An empty username falls back to DefaultUsername.
func NewUser(id ClientID, username string) (*User, error) {
	u := &User{ID: id, Username: DefaultUsername}
	if strings.TrimSpace(username) == "" {
		return u, nil
	}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}
