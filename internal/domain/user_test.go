package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewUserDefaultsToAnonymous(t *testing.T) {
	u, err := NewUser("id-1", "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Username != DefaultUsername {
		t.Errorf("expected %q, got %q", DefaultUsername, u.Username)
	}
}

func TestNewUserRejectsLongName(t *testing.T) {
	_, err := NewUser("id-1", strings.Repeat("x", MaxUsernameLen+1))
	if !errors.Is(err, ErrUsernameTooLong) {
		t.Errorf("expected ErrUsernameTooLong, got %v", err)
	}
}

func TestSetUsername(t *testing.T) {
	u, _ := NewUser("id-1", "alice")
	if err := u.SetUsername(""); !errors.Is(err, ErrUsernameEmpty) {
		t.Errorf("expected ErrUsernameEmpty, got %v", err)
	}
	if err := u.SetUsername(" bob "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Username != "bob" {
		t.Errorf("expected bob, got %q", u.Username)
	}
}

func TestNewClientIDUnique(t *testing.T) {
	seen := make(map[ClientID]bool)
	for i := 0; i < 100; i++ {
		id := NewClientID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
