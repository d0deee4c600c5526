package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	RoomCodeLen = 6

	unlimitedLiteral = "unlimited"
)

// RoomCode is the short human-typed room identifier.
type RoomCode string

// Valid reports whether the code is exactly RoomCodeLen decimal digits.
func (c RoomCode) Valid() bool {
	if len(c) != RoomCodeLen {
		return false
	}
	for _, r := range c {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Capacity is the maximum number of simultaneous members of a room.
// The zero value is a finite capacity of zero; use Limit or Unlimited.
type Capacity struct {
	n         int
	unbounded bool
}

func Limit(n int) Capacity { return Capacity{n: n} }

func Unlimited() Capacity { return Capacity{unbounded: true} }

func (c Capacity) IsUnlimited() bool { return c.unbounded }

// Max returns the finite limit; ok is false for an unlimited capacity.
func (c Capacity) Max() (n int, ok bool) {
	if c.unbounded {
		return 0, false
	}
	return c.n, true
}

// Admits reports whether a room holding count members can take one more.
func (c Capacity) Admits(count int) bool {
	if c.unbounded {
		return true
	}
	return count < c.n
}

// Clamp bounds a finite capacity into [lo, hi]. Unlimited is kept as is.
func (c Capacity) Clamp(lo, hi int) Capacity {
	if c.unbounded {
		return c
	}
	return Limit(min(max(c.n, lo), hi))
}

func (c Capacity) String() string {
	if c.unbounded {
		return unlimitedLiteral
	}
	return strconv.Itoa(c.n)
}

func (c Capacity) MarshalJSON() ([]byte, error) {
	if c.unbounded {
		return json.Marshal(unlimitedLiteral)
	}
	return json.Marshal(c.n)
}

// UnmarshalJSON accepts a number, a numeric string, "unlimited" or "Infinity".
func (c *Capacity) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*c = Limit(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("capacity: %s is neither a number nor a string", b)
	}
	parsed, err := ParseCapacity(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseCapacity(s string) (Capacity, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case unlimitedLiteral, "infinity":
		return Unlimited(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Capacity{}, fmt.Errorf("capacity: invalid value %q", s)
	}
	return Limit(n), nil
}

// Room is an immutable directory record.
type Room struct {
	ID        int64
	Code      RoomCode
	Capacity  Capacity
	CreatedAt time.Time
}
