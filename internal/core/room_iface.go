package core

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Mesh/internal/domain"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room full")
	ErrDuplicateCode      = errors.New("duplicate room code")
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.ClientID `json:"id"`
	Username string          `json:"username"`
	domain.Presence
}

// RoomDTO is the API form of a directory record. LiveParticipantCount is
// only set when the record is looked up by code.
type RoomDTO struct {
	RoomCode             domain.RoomCode `json:"roomCode"`
	Capacity             domain.Capacity `json:"capacity"`
	CreatedAt            time.Time       `json:"createdAt"`
	LiveParticipantCount *int            `json:"liveParticipantCount,omitempty"`
}

type RoomInfo struct {
	Code        domain.RoomCode `json:"roomCode"`
	MemberCount int             `json:"liveParticipantCount"`
}

// RoomStore persists room records. Codes are unique across the store.
type RoomStore interface {
	// Insert assigns ID and CreatedAt and stores the room. It fails with
	// ErrDuplicateCode if the code is already taken.
	Insert(ctx context.Context, room domain.Room) (domain.Room, error)
	// GetByCode fails with ErrRoomNotFound if no room has this code.
	GetByCode(ctx context.Context, code domain.RoomCode) (domain.Room, error)
	// DeleteOlderThan drops rooms created before cutoff unless keep
	// reports true for their code. Each keep check and its delete must be
	// atomic with respect to GetByCode. It returns the number of rooms
	// deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, keep func(domain.RoomCode) bool) (int, error)
}
