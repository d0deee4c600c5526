package core

import "github.com/dkeye/Mesh/internal/domain"

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() domain.ClientID
	Meta() *domain.Member
	Signal() SignalConnection

	// Room reports the room the session currently belongs to.
	Room() (domain.RoomCode, bool)
	// EnterRoom records a successful join.
	EnterRoom(code domain.RoomCode)
	// LeaveRoom clears the current room and returns it. Only the first
	// call after EnterRoom reports ok.
	LeaveRoom() (domain.RoomCode, bool)

	Presence() domain.Presence
	SetPresence(domain.Presence)
}
