package core

import (
	"sync"

	"github.com/dkeye/Mesh/internal/domain"
)

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	meta *domain.Member
	conn SignalConnection

	mu   sync.Mutex
	room domain.RoomCode
}

func NewMemberSession(meta *domain.Member, conn SignalConnection) MemberSession {
	return &memberSession{meta: meta, conn: conn}
}

func (m *memberSession) ID() domain.ClientID      { return m.meta.User.ID }
func (m *memberSession) Meta() *domain.Member     { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.conn }

func (m *memberSession) Room() (domain.RoomCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room, m.room != ""
}

func (m *memberSession) EnterRoom(code domain.RoomCode) {
	m.mu.Lock()
	m.room = code
	m.mu.Unlock()
}

func (m *memberSession) LeaveRoom() (domain.RoomCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code := m.room
	m.room = ""
	return code, code != ""
}

func (m *memberSession) Presence() domain.Presence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta.Presence
}

func (m *memberSession) SetPresence(p domain.Presence) {
	m.mu.Lock()
	m.meta.Presence = p
	m.mu.Unlock()
}
