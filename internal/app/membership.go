package app

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/rs/zerolog/log"
)

// bucket is the live member set of one room, in join order.
type bucket struct {
	order   []domain.ClientID
	members map[domain.ClientID]core.MemberSession
}

func (b *bucket) peers(excluding domain.ClientID) []domain.ClientID {
	out := make([]domain.ClientID, 0, len(b.order))
	for _, id := range b.order {
		if id != excluding {
			out = append(out, id)
		}
	}
	return out
}

// Announcer builds the frames sent when a session is admitted: toSelf goes to
// the newcomer and toOthers to everyone already in the room. It runs inside
// the membership critical section and must not block.
type Announcer func(peers []domain.ClientID) (toSelf, toOthers core.Frame)

type Admission struct {
	Peers     []domain.ClientID
	Announced core.PublishResult
}

// Membership tracks which sessions are in which room.
// One mutex serializes every operation; nothing inside it blocks on I/O
// because sends only enqueue onto the connection's outbound queue.
type Membership struct {
	mu      sync.Mutex
	buckets map[domain.RoomCode]*bucket
}

func NewMembership() *Membership {
	return &Membership{buckets: make(map[domain.RoomCode]*bucket)}
}

// Admit inserts s into room unless the room is at capacity. The capacity
// check, the insert and the announcement happen in one critical section.
func (m *Membership) Admit(room domain.Room, s core.MemberSession, announce Announcer) (Admission, error) {
	id := s.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[room.Code]
	if !ok {
		b = &bucket{members: make(map[domain.ClientID]core.MemberSession)}
	}
	if _, dup := b.members[id]; dup {
		return Admission{Peers: b.peers(id)}, nil
	}
	if !room.Capacity.Admits(len(b.order)) {
		log.Info().Str("module", "app.membership").Str("room", string(room.Code)).Str("sid", string(id)).Int("count", len(b.order)).Msg("room full")
		return Admission{}, core.ErrRoomFull
	}

	peers := b.peers(id)
	b.order = append(b.order, id)
	b.members[id] = s
	m.buckets[room.Code] = b
	log.Info().Str("module", "app.membership").Str("room", string(room.Code)).Str("sid", string(id)).Int("count", len(b.order)).Msg("member admitted")

	adm := Admission{Peers: peers}
	if announce != nil {
		toSelf, toOthers := announce(peers)
		if toSelf != nil {
			if err := s.Signal().TrySend(toSelf); err != nil {
				log.Warn().Err(err).Str("module", "app.membership").Str("sid", string(id)).Msg("announce to newcomer")
			}
		}
		if toOthers != nil {
			adm.Announced = m.broadcastLocked(b, id, toOthers)
		}
	}
	return adm, nil
}

// Remove deletes the entry for id. When the entry existed, farewell (if any)
// is sent to the remaining members after the removal. Removing an absent
// entry is a no-op and reports false.
func (m *Membership) Remove(code domain.RoomCode, id domain.ClientID, farewell core.Frame) (core.PublishResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[code]
	if !ok {
		return core.PublishResult{}, false
	}
	if _, ok := b.members[id]; !ok {
		return core.PublishResult{}, false
	}
	delete(b.members, id)
	b.order = slices.DeleteFunc(b.order, func(x domain.ClientID) bool { return x == id })
	log.Info().Str("module", "app.membership").Str("room", string(code)).Str("sid", string(id)).Int("count", len(b.order)).Msg("member removed")

	if len(b.order) == 0 {
		delete(m.buckets, code)
		log.Info().Str("module", "app.membership").Str("room", string(code)).Msg("room bucket released")
		return core.PublishResult{}, true
	}
	if farewell == nil {
		return core.PublishResult{}, true
	}
	return m.broadcastLocked(b, id, farewell), true
}

// ListPeers returns the members of code other than excluding, in join order.
func (m *Membership) ListPeers(code domain.RoomCode, excluding domain.ClientID) []domain.ClientID {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[code]
	if !ok {
		return []domain.ClientID{}
	}
	return b.peers(excluding)
}

// Broadcast sends frame to every member of code except excluding.
func (m *Membership) Broadcast(code domain.RoomCode, excluding domain.ClientID, frame core.Frame) core.PublishResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[code]
	if !ok {
		return core.PublishResult{}
	}
	return m.broadcastLocked(b, excluding, frame)
}

func (m *Membership) broadcastLocked(b *bucket, excluding domain.ClientID, frame core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, id := range b.order {
		if id == excluding {
			continue
		}
		ms := b.members[id]
		err := ms.Signal().TrySend(frame)
		switch {
		case err == nil:
			res.SendTo++
		case errors.Is(err, core.ErrBackpressure):
			res.Dropped = append(res.Dropped, ms)
		default:
			// closed peers are reaped by their own close path
		}
	}
	log.Debug().Str("module", "app.membership").Str("from", string(excluding)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// Unicast sends frame to target if it is currently a member of code. The
// bool reports membership; a target that is present but not keeping up is
// returned in Dropped like any broadcast recipient.
func (m *Membership) Unicast(code domain.RoomCode, target domain.ClientID, frame core.Frame) (core.PublishResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := core.PublishResult{}
	b, ok := m.buckets[code]
	if !ok {
		return res, false
	}
	ms, ok := b.members[target]
	if !ok {
		return res, false
	}
	err := ms.Signal().TrySend(frame)
	switch {
	case err == nil:
		res.SendTo = 1
	case errors.Is(err, core.ErrBackpressure):
		res.Dropped = append(res.Dropped, ms)
	default:
		log.Debug().Err(err).Str("module", "app.membership").Str("target", string(target)).Msg("unicast not delivered")
	}
	return res, true
}

func (m *Membership) Count(code domain.RoomCode) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buckets[code]; ok {
		return len(b.order)
	}
	return 0
}

// Occupied reports whether code has at least one live member.
func (m *Membership) Occupied(code domain.RoomCode) bool {
	return m.Count(code) > 0
}

// Rooms lists the live buckets ordered by code.
func (m *Membership) Rooms() []core.RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.RoomInfo, 0, len(m.buckets))
	for code, b := range m.buckets {
		out = append(out, core.RoomInfo{Code: code, MemberCount: len(b.order)})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return cmp.Compare(a.Code, b.Code) })
	return out
}

// MembersSnapshot is a transport-free view of the members of code.
func (m *Membership) MembersSnapshot(code domain.RoomCode) []core.MemberDTO {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[code]
	if !ok {
		return []core.MemberDTO{}
	}
	out := make([]core.MemberDTO, 0, len(b.order))
	for _, id := range b.order {
		ms := b.members[id]
		out = append(out, core.MemberDTO{
			ID:       id,
			Username: ms.Meta().User.Username,
			Presence: ms.Presence(),
		})
	}
	return out
}
