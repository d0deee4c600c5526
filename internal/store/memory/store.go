// Package memory is the default in-process RoomStore.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/rs/zerolog/log"
)

// Store keeps rooms keyed by auto-increment ID with a unique index on code.
// Codes of deleted rooms stay retired so a code is never handed out twice.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]domain.Room
	byCode  map[domain.RoomCode]int64
	retired map[domain.RoomCode]struct{}

	now func() time.Time
}

func New() *Store {
	return &Store{
		nextID:  1,
		byID:    make(map[int64]domain.Room),
		byCode:  make(map[domain.RoomCode]int64),
		retired: make(map[domain.RoomCode]struct{}),
		now:     time.Now,
	}
}

var _ core.RoomStore = (*Store)(nil)

func (s *Store) Insert(_ context.Context, room domain.Room) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, taken := s.byCode[room.Code]
	_, retired := s.retired[room.Code]
	if taken || retired {
		return domain.Room{}, fmt.Errorf("insert %s: %w", room.Code, core.ErrDuplicateCode)
	}
	room.ID = s.nextID
	s.nextID++
	room.CreatedAt = s.now().UTC()
	s.byID[room.ID] = room
	s.byCode[room.Code] = room.ID
	log.Debug().Str("module", "store.memory").Int64("id", room.ID).Str("code", string(room.Code)).Msg("room stored")
	return room, nil
}

func (s *Store) GetByCode(_ context.Context, code domain.RoomCode) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return domain.Room{}, fmt.Errorf("get %s: %w", code, core.ErrRoomNotFound)
	}
	return s.byID[id], nil
}

func (s *Store) DeleteOlderThan(_ context.Context, cutoff time.Time, keep func(domain.RoomCode) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, room := range s.byID {
		if !room.CreatedAt.Before(cutoff) {
			continue
		}
		if keep != nil && keep(room.Code) {
			continue
		}
		delete(s.byID, id)
		delete(s.byCode, room.Code)
		s.retired[room.Code] = struct{}{}
		n++
	}
	return n, nil
}

// Len returns the number of stored rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
