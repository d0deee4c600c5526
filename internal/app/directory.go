package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	codeLow  = 100000
	codeSpan = 900000
)

// CodeGenerator yields candidate room codes.
type CodeGenerator func() (domain.RoomCode, error)

// RandomCode draws uniformly from 100000..999999.
func RandomCode() (domain.RoomCode, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return domain.RoomCode(fmt.Sprintf("%06d", codeLow+n.Int64())), nil
}

type DirectoryOptions struct {
	MinCapacity     int
	MaxCapacity     int
	DefaultCapacity domain.Capacity
	// Attempts bounds code generation retries on collision.
	Attempts int
	// TTL is the age after which unoccupied rooms may be expired. Zero keeps rooms forever.
	TTL time.Duration
}

func DefaultDirectoryOptions() DirectoryOptions {
	return DirectoryOptions{
		MinCapacity:     2,
		MaxCapacity:     5,
		DefaultCapacity: domain.Limit(2),
		Attempts:        10,
	}
}

// Directory is the registry of room records. Records never change once created.
type Directory struct {
	store core.RoomStore
	gen   CodeGenerator
	opts  DirectoryOptions
}

func NewDirectory(store core.RoomStore, gen CodeGenerator, opts DirectoryOptions) *Directory {
	if gen == nil {
		gen = RandomCode
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	return &Directory{store: store, gen: gen, opts: opts}
}

// CreateRoom stores a room under a fresh code. A nil requested capacity
// selects the default one.
func (d *Directory) CreateRoom(ctx context.Context, requested *domain.Capacity) (domain.Room, error) {
	capacity := d.opts.DefaultCapacity
	if requested != nil {
		capacity = *requested
	}
	capacity = capacity.Clamp(d.opts.MinCapacity, d.opts.MaxCapacity)

	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		code, err := d.gen()
		if err != nil {
			return domain.Room{}, fmt.Errorf("generate room code: %w", err)
		}
		room, err := d.store.Insert(ctx, domain.Room{Code: code, Capacity: capacity})
		if errors.Is(err, core.ErrDuplicateCode) {
			log.Debug().Str("module", "app.directory").Str("code", string(code)).Int("attempt", attempt).Msg("room code collision")
			continue
		}
		if err != nil {
			return domain.Room{}, err
		}
		log.Info().Str("module", "app.directory").Str("code", string(room.Code)).Str("capacity", room.Capacity.String()).Msg("room created")
		return room, nil
	}
	return domain.Room{}, fmt.Errorf("after %d attempts: %w", d.opts.Attempts, core.ErrCodeSpaceExhausted)
}

func (d *Directory) GetRoom(ctx context.Context, code domain.RoomCode) (domain.Room, error) {
	if !code.Valid() {
		return domain.Room{}, fmt.Errorf("get %q: %w", code, core.ErrRoomNotFound)
	}
	return d.store.GetByCode(ctx, code)
}

// Expire drops rooms older than the configured TTL unless occupied reports
// live members for them.
func (d *Directory) Expire(ctx context.Context, now time.Time, occupied func(domain.RoomCode) bool) (int, error) {
	if d.opts.TTL <= 0 {
		return 0, nil
	}
	n, err := d.store.DeleteOlderThan(ctx, now.Add(-d.opts.TTL), occupied)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Str("module", "app.directory").Int("expired", n).Msg("expired rooms")
	}
	return n, nil
}

// RunJanitor calls Expire every period until ctx is done.
func (d *Directory) RunJanitor(ctx context.Context, period time.Duration, occupied func(domain.RoomCode) bool) error {
	if d.opts.TTL <= 0 || period <= 0 {
		return nil
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if _, err := d.Expire(ctx, now, occupied); err != nil {
				log.Error().Err(err).Str("module", "app.directory").Msg("expire rooms")
			}
		}
	}
}
