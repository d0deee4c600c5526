package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/dkeye/Mesh/internal/store/memory"
)

// sequence yields the given codes in order, then repeats the last one.
func sequence(codes ...domain.RoomCode) CodeGenerator {
	i := 0
	return func() (domain.RoomCode, error) {
		c := codes[min(i, len(codes)-1)]
		i++
		return c, nil
	}
}

func TestCreateRoomDistinctCodes(t *testing.T) {
	dir := NewDirectory(memory.New(), nil, DefaultDirectoryOptions())
	ctx := context.Background()

	const n = 200
	seen := make(map[domain.RoomCode]bool, n)
	for i := 0; i < n; i++ {
		room, err := dir.CreateRoom(ctx, nil)
		if err != nil {
			t.Fatalf("create room %d: %v", i, err)
		}
		if !room.Code.Valid() {
			t.Fatalf("invalid code %q", room.Code)
		}
		if room.Code[0] == '0' {
			t.Fatalf("code %q has a leading zero", room.Code)
		}
		if seen[room.Code] {
			t.Fatalf("duplicate code %q", room.Code)
		}
		seen[room.Code] = true
	}
}

func TestCreateRoomRetriesOnCollision(t *testing.T) {
	store := memory.New()
	dir := NewDirectory(store, sequence("111111", "111111", "222222"), DefaultDirectoryOptions())
	ctx := context.Background()

	first, err := dir.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := dir.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.Code != "111111" || second.Code != "222222" {
		t.Errorf("expected 111111 then 222222, got %s then %s", first.Code, second.Code)
	}
}

func TestCreateRoomCodeSpaceExhausted(t *testing.T) {
	opts := DefaultDirectoryOptions()
	opts.Attempts = 3
	dir := NewDirectory(memory.New(), sequence("333333"), opts)
	ctx := context.Background()

	if _, err := dir.CreateRoom(ctx, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := dir.CreateRoom(ctx, nil)
	if !errors.Is(err, core.ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
}

func TestCreateRoomCapacity(t *testing.T) {
	dir := NewDirectory(memory.New(), nil, DefaultDirectoryOptions())
	ctx := context.Background()

	cases := []struct {
		name      string
		requested *domain.Capacity
		want      string
	}{
		{"default", nil, "2"},
		{"in range", ptr(domain.Limit(3)), "3"},
		{"below min", ptr(domain.Limit(0)), "2"},
		{"above max", ptr(domain.Limit(50)), "5"},
		{"unlimited", ptr(domain.Unlimited()), "unlimited"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			room, err := dir.CreateRoom(ctx, tc.requested)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if got := room.Capacity.String(); got != tc.want {
				t.Errorf("expected capacity %s, got %s", tc.want, got)
			}
		})
	}
}

func TestGetRoom(t *testing.T) {
	dir := NewDirectory(memory.New(), nil, DefaultDirectoryOptions())
	ctx := context.Background()

	created, err := dir.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := dir.GetRoom(ctx, created.Code)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID || got.Code != created.Code {
		t.Errorf("expected %+v, got %+v", created, got)
	}

	for _, code := range []domain.RoomCode{"000000", "abc", ""} {
		if _, err := dir.GetRoom(ctx, code); !errors.Is(err, core.ErrRoomNotFound) {
			t.Errorf("%q: expected ErrRoomNotFound, got %v", code, err)
		}
	}
}

func TestExpireSkipsOccupiedRooms(t *testing.T) {
	opts := DefaultDirectoryOptions()
	opts.TTL = time.Minute
	dir := NewDirectory(memory.New(), sequence("400000", "500000"), opts)
	ctx := context.Background()

	busy, _ := dir.CreateRoom(ctx, nil)
	idle, _ := dir.CreateRoom(ctx, nil)

	occupied := func(code domain.RoomCode) bool { return code == busy.Code }

	n, err := dir.Expire(ctx, time.Now(), occupied)
	if err != nil || n != 0 {
		t.Fatalf("expected nothing expired yet, got %d, %v", n, err)
	}

	n, err = dir.Expire(ctx, time.Now().Add(time.Hour), occupied)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired room, got %d", n)
	}
	if _, err := dir.GetRoom(ctx, idle.Code); !errors.Is(err, core.ErrRoomNotFound) {
		t.Errorf("expected idle room gone, got %v", err)
	}
	if _, err := dir.GetRoom(ctx, busy.Code); err != nil {
		t.Errorf("expected busy room kept, got %v", err)
	}
}

func TestExpireDisabledWithoutTTL(t *testing.T) {
	dir := NewDirectory(memory.New(), nil, DefaultDirectoryOptions())
	ctx := context.Background()
	if _, err := dir.CreateRoom(ctx, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := dir.Expire(ctx, time.Now().Add(24*time.Hour), nil)
	if err != nil || n != 0 {
		t.Errorf("expected no expiry, got %d, %v", n, err)
	}
}

func ptr[T any](v T) *T { return &v }
