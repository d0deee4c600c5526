package app

import (
	"encoding/json"
	"slices"
	"sync"
	"testing"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/core/coretest"
	"github.com/dkeye/Mesh/internal/domain"
)

func newTestSession(t *testing.T, id domain.ClientID) (core.MemberSession, *coretest.Conn) {
	t.Helper()
	user, err := domain.NewUser(id, string(id))
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	conn := coretest.NewConn()
	return core.NewMemberSession(domain.NewMember(user), conn), conn
}

func testRoom(code domain.RoomCode, capacity domain.Capacity) domain.Room {
	return domain.Room{ID: 1, Code: code, Capacity: capacity}
}

// announceIDs sends the peer list to the newcomer and its id to the others.
func announceIDs(id domain.ClientID) Announcer {
	return func(peers []domain.ClientID) (core.Frame, core.Frame) {
		self, _ := core.NewEnvelope(core.MsgPeers, peers)
		others, _ := core.NewEnvelope(core.MsgNewPeer, id)
		a, _ := self.Encode()
		b, _ := others.Encode()
		return a, b
	}
}

func TestAdmitConcurrentRespectsCapacity(t *testing.T) {
	const capacity, joiners = 2, 16
	m := NewMembership()
	room := testRoom("123456", domain.Limit(capacity))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		full     int
	)
	for i := 0; i < joiners; i++ {
		sess, _ := newTestSession(t, domain.NewClientID())
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Admit(room, sess, nil)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				admitted++
			case core.ErrRoomFull:
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if admitted != capacity {
		t.Errorf("expected %d admitted, got %d", capacity, admitted)
	}
	if full != joiners-capacity {
		t.Errorf("expected %d rejected, got %d", joiners-capacity, full)
	}
	if got := m.Count(room.Code); got != capacity {
		t.Errorf("expected count %d, got %d", capacity, got)
	}
}

func TestAdmitUnlimited(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Unlimited())
	for i := 0; i < 50; i++ {
		sess, _ := newTestSession(t, domain.NewClientID())
		if _, err := m.Admit(room, sess, nil); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	if m.Count(room.Code) != 50 {
		t.Errorf("expected 50 members, got %d", m.Count(room.Code))
	}
}

func TestAdmitAnnouncesPeers(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Limit(5))
	a, connA := newTestSession(t, "a")
	b, connB := newTestSession(t, "b")

	if _, err := m.Admit(room, a, announceIDs("a")); err != nil {
		t.Fatalf("admit a: %v", err)
	}
	adm, err := m.Admit(room, b, announceIDs("b"))
	if err != nil {
		t.Fatalf("admit b: %v", err)
	}
	if !slices.Equal(adm.Peers, []domain.ClientID{"a"}) {
		t.Errorf("expected peers [a], got %v", adm.Peers)
	}
	if adm.Announced.SendTo != 1 {
		t.Errorf("expected announcement to 1 member, got %d", adm.Announced.SendTo)
	}

	toA := connA.Drain(t)
	if len(toA) != 2 || toA[1].Type != core.MsgNewPeer {
		t.Fatalf("expected a to get peers then new-peer, got %+v", toA)
	}
	var newID domain.ClientID
	if err := json.Unmarshal(toA[1].Data, &newID); err != nil || newID != "b" {
		t.Errorf("expected new-peer b, got %s (%v)", toA[1].Data, err)
	}

	toB := connB.Drain(t)
	if len(toB) != 1 || toB[0].Type != core.MsgPeers {
		t.Fatalf("expected b to get only peers, got %+v", toB)
	}
	var peers []domain.ClientID
	if err := json.Unmarshal(toB[0].Data, &peers); err != nil {
		t.Fatalf("decode peers: %v", err)
	}
	if !slices.Equal(peers, []domain.ClientID{"a"}) {
		t.Errorf("expected [a], got %v", peers)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Limit(5))
	a, connA := newTestSession(t, "a")
	b, _ := newTestSession(t, "b")
	c, connC := newTestSession(t, "c")
	for _, s := range []core.MemberSession{a, b, c} {
		if _, err := m.Admit(room, s, nil); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}

	bye := core.Frame(`{"type":"peer-leave","data":"b"}`)
	res, removed := m.Remove(room.Code, "b", bye)
	if !removed || res.SendTo != 2 {
		t.Fatalf("expected removal with 2 notified, got %v %+v", removed, res)
	}
	if _, removed := m.Remove(room.Code, "b", bye); removed {
		t.Error("expected second remove to be a no-op")
	}

	for name, conn := range map[string]*coretest.Conn{"a": connA, "c": connC} {
		if got := len(coretest.OfType(conn.Drain(t), core.MsgPeerLeave)); got != 1 {
			t.Errorf("%s: expected exactly one peer-leave, got %d", name, got)
		}
	}
	if peers := m.ListPeers(room.Code, ""); !slices.Equal(peers, []domain.ClientID{"a", "c"}) {
		t.Errorf("expected [a c], got %v", peers)
	}
}

func TestRemoveLastMemberDropsBucket(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Limit(2))
	a, _ := newTestSession(t, "a")
	if _, err := m.Admit(room, a, nil); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !m.Occupied(room.Code) {
		t.Fatal("expected room occupied")
	}
	if _, removed := m.Remove(room.Code, "a", nil); !removed {
		t.Fatal("expected removal")
	}
	if m.Occupied(room.Code) || len(m.Rooms()) != 0 {
		t.Errorf("expected bucket released, got %+v", m.Rooms())
	}
}

func TestListPeersOrder(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Limit(5))
	for _, id := range []domain.ClientID{"x", "y", "z"} {
		s, _ := newTestSession(t, id)
		if _, err := m.Admit(room, s, nil); err != nil {
			t.Fatalf("admit %s: %v", id, err)
		}
	}
	if got := m.ListPeers(room.Code, "y"); !slices.Equal(got, []domain.ClientID{"x", "z"}) {
		t.Errorf("expected [x z], got %v", got)
	}
	if got := m.ListPeers("654321", ""); len(got) != 0 {
		t.Errorf("expected no peers for unknown room, got %v", got)
	}
}

func TestBroadcastSkipsClosedAndReportsBackpressure(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Limit(5))
	a, _ := newTestSession(t, "a")
	b, connB := newTestSession(t, "b")
	c, connC := newTestSession(t, "c")
	d, connD := newTestSession(t, "d")
	for _, s := range []core.MemberSession{a, b, c, d} {
		if _, err := m.Admit(room, s, nil); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}
	connB.Close()
	connC.SetFull(true)

	res := m.Broadcast(room.Code, "a", core.Frame(`{"type":"offer"}`))
	if res.SendTo != 1 {
		t.Errorf("expected 1 delivery, got %d", res.SendTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].ID() != "c" {
		t.Errorf("expected c dropped, got %+v", res.Dropped)
	}
	if got := connD.Drain(t); len(got) != 1 {
		t.Errorf("expected d to get the frame, got %+v", got)
	}
}

func TestUnicastIsolation(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Limit(5))
	conns := map[domain.ClientID]*coretest.Conn{}
	for _, id := range []domain.ClientID{"a", "b", "c"} {
		s, conn := newTestSession(t, id)
		conns[id] = conn
		if _, err := m.Admit(room, s, nil); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}

	if res, ok := m.Unicast(room.Code, "c", core.Frame(`{"type":"offer"}`)); !ok || res.SendTo != 1 {
		t.Fatalf("expected delivery to c, got %+v %v", res, ok)
	}
	if got := len(conns["c"].Drain(t)); got != 1 {
		t.Errorf("expected c to get 1 frame, got %d", got)
	}
	for _, id := range []domain.ClientID{"a", "b"} {
		if got := len(conns[id].Drain(t)); got != 0 {
			t.Errorf("expected %s to get nothing, got %d", id, got)
		}
	}
	if _, ok := m.Unicast(room.Code, "ghost", core.Frame(`{}`)); ok {
		t.Error("expected unicast to absent member to report false")
	}
}

func TestUnicastReportsBackpressure(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Limit(5))
	s, conn := newTestSession(t, "a")
	if _, err := m.Admit(room, s, nil); err != nil {
		t.Fatalf("admit: %v", err)
	}
	conn.SetFull(true)

	res, ok := m.Unicast(room.Code, "a", core.Frame(`{"type":"offer"}`))
	if !ok {
		t.Fatal("expected a to be reported as a member")
	}
	if res.SendTo != 0 || len(res.Dropped) != 1 || res.Dropped[0].ID() != "a" {
		t.Errorf("expected a reported as dropped, got %+v", res)
	}
}

func TestMembersSnapshot(t *testing.T) {
	m := NewMembership()
	room := testRoom("123456", domain.Limit(5))
	a, _ := newTestSession(t, "a")
	a.SetPresence(domain.Presence{Muted: true})
	if _, err := m.Admit(room, a, nil); err != nil {
		t.Fatalf("admit: %v", err)
	}
	snap := m.MembersSnapshot(room.Code)
	if len(snap) != 1 || snap[0].ID != "a" || snap[0].Username != "a" || !snap[0].Muted {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}
