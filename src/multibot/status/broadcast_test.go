package status

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func notFoundErr() error {
	return &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	}
}

type presenceCall struct {
	status   discordgo.Status
	activity string
}

// fakeConn simulates one community's gateway: messages live in a map keyed
// by id, sends allocate increasing ids.
type fakeConn struct {
	ready       bool
	username    string
	presenceErr error
	sendErr     error

	presences []presenceCall
	messages  map[uint64]*discordgo.MessageEmbed
	nextID    uint64
	edits     int
	sends     int
}

func newFakeConn() *fakeConn {
	return &fakeConn{ready: true, username: "testbot", messages: make(map[uint64]*discordgo.MessageEmbed), nextID: 1000}
}

func (f *fakeConn) Ready() bool      { return f.ready }
func (f *fakeConn) Username() string { return f.username }

func (f *fakeConn) SetPresence(status discordgo.Status, activity string) error {
	if f.presenceErr != nil {
		return f.presenceErr
	}
	f.presences = append(f.presences, presenceCall{status, activity})
	return nil
}

func (f *fakeConn) HasChannel(channelID uint64) bool { return true }

func (f *fakeConn) EditMessage(channelID, messageID uint64, embed *discordgo.MessageEmbed) error {
	if _, ok := f.messages[messageID]; !ok {
		return notFoundErr()
	}
	f.messages[messageID] = embed
	f.edits++
	return nil
}

func (f *fakeConn) SendMessage(channelID uint64, embed *discordgo.MessageEmbed) (uint64, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.messages[f.nextID] = embed
	f.sends++
	return f.nextID, nil
}

func newTestController(t *testing.T, channels map[uint64]uint64) (*Controller, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "status.json"))
	return NewController(store, channels, nil), store
}

func TestAppearanceTable(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		presence discordgo.Status
		activity string
		color    int
		title    string
	}{
		{"maintenance", Request{Kind: KindMaintenance}, discordgo.StatusDoNotDisturb, "🚧 Mantenimiento", 0xE67E22, "🚧 MANTENIMIENTO 🚧"},
		{"shutdown", Request{Kind: KindShutdown}, discordgo.StatusInvisible, "💤 Apagado", 0xE74C3C, "🔴 APAGADO 🔴"},
		{"active", Request{Kind: KindActive}, discordgo.StatusOnline, "✅ Activo", 0x2ECC71, "✅ EN LÍNEA ✅"},
		{"custom", Request{Kind: KindCustom, ActivityText: "evento"}, discordgo.StatusOnline, "evento", 0x3498DB, "📢 ACTUALIZACIÓN"},
		{"custom default", Request{Kind: KindCustom}, discordgo.StatusOnline, defaultCustomActivity, 0x3498DB, "📢 ACTUALIZACIÓN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appearanceFor(tt.req)
			if got.Presence != tt.presence || got.Activity != tt.activity || got.Color != tt.color || got.Title != tt.title {
				t.Fatalf("appearanceFor(%v) = %+v", tt.req, got)
			}
		})
	}
}

func TestSendDecisionTable(t *testing.T) {
	tests := []struct {
		state priorState
		kind  Kind
		want  bool
	}{
		{priorNone, KindActive, true},
		{priorNone, KindShutdown, false},
		{priorValid, KindActive, false},
		{priorValid, KindShutdown, false},
		{priorStale, KindMaintenance, true},
		{priorStale, KindShutdown, false},
	}
	for _, tt := range tests {
		if got := shouldSendNew(tt.state, tt.kind); got != tt.want {
			t.Errorf("shouldSendNew(%d, %s) = %v, want %v", tt.state, tt.kind, got, tt.want)
		}
	}
}

func TestBroadcastIdempotent(t *testing.T) {
	c, store := newTestController(t, map[uint64]uint64{1: 10})
	conn := newFakeConn()
	c.Register(conn, 1, "bot-a")

	c.Broadcast(context.Background(), Request{Kind: KindActive})
	if conn.sends != 1 || conn.edits != 0 {
		t.Fatalf("first broadcast: sends=%d edits=%d; want 1, 0", conn.sends, conn.edits)
	}
	first, _ := store.Get(1)

	c.Broadcast(context.Background(), Request{Kind: KindActive})
	if conn.sends != 1 {
		t.Fatalf("second broadcast sent a duplicate message; sends=%d", conn.sends)
	}
	if conn.edits != 1 {
		t.Fatalf("second broadcast should edit in place; edits=%d", conn.edits)
	}
	second, _ := store.Get(1)
	if first != second {
		t.Fatalf("message id changed across idempotent broadcasts: %d → %d", first, second)
	}
}

func TestBroadcastRecoversDeletedMessage(t *testing.T) {
	c, store := newTestController(t, map[uint64]uint64{1: 10})
	conn := newFakeConn()
	c.Register(conn, 1, "bot-a")

	// Persisted pointer references a message the platform no longer has.
	if err := store.Put(1, 111); err != nil {
		t.Fatal(err)
	}

	c.Broadcast(context.Background(), Request{Kind: KindActive})
	if conn.sends != 1 {
		t.Fatalf("expected a new message after stale pointer; sends=%d", conn.sends)
	}
	newID, _ := store.Get(1)
	if newID == 111 {
		t.Fatal("stale message id was not overwritten")
	}
	if _, ok := conn.messages[newID]; !ok {
		t.Fatalf("persisted id %d does not match any sent message", newID)
	}
}

func TestShutdownSuppression(t *testing.T) {
	c, store := newTestController(t, map[uint64]uint64{1: 10})
	conn := newFakeConn()
	c.Register(conn, 1, "bot-a")

	c.Broadcast(context.Background(), Request{Kind: KindShutdown})

	if conn.sends != 0 {
		t.Fatalf("shutdown with no prior message must not send; sends=%d", conn.sends)
	}
	if len(conn.presences) != 1 || conn.presences[0].status != discordgo.StatusInvisible {
		t.Fatalf("presence update still expected; got %v", conn.presences)
	}
	if _, ok := store.Get(1); ok {
		t.Fatal("no message id should be recorded")
	}
}

func TestShutdownEditsExistingMessage(t *testing.T) {
	c, store := newTestController(t, map[uint64]uint64{1: 10})
	conn := newFakeConn()
	conn.messages[500] = &discordgo.MessageEmbed{}
	c.Register(conn, 1, "bot-a")

	if err := store.Put(1, 500); err != nil {
		t.Fatal(err)
	}

	c.Broadcast(context.Background(), Request{Kind: KindShutdown})
	if conn.edits != 1 || conn.sends != 0 {
		t.Fatalf("shutdown should edit the existing announcement; edits=%d sends=%d", conn.edits, conn.sends)
	}
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	c, store := newTestController(t, map[uint64]uint64{1: 10, 2: 20})
	broken := newFakeConn()
	broken.presenceErr = errors.New("gateway closed")
	healthy := newFakeConn()
	c.Register(broken, 1, "bot-a")
	c.Register(healthy, 2, "bot-b")

	c.Broadcast(context.Background(), Request{Kind: KindMaintenance})

	if len(healthy.presences) != 1 {
		t.Fatalf("healthy bot missed its presence update; %v", healthy.presences)
	}
	if healthy.sends != 1 {
		t.Fatalf("healthy bot missed its announcement; sends=%d", healthy.sends)
	}
	if _, ok := store.Get(2); !ok {
		t.Fatal("healthy bot's message id should be persisted")
	}
}

func TestBroadcastSkipsNotReady(t *testing.T) {
	c, store := newTestController(t, map[uint64]uint64{1: 10})
	conn := newFakeConn()
	conn.ready = false
	c.Register(conn, 1, "bot-a")

	c.Broadcast(context.Background(), Request{Kind: KindActive})

	if len(conn.presences) != 0 || conn.sends != 0 {
		t.Fatalf("not-ready connection should be left alone; presences=%v sends=%d", conn.presences, conn.sends)
	}
	if _, ok := store.Get(1); ok {
		t.Fatal("nothing should be persisted for a not-ready bot")
	}
}

func TestBroadcastSkipsCommunityWithoutChannel(t *testing.T) {
	c, store := newTestController(t, map[uint64]uint64{})
	conn := newFakeConn()
	c.Register(conn, 1, "bot-a")

	c.Broadcast(context.Background(), Request{Kind: KindActive})

	if len(conn.presences) != 1 {
		t.Fatal("presence applies even without an announcement channel")
	}
	if conn.sends != 0 {
		t.Fatalf("no channel, no announcement; sends=%d", conn.sends)
	}
	if _, ok := store.Get(1); ok {
		t.Fatal("nothing should be persisted without a channel")
	}
}

// Two communities: A with no prior state, B with a recorded message. One
// maintenance broadcast sends new for A and edits B in place.
func TestBroadcastTwoCommunities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := os.WriteFile(path, []byte(`{"2": 999}`), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewStore(path)
	c := NewController(store, map[uint64]uint64{1: 10, 2: 20}, nil)

	connA := newFakeConn()
	connB := newFakeConn()
	connB.messages[999] = &discordgo.MessageEmbed{}
	c.Register(connA, 1, "bot-a")
	c.Register(connB, 2, "bot-b")

	c.Broadcast(context.Background(), Request{Kind: KindMaintenance})

	if connA.sends != 1 {
		t.Fatalf("A should get a new message; sends=%d", connA.sends)
	}
	idA, ok := store.Get(1)
	if !ok {
		t.Fatal("A's new message id should be recorded")
	}
	if _, exists := connA.messages[idA]; !exists {
		t.Fatalf("recorded id %d is not the sent message", idA)
	}

	if connB.edits != 1 || connB.sends != 0 {
		t.Fatalf("B should be edited in place; edits=%d sends=%d", connB.edits, connB.sends)
	}
	if idB, _ := store.Get(2); idB != 999 {
		t.Fatalf("B's id should be retained; got %d", idB)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(notFoundErr()) {
		t.Fatal("unknown-message code should classify as not found")
	}
	if IsNotFound(errors.New("plain")) {
		t.Fatal("arbitrary errors are not not-found")
	}
	if IsNotFound(nil) {
		t.Fatal("nil is not not-found")
	}
}
