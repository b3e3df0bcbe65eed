package replication

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
	"github.com/pthm-cable/fruitmerge/telemetry"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", kind)
	}
	var env Envelope
	if err := Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestHubSendsBoardOnJoinThenEvents(t *testing.T) {
	hub := NewHub(config.ReplicationConfig{SendBuffer: 8, WriteTimeout: 1})
	defer hub.Close()

	current, preview := components.Tier(1), components.Tier(2)
	hub.SetBoard(&telemetry.Snapshot{
		Version:     1,
		Tick:        42,
		Score:       7,
		CurrentTier: &current,
		PreviewTier: &preview,
		Fruits:      []telemetry.FruitState{{ID: 3, Tier: 4, X: 10, Y: 20}},
	})

	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)

	env := readEnvelope(t, conn)
	if env.Kind != KindBoard {
		t.Fatalf("first message kind = %q, want %q", env.Kind, KindBoard)
	}
	var board telemetry.Snapshot
	if err := Unmarshal(env.Data, &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if board.Tick != 42 || board.Score != 7 || len(board.Fruits) != 1 || board.Fruits[0].Tier != 4 {
		t.Errorf("board = %+v", board)
	}
	if board.PreviewTier == nil || *board.PreviewTier != 2 {
		t.Errorf("preview tier = %v, want 2", board.PreviewTier)
	}

	hub.OnEvent(events.MergeCompleted{
		FromTier:   3,
		ResultTier: 4,
		Position:   components.Vec2{X: 5, Y: 6},
	})
	env = readEnvelope(t, conn)
	if env.Kind != KindMerge {
		t.Fatalf("kind = %q, want %q", env.Kind, KindMerge)
	}
	var m Merge
	if err := Unmarshal(env.Data, &m); err != nil {
		t.Fatalf("decode merge: %v", err)
	}
	if m.FromTier != 3 || m.ResultTier != 4 || m.X != 5 || m.Y != 6 || m.Terminal {
		t.Errorf("merge = %+v", m)
	}
}

func TestHubSequenceIncreases(t *testing.T) {
	hub := NewHub(config.ReplicationConfig{SendBuffer: 8, WriteTimeout: 1})
	defer hub.Close()
	hub.SetBoard(&telemetry.Snapshot{Version: 1})

	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)
	first := readEnvelope(t, conn)

	hub.OnEvent(events.ScoreAwarded{Points: 3})
	hub.OnEvent(events.GameReset{})
	a := readEnvelope(t, conn)
	b := readEnvelope(t, conn)
	if !(first.Seq < a.Seq && a.Seq < b.Seq) {
		t.Errorf("seq not increasing: %d %d %d", first.Seq, a.Seq, b.Seq)
	}
	if a.Kind != KindScore || b.Kind != KindReset {
		t.Errorf("kinds = %q %q", a.Kind, b.Kind)
	}
	if len(b.Data) != 0 {
		t.Errorf("reset carries payload %v", b.Data)
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub(config.ReplicationConfig{})
	hub.SetBoard(&telemetry.Snapshot{Version: 1})

	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)
	readEnvelope(t, conn)

	hub.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read error after Close")
	}
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
	// Events after Close are ignored.
	hub.OnEvent(events.GameReset{})
}

func TestEncodeEvent(t *testing.T) {
	world := ecs.NewWorld()
	e := world.NewEntity()

	tests := []struct {
		name string
		ev   events.Event
		kind string
		ok   bool
	}{
		{"merge", events.MergeCompleted{FromTier: 1, ResultTier: 2}, KindMerge, true},
		{"terminal", events.MergeCompleted{FromTier: 9, ResultTier: 9, Terminal: true}, KindMerge, true},
		{"golden", events.GoldenSpawned{Entity: e, Upgraded: true}, KindGolden, true},
		{"skill", events.SkillUsed{Entity: e, Skill: components.SkillDestroy}, KindSkill, true},
		{"destroyed", events.EntityDestroyed{Entity: e, Tier: 3, Cause: events.CauseOutOfBounds}, KindDestroyed, true},
		{"preview", events.NextPreviewChanged{Tier: 2}, KindPreview, true},
		{"released", events.FruitReleased{Entity: e, Tier: 1, Skill: components.SkillPower}, KindReleased, true},
		{"game over", events.GameOver{Score: 99}, KindGameOver, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ok, err := EncodeEvent(1, tt.ev)
			if err != nil {
				t.Fatalf("EncodeEvent: %v", err)
			}
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			var env Envelope
			if err := Unmarshal(data, &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", env.Kind, tt.kind)
			}
		})
	}
}

func TestEncodeReleasedSkill(t *testing.T) {
	world := ecs.NewWorld()
	e := world.NewEntity()

	data, _, err := EncodeEvent(1, events.FruitReleased{Entity: e, Tier: 1, Skill: components.SkillPower})
	if err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	var r Released
	if err := Unmarshal(env.Data, &r); err != nil {
		t.Fatal(err)
	}
	if r.Skill != "power" || r.ID != e.ID() {
		t.Errorf("released = %+v", r)
	}

	data, _, _ = EncodeEvent(2, events.FruitReleased{Entity: e, Tier: 1})
	Unmarshal(data, &env)
	r = Released{}
	Unmarshal(env.Data, &r)
	if r.Skill != "" {
		t.Errorf("plain release skill = %q, want empty", r.Skill)
	}
}
