package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fightcore/internal/config"
	"fightcore/internal/lobby"
	"fightcore/internal/protocol"
	"fightcore/internal/sim"
)

func testMaps() []sim.GameMap {
	return []sim.GameMap{{
		Name: "test", Width: 800, Height: 450,
		Platforms:   []sim.Platform{{X: 0, Y: 400, W: 800, H: 50}},
		SpawnPoints: []sim.SpawnPoint{{X: 100, Y: 300}, {X: 700, Y: 300}},
	}}
}

func testMatchCfg() sim.MatchConfig {
	return sim.MatchConfig{
		PlayerCount: 2, TickRate: 60, InitialLives: 1,
		MatchDurationTicks: 1800, SuddenDeathStartTick: 1200,
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	l := lobby.New(context.Background(), testMaps(), testMatchCfg(), 10)
	srv := NewServer(l, config.DefaultServer())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthzReportsOK(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpointReturnsOK(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestListRoomsEmptyBeforeAnyCreate(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/rooms")
	if err != nil {
		t.Fatalf("GET /api/rooms: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Rooms []protocol.RoomSummary `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Rooms) != 0 {
		t.Fatalf("expected no rooms before any create, got %d", len(body.Rooms))
	}
}

func TestWebSocketCreateThenJoinMatches(t *testing.T) {
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	origin := http.Header{"Origin": []string{"http://localhost"}}

	creator, _, err := websocket.DefaultDialer.Dial(wsURL, origin)
	if err != nil {
		t.Fatalf("dial creator: %v", err)
	}
	defer creator.Close()

	if err := creator.WriteJSON(mustEnvelope(t, "create", protocol.CreateRoom{Mode: "ffa"})); err != nil {
		t.Fatalf("write create: %v", err)
	}

	var waiting protocol.Envelope
	creator.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := creator.ReadJSON(&waiting); err != nil {
		t.Fatalf("read waiting: %v", err)
	}
	if waiting.Type != "waiting" {
		t.Fatalf("expected waiting envelope, got %q", waiting.Type)
	}
	var w protocol.Waiting
	if err := json.Unmarshal(waiting.Data, &w); err != nil {
		t.Fatalf("decode waiting: %v", err)
	}
	if w.RoomID == "" {
		t.Fatal("expected a non-empty room id")
	}

	joiner, _, err := websocket.DefaultDialer.Dial(wsURL, origin)
	if err != nil {
		t.Fatalf("dial joiner: %v", err)
	}
	defer joiner.Close()

	if err := joiner.WriteJSON(mustEnvelope(t, "join_room", protocol.JoinRoom{ID: w.RoomID})); err != nil {
		t.Fatalf("write join_room: %v", err)
	}

	var matched protocol.Envelope
	joiner.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := joiner.ReadJSON(&matched); err != nil {
		t.Fatalf("read matched: %v", err)
	}
	if matched.Type != "matched" {
		t.Fatalf("expected matched envelope, got %q", matched.Type)
	}

	creator.SetReadDeadline(time.Now().Add(2 * time.Second))
	var roundStart protocol.Envelope
	if err := creator.ReadJSON(&roundStart); err != nil {
		t.Fatalf("read round_start: %v", err)
	}
	if roundStart.Type != "round_start" {
		t.Fatalf("expected round_start once both players joined, got %q", roundStart.Type)
	}
}

func mustEnvelope(t *testing.T, msgType string, payload any) protocol.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s: %v", msgType, err)
	}
	return protocol.Envelope{Type: msgType, Data: data}
}
