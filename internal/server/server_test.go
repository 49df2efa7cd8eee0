package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/recipe-for-chaos/internal/game"
)

// stubGenerator answers instantly so start sequences never wait on a
// network call.
type stubGenerator struct{}

func (stubGenerator) InitialRecipes(_ context.Context, playerCount int, _ []string) (map[string][]string, bool) {
	recipes := map[string][]string{
		"Quantum Entangler": {"Microchip", "Casing"},
		"Gravity Anchor":    {"FuelCell", "Casing"},
		"Hyperband Radio":   {"Microchip", "FuelCell"},
	}
	return recipes, len(recipes) >= playerCount
}

func (stubGenerator) PriceChangeEvent(context.Context, map[string]int, []game.PriceModifier) (game.PriceEvent, bool) {
	return game.PriceEvent{Title: "Carbon Rush", Item: "Carbon", Delta: 3, Description: "Prospectors everywhere."}, true
}

func (stubGenerator) ExpirationReason(context.Context, string) (string, bool) {
	return "It simply ended.", true
}

func (stubGenerator) WorldEvent(context.Context, game.WorldEventContext) (game.WorldEvent, bool) {
	return game.WorldEvent{}, false
}

func newTestServer(t *testing.T) (*GameServer, *httptest.Server) {
	t.Helper()
	cfg := game.DefaultConfig()
	cfg.DeductionInterval = time.Hour
	gs := NewGameServer(cfg, stubGenerator{})
	srv := httptest.NewServer(http.HandlerFunc(gs.HandleWS))
	t.Cleanup(srv.Close)
	return gs, srv
}

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

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(game.Message{Type: msgType, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil pumps the connection until a message of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
}

func readUntilPhase(t *testing.T, conn *websocket.Conn, want game.Phase) json.RawMessage {
	t.Helper()
	for {
		raw := readUntil(t, conn, "stateUpdate")
		var state struct {
			Phase game.Phase `json:"gamePhase"`
		}
		if err := json.Unmarshal(raw, &state); err != nil {
			t.Fatalf("decode stateUpdate: %v", err)
		}
		if state.Phase == want {
			return raw
		}
	}
}

func TestCreateJoinStartAndBuyOverWebsocket(t *testing.T) {
	_, srv := newTestServer(t)

	host := dial(t, srv)
	send(t, host, "createSession", map[string]string{"name": "ada"})
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(readUntil(t, host, "sessionCreated"), &created); err != nil {
		t.Fatalf("decode sessionCreated: %v", err)
	}
	if len(created.SessionID) != 6 {
		t.Fatalf("sessionId = %q, want 6-char code", created.SessionID)
	}

	guest := dial(t, srv)
	send(t, guest, "joinSession", map[string]string{"sessionId": created.SessionID, "name": "bob"})
	readUntil(t, guest, "stateUpdate")

	send(t, host, "startSession", map[string]string{"sessionId": created.SessionID})
	raw := readUntilPhase(t, host, game.PhaseInProgress)
	readUntilPhase(t, guest, game.PhaseInProgress)

	var state struct {
		Players map[game.PlayerID]struct {
			Name   string `json:"name"`
			Gadget string `json:"gadget"`
		} `json:"players"`
		MarketPrices map[string]int `json:"marketPrices"`
		TurnNumber   int            `json:"turnNumber"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("decode stateUpdate: %v", err)
	}
	if state.TurnNumber != 1 {
		t.Errorf("turnNumber = %d, want 1", state.TurnNumber)
	}
	if len(state.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(state.Players))
	}
	for _, p := range state.Players {
		if p.Gadget == "" {
			t.Errorf("player %s has no gadget", p.Name)
		}
	}
	if state.MarketPrices["Carbon"] != 13 {
		t.Errorf("Carbon price = %d, want 13 after the scripted event", state.MarketPrices["Carbon"])
	}

	send(t, host, "playerAction", map[string]any{
		"sessionId": created.SessionID,
		"action": map[string]any{
			"type":    "buy",
			"payload": map[string]any{"item": "Carbon", "quantity": 2},
		},
	})
	var result game.Result
	if err := json.Unmarshal(readUntil(t, host, "actionResult"), &result); err != nil {
		t.Fatalf("decode actionResult: %v", err)
	}
	if !result.Success || result.Message != "Bought 2 Carbon." {
		t.Errorf("actionResult = %+v", result)
	}
}

func TestJoinUnknownSessionReportsError(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	send(t, conn, "joinSession", map[string]string{"sessionId": "ZZZZZZ", "name": "ada"})
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(readUntil(t, conn, "sessionError"), &payload); err != nil {
		t.Fatalf("decode sessionError: %v", err)
	}
	if payload.Message != "Session not found." {
		t.Errorf("message = %q", payload.Message)
	}
}

func TestDisconnectRemovesEmptySession(t *testing.T) {
	gs, srv := newTestServer(t)
	conn := dial(t, srv)
	send(t, conn, "createSession", map[string]string{"name": "ada"})
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(readUntil(t, conn, "sessionCreated"), &created); err != nil {
		t.Fatalf("decode sessionCreated: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		gs.sessionsMu.RLock()
		_, alive := gs.sessions[created.SessionID]
		gs.sessionsMu.RUnlock()
		if !alive {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s still registered after its only player left", created.SessionID)
}

func TestListSessionsEndpoint(t *testing.T) {
	gs, srv := newTestServer(t)
	conn := dial(t, srv)
	send(t, conn, "createSession", map[string]string{"name": "ada"})
	readUntil(t, conn, "sessionCreated")

	rec := httptest.NewRecorder()
	gs.HandleListSessions(rec, httptest.NewRequest("GET", "/api/sessions", nil))
	var listed []struct {
		ID          string     `json:"id"`
		Phase       game.Phase `json:"phase"`
		PlayerCount int        `json:"playerCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode session list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("sessions listed = %d, want 1", len(listed))
	}
	if listed[0].Phase != game.PhaseLobby || listed[0].PlayerCount != 1 {
		t.Errorf("listed session = %+v", listed[0])
	}
}
