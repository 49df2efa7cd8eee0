package server

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/recipe-for-chaos/internal/game"
)

// GameServer owns the table of active sessions and the websocket transport.
// The registry lock only guards the table itself; each session serializes
// its own state, so sessions run fully in parallel.
type GameServer struct {
	cfg game.Config
	gen game.Generator

	sessionsMu sync.RWMutex
	sessions   map[string]*game.Session

	upgrader websocket.Upgrader
}

func NewGameServer(cfg game.Config, gen game.Generator) *GameServer {
	return &GameServer{
		cfg:      cfg,
		gen:      gen,
		sessions: make(map[string]*game.Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// client is one websocket connection. Writes are serialized by the mutex:
// the session notifies from action handlers, the turn-transition goroutine,
// and timer ticks.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex

	playerID game.PlayerID
	session  *game.Session
}

func (c *client) Notify(out game.Outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(out); err != nil {
		log.Println("write:", err)
	}
}

// HTTP handlers

func (gs *GameServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := gs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	c := &client{conn: conn}
	go gs.readLoop(c)
}

func (gs *GameServer) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	gs.sessionsMu.RLock()
	resp := []map[string]interface{}{}
	for id, s := range gs.sessions {
		resp = append(resp, map[string]interface{}{
			"id":          id,
			"phase":       s.Phase(),
			"playerCount": s.PlayerCount(),
		})
	}
	gs.sessionsMu.RUnlock()
	sort.Slice(resp, func(i, j int) bool { return resp[i]["id"].(string) < resp[j]["id"].(string) })
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Inbound payloads. Each message type decodes into its own struct; there is
// no shape-sniffing of free-form maps.

type createSessionPayload struct {
	Name string `json:"name"`
}

type joinSessionPayload struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type startSessionPayload struct {
	SessionID string `json:"sessionId"`
}

type playerActionPayload struct {
	SessionID string         `json:"sessionId"`
	Action    actionEnvelope `json:"action"`
}

type actionEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type buySellPayload struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type craftPayload struct {
	ComponentName string `json:"componentName"`
}

type offerTradePayload struct {
	ToPlayerID game.PlayerID     `json:"toPlayerId"`
	Offering   game.TradePayload `json:"offering"`
	Requesting game.TradePayload `json:"requesting"`
}

type resolveTradePayload struct {
	TradeID  string `json:"tradeId"`
	Accepted bool   `json:"accepted"`
}

func (gs *GameServer) readLoop(c *client) {
	defer func() {
		c.conn.Close()
		gs.dropClient(c)
	}()

	for {
		var msg game.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("read:", err)
			}
			return
		}
		switch msg.Type {
		case "createSession":
			var data createSessionPayload
			json.Unmarshal(msg.Payload, &data)
			gs.handleCreateSession(c, data.Name)
		case "joinSession":
			var data joinSessionPayload
			json.Unmarshal(msg.Payload, &data)
			gs.handleJoinSession(c, data.SessionID, data.Name)
		case "startSession":
			var data startSessionPayload
			json.Unmarshal(msg.Payload, &data)
			gs.handleStartSession(c, data.SessionID)
		case "playerAction":
			var data playerActionPayload
			json.Unmarshal(msg.Payload, &data)
			gs.handlePlayerAction(c, data)
		default:
			c.Notify(errorPayload("Unknown message type."))
		}
	}
}

func (gs *GameServer) handleCreateSession(c *client, name string) {
	if c.session != nil {
		c.Notify(errorPayload("Already in a session."))
		return
	}
	if name == "" {
		c.Notify(errorPayload("A display name is required."))
		return
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := game.NewSession(gs.freshSessionID(), gs.cfg, rng, gs.gen)
	player, err := s.AddPlayer(name, c)
	if err != nil {
		c.Notify(errorPayload("Could not create session."))
		return
	}
	c.session = s
	c.playerID = player.ID

	gs.sessionsMu.Lock()
	gs.sessions[s.ID] = s
	gs.sessionsMu.Unlock()

	log.Printf("session %s created by %s", s.ID, name)
	c.Notify(game.Outbound{Type: "sessionCreated", Payload: map[string]string{"sessionId": s.ID}})
	s.BroadcastState()
}

func (gs *GameServer) handleJoinSession(c *client, sessionID, name string) {
	if c.session != nil {
		c.Notify(errorPayload("Already in a session."))
		return
	}
	if name == "" {
		c.Notify(errorPayload("A display name is required."))
		return
	}
	s := gs.getSession(sessionID)
	if s == nil {
		c.Notify(errorPayload("Session not found."))
		return
	}
	player, err := s.AddPlayer(name, c)
	if err != nil {
		c.Notify(errorPayload("Session not found or game already in progress."))
		return
	}
	c.session = s
	c.playerID = player.ID
	log.Printf("session %s: %s joined", s.ID, name)
	s.BroadcastState()
}

func (gs *GameServer) handleStartSession(c *client, sessionID string) {
	s := gs.getSession(sessionID)
	if s == nil || s != c.session {
		c.Notify(errorPayload("Session not found."))
		return
	}
	// StartGame blocks on the content generator; run it off the read loop
	// so the host's connection stays responsive.
	go func() {
		if err := s.StartGame(c.playerID); err != nil {
			log.Printf("session %s: start failed: %v", s.ID, err)
		}
	}()
}

func (gs *GameServer) handlePlayerAction(c *client, data playerActionPayload) {
	s := gs.getSession(data.SessionID)
	if s == nil || s != c.session {
		c.Notify(errorPayload("Session not found."))
		return
	}
	switch data.Action.Type {
	case "buy":
		var p buySellPayload
		json.Unmarshal(data.Action.Payload, &p)
		s.Buy(c.playerID, p.Item, p.Quantity)
	case "sell":
		var p buySellPayload
		json.Unmarshal(data.Action.Payload, &p)
		s.Sell(c.playerID, p.Item, p.Quantity)
	case "craft":
		var p craftPayload
		json.Unmarshal(data.Action.Payload, &p)
		s.Craft(c.playerID, p.ComponentName)
	case "build":
		s.Build(c.playerID)
	case "endTurn":
		s.EndTurn(c.playerID)
	case "offerTrade":
		var p offerTradePayload
		json.Unmarshal(data.Action.Payload, &p)
		s.OfferTrade(c.playerID, p.ToPlayerID, p.Offering, p.Requesting)
	case "resolveTrade":
		var p resolveTradePayload
		json.Unmarshal(data.Action.Payload, &p)
		s.ResolveTrade(c.playerID, p.TradeID, p.Accepted)
	default:
		c.Notify(game.Outbound{Type: "actionResult", Payload: game.Result{Message: "Unknown action."}})
	}
}

func (gs *GameServer) dropClient(c *client) {
	if c.session == nil {
		return
	}
	s := c.session
	c.session = nil
	if s.RemovePlayer(c.playerID) {
		gs.sessionsMu.Lock()
		delete(gs.sessions, s.ID)
		gs.sessionsMu.Unlock()
		s.Close()
		log.Printf("session %s is empty, deleting", s.ID)
	}
}

func (gs *GameServer) getSession(id string) *game.Session {
	if id == "" {
		return nil
	}
	gs.sessionsMu.RLock()
	defer gs.sessionsMu.RUnlock()
	return gs.sessions[id]
}

func (gs *GameServer) freshSessionID() string {
	for {
		id := sessionCode(6)
		gs.sessionsMu.RLock()
		_, taken := gs.sessions[id]
		gs.sessionsMu.RUnlock()
		if !taken {
			return id
		}
	}
}

func sessionCode(n int) string {
	letters := []rune("ABCDEFGHJKMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

func errorPayload(message string) game.Outbound {
	return game.Outbound{Type: "sessionError", Payload: map[string]string{"message": message}}
}
