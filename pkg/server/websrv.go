package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystal-mush/riftcore/pkg/boltstore"
	"github.com/crystal-mush/riftcore/pkg/events"
	"github.com/crystal-mush/riftcore/pkg/packets"
	"github.com/crystal-mush/riftcore/pkg/world"
)

const (
	wsWriteWait     = 5 * time.Second
	wsPingPeriod    = 30 * time.Second
	wsReadLimit     = 4096
	wsSendBuffer    = 256
	joinTimeout     = 5 * time.Second
	defaultChampion = "Champion"
)

// WebServer is the HTTP/WebSocket transport in front of a Game.
type WebServer struct {
	game     *Game
	conf     *Conf
	auth     *AuthService
	rl       *rateLimiter
	mux      *http.ServeMux
	httpSrv  *http.Server
	upgrader websocket.Upgrader
	started  time.Time
}

// NewWebServer creates a web server bound to the game.
func NewWebServer(game *Game, auth *AuthService) *WebServer {
	conf := game.Conf
	ws := &WebServer{
		game:    game,
		conf:    conf,
		auth:    auth,
		rl:      newRateLimiter(conf.RateLimit),
		mux:     http.NewServeMux(),
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(conf.CORSOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range conf.CORSOrigins {
					if strings.EqualFold(o, origin) {
						return true
					}
				}
				return false
			},
		},
	}

	ws.mux.Handle("GET /ws", requireAuth(auth, http.HandlerFunc(ws.handleWebSocket)))
	ws.mux.HandleFunc("POST /api/v1/auth/login", ws.handleAuthLogin)
	ws.mux.HandleFunc("POST /api/v1/auth/register", ws.handleAuthRegister)
	ws.mux.HandleFunc("POST /api/v1/auth/guest", ws.handleAuthGuest)
	ws.mux.HandleFunc("POST /api/v1/auth/refresh", ws.handleAuthRefresh)
	ws.mux.Handle("GET /api/v1/players", requireAuth(auth, http.HandlerFunc(ws.handlePlayers)))
	ws.mux.Handle("GET /api/v1/matches", requireAuth(auth, http.HandlerFunc(ws.handleMatches)))
	ws.mux.Handle("GET /api/v1/replay", requireAuth(auth, http.HandlerFunc(ws.handleReplay)))
	ws.mux.HandleFunc("GET /health", ws.handleHealth)
	ws.mux.Handle("GET /metrics", game.Metrics.Handler())

	handler := rateLimitMiddleware(ws.rl, ws.mux)
	handler = corsMiddleware(conf.CORSOrigins, handler)
	ws.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.WebHost, conf.WebPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws
}

// Handler returns the root handler with middleware applied.
func (ws *WebServer) Handler() http.Handler { return ws.httpSrv.Handler }

// Start listens until Stop is called. HTTPS is used when TLS is configured
// and set up successfully, plain HTTP otherwise.
func (ws *WebServer) Start() error {
	setup, err := SetupTLS(ws.conf)
	if err != nil {
		log.Printf("WEB: TLS setup failed (%v), falling back to HTTP", err)
		setup = nil
	}
	if setup != nil {
		ws.httpSrv.TLSConfig = setup.Config
		if setup.Manager != nil {
			go func() {
				acme := &http.Server{Addr: ":80", Handler: setup.Manager.HTTPHandler(nil)}
				if err := acme.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Printf("WEB: ACME listener error: %v", err)
				}
			}()
		}
		log.Printf("WEB: listening on %s (HTTPS)", ws.httpSrv.Addr)
		err = ws.httpSrv.ListenAndServeTLS("", "")
	} else {
		log.Printf("WEB: listening on %s (HTTP)", ws.httpSrv.Addr)
		err = ws.httpSrv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the web server.
func (ws *WebServer) Stop(ctx context.Context) error {
	return ws.httpSrv.Shutdown(ctx)
}

// sweepLoop expires rate limiter windows until ctx is done.
func (ws *WebServer) sweepLoop(ctx context.Context) error {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			ws.rl.sweep(now)
		}
	}
}

// --- WebSocket ---

// WSMessage is the JSON envelope used on the websocket in both directions.
// Binary websocket messages carry raw packet frames instead.
type WSMessage struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	Source uint32         `json:"source,omitempty"`
}

type wsFrame struct {
	kind int
	data []byte
}

// wsClient is one websocket session. It implements events.Subscriber; the
// simulation goroutine only ever does a non-blocking channel send to it.
type wsClient struct {
	conn *websocket.Conn
	name string
	send chan wsFrame
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	dropped int
}

func newWSClient(conn *websocket.Conn, name string) *wsClient {
	return &wsClient{
		conn: conn,
		name: name,
		send: make(chan wsFrame, wsSendBuffer),
		done: make(chan struct{}),
	}
}

// Receive implements events.Subscriber.
func (c *wsClient) Receive(ev events.Event) {
	if ev.Type == events.EvRaw {
		c.enqueue(wsFrame{kind: websocket.BinaryMessage, data: ev.Raw})
		return
	}
	b, err := json.Marshal(WSMessage{
		Type:   ev.Type.String(),
		Text:   ev.Text,
		Data:   ev.Data,
		Source: uint32(ev.Source),
	})
	if err != nil {
		log.Printf("WEB: encode %s for %s: %v", ev.Type, c.name, err)
		return
	}
	c.enqueue(wsFrame{kind: websocket.TextMessage, data: b})
}

// Closed implements events.Subscriber.
func (c *wsClient) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *wsClient) sendJSON(msg WSMessage) {
	b, _ := json.Marshal(msg)
	c.enqueue(wsFrame{kind: websocket.TextMessage, data: b})
}

// enqueue never blocks. A client that cannot keep up loses messages.
func (c *wsClient) enqueue(f wsFrame) {
	select {
	case <-c.done:
	case c.send <- f:
	default:
		c.mu.Lock()
		c.dropped++
		n := c.dropped
		c.mu.Unlock()
		if n == 1 || n%100 == 0 {
			log.Printf("WEB: %s is not keeping up, %d messages dropped", c.name, n)
		}
	}
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// writer owns all writes to the connection.
func (c *wsClient) writer() {
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// handleWebSocket upgrades an authenticated request and joins the player
// to the match.
func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WEB: websocket upgrade error: %v", err)
		return
	}
	c := newWSClient(conn, claims.Account)
	go c.writer()

	champion := claims.Champion
	if champion == "" {
		champion = defaultChampion
	}
	ctx, cancel := context.WithTimeout(r.Context(), joinTimeout)
	res, err := ws.game.RequestJoin(ctx, claims.Account, claims.Team, champion, claims.Admin, c)
	cancel()
	if err != nil {
		log.Printf("WEB: %s could not join: %v", claims.Account, err)
		c.sendJSON(WSMessage{Type: "error", Text: "Match is not accepting players."})
		c.close()
		return
	}
	log.Printf("WEB: %s connected from %s as %s", claims.Account, r.RemoteAddr, res.Client)
	c.sendJSON(WSMessage{
		Type: "welcome",
		Data: map[string]any{
			"client":   string(res.Client),
			"team":     res.Team.String(),
			"champion": uint32(res.Champion),
		},
	})

	ws.readLoop(c, res.Client)
}

func (ws *WebServer) readLoop(c *wsClient, id world.ClientID) {
	defer func() {
		ws.game.RequestLeave(id, c)
		c.close()
		log.Printf("WEB: %s disconnected", c.name)
	}()

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(2 * wsPingPeriod))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * wsPingPeriod))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WEB: %s read error: %v", c.name, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(2 * wsPingPeriod))

		if kind == websocket.BinaryMessage {
			ws.game.Enqueue(id, data)
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendJSON(WSMessage{Type: "error", Text: "Invalid JSON message"})
			continue
		}
		switch msg.Type {
		case "chat":
			ws.game.Enqueue(id, packets.EncodeFrame(packets.CmdChatBoxMessage, packets.ChannelChat, []byte(msg.Text)))
		case "pause":
			ws.game.Enqueue(id, packets.EncodeFrame(packets.CmdPauseGame, packets.ChannelC2S, nil))
		case "unpause":
			ws.game.Enqueue(id, packets.EncodeFrame(packets.CmdUnpauseGame, packets.ChannelC2S, nil))
		default:
			c.sendJSON(WSMessage{Type: "error", Text: fmt.Sprintf("Unknown message type: %s", msg.Type)})
		}
	}
}

// --- HTTP API ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type authRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Team     string `json:"team"`
	Champion string `json:"champion"`
}

func decodeAuth(w http.ResponseWriter, r *http.Request) (*authRequest, bool) {
	var req authRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return &req, true
}

func (ws *WebServer) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuth(w, r)
	if !ok {
		return
	}
	token, err := ws.auth.Login(req.Name, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (ws *WebServer) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuth(w, r)
	if !ok {
		return
	}
	token, err := ws.auth.Register(req.Name, req.Password, parseTeam(req.Team), req.Champion)
	switch {
	case errors.Is(err, boltstore.ErrAccountExists):
		writeError(w, http.StatusConflict, "account exists")
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"token": token})
	}
}

func (ws *WebServer) handleAuthGuest(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuth(w, r)
	if !ok {
		return
	}
	token, err := ws.auth.Guest(req.Name, parseTeam(req.Team), req.Champion)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (ws *WebServer) handleAuthRefresh(w http.ResponseWriter, r *http.Request) {
	tok := bearerToken(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	newToken, err := ws.auth.RefreshToken(tok)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": newToken})
}

type playerView struct {
	Client string `json:"client"`
	Name   string `json:"name"`
	Team   string `json:"team"`
	Admin  bool   `json:"admin,omitempty"`
}

func (ws *WebServer) handlePlayers(w http.ResponseWriter, r *http.Request) {
	peers := ws.game.Players.Peers()
	out := make([]playerView, 0, len(peers))
	for _, p := range peers {
		out = append(out, playerView{Client: string(p.ID), Name: p.Name, Team: p.Team.String(), Admin: p.Admin})
	}
	writeJSON(w, http.StatusOK, out)
}

func (ws *WebServer) handleMatches(w http.ResponseWriter, r *http.Request) {
	if ws.game.Store == nil {
		writeJSON(w, http.StatusOK, []*boltstore.MatchRecord{})
		return
	}
	matches, err := ws.game.Store.Matches()
	if err != nil {
		log.Printf("WEB: listing matches: %v", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (ws *WebServer) handleReplay(w http.ResponseWriter, r *http.Request) {
	if c := ClaimsFromContext(r.Context()); c == nil || !c.Admin {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	if ws.game.Replay == nil {
		writeError(w, http.StatusNotFound, "replay logging is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := ws.game.Replay.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("WEB: reading replay: %v", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        Version,
		"match":          ws.conf.MatchName,
		"players":        ws.game.Players.Count(),
		"paused":         ws.game.IsPaused(),
		"ticks":          ws.game.Ticks(),
		"uptime_seconds": time.Since(ws.started).Seconds(),
	})
}
