package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
)

// gateway opcodes
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opResume         = 6
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

const (
	IntentGuilds                = 1 << 0
	IntentGuildMessageReactions = 1 << 10
)

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// GatewayCallbacks holds the dispatch handlers for the event types the
// daemon consumes. Handler errors are logged, never fatal to the connection.
type GatewayCallbacks struct {
	Ready          func(user User) error
	ReactionAdd    func(evt *ReactionEvent) error
	ReactionRemove func(evt *ReactionEvent) error
}

// Gateway maintains a Discord gateway websocket subscription: identify,
// heartbeat, dispatch, and reconnect-with-resume on connection loss.
type Gateway struct {
	Logger    *slog.Logger
	Token     string
	URL       string
	Intents   int
	Callbacks GatewayCallbacks

	writeLk   sync.Mutex
	conn      *websocket.Conn
	seq       atomic.Int64
	sessionID string
}

func (g *Gateway) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Run connects and consumes events until ctx is cancelled, reconnecting with
// exponential backoff on connection loss.
func (g *Gateway) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		start := time.Now()
		err := g.runConnection(ctx)
		if ctx.Err() != nil {
			g.logger().Info("gateway shutting down")
			return nil
		}
		// a connection which lived a while earns a fresh backoff
		if time.Since(start) > time.Minute {
			backoff = time.Second
		}
		g.logger().Warn("gateway connection ended, reconnecting", "err", err, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}
		if backoff < 60*time.Second {
			backoff *= 2
		}
	}
}

func (g *Gateway) runConnection(ctx context.Context) error {
	dialer := websocket.DefaultDialer
	u := g.URL + "/?v=10&encoding=json"
	g.logger().Info("subscribing to gateway event stream", "upstream", g.URL, "resume", g.sessionID != "")
	conn, _, err := dialer.DialContext(ctx, u, http.Header{
		"User-Agent": []string{fmt.Sprintf("alertium/%s", versioninfo.Short())},
	})
	if err != nil {
		return fmt.Errorf("subscribing to gateway failed (dialing): %w", err)
	}
	g.setConn(conn)
	defer conn.Close()

	// the server speaks first: HELLO carries the heartbeat interval
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("reading gateway hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected gateway hello, got op=%d", hello.Op)
	}
	var helloBody struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloBody); err != nil {
		return fmt.Errorf("parsing gateway hello: %w", err)
	}

	if g.sessionID != "" {
		err = g.sendResume()
	} else {
		err = g.sendIdentify()
	}
	if err != nil {
		return err
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go g.runHeartbeat(hbCtx, time.Duration(helloBody.HeartbeatInterval)*time.Millisecond)

	for {
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return fmt.Errorf("gateway read failed: %w", err)
		}
		if payload.S != nil {
			g.seq.Store(*payload.S)
		}
		switch payload.Op {
		case opDispatch:
			g.handleDispatch(payload.T, payload.D)
		case opHeartbeat:
			// server requested an immediate heartbeat
			if err := g.sendHeartbeat(); err != nil {
				return err
			}
		case opReconnect:
			return fmt.Errorf("gateway requested reconnect")
		case opInvalidSession:
			// session can't be resumed; start a fresh one on reconnect
			g.sessionID = ""
			return fmt.Errorf("gateway session invalidated")
		case opHeartbeatACK:
			// nothing to do
		default:
			g.logger().Debug("unhandled gateway opcode", "op", payload.Op)
		}
	}
}

func (g *Gateway) handleDispatch(t string, data json.RawMessage) {
	switch t {
	case "READY":
		var body struct {
			SessionID string `json:"session_id"`
			User      User   `json:"user"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			g.logger().Error("parsing gateway ready", "err", err)
			return
		}
		g.sessionID = body.SessionID
		g.logger().Info("gateway session ready", "user", body.User.ID)
		if g.Callbacks.Ready != nil {
			if err := g.Callbacks.Ready(body.User); err != nil {
				g.logger().Error("ready handler failed", "err", err)
			}
		}
	case "RESUMED":
		g.logger().Info("gateway session resumed")
	case "MESSAGE_REACTION_ADD":
		evt, err := decodeReactionEvent(data)
		if err != nil {
			g.logger().Error("parsing reaction add event", "err", err)
			return
		}
		if g.Callbacks.ReactionAdd != nil {
			if err := g.Callbacks.ReactionAdd(evt); err != nil {
				g.logger().Error("reaction add handler failed", "message", evt.MessageID, "user", evt.UserID, "err", err)
			}
		}
	case "MESSAGE_REACTION_REMOVE":
		evt, err := decodeReactionEvent(data)
		if err != nil {
			g.logger().Error("parsing reaction remove event", "err", err)
			return
		}
		if g.Callbacks.ReactionRemove != nil {
			if err := g.Callbacks.ReactionRemove(evt); err != nil {
				g.logger().Error("reaction remove handler failed", "message", evt.MessageID, "user", evt.UserID, "err", err)
			}
		}
	}
}

func decodeReactionEvent(data json.RawMessage) (*ReactionEvent, error) {
	var evt ReactionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// setConn swaps the active connection under the write lock: a heartbeat
// goroutine left over from the previous connection may still be inside
// writeJSON when a reconnect lands.
func (g *Gateway) setConn(conn *websocket.Conn) {
	g.writeLk.Lock()
	g.conn = conn
	g.writeLk.Unlock()
}

func (g *Gateway) writeJSON(v any) error {
	g.writeLk.Lock()
	defer g.writeLk.Unlock()
	return g.conn.WriteJSON(v)
}

func (g *Gateway) sendIdentify() error {
	d, err := json.Marshal(map[string]any{
		"token":   g.Token,
		"intents": g.Intents,
		"properties": map[string]string{
			"os":      "linux",
			"browser": "alertium",
			"device":  "alertium",
		},
	})
	if err != nil {
		return err
	}
	return g.writeJSON(gatewayPayload{Op: opIdentify, D: d})
}

func (g *Gateway) sendResume() error {
	d, err := json.Marshal(map[string]any{
		"token":      g.Token,
		"session_id": g.sessionID,
		"seq":        g.seq.Load(),
	})
	if err != nil {
		return err
	}
	return g.writeJSON(gatewayPayload{Op: opResume, D: d})
}

func (g *Gateway) sendHeartbeat() error {
	seq := g.seq.Load()
	d, err := json.Marshal(seq)
	if err != nil {
		return err
	}
	return g.writeJSON(gatewayPayload{Op: opHeartbeat, D: d})
}

func (g *Gateway) runHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := g.sendHeartbeat(); err != nil {
				g.logger().Warn("gateway heartbeat failed", "err", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
