package signal

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mesh/internal/app/orch"
	"github.com/dkeye/Mesh/internal/core"
)

const usernameKey = "username"

// Limits tunes one signaling connection.
type Limits struct {
	ReadLimit  int64
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func DefaultLimits() Limits {
	return Limits{
		ReadLimit:  64 * 1024,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 64,
	}
}

type SignalWSController struct {
	Orch   *orch.Orchestrator
	Limits Limits
	// AllowOrigin vets the Origin header of browser upgrades. Nil admits
	// every origin. Requests without an Origin header are not from a
	// browser and always pass.
	AllowOrigin func(origin string) bool

	upgrader websocket.Upgrader
}

// NewSignalWSController fills unset limits from DefaultLimits.
func NewSignalWSController(o *orch.Orchestrator, limits Limits) *SignalWSController {
	def := DefaultLimits()
	if limits.ReadLimit <= 0 {
		limits.ReadLimit = def.ReadLimit
	}
	if limits.PongWait <= 0 {
		limits.PongWait = def.PongWait
	}
	if limits.PingPeriod <= 0 || limits.PingPeriod >= limits.PongWait {
		limits.PingPeriod = limits.PongWait * 9 / 10
	}
	if limits.WriteWait <= 0 {
		limits.WriteWait = def.WriteWait
	}
	if limits.SendBuffer <= 0 {
		limits.SendBuffer = def.SendBuffer
	}
	ctl := &SignalWSController{Orch: o, Limits: limits}
	ctl.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     ctl.checkOrigin,
	}
	return ctl
}

func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || ctl.AllowOrigin == nil {
		return true
	}
	if ctl.AllowOrigin(origin) {
		return true
	}
	log.Warn().Str("module", "signal").Str("origin", origin).Msg("ws origin rejected")
	return false
}

// WsSignalConn is the outbound side of one WebSocket. Frames are queued and
// written by writePump; Close stops accepting frames and lets the pump
// flush what is queued before closing the socket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	username := rememberUsername(c)

	// The header carries the session cookie set above.
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, c.Writer.Header())
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.Limits.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	sess := ctl.Orch.Connect(conn, username, cancel)
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("remote", c.ClientIP()).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}

// rememberUsername prefers the username query parameter and stores it in the
// cookie session; without one it falls back to the stored name.
func rememberUsername(c *gin.Context) string {
	s := sessions.Default(c)
	if name := strings.TrimSpace(c.Query("username")); name != "" {
		s.Set(usernameKey, name)
		if err := s.Save(); err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("save session")
		}
		return name
	}
	if name, ok := s.Get(usernameKey).(string); ok {
		return name
	}
	return ""
}
