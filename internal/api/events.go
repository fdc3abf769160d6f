package api

import (
	"encoding/json"
	"net/http"
	"time"

	"farmlink/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Callers are already authenticated by token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// authEvents streams the caller's auth events as JSON text frames, starting
// with INITIAL_SESSION.
func (s *Server) authEvents(c *gin.Context) {
	actor := actorFrom(c)
	identity, err := s.deps.Auth.Identity(c.Request.Context(), actor.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := s.deps.Auth.Events().Subscribe(actor.UserID)
	stream := &eventStream{
		conn:   conn,
		events: events,
		done:   make(chan struct{}),
		logger: s.logger.With(zap.String("user_id", actor.UserID)),
	}
	s.logger.Debug("auth event stream opened", zap.String("user_id", actor.UserID))

	go stream.readPump()
	stream.writePump(models.AuthEvent{Type: models.AuthInitial, Identity: identity})
	cancel()
}

type eventStream struct {
	conn   *websocket.Conn
	events <-chan models.AuthEvent
	done   chan struct{}
	logger *zap.Logger
}

// readPump only services control frames; it closes done when the peer goes away.
func (e *eventStream) readPump() {
	defer close(e.done)

	e.conn.SetReadLimit(readLimit)
	e.conn.SetReadDeadline(time.Now().Add(pongWait))
	e.conn.SetPongHandler(func(string) error {
		e.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := e.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				e.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (e *eventStream) writePump(initial models.AuthEvent) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		e.conn.Close()
	}()

	if err := e.write(initial); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-e.events:
			if !ok {
				e.conn.SetWriteDeadline(time.Now().Add(writeWait))
				e.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := e.write(ev); err != nil {
				return
			}
		case <-ticker.C:
			e.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := e.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-e.done:
			return
		}
	}
}

// write never puts an access token on the wire.
func (e *eventStream) write(ev models.AuthEvent) error {
	if ev.Identity != nil && ev.Identity.Token != "" {
		identity := *ev.Identity
		identity.Token = ""
		ev.Identity = &identity
	}
	data, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error("failed to encode auth event", zap.Error(err))
		return err
	}
	e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return e.conn.WriteMessage(websocket.TextMessage, data)
}
