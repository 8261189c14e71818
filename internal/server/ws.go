package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/enmanuelbasulto/fop2-clone/internal/auth"
	"github.com/enmanuelbasulto/fop2-clone/internal/commands"
	"github.com/enmanuelbasulto/fop2-clone/internal/models"
	"github.com/enmanuelbasulto/fop2-clone/internal/sessions"
	"github.com/enmanuelbasulto/fop2-clone/internal/state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The panel is same-origin in production deployments; cross-origin
	// checks are delegated to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades HTTP requests to panel sessions and drives the
// per-connection read loop.
type WSHandler struct {
	registry *sessions.Registry
	provider auth.Provider
	router   *commands.Router
	store    *state.Store
	logger   *log.Logger
}

func NewWSHandler(registry *sessions.Registry, provider auth.Provider, router *commands.Router, store *state.Store, logger *log.Logger) *WSHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WSHandler{
		registry: registry,
		provider: provider,
		router:   router,
		store:    store,
		logger:   logger,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws: upgrade failed: %v", err)
		return
	}

	transportID := uuid.NewString()
	conn := newWSConn(ws, h.logger)
	sess := h.registry.Register(transportID, r.RemoteAddr, conn)
	h.logger.Printf("ws: session %s connected from %s", sess.ID, r.RemoteAddr)

	defer func() {
		h.registry.Remove(transportID)
		conn.Close(websocket.CloseNormalClosure, "")
		ws.Close()
		h.logger.Printf("ws: session %s disconnected", sess.ID)
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("ws: session %s read error: %v", sess.ID, err)
			}
			return
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.Send(models.ErrorMsg{Type: models.TypeError, Message: "Invalid message format"})
			continue
		}

		if msg.Action == models.ActionAuthenticate {
			h.authenticate(r.Context(), sess, conn, msg)
			continue
		}
		h.router.Handle(sess, msg)
	}
}

func (h *WSHandler) authenticate(ctx context.Context, sess *sessions.Session, conn *wsConn, msg models.ClientMessage) {
	user, err := h.provider.Authenticate(ctx, msg.Extension, msg.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) && !errors.Is(err, auth.ErrUserNotFound) {
			h.logger.Printf("ws: authenticate %s: %v", msg.Extension, err)
		}
		conn.Send(models.AuthFailedMsg{Type: models.TypeAuthFailed, Message: "Invalid credentials"})
		conn.Close(websocket.ClosePolicyViolation, "authentication failed")
		return
	}

	if err := h.registry.Authenticate(sess, user.Extension, user.Name); err != nil {
		conn.Send(models.ErrorMsg{Type: models.TypeError, Message: "Already authenticated"})
		return
	}

	conn.Send(models.AuthSuccessMsg{
		Type: models.TypeAuthSuccess,
		User: models.AuthUser{Extension: user.Extension, Name: user.Name},
	})
	h.sendInitialState(conn)
	h.logger.Printf("ws: session %s authenticated as %s (%s)", sess.ID, user.Extension, user.Name)
}

// sendInitialState replays current extension and queue state to a freshly
// authenticated session so its panel renders without waiting for live events.
func (h *WSHandler) sendInitialState(conn *wsConn) {
	for _, ext := range h.store.Extensions() {
		conn.Send(models.ExtensionStatusMsg{
			Type:      models.TypeExtensionStatus,
			Extension: ext.ID,
			Status:    string(ext.Status),
		})
	}
	for _, qv := range h.store.Queues() {
		conn.Send(models.QueueStatusMsg{
			Type:      models.TypeQueueStatus,
			Queue:     qv.Queue.Name,
			Members:   len(qv.Agents),
			Calls:     qv.Queue.CallsWaiting,
			Completed: qv.Queue.CallsAnswered,
		})
		for _, m := range qv.Agents {
			conn.Send(models.QueueMemberMsg{
				Type:       models.TypeQueueMember,
				Queue:      qv.Queue.Name,
				Member:     m.Name,
				Status:     m.Status,
				Paused:     m.Paused,
				CallsTaken: m.CallsTaken,
			})
		}
	}
}

// CloseAll terminates every connected session with a going-away close frame.
// Used during graceful shutdown.
func (h *WSHandler) CloseAll(_ context.Context, reason string) {
	for _, sess := range h.registry.All() {
		sess.Close(websocket.CloseGoingAway, reason)
	}
}
