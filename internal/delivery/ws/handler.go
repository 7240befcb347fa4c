// Package ws streams lobby updates to websocket clients.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/vogiaan1904/lobbydraft/internal/delivery"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	pkgErrors "github.com/vogiaan1904/lobbydraft/pkg/errors"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
	"github.com/vogiaan1904/lobbydraft/pkg/response"
)

const (
	Subprotocol  = "lobbydraft.v1"
	writeTimeout = 5 * time.Second
)

type Subscriber interface {
	Subscribe(ctx context.Context, lobbyID string) (<-chan models.LobbyUpdateEvent, error)
}

type LobbyReader interface {
	GetByID(ctx context.Context, lobbyID string) (*service.LobbyOutput, error)
}

// Message is one frame sent to the client. The first frame is always a
// snapshot; updates follow as they are published.
type Message struct {
	Type   string                   `json:"type"`
	Lobby  *service.LobbyOutput     `json:"lobby,omitempty"`
	Update *models.LobbyUpdateEvent `json:"update,omitempty"`
}

type Handler struct {
	updates Subscriber
	lobbies LobbyReader
	l       logger.Logger
	origins []string
}

func NewHandler(updates Subscriber, lobbies LobbyReader, l logger.Logger, origins ...string) *Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		updates: updates,
		lobbies: lobbies,
		l:       l,
		origins: origins,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lobbyID := chi.URLParam(r, "id")
	ctx := h.l.With(r.Context(), "lobby_id", lobbyID)

	snapshot, err := h.lobbies.GetByID(ctx, lobbyID)
	if err != nil {
		b, kind := delivery.Classify(err)
		status := http.StatusInternalServerError
		if kind == delivery.KindNotFound {
			status = http.StatusNotFound
		}
		response.WriteError(w, pkgErrors.NewHTTPError(b, status))
		return
	}

	// The server's read/write timeouts are meant for plain requests.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.l.Warnf(ctx, "delivery.ws.ServeHTTP: accept: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "feed stopped")

	// The feed is one-way; CloseRead discards client frames and cancels ctx
	// when the client goes away.
	ctx = c.CloseRead(ctx)

	events, err := h.updates.Subscribe(ctx, lobbyID)
	if err != nil {
		h.l.Errorf(ctx, "delivery.ws.ServeHTTP: subscribe: %v", err)
		c.Close(websocket.StatusTryAgainLater, "updates unavailable")
		return
	}

	if err := h.write(ctx, c, Message{Type: "snapshot", Lobby: snapshot}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				c.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			if err := h.write(ctx, c, Message{Type: "update", Update: &evt}); err != nil {
				return
			}
			if evt.UpdateType == models.UpdateTypeLobbyClosed {
				c.Close(websocket.StatusNormalClosure, "lobby closed")
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, c *websocket.Conn, m Message) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := wsjson.Write(wctx, c, m); err != nil {
		if !errors.Is(err, context.Canceled) {
			h.l.Warnf(ctx, "delivery.ws.write: %v", err)
		}
		return err
	}
	return nil
}
