package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"retailsync/internal/platform/notify"
)

const eventWriteTimeout = 10 * time.Second

// EventsHandler streams data change notifications over a websocket.
type EventsHandler struct {
	hub            *notify.Hub
	originPatterns []string
}

func NewEventsHandler(hub *notify.Hub, originPatterns []string) *EventsHandler {
	return &EventsHandler{hub: hub, originPatterns: originPatterns}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		log.Warn().Err(err).Msg("websocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	changes, cancel := h.hub.Subscribe()
	defer cancel()

	log.Debug().Str("remote", r.RemoteAddr).Msg("change feed subscriber connected")
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case change, ok := <-changes:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "")
				return
			}
			if err := writeChange(ctx, conn, change); err != nil {
				log.Debug().Err(err).Msg("change feed subscriber dropped")
				return
			}
		}
	}
}

func writeChange(ctx context.Context, conn *websocket.Conn, change notify.Change) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, change)
}
