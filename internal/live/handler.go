package live

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
	httperrors "github.com/gokatarajesh/lightning-rounds/pkg/http/errors"
	ws "github.com/gokatarajesh/lightning-rounds/pkg/http/ws"
)

type summarizer interface {
	Summarize(ctx context.Context) (question.Summary, error)
}

// Handler upgrades viewers to WebSocket and streams summary updates to them.
type Handler struct {
	hub       *ws.Hub
	summaries summarizer
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

// NewHandler builds the /ws endpoint. An empty allowedOrigins list, or one
// containing "*", accepts any origin.
func NewHandler(hub *ws.Hub, summaries summarizer, allowedOrigins []string, logger zerolog.Logger) *Handler {
	h := &Handler{
		hub:       hub,
		summaries: summaries,
		logger:    logger.With().Str("component", "live_ws").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := ws.NewConnection(conn, h.logger)
	id := h.hub.Register(c)
	go c.WritePump()

	h.sendSnapshot(r.Context(), c)

	c.ReadPump(func(msg ws.Message) error {
		if msg.Type == ws.TypePing {
			return c.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		}
		errMsg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code:    "unknown_message_type",
			Message: "only ping is accepted",
		})
		if err != nil {
			return err
		}
		errMsg.RequestID = msg.RequestID
		return c.Send(errMsg)
	})

	h.hub.Unregister(id)
}

func (h *Handler) sendSnapshot(ctx context.Context, c *ws.Connection) {
	summary, err := h.summaries.Summarize(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("initial summary failed")
		return
	}
	msg, err := ws.NewMessage(ws.TypeSummaryUpdate, summary)
	if err != nil {
		return
	}
	if err := c.Send(msg); err != nil {
		h.logger.Warn().Err(err).Msg("initial summary send failed")
	}
}
