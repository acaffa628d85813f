package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/pkg/httpx"
	"github.com/aussiebroadwan/folio/pkg/slogx"
	"github.com/gorilla/websocket"
)

const (
	eventsWriteWait    = 10 * time.Second
	eventsPingInterval = 30 * time.Second
	eventsBuffer       = 8
)

// EventsHandler streams a draft's view over a websocket after every change,
// starting with the current view. Slow readers skip intermediate views; the
// draft version tells the UI which one is newest.
type EventsHandler struct {
	Wizard       *service.WizardService
	Upgrader     websocket.Upgrader
	PingInterval time.Duration

	// Done ends every open stream with a going-away close frame. The
	// server's Shutdown does not wait for hijacked connections.
	Done <-chan struct{}
}

// ServeHTTP handles GET /v1/drafts/{id}/events
//
//	@Summary		Stream draft updates
//	@Description	Websocket. Each text frame is a JSON view of the draft. Browsers may pass the token as access_token.
//	@Tags			Drafts
//	@Security		BearerAuth
//	@Param			id				path	string	true	"Draft ID"
//	@Param			access_token	query	string	false	"Bearer token for browser clients"
//	@Success		101
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		404	{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/events [get].
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	select {
	case <-h.Done:
		httpx.WriteError(w, http.StatusServiceUnavailable, httpx.ErrorBody{
			Kind:    "transient",
			Message: "The server is restarting. Please reconnect shortly.",
		})
		return
	default:
	}

	views := make(chan service.View, eventsBuffer)
	cancel, err := h.Wizard.Subscribe(ctx, caller(r), id, func(v service.View) {
		offerLatest(views, v)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()
	log.Info("draft stream opened", "session_id", id)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := h.PingInterval
	if interval <= 0 {
		interval = eventsPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case v := <-views:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteJSON(v); err != nil {
				log.Debug("draft stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
		case <-closed:
			log.Info("draft stream closed", "session_id", id)
			return
		case <-h.Done:
			log.Info("draft stream closed for shutdown", "session_id", id)
			goingAway(conn)
			return
		case <-ctx.Done():
			goingAway(conn)
			return
		}
	}
}

func goingAway(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(eventsWriteWait))
}

// offerLatest never blocks the publisher: when the buffer is full the
// oldest queued view is dropped.
func offerLatest(ch chan service.View, v service.View) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
