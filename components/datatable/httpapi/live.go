package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	datatable "github.com/goliatone/go-datatable/components/datatable"
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveMessage is what a live client sends while the user types.
type liveMessage struct {
	Term string `json:"term"`
}

// live streams the viewer's table over a websocket. Incoming terms go through
// the debounced search so only the last term of a typing burst is applied;
// every resulting render is written back as JSON.
func (h *Handlers) live(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := h.viewer(r)
	table := r.PathValue("table")

	render, err := h.Service.Table(ctx, viewer, table)
	if err != nil {
		writeResponse(w, ErrorResponse(err))
		return
	}
	updates := make(chan datatable.TableRender, 1)
	cancel, err := h.Service.Watch(ctx, viewer, table, func(render datatable.TableRender) {
		// keep only the newest render for a slow client
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- render:
		default:
		}
	})
	if err != nil {
		writeResponse(w, ErrorResponse(err))
		return
	}
	defer cancel()

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	if err := conn.WriteJSON(render); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg liveMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if err := h.Service.SearchDebounced(ctx, viewer, table, msg.Term); err != nil {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()), time.Now().Add(time.Second))
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case render := <-updates:
			if err := conn.WriteJSON(render); err != nil {
				return
			}
		}
	}
}
