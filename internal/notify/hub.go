package notify

import (
	model "bulk-auction/internal/models"
	"bulk-auction/utils"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub streams listing events to websocket watchers
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*watcher]struct{} // key: listingID
}

type watcher struct {
	id        string
	listingID string
	conn      *websocket.Conn
	send      chan []byte
	once      sync.Once
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{watchers: make(map[string]map[*watcher]struct{})}
}

// Dispatch sends the event to everyone watching its listing.
// A watcher whose buffer is full is dropped.
func (h *Hub) Dispatch(_ context.Context, event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: failed to encode event %s: %w", event.EventID, err)
	}

	h.mu.RLock()
	var slow []*watcher
	for w := range h.watchers[event.ListingID] {
		select {
		case w.send <- payload:
		default:
			slow = append(slow, w)
		}
	}
	h.mu.RUnlock()

	for _, w := range slow {
		h.remove(w)
	}
	return nil
}

// Watchers returns the number of connections watching a listing
func (h *Hub) Watchers(listingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[listingID])
}

// ServeListing upgrades the request and streams the listing's events until the peer disconnects
func (h *Hub) ServeListing(w http.ResponseWriter, r *http.Request, listingID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("notify: failed to upgrade connection: %w", err)
	}

	wt := &watcher{
		id:        utils.GenerateID(),
		listingID: listingID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}
	h.add(wt)

	go h.writePump(wt)
	h.readPump(wt)
	return nil
}

func (h *Hub) add(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.watchers[w.listingID]
	if !ok {
		set = make(map[*watcher]struct{})
		h.watchers[w.listingID] = set
	}
	set[w] = struct{}{}

	utils.Debug("Hub: watcher joined", map[string]any{"watcherID": w.id, "listingID": w.listingID})
}

func (h *Hub) remove(w *watcher) {
	w.once.Do(func() {
		h.mu.Lock()
		if set, ok := h.watchers[w.listingID]; ok {
			delete(set, w)
			if len(set) == 0 {
				delete(h.watchers, w.listingID)
			}
		}
		h.mu.Unlock()

		close(w.send)
		utils.Debug("Hub: watcher left", map[string]any{"watcherID": w.id, "listingID": w.listingID})
	})
}

func (h *Hub) writePump(w *watcher) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(w)
				return
			}
		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(w)
				return
			}
		}
	}
}

// readPump only watches for disconnects; watchers do not send anything
func (h *Hub) readPump(w *watcher) {
	defer h.remove(w)

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.Warn("Hub: unexpected close", map[string]any{"watcherID": w.id, "error": err.Error()})
			}
			return
		}
	}
}
