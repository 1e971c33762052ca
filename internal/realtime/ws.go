package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/monitoring"
	"carshop-display-backend/internal/slots"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is what TV views and the dashboard receive over the socket.
type Message struct {
	Event    string               `json:"event"`
	ScreenID string               `json:"screen_id,omitempty"`
	Payload  *model.ScreenPayload `json:"payload,omitempty"`
	Table    *slots.Table         `json:"table,omitempty"`
}

// MarshalJSON keeps "payload": null on screen updates so a TV view knows to show standby.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Event == EventScreenUpdate {
		return json.Marshal(struct {
			Event    string               `json:"event"`
			ScreenID string               `json:"screen_id"`
			Payload  *model.ScreenPayload `json:"payload"`
		}{m.Event, m.ScreenID, m.Payload})
	}
	type plain Message
	return json.Marshal(plain(m))
}

const (
	EventScreenUpdate = "screen:update"
	EventTable        = "table"
)

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	screenID string // empty for dashboard clients
}

// Broadcaster fans the reconciler's table out to websocket clients.
// A client connected with ?screen=<id> gets only that screen's updates; anyone else gets the whole table.
type Broadcaster struct {
	rec        *slots.Reconciler
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.Mutex
	upgrader   websocket.Upgrader
}

// NewBroadcaster creates a broadcaster over rec. Call Run before serving connections.
func NewBroadcaster(rec *slots.Reconciler) *Broadcaster {
	return &Broadcaster{
		rec:        rec,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Run pumps table changes to clients until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	tables, cancel := b.rec.Subscribe()
	defer cancel()
	defer close(b.done)

	last := <-tables
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for c := range b.clients {
				delete(b.clients, c)
				close(c.send)
				monitoring.AddWSClients(-1)
			}
			b.mu.Unlock()
			return

		case c := <-b.register:
			b.mu.Lock()
			b.clients[c] = true
			b.mu.Unlock()
			monitoring.AddWSClients(1)
			b.deliver(c, initialMessage(c, last))

		case c := <-b.unregister:
			b.mu.Lock()
			if b.clients[c] {
				delete(b.clients, c)
				close(c.send)
				monitoring.AddWSClients(-1)
			}
			b.mu.Unlock()

		case t, ok := <-tables:
			if !ok {
				return
			}
			changed := changedScreens(last, t)
			last = t
			b.broadcast(t, changed)
		}
	}
}

// ServeHTTP upgrades the request and registers the client.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	screenID := r.URL.Query().Get("screen")
	if screenID != "" {
		if _, ok := b.rec.IndexOf(screenID); !ok {
			http.Error(w, "unknown screen", http.StatusNotFound)
			return
		}
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	c := &client{
		conn:     conn,
		send:     make(chan []byte, 16),
		screenID: screenID,
	}

	select {
	case b.register <- c:
	case <-b.done:
		conn.Close()
		return
	}
	go writePump(c)
	go b.readPump(c)
}

func (b *Broadcaster) broadcast(t slots.Table, changed map[string]bool) {
	var tableMsg []byte
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		var data []byte
		if c.screenID == "" {
			if tableMsg == nil {
				tableMsg = encode(Message{Event: EventTable, Table: &t})
			}
			data = tableMsg
		} else {
			if !changed[c.screenID] {
				continue
			}
			data = encode(screenMessage(t, c.screenID))
		}
		if data == nil {
			continue
		}
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(b.clients, c)
			monitoring.AddWSClients(-1)
		}
	}
}

func (b *Broadcaster) deliver(c *client, msg Message) {
	data := encode(msg)
	if data == nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func initialMessage(c *client, t slots.Table) Message {
	if c.screenID == "" {
		return Message{Event: EventTable, Table: &t}
	}
	return screenMessage(t, c.screenID)
}

func screenMessage(t slots.Table, screenID string) Message {
	msg := Message{Event: EventScreenUpdate, ScreenID: screenID}
	if slot, ok := t.Slot(screenID); ok && slot.Record != nil {
		p := model.PayloadFromRecord(screenID, slot.Record)
		msg.Payload = &p
	}
	return msg
}

// changedScreens lists the screens whose record differs between two tables.
func changedScreens(prev, next slots.Table) map[string]bool {
	changed := make(map[string]bool)
	for _, s := range next.Slots {
		old, ok := prev.Slot(s.ScreenID)
		if !ok {
			changed[s.ScreenID] = true
			continue
		}
		a, _ := json.Marshal(old.Record)
		c, _ := json.Marshal(s.Record)
		if string(a) != string(c) {
			changed[s.ScreenID] = true
		}
	}
	return changed
}

func encode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Realtime] Failed to encode %s message: %v", msg.Event, err)
		return nil
	}
	return data
}

func writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the peer going away; views never send anything we act on.
func (b *Broadcaster) readPump(c *client) {
	defer func() {
		select {
		case b.unregister <- c:
		case <-b.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
