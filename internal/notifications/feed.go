package notifications

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// FeedMessage is what subscribers receive over the wire.
type FeedMessage struct {
	Ledger    string      `json:"ledger"`
	Type      string      `json:"type"`
	Actor     string      `json:"actor"`
	Subject   string      `json:"subject"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Connection represents a WebSocket subscriber. Ledgers is the set of ledger
// names the subscriber filtered on; empty means everything.
type Connection struct {
	ID      string
	Ledgers map[string]bool
	Conn    *websocket.Conn
	Send    chan FeedMessage
}

// Feed fans ledger events out to live WebSocket subscribers. It implements
// ledger.Broadcaster.
type Feed struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	broadcast   chan ledger.Event
	stop        chan struct{}
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

func NewFeed(logger *zap.Logger) *Feed {
	f := &Feed{
		connections: make(map[string]*Connection),
		broadcast:   make(chan ledger.Event, 256),
		stop:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// In production, implement proper origin checking
				return true
			},
		},
		logger: logger,
	}
	go f.run()
	return f
}

// Broadcast queues an event for fan-out. Drops when the feed is saturated;
// the events table remains the source of truth.
func (f *Feed) Broadcast(event ledger.Event) {
	select {
	case f.broadcast <- event:
	default:
		f.logger.Warn("event feed saturated, dropping broadcast",
			zap.String("ledger", event.Ledger),
			zap.String("type", event.Type))
	}
}

// HandleConnection upgrades the request and subscribes it to the feed.
// Ledger filters come from the repeated "ledger" query parameter.
func (f *Feed) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	ledgers := make(map[string]bool)
	for _, name := range r.URL.Query()["ledger"] {
		ledgers[name] = true
	}

	c := &Connection{
		ID:      uuid.New().String(),
		Ledgers: ledgers,
		Conn:    conn,
		Send:    make(chan FeedMessage, 64),
	}

	f.mu.Lock()
	f.connections[c.ID] = c
	f.mu.Unlock()

	go f.readPump(c)
	go f.writePump(c)
	return nil
}

func (f *Feed) readPump(c *Connection) {
	defer f.drop(c)

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.logger.Debug("feed read error", zap.Error(err))
			}
			return
		}
	}
}

func (f *Feed) writePump(c *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *Feed) run() {
	for {
		select {
		case event := <-f.broadcast:
			msg := FeedMessage{
				Ledger:    event.Ledger,
				Type:      event.Type,
				Actor:     event.Actor,
				Subject:   event.Subject,
				Payload:   event.Payload,
				Timestamp: event.CreatedAt,
			}
			f.mu.RLock()
			for _, c := range f.connections {
				if len(c.Ledgers) > 0 && !c.Ledgers[event.Ledger] {
					continue
				}
				select {
				case c.Send <- msg:
				default:
					// Subscriber buffer full, skip
				}
			}
			f.mu.RUnlock()

		case <-f.stop:
			return
		}
	}
}

func (f *Feed) drop(c *Connection) {
	f.mu.Lock()
	if _, ok := f.connections[c.ID]; ok {
		delete(f.connections, c.ID)
		close(c.Send)
	}
	f.mu.Unlock()
	c.Conn.Close()
}

// ConnectionCount returns the number of live subscribers.
func (f *Feed) ConnectionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.connections)
}

// Close shuts the feed down and disconnects every subscriber.
func (f *Feed) Close() {
	close(f.stop)

	f.mu.Lock()
	for id, c := range f.connections {
		c.Conn.Close()
		close(c.Send)
		delete(f.connections, id)
	}
	f.mu.Unlock()
}
