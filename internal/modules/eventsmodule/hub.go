package eventsmodule

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/logger"
)

const writeDeadline = 10 * time.Second

// wsClient is one connected event stream consumer. Writes are serialized
// per connection; gorilla connections do not allow concurrent writers.
type wsClient struct {
	conn    *websocket.Conn
	filter  events.EventFilter
	writeMu sync.Mutex
}

func (c *wsClient) send(event events.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteJSON(event)
}

// Hub fans bus events out to websocket subscribers. One bus subscription
// covers every connected client; per-client type filters are applied at
// send time.
type Hub struct {
	eventBus events.EventBus
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient

	subscriptionID string
}

// NewHub creates an event hub over the given bus
func NewHub(eventBus events.EventBus) *Hub {
	return &Hub{
		eventBus: eventBus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // same-origin enforcement happens at the proxy
			},
		},
		clients: make(map[string]*wsClient),
	}
}

// Start subscribes the hub to the bus
func (h *Hub) Start() {
	h.subscriptionID = h.eventBus.Subscribe(events.EventFilter{}, h.broadcast)
}

// Stop detaches the hub from the bus and closes all client connections
func (h *Hub) Stop() {
	if h.subscriptionID != "" {
		h.eventBus.Unsubscribe(h.subscriptionID)
		h.subscriptionID = ""
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.conn.Close()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and streams matching events until
// the client disconnects. An optional "types" query parameter narrows the
// stream to specific event types.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to upgrade connection: %v", err)})
		return
	}
	defer conn.Close()

	client := &wsClient{
		conn:   conn,
		filter: filterFromQuery(c.QueryArray("types")),
	}
	clientID := fmt.Sprintf("client_%d", time.Now().UnixNano())

	h.mu.Lock()
	h.clients[clientID] = client
	h.mu.Unlock()

	logger.Debug("Event stream client %s connected", clientID)

	// Read loop exists only to notice the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, clientID)
	h.mu.Unlock()
	logger.Debug("Event stream client %s disconnected", clientID)
}

// broadcast delivers one bus event to every client whose filter matches
func (h *Hub) broadcast(event events.Event) {
	h.mu.RLock()
	clients := make(map[string]*wsClient, len(h.clients))
	for id, client := range h.clients {
		clients[id] = client
	}
	h.mu.RUnlock()

	for id, client := range clients {
		if !client.filter.Matches(event) {
			continue
		}
		if err := client.send(event); err != nil {
			// Dead connection; the read loop will clean up, but stop
			// writing to it now.
			h.mu.Lock()
			delete(h.clients, id)
			h.mu.Unlock()
			client.conn.Close()
		}
	}
}

func filterFromQuery(raw []string) events.EventFilter {
	var filter events.EventFilter
	for _, value := range raw {
		if value != "" {
			filter.Types = append(filter.Types, events.EventType(value))
		}
	}
	return filter
}
