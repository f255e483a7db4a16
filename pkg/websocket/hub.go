package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// MessageHandler is a function that handles incoming messages
type MessageHandler func(*Client, *Message)

// Hub tracks connected clients and the session room each one follows.
type Hub struct {
	clients  map[string]*Client
	sessions map[string]map[string]*Client

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	broadcast chan *BroadcastMessage
	handlers  map[string]MessageHandler
	done      chan struct{}
	log       *zap.Logger

	mu sync.RWMutex
}

// BroadcastMessage is a message addressed to one session room, or to every
// client when SessionID is empty.
type BroadcastMessage struct {
	SessionID string
	Message   *Message
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		handlers:   make(map[string]MessageHandler),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	h.log.Info("websocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case b := <-h.broadcast:
			h.deliver(b)

		case <-h.done:
			h.closeAll()
			h.log.Info("websocket hub stopped")
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[client.ID]; ok {
		h.removeLocked(existing)
	}

	h.clients[client.ID] = client
	if sessionID := client.Session(); sessionID != "" {
		room, ok := h.sessions[sessionID]
		if !ok {
			room = make(map[string]*Client)
			h.sessions[sessionID] = room
		}
		room[client.ID] = client
	}
	h.log.Debug("client registered",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.Session()),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.ID]; ok && current == client {
		h.removeLocked(client)
		h.log.Debug("client unregistered", zap.String("client_id", client.ID))
	}
}

// removeLocked drops client from every index and closes it. h.mu must be held.
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client.ID)
	if sessionID := client.Session(); sessionID != "" {
		if room, ok := h.sessions[sessionID]; ok {
			delete(room, client.ID)
			if len(room) == 0 {
				delete(h.sessions, sessionID)
			}
		}
	}
	client.close()
}

func (h *Hub) deliver(b *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets map[string]*Client
	if b.SessionID == "" {
		targets = h.clients
	} else {
		targets = h.sessions[b.SessionID]
	}

	var slow []*Client
	for _, client := range targets {
		if !client.SendMessage(b.Message) {
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.removeLocked(client)
		h.log.Warn("dropped slow websocket client", zap.String("client_id", client.ID))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		h.removeLocked(client)
	}
}

// HandleMessage routes incoming messages to appropriate handlers
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	handler, exists := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !exists {
		h.log.Debug("no handler for message type", zap.String("type", msg.Type))
		return
	}
	handler(client, msg)
}

// RegisterHandler registers a message handler for a specific type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// SendToSession queues msg for every client following sessionID. It never
// blocks; when the broadcast queue is full the message is dropped.
func (h *Hub) SendToSession(sessionID string, msg *Message) bool {
	return h.enqueue(&BroadcastMessage{SessionID: sessionID, Message: msg})
}

// SendToAll broadcasts a message to all connected clients
func (h *Hub) SendToAll(msg *Message) bool {
	return h.enqueue(&BroadcastMessage{Message: msg})
}

func (h *Hub) enqueue(b *BroadcastMessage) bool {
	select {
	case h.broadcast <- b:
		return true
	default:
		h.log.Warn("websocket broadcast queue full, message dropped",
			zap.String("session_id", b.SessionID),
			zap.String("type", b.Message.Type),
		)
		return false
	}
}

// CloseSession disconnects every client following sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.sessions[sessionID] {
		h.removeLocked(client)
	}
}

// GetClient returns a client by ID
func (h *Hub) GetClient(clientID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	return client, ok
}

// ClientsInSession returns the number of clients following sessionID.
func (h *Hub) ClientsInSession(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetSessionCount returns the number of sessions with at least one client.
func (h *Hub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
