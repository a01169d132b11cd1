package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hub is a stateless fan-out layer: it never caches entity state, it only
// relays committed-transition events to connected dashboards. Clients
// filter topics by role on their side.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
}

type Message struct {
	Topic     string                 `json:"topic"`
	UserID    primitive.ObjectID     `json:"user_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true

	// Personal room for targeted updates, role room for dashboards.
	h.joinRoom(client, "user_"+client.UserID.Hex())
	if client.Role != "" {
		h.joinRoom(client, "role_"+client.Role)
	}

	welcome := Message{
		Topic:     "welcome",
		UserID:    client.UserID,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	}
	h.sendToClient(client, welcome)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		for roomID, room := range h.rooms {
			if _, exists := room[client]; exists {
				delete(room, client)
				if len(room) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}
	}
}

// Broadcast announces a committed transition to every connected client.
// Delivery is at-most-once: a slow client is dropped, never waited on.
func (h *Hub) Broadcast(topic string, data map[string]interface{}) {
	message := Message{
		Topic:     topic,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	h.sendToAllLocked(message)
}

func (h *Hub) sendToAllLocked(message Message) {
	data, _ := json.Marshal(message)
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer; drop it rather than block the fan-out.
		}
	}
}

func (h *Hub) sendToRoom(roomID string, message Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, _ := json.Marshal(message)
	for client := range room {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, _ := json.Marshal(message)
	select {
	case client.send <- data:
	default:
	}
}

// SendToUser delivers a targeted update on the user's personal room.
func (h *Hub) SendToUser(userID primitive.ObjectID, topic string, data map[string]interface{}) {
	message := Message{
		Topic:     topic,
		UserID:    userID,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}
	h.sendToRoom("user_"+userID.Hex(), message)
}

// SendToRole delivers an update to every client connected with the role.
func (h *Hub) SendToRole(role string, topic string, data map[string]interface{}) {
	message := Message{
		Topic:     topic,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}
	h.sendToRoom("role_"+role, message)
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
