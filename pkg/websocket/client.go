package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure properly in production
	},
}

// LocationSink receives driver location frames arriving over the socket.
// It is backed by the same guarded coordinator path as the REST route so
// realtime frames cannot bypass transition validation.
type LocationSink interface {
	UpdateDriverLocation(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64, status string) error
}

type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	locationSink LocationSink
	UserID       primitive.ObjectID
	Role         string
	rooms        map[string]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID primitive.ObjectID, role string, sink LocationSink) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, 256),
		locationSink: sink,
		UserID:       userID,
		Role:         role,
		rooms:        make(map[string]bool),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Error unmarshaling client message: %v", err)
		return
	}

	switch msg.Topic {
	case "join_room":
		if roomID, ok := msg.Data["room_id"].(string); ok {
			c.hub.mutex.Lock()
			c.hub.joinRoom(c, roomID)
			c.hub.mutex.Unlock()
		}

	case "leave_room":
		if roomID, ok := msg.Data["room_id"].(string); ok {
			c.hub.LeaveRoom(c, roomID)
		}

	case "driver_location":
		if c.Role != "ambulance_driver" || c.locationSink == nil {
			return
		}
		lat, _ := msg.Data["latitude"].(float64)
		lng, _ := msg.Data["longitude"].(float64)
		status, _ := msg.Data["status"].(string)

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := c.locationSink.UpdateDriverLocation(ctx, c.UserID, lat, lng, status); err != nil {
			log.Printf("Driver location update rejected: %v", err)
		}

	default:
		// Clients only produce the frames above; anything else is noise.
	}
}
