package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	hub          *Hub
	locationSink LocationSink
}

func NewHandler(sink LocationSink) *Handler {
	hub := NewHub()
	go hub.Run()

	return &Handler{
		hub:          hub,
		locationSink: sink,
	}
}

// SetLocationSink wires the driver-location consumer after construction;
// the hub is created before the services that feed on it.
func (h *Handler) SetLocationSink(sink LocationSink) {
	h.locationSink = sink
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	role, exists := c.Get("role")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Role not found"})
		return
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	roleStr, ok := role.(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, userObjectID, roleStr, h.locationSink)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
