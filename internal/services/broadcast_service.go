package services

import (
	"context"
	"time"

	"lifeline/internal/utils"
	"lifeline/pkg/logger"
	"lifeline/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BroadcastService announces committed transitions to connected
// observers. Delivery is at-most-once and best-effort: emission runs off
// the caller's goroutine, is never awaited, never retried, and a failure
// never rolls back the state change it announces.
type BroadcastService interface {
	Publish(topic string, payload map[string]interface{})
	PublishToUser(userID primitive.ObjectID, topic string, payload map[string]interface{})
}

type broadcastService struct {
	hub    *websocket.Hub
	cache  CacheService
	logger *logger.Logger
}

func NewBroadcastService(hub *websocket.Hub, cache CacheService, log *logger.Logger) BroadcastService {
	return &broadcastService{
		hub:    hub,
		cache:  cache,
		logger: log,
	}
}

func (s *broadcastService) Publish(topic string, payload map[string]interface{}) {
	go func() {
		if s.hub != nil {
			s.hub.Broadcast(topic, payload)
		}
		s.publishRedis(topic, payload)
	}()
}

func (s *broadcastService) PublishToUser(userID primitive.ObjectID, topic string, payload map[string]interface{}) {
	go func() {
		if s.hub != nil {
			s.hub.SendToUser(userID, topic, payload)
		}
		s.publishRedis(utils.TopicPatientUpdatePrefix+userID.Hex(), payload)
	}()
}

// publishRedis mirrors the event onto a Redis channel for out-of-process
// consumers. Failures are logged and swallowed.
func (s *broadcastService) publishRedis(channel string, payload map[string]interface{}) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Publish(ctx, "events:"+channel, payload); err != nil {
		s.logger.WithError(err).WithField("topic", channel).Warn("Broadcast publish failed")
	}
}
