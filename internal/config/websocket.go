package config

import (
	"time"
)

type WebSocketConfig struct {
	Path            string        `yaml:"path"`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

func loadWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		Path:            getEnv("WEBSOCKET_PATH", "/ws"),
		ReadBufferSize:  getEnvAsInt("WEBSOCKET_READ_BUFFER_SIZE", 1024),
		WriteBufferSize: getEnvAsInt("WEBSOCKET_WRITE_BUFFER_SIZE", 1024),
		PingInterval:    getEnvAsDuration("WEBSOCKET_PING_INTERVAL", 54*time.Second),
		PongTimeout:     getEnvAsDuration("WEBSOCKET_PONG_TIMEOUT", 60*time.Second),
		AllowedOrigins:  getEnvAsSlice("WEBSOCKET_ALLOWED_ORIGINS", []string{"*"}),
	}
}
