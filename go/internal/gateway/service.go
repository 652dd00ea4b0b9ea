// Package gateway exposes quiz sessions over WebSocket and a small REST API.
package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service bundles the WebSocket and REST handlers around one connection manager.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig `yaml:"connection"`
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new gateway service
func NewService(config Config, sessions SessionProvider, results ResultsProvider) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, sessions),
		stateHandler:      NewStateHandler(sessions, results, connectionManager),
	}
}

// Start runs the broadcast loop until ctx is done.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting quiz gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("quiz gateway service stopped")
}

// RegisterRoutes registers the WebSocket and REST routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("quiz gateway routes registered")
}

// GetStats returns statistics about the gateway connections
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
