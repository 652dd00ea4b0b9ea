package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/sumrush/go/internal/quiz"
	"github.com/mcdev12/sumrush/go/internal/session"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections for quiz sessions. The
// first connection to a session subscribes to its snapshots and the last one
// to leave unsubscribes, so several tabs can watch and drive one session.
type ConnectionManager struct {
	sessionConnections map[uuid.UUID]map[*Connection]bool
	subscriptions      map[uuid.UUID]func()
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID        string
	SessionID uuid.UUID
	Session   *session.Session
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration             `yaml:"write_timeout"`
	ReadTimeout     time.Duration             `yaml:"read_timeout"`
	PingInterval    time.Duration             `yaml:"ping_interval"`
	MaxMessageSize  int64                     `yaml:"max_message_size"`
	ReadBufferSize  int                       `yaml:"read_buffer_size"`
	WriteBufferSize int                       `yaml:"write_buffer_size"`
	SendBufferSize  int                       `yaml:"send_buffer_size"`
	CheckOrigin     func(r *http.Request) bool `yaml:"-"`
}

// BroadcastMessage is an event bound for every connection of a session.
type BroadcastMessage struct {
	SessionID uuid.UUID
	Event     *ServerEvent
}

// ConnectionStats is a point-in-time view of the connection pools.
type ConnectionStats struct {
	TotalConnections   int            `json:"total_connections"`
	ActiveSessions     int            `json:"active_sessions"`
	SessionConnections map[string]int `json:"session_connections"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  64,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// withDefaults fills zero fields, which is what a partial YAML block leaves.
func (c ConnectionConfig) withDefaults() ConnectionConfig {
	def := DefaultConnectionConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = def.WriteBufferSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = def.SendBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = def.CheckOrigin
	}
	return c
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	config = config.withDefaults()

	return &ConnectionManager{
		sessionConnections: make(map[uuid.UUID]map[*Connection]bool),
		subscriptions:      make(map[uuid.UUID]func()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcast messages until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and attaches it
// to s. The client immediately receives the current state.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, s *session.Session) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		SessionID:   s.ID(),
		Session:     s,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	if !cm.registerConnection(connection) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
			time.Now().Add(cm.config.WriteTimeout))
		conn.Close()
		return session.ErrSessionClosed
	}
	cm.sendState(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("session_id", s.ID().String()).
		Msg("WebSocket connection established")

	return nil
}

// BroadcastToSession queues event for every connection watching sessionID.
// It never blocks, since it runs inside session listeners.
func (cm *ConnectionManager) BroadcastToSession(sessionID uuid.UUID, event *ServerEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{SessionID: sessionID, Event: event}:
	default:
		log.Warn().Str("session_id", sessionID.String()).Msg("broadcast channel full, dropping message")
	}
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveSessions:     len(cm.sessionConnections),
		SessionConnections: make(map[string]int, len(cm.sessionConnections)),
	}
	for sessionID, connections := range cm.sessionConnections {
		stats.TotalConnections += len(connections)
		stats.SessionConnections[sessionID.String()] = len(connections)
	}
	return stats
}

// CloseSession disconnects every connection attached to sessionID. Callers
// close the session first so no new connection can register afterwards.
func (cm *ConnectionManager) CloseSession(sessionID uuid.UUID) int {
	cm.mu.RLock()
	connections := make([]*Connection, 0, len(cm.sessionConnections[sessionID]))
	for conn := range cm.sessionConnections[sessionID] {
		connections = append(connections, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range connections {
		cm.unregisterConnection(conn)
	}
	if len(connections) > 0 {
		log.Info().
			Str("session_id", sessionID.String()).
			Int("connections", len(connections)).
			Msg("closed connections for removed session")
	}
	return len(connections)
}

// registerConnection reports false when the session has already been closed.
func (cm *ConnectionManager) registerConnection(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.Session.Closed() {
		return false
	}

	connections := cm.sessionConnections[conn.SessionID]
	if connections == nil {
		connections = make(map[*Connection]bool)
		cm.sessionConnections[conn.SessionID] = connections
		cm.subscriptions[conn.SessionID] = conn.Session.Subscribe(cm.stateListener())
	}
	connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID.String()).
		Int("total_connections", len(connections)).
		Msg("connection registered")
	return true
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.sessionConnections[conn.SessionID]
	if !exists || !connections[conn] {
		return
	}
	delete(connections, conn)
	close(conn.Send)

	if len(connections) == 0 {
		delete(cm.sessionConnections, conn.SessionID)
		if unsubscribe, ok := cm.subscriptions[conn.SessionID]; ok {
			unsubscribe()
			delete(cm.subscriptions, conn.SessionID)
		}
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID.String()).
		Msg("connection unregistered")
}

// stateListener turns session snapshots into broadcasts.
func (cm *ConnectionManager) stateListener() session.Listener {
	return func(snap session.Snapshot) {
		event, err := newStateEvent(snap)
		if err != nil {
			log.Error().Err(err).Str("session_id", snap.SessionID.String()).Msg("failed to build state event")
			return
		}
		cm.BroadcastToSession(snap.SessionID, event)
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Sends happen under the read lock so a concurrent unregister cannot
	// close a Send channel mid-broadcast.
	var slow []*Connection
	cm.mu.RLock()
	connections := cm.sessionConnections[message.SessionID]
	for conn := range connections {
		select {
		case conn.Send <- eventData:
		default:
			slow = append(slow, conn)
		}
	}
	delivered := len(connections) - len(slow)
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("session_id", conn.SessionID.String()).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("session_id", message.SessionID.String()).
		Int("connections", delivered).
		Msg("event broadcasted")
}

// sendTo delivers event to one connection only.
func (cm *ConnectionManager) sendTo(conn *Connection, event *ServerEvent) {
	eventData, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if !cm.sessionConnections[conn.SessionID][conn] {
		return
	}
	select {
	case conn.Send <- eventData:
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("event_type", string(event.Type)).
			Msg("connection send buffer full, dropping message")
	}
}

func (cm *ConnectionManager) sendState(conn *Connection) {
	event, err := newStateEvent(conn.Session.Snapshot())
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to build state event")
		return
	}
	cm.sendTo(conn, event)
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.sessionConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading commands from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage applies one client command to the session. State
// changes reach every connection through the session listener; failures are
// reported to this connection only.
func (c *Connection) handleClientMessage(message []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.Manager.sendTo(c, newErrorEvent(c.SessionID, "", fmt.Errorf("%w: %v", errMalformedCommand, err)))
		return
	}

	if err := c.dispatch(cmd); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("command", string(cmd.Type)).
			Msg("client command rejected")
		c.Manager.sendTo(c, newErrorEvent(c.SessionID, cmd.Type, err))
	}
}

func (c *Connection) dispatch(cmd ClientCommand) error {
	switch cmd.Type {
	case CommandSelectDifficulty:
		d, err := quiz.ParseDifficulty(cmd.Level)
		if err != nil {
			return err
		}
		return c.Session.SelectDifficulty(d)
	case CommandChangeDifficulty:
		return c.Session.ChangeDifficulty()
	case CommandAnswerText:
		return c.Session.SetAnswerText(cmd.Text)
	case CommandSubmitAnswer:
		_, err := c.Session.SubmitAnswer(cmd.Answer)
		return err
	case CommandNewGame:
		return c.Session.NewGame()
	case CommandSync:
		c.Manager.sendState(c)
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownCommand, cmd.Type)
	}
}
