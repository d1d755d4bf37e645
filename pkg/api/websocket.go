package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/orchestrator"
)

// WebSocketManager manages WebSocket connections for real-time execution
// updates. It implements orchestrator.StatusBroadcaster: the orchestrator
// pushes every persisted state change through BroadcastExecution.
type WebSocketManager struct {
	// upgrader for upgrading HTTP connections to WebSocket
	upgrader websocket.Upgrader

	// connections maps execution IDs to sets of WebSocket connections
	connections map[string]map[*websocket.Conn]bool

	// connectionMeta stores metadata for each connection
	connectionMeta map[*websocket.Conn]*ConnectionMetadata

	// mutex for thread-safe access
	mu sync.RWMutex

	// statusReporter resolves current execution state for new subscribers
	statusReporter *orchestrator.StatusReporter
}

// ConnectionMetadata stores metadata about a WebSocket connection
type ConnectionMetadata struct {
	UserID        string
	ConnectedAt   time.Time
	LastPingAt    time.Time
	Subscriptions map[string]bool // execution IDs this connection is subscribed to
}

// StatusUpdate represents a real-time update for a review execution
type StatusUpdate struct {
	Type        string            `json:"type"` // "status", "complete", "error", "pong"
	ExecutionID string            `json:"execution_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Message     string            `json:"message,omitempty"`
	Execution   *models.Execution `json:"execution,omitempty"`
}

// WebSocketMessage represents incoming WebSocket messages
type WebSocketMessage struct {
	Type        string `json:"type"` // "subscribe", "unsubscribe", "ping"
	ExecutionID string `json:"execution_id,omitempty"`
}

// NewWebSocketManager creates a new WebSocket manager
func NewWebSocketManager(statusReporter *orchestrator.StatusReporter) *WebSocketManager {
	return &WebSocketManager{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from any origin for now
				// In production, this should be more restrictive
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections:    make(map[string]map[*websocket.Conn]bool),
		connectionMeta: make(map[*websocket.Conn]*ConnectionMetadata),
		statusReporter: statusReporter,
	}
}

// BroadcastExecution pushes a persisted execution state to every subscriber
// of that execution. Part of the orchestrator.StatusBroadcaster contract.
func (wsm *WebSocketManager) BroadcastExecution(execution models.Execution) {
	update := StatusUpdate{
		Type:        "status",
		ExecutionID: execution.ID,
		Timestamp:   time.Now(),
		Execution:   &execution,
	}
	if execution.Status.Terminal() {
		update.Type = "complete"
		update.Message = "Execution completed with status: " + string(execution.Status)
	}

	wsm.broadcastToExecution(execution.ID, update)
}

// HandleWebSocket handles WebSocket connection upgrade and management
func (wsm *WebSocketManager) HandleWebSocket(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := wsm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wsm.mu.Lock()
	wsm.connectionMeta[conn] = &ConnectionMetadata{
		UserID:        userID,
		ConnectedAt:   time.Now(),
		LastPingAt:    time.Now(),
		Subscriptions: make(map[string]bool),
	}
	wsm.mu.Unlock()

	// Clean up when connection closes
	defer func() {
		wsm.removeConnection(conn)
		log.Printf("WebSocket connection closed for user %s", userID)
	}()

	log.Printf("WebSocket connection established for user %s", userID)

	conn.SetPongHandler(func(string) error {
		wsm.mu.Lock()
		if meta, exists := wsm.connectionMeta[conn]; exists {
			meta.LastPingAt = time.Now()
		}
		wsm.mu.Unlock()
		return nil
	})

	go wsm.pingRoutine(conn)

	for {
		var msg WebSocketMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		wsm.handleMessage(conn, &msg, userID)
	}
}

// handleMessage processes incoming WebSocket messages
func (wsm *WebSocketManager) handleMessage(conn *websocket.Conn, msg *WebSocketMessage, userID string) {
	switch msg.Type {
	case "subscribe":
		if msg.ExecutionID != "" {
			wsm.subscribeToExecution(conn, msg.ExecutionID, userID)
		}
	case "unsubscribe":
		if msg.ExecutionID != "" {
			wsm.unsubscribeFromExecution(conn, msg.ExecutionID)
		}
	case "ping":
		wsm.sendMessage(conn, StatusUpdate{
			Type:      "pong",
			Timestamp: time.Now(),
		})
	default:
		log.Printf("Unknown WebSocket message type: %s", msg.Type)
	}
}

// subscribeToExecution subscribes a connection to execution updates
func (wsm *WebSocketManager) subscribeToExecution(conn *websocket.Conn, executionID, userID string) {
	// Send the current state to the newly subscribed client, so late
	// subscribers see already-settled dimensions immediately
	if wsm.statusReporter != nil {
		execution, err := wsm.statusReporter.GetStatus(executionID)
		if err != nil {
			wsm.sendMessage(conn, StatusUpdate{
				Type:        "error",
				ExecutionID: executionID,
				Timestamp:   time.Now(),
				Message:     "Execution not found",
			})
			return
		}
		wsm.sendMessage(conn, StatusUpdate{
			Type:        "status",
			ExecutionID: executionID,
			Timestamp:   time.Now(),
			Execution:   &execution,
		})
	}

	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	if wsm.connections[executionID] == nil {
		wsm.connections[executionID] = make(map[*websocket.Conn]bool)
	}
	wsm.connections[executionID][conn] = true

	if meta, exists := wsm.connectionMeta[conn]; exists {
		meta.Subscriptions[executionID] = true
	}

	log.Printf("User %s subscribed to execution %s", userID, executionID)
}

// unsubscribeFromExecution unsubscribes a connection from execution updates
func (wsm *WebSocketManager) unsubscribeFromExecution(conn *websocket.Conn, executionID string) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	if execConns, exists := wsm.connections[executionID]; exists {
		delete(execConns, conn)
		if len(execConns) == 0 {
			delete(wsm.connections, executionID)
		}
	}

	if meta, exists := wsm.connectionMeta[conn]; exists {
		delete(meta.Subscriptions, executionID)
	}

	log.Printf("Connection unsubscribed from execution %s", executionID)
}

// broadcastToExecution sends an update to all connections subscribed to an execution
func (wsm *WebSocketManager) broadcastToExecution(executionID string, update StatusUpdate) {
	wsm.mu.RLock()
	connections, exists := wsm.connections[executionID]
	if !exists {
		wsm.mu.RUnlock()
		return
	}

	// Copy the set to avoid holding the lock during sends
	connsCopy := make([]*websocket.Conn, 0, len(connections))
	for conn := range connections {
		connsCopy = append(connsCopy, conn)
	}
	wsm.mu.RUnlock()

	for _, conn := range connsCopy {
		wsm.sendMessage(conn, update)
	}
}

// sendMessage sends a message to a WebSocket connection
func (wsm *WebSocketManager) sendMessage(conn *websocket.Conn, update StatusUpdate) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

	if err := conn.WriteJSON(update); err != nil {
		log.Printf("Failed to send WebSocket message: %v", err)
		wsm.removeConnection(conn)
	}
}

// removeConnection removes a connection from all subscriptions
func (wsm *WebSocketManager) removeConnection(conn *websocket.Conn) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	if meta, exists := wsm.connectionMeta[conn]; exists {
		for executionID := range meta.Subscriptions {
			if execConns, exists := wsm.connections[executionID]; exists {
				delete(execConns, conn)
				if len(execConns) == 0 {
					delete(wsm.connections, executionID)
				}
			}
		}
	}

	delete(wsm.connectionMeta, conn)

	conn.Close()
}

// pingRoutine sends periodic ping messages to keep connection alive
func (wsm *WebSocketManager) pingRoutine(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			wsm.removeConnection(conn)
			return
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (wsm *WebSocketManager) GetConnectedClients() int {
	wsm.mu.RLock()
	defer wsm.mu.RUnlock()
	return len(wsm.connectionMeta)
}

// GetExecutionSubscribers returns the number of subscribers for an execution
func (wsm *WebSocketManager) GetExecutionSubscribers(executionID string) int {
	wsm.mu.RLock()
	defer wsm.mu.RUnlock()
	if connections, exists := wsm.connections[executionID]; exists {
		return len(connections)
	}
	return 0
}
