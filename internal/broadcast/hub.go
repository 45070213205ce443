package broadcast

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/spuklo/retromat/internal/domain"
	"github.com/spuklo/retromat/internal/metrics"
	"github.com/spuklo/retromat/internal/protocol"
)

const (
	// DefaultHeartbeatInterval is how often every session receives a PING.
	DefaultHeartbeatInterval = 15 * time.Second

	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	sessionID    uuid.UUID
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	sessionID uuid.UUID
}

type sendCmd struct {
	baseHubCmd
	sessionID uuid.UUID
	message   domain.Message
}

type broadcastCmd struct {
	baseHubCmd
	message domain.Message
}

type setSafetyLevelCmd struct {
	baseHubCmd
	sessionID uuid.UUID
	level     int
}

type clearSafetyLevelsCmd struct {
	baseHubCmd
}

type sendStatsCmd struct {
	baseHubCmd
}

type statsCmd struct {
	baseHubCmd
	replyChannel chan domain.Stats
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the session registry and broadcast engine. A single goroutine owns
// the registered clients and the per-session safety levels; every mutation
// and fan-out goes through the command channel.
type Hub struct {
	cmdCh             chan hubCmd
	clock             clockwork.Clock
	clients           map[uuid.UUID]*clientWriter
	safetyLevels      map[uuid.UUID]int
	heartbeatInterval time.Duration
	maxClients        int
	done              chan struct{}
}

// NewHub creates a hub and starts its actor goroutine and heartbeat ticker.
// maxClients caps concurrent sessions to avoid resource exhaustion.
func NewHub(clock clockwork.Clock, heartbeatInterval time.Duration, maxClients int) *Hub {
	h := &Hub{
		cmdCh:             make(chan hubCmd, 256),
		clock:             clock,
		clients:           make(map[uuid.UUID]*clientWriter),
		safetyLevels:      make(map[uuid.UUID]int),
		heartbeatInterval: heartbeatInterval,
		maxClients:        maxClients,
		done:              make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a connected session. Returns an error if the client cap is
// reached or the hub is stuck.
func (h *Hub) Register(sessionID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{sessionID: sessionID, connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a session and its safety level entry.
func (h *Hub) Unregister(sessionID uuid.UUID) {
	h.cmdCh <- unregisterCmd{sessionID: sessionID}
}

// Send delivers a message to one session. Best effort.
func (h *Hub) Send(sessionID uuid.UUID, msg domain.Message) {
	h.cmdCh <- sendCmd{sessionID: sessionID, message: msg}
}

// Broadcast delivers a message to every registered session.
func (h *Hub) Broadcast(msg domain.Message) {
	h.cmdCh <- broadcastCmd{message: msg}
}

// SetSafetyLevel records or overwrites a session's safety level.
func (h *Hub) SetSafetyLevel(sessionID uuid.UUID, level int) {
	h.cmdCh <- setSafetyLevelCmd{sessionID: sessionID, level: level}
}

// ClearSafetyLevels wipes the safety level map. Used by the admin reset path.
func (h *Hub) ClearSafetyLevels() {
	h.cmdCh <- clearSafetyLevelsCmd{}
}

// SendStats computes the aggregate stats and broadcasts them to everyone.
func (h *Hub) SendStats() {
	h.cmdCh <- sendStatsCmd{}
}

// Stats returns the current aggregate stats without broadcasting.
func (h *Hub) Stats() domain.Stats {
	replyCh := make(chan domain.Stats, 1)
	h.cmdCh <- statsCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case stats := <-replyCh:
		return stats
	case <-timer.Chan():
		slog.Warn("Stats command timed out", "timeout", commandTimeout)
		return domain.Stats{}
	}
}

// ClientCount returns the number of registered sessions, or -1 on timeout.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all client connections and cancelling the
// heartbeat. Blocks until the actor goroutine has exited or timeout.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	ticker := h.clock.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.handleUnregister(c.sessionID)
			case sendCmd:
				h.handleSend(c.sessionID, c.message)
			case broadcastCmd:
				if evicted := h.deliverAll(c.message); evicted > 0 {
					h.broadcastStats()
				}
			case setSafetyLevelCmd:
				h.safetyLevels[c.sessionID] = c.level
			case clearSafetyLevelsCmd:
				h.safetyLevels = make(map[uuid.UUID]int)
			case sendStatsCmd:
				h.broadcastStats()
			case statsCmd:
				c.replyChannel <- h.stats()
			case clientCountCmd:
				c.replyChannel <- len(h.clients)
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-ticker.Chan():
			if evicted := h.deliverAll(domain.PingMessage()); evicted > 0 {
				h.broadcastStats()
			}
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting client: max clients reached", "max_clients", h.maxClients)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients (%d) reached", h.maxClients)
		return
	}

	h.clients[c.sessionID] = newClientWriter(c.connection, h.clock)
	metrics.ConnectedClients.Set(float64(len(h.clients)))

	slog.Info("Session connected", "session_id", c.sessionID.String(), "total_clients", len(h.clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(sessionID uuid.UUID) {
	cw, exists := h.clients[sessionID]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, sessionID)
	delete(h.safetyLevels, sessionID)
	metrics.ConnectedClients.Set(float64(len(h.clients)))

	slog.Info("Session disconnected", "session_id", sessionID.String(), "remaining_clients", len(h.clients))
}

func (h *Hub) handleSend(sessionID uuid.UUID, msg domain.Message) {
	cw, exists := h.clients[sessionID]
	if !exists {
		return
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		slog.Error("Failed to encode message", "type", msg.Type, "error", err)
		return
	}

	select {
	case cw.sendChannel <- data:
	default:
		slog.Warn("Disconnecting slow client", "session_id", sessionID.String())
		metrics.SlowClientsEvicted.Inc()
		h.handleUnregister(sessionID)
		h.broadcastStats()
	}
}

// deliverAll fans the message out to every registered session and evicts
// clients whose send queue is full. Returns the number of evicted clients;
// the caller decides whether that warrants a stats re-broadcast.
func (h *Hub) deliverAll(msg domain.Message) int {
	data, err := protocol.Encode(msg)
	if err != nil {
		slog.Error("Failed to encode broadcast message", "type", msg.Type, "error", err)
		return 0
	}
	metrics.BroadcastsTotal.WithLabelValues(string(msg.Type)).Inc()

	var slow []uuid.UUID
	for sessionID, cw := range h.clients {
		select {
		case cw.sendChannel <- data:
		default:
			slow = append(slow, sessionID)
		}
	}

	for _, sessionID := range slow {
		slog.Warn("Disconnecting slow client", "session_id", sessionID.String())
		metrics.SlowClientsEvicted.Inc()
		h.handleUnregister(sessionID)
	}
	return len(slow)
}

func (h *Hub) stats() domain.Stats {
	stats := domain.Stats{Sessions: len(h.clients)}
	if len(h.safetyLevels) == 0 {
		return stats
	}

	sum := 0
	first := true
	for _, level := range h.safetyLevels {
		if first || level < stats.MinSafety {
			stats.MinSafety = level
		}
		if first || level > stats.MaxSafety {
			stats.MaxSafety = level
		}
		sum += level
		first = false
	}
	avg := float64(sum) / float64(len(h.safetyLevels))
	stats.AvgSafety = math.Round(avg*100) / 100
	return stats
}

func (h *Hub) broadcastStats() {
	// Evictions during a stats fan-out do not trigger another stats
	// broadcast; the next registry change will carry the corrected counts.
	h.deliverAll(h.stats().Message())
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))
	for sessionID, cw := range h.clients {
		cw.stopGraceful("Server shutting down")
		delete(h.clients, sessionID)
		delete(h.safetyLevels, sessionID)
	}
	metrics.ConnectedClients.Set(0)
}
