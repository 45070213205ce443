package domain

import "github.com/google/uuid"

// Publisher fans messages out to connected sessions and owns the per-session
// safety level map. Implemented by the broadcast hub.
type Publisher interface {
	// Send delivers a message to a single session. Best effort.
	Send(sessionID uuid.UUID, msg Message)
	// Broadcast delivers a message to every registered session. A failing
	// session never prevents delivery to the others.
	Broadcast(msg Message)
	// SendStats recomputes the aggregate stats and broadcasts them.
	SendStats()
	// SetSafetyLevel records a session's self-reported safety level (1..5).
	SetSafetyLevel(sessionID uuid.UUID, level int)
	// ClearSafetyLevels wipes the safety level map (admin reset).
	ClearSafetyLevels()
}

// SnapshotStore persists retro snapshots. Save failures are logged by the
// implementation and never surface to protocol handlers.
type SnapshotStore interface {
	Save(retro Retro) error
	LoadOrCreate() Retro
}
