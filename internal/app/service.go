// Package app wires the retro store, the broadcast hub and the snapshot
// writer together and implements the per-message-kind protocol contract.
package app

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/spuklo/retromat/internal/domain"
	"github.com/spuklo/retromat/internal/metrics"
	"github.com/spuklo/retromat/internal/protocol"
	"github.com/spuklo/retromat/internal/store"
)

// snapshotQueue is the slice of the snapshot writer the service needs.
type snapshotQueue interface {
	Enqueue(retro domain.Retro)
}

type Service struct {
	store     *store.Store
	hub       domain.Publisher
	snapshots snapshotQueue
	ids       *domain.CardIDSource
	version   string
}

func NewService(st *store.Store, hub domain.Publisher, snapshots snapshotQueue, ids *domain.CardIDSource, version string) *Service {
	return &Service{
		store:     st,
		hub:       hub,
		snapshots: snapshots,
		ids:       ids,
		version:   version,
	}
}

// CurrentRetro returns the latest committed retro.
func (s *Service) CurrentRetro() domain.Retro {
	return s.store.Current()
}

// Connect runs the hello sequence for a freshly registered session: the build
// version to the new session, a stats broadcast to everyone, then the full
// retro snapshot to the new session.
func (s *Service) Connect(sessionID uuid.UUID) {
	s.hub.Send(sessionID, domain.VersionMessage(s.version))
	s.hub.SendStats()
	s.hub.Send(sessionID, s.store.Current().Message())
}

// Disconnect tells the remaining sessions about the reduced head count. The
// hub has already dropped the session and its safety level entry.
func (s *Service) Disconnect(sessionID uuid.UUID) {
	s.hub.SendStats()
}

// HandleMessage decodes one inbound frame and dispatches it by message kind.
// No inbound message is ever fatal to the connection.
func (s *Service) HandleMessage(sessionID uuid.UUID, raw []byte) {
	msg := protocol.Decode(raw)
	metrics.MessagesReceivedTotal.WithLabelValues(string(msg.Type)).Inc()

	switch msg.Type {
	case domain.MessageError:
		// Synthetic, produced by the codec: echo to the sender only.
		s.hub.Send(sessionID, msg)
		slog.Error("Session sent a message we could not understand",
			"session_id", sessionID.String(), "raw", string(raw))
	case domain.MessageCard:
		s.handleCard(msg)
	case domain.MessageVote:
		s.handleVote(msg)
	case domain.MessageSafetyLevel:
		s.handleSafetyLevel(sessionID, msg)
	default:
		// RETRO, STATS, PING, VERSION are server-to-client only.
		slog.Error("Unexpected message received",
			"session_id", sessionID.String(), "type", msg.Type)
	}
}

func (s *Service) handleCard(msg domain.Message) {
	submission, ok := protocol.CardSubmissionFromBody(msg.Body)
	if !ok {
		metrics.MessagesDroppedTotal.WithLabelValues("invalid_card_body").Inc()
		slog.Debug("Dropping invalid CARD message", "body", msg.Body)
		return
	}

	cardType, text := domain.NormalizeSubmission(submission.Type, submission.Text)
	card := domain.Card{ID: s.ids.Next(), Type: cardType, Text: text}

	retro := s.store.AddCard(card)
	metrics.CardsCreatedTotal.WithLabelValues(string(cardType)).Inc()

	s.hub.Broadcast(card.Message())
	s.snapshots.Enqueue(retro)
}

func (s *Service) handleVote(msg domain.Message) {
	slog.Info("VOTE message", "body", msg.Body)

	vote, ok := protocol.VoteFromBody(msg.Body)
	if !ok {
		metrics.MessagesDroppedTotal.WithLabelValues("invalid_vote_body").Inc()
		slog.Debug("Dropping invalid VOTE message", "body", msg.Body)
		return
	}

	retro, card, err := s.store.ApplyVote(vote.CardID, vote.Delta)
	if errors.Is(err, domain.ErrCardNotFound) {
		// Can legitimately race with an admin reset. Not fatal.
		metrics.MessagesDroppedTotal.WithLabelValues("unknown_card").Inc()
		slog.Debug("Dropping vote for unknown card", "card_id", vote.CardID)
		return
	}
	metrics.VotesAppliedTotal.Inc()

	// The broadcast carries the full current vote count, not the delta:
	// clients replace, never accumulate.
	s.hub.Broadcast(card.Message())
	s.snapshots.Enqueue(retro)
}

func (s *Service) handleSafetyLevel(sessionID uuid.UUID, msg domain.Message) {
	level, ok := protocol.SafetyLevelFromBody(msg.Body)
	if !ok {
		metrics.MessagesDroppedTotal.WithLabelValues("invalid_safety_level").Inc()
		slog.Debug("Dropping invalid SAFETY_LEVEL message", "body", msg.Body)
		return
	}

	s.hub.SetSafetyLevel(sessionID, level)
	s.hub.SendStats()
}

// Reset replaces the retro wholesale, clears the safety level map and pushes
// the new state to every session. Returns the new retro.
func (s *Service) Reset() domain.Retro {
	old, fresh := s.store.Reset()
	metrics.RetroResetsTotal.Inc()
	slog.Info("New retro created in place of the old one",
		"old_retro_id", old.ID, "old_cards", len(old.Cards), "new_retro_id", fresh.ID)

	s.hub.ClearSafetyLevels()
	s.hub.Broadcast(fresh.Message())
	s.hub.SendStats()
	s.snapshots.Enqueue(fresh)

	return fresh
}
