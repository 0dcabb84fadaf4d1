package arenalog

import (
	"github.com/arenalog/arenalog-go/internal/checkpoint"
	"github.com/arenalog/arenalog-go/internal/resolve"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// Re-export event types for convenience.
// Users can import just "github.com/arenalog/arenalog-go/pkg/arenalog"
// and use arenalog.Event, arenalog.EventMatchStarted, etc. The concrete
// variants (event.MatchStarted, event.LifeChange, ...) live in the event
// package.

// Event is a parsed domain event.
type Event = event.Event

// EventType represents the type of a domain event.
type EventType = event.Type

// RawLogEvent is one record extracted from a log file.
type RawLogEvent = event.RawLogEvent

// Event type constants.
const (
	EventMatchStarted   = event.TypeMatchStarted
	EventMatchEnded     = event.TypeMatchEnded
	EventTurnChange     = event.TypeTurnChange
	EventLifeChange     = event.TypeLifeChange
	EventGameAction     = event.TypeGameAction
	EventCardPlayed     = event.TypeCardPlayed
	EventMulligan       = event.TypeMulligan
	EventDraftPack      = event.TypeDraftPack
	EventDraftPick      = event.TypeDraftPick
	EventDraftCompleted = event.TypeDraftCompleted
	EventDeckSubmitted  = event.TypeDeckSubmitted

	EventRoomState         = event.TypeRoomState
	EventPhaseStep         = event.TypePhaseStep
	EventAttackersDeclared = event.TypeAttackersDeclared
	EventBlockersDeclared  = event.TypeBlockersDeclared
	EventDamageDealt       = event.TypeDamageDealt
	EventZoneMove          = event.TypeZoneMove
	EventManaPaid          = event.TypeManaPaid
	EventTimerWarning      = event.TypeTimerWarning
	EventPlayerChoice      = event.TypePlayerChoice
	EventGameOver          = event.TypeGameOver
)

// Request asks for the metadata of one card definition.
type Request = resolve.Request

// Card is resolved card metadata.
type Card = resolve.Card

// Resolver accepts card lookups. TrySubmit must not block;
// *resolve.Queue is the standard implementation.
type Resolver interface {
	TrySubmit(r Request) bool
}

// CardNamer returns the name of a card that has already been resolved.
type CardNamer interface {
	Name(grpID int) (string, bool)
}

// CheckpointStore persists per-file read offsets.
type CheckpointStore = checkpoint.Store

// TailState is a saved read offset.
type TailState = checkpoint.TailState

// NewMemoryCheckpointStore returns a CheckpointStore that lives as long as
// the process.
func NewMemoryCheckpointStore() CheckpointStore {
	return checkpoint.NewMemoryStore()
}

// OpenCheckpointStore opens (or creates) a durable CheckpointStore in dir.
// Close it when done.
func OpenCheckpointStore(dir string) (*checkpoint.BadgerStore, error) {
	return checkpoint.OpenBadgerStore(dir)
}
