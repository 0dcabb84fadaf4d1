// Package event defines the record and event types produced by arenalog.
//
// This package is separated from the main arenalog package to avoid import
// cycles between pkg/arenalog and the internal parsers.
package event

import (
	"sort"
	"strings"
	"time"
)

// Type represents the type of a domain event.
type Type string

// Main log stream event types.
const (
	// TypeMatchStarted indicates a new match became active.
	TypeMatchStarted Type = "match_started"

	// TypeMatchEnded indicates the active match finished.
	TypeMatchEnded Type = "match_ended"

	// TypeTurnChange indicates a new turn began.
	TypeTurnChange Type = "turn_change"

	// TypeLifeChange indicates a player's life total changed.
	TypeLifeChange Type = "life_change"

	// TypeGameAction is a generic in-game action.
	TypeGameAction Type = "game_action"

	// TypeCardPlayed indicates a land was played or a spell was cast.
	TypeCardPlayed Type = "card_played"

	// TypeMulligan indicates a player took a mulligan.
	TypeMulligan Type = "mulligan"

	// TypeDraftPack indicates a draft pack was presented.
	TypeDraftPack Type = "draft_pack"

	// TypeDraftPick indicates a card was picked from a draft pack.
	TypeDraftPick Type = "draft_pick"

	// TypeDraftCompleted indicates the draft finished.
	TypeDraftCompleted Type = "draft_completed"

	// TypeDeckSubmitted indicates a deck was submitted to an event.
	TypeDeckSubmitted Type = "deck_submitted"
)

// Player log stream event types.
const (
	TypeRoomState        Type = "room_state"
	TypePhaseStep        Type = "phase_step"
	TypeAttackersDeclared Type = "attackers_declared"
	TypeBlockersDeclared Type = "blockers_declared"
	TypeDamageDealt      Type = "damage_dealt"
	TypeZoneMove         Type = "zone_move"
	TypeManaPaid         Type = "mana_paid"
	TypeTimerWarning     Type = "timer_warning"
	TypePlayerChoice     Type = "player_choice"
	TypeGameOver         Type = "game_over"
)

// mainTypes and playerTypes are the canonical lists of event types per stream.
// Add new event types here when extending a parser.
var (
	mainTypes = []Type{
		TypeMatchStarted, TypeMatchEnded, TypeTurnChange, TypeLifeChange,
		TypeGameAction, TypeCardPlayed, TypeMulligan, TypeDraftPack,
		TypeDraftPick, TypeDraftCompleted, TypeDeckSubmitted,
	}
	playerTypes = []Type{
		TypeRoomState, TypePhaseStep, TypeAttackersDeclared, TypeBlockersDeclared,
		TypeDamageDealt, TypeZoneMove, TypeManaPaid, TypeTimerWarning,
		TypePlayerChoice, TypeGameOver,
	}
	allTypes = append(append([]Type{}, mainTypes...), playerTypes...)
)

// TypeNames returns a sorted list of all valid event type names.
// This is the single source of truth for event type enumeration.
func TypeNames() []string {
	names := make([]string, len(allTypes))
	for i, t := range allTypes {
		names[i] = string(t)
	}
	sort.Strings(names)
	return names
}

// MainTypes returns the event types produced by the main log parser.
func MainTypes() []Type { return append([]Type(nil), mainTypes...) }

// PlayerTypes returns the event types produced by the player log parser.
func PlayerTypes() []Type { return append([]Type(nil), playerTypes...) }

// typeByName maps lowercase string names to Type for efficient lookup.
// Built once from allTypes at package initialization.
var typeByName = func() map[string]Type {
	m := make(map[string]Type, len(allTypes))
	for _, t := range allTypes {
		m[string(t)] = t
	}
	return m
}()

// ParseType converts a string to Type if valid.
// It is case-insensitive and trims leading/trailing whitespace.
// Returns the type and true if found, zero value and false otherwise.
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	t, ok := typeByName[name]
	return t, ok
}

// RawLogEvent is one self-contained record extracted from the log.
// A zero Timestamp means the record carried no timestamp.
type RawLogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventName string    `json:"event_name"`
	RawData   string    `json:"raw_data"`
}

// Event is a parsed domain event. The set of implementations is closed:
// every variant embeds Header.
type Event interface {
	Kind() Type
	Time() time.Time
	header() Header
}

// Header carries the fields shared by every event variant.
type Header struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// At returns a Header for an event of type t observed at ts.
func At(t Type, ts time.Time) Header {
	return Header{Type: t, Timestamp: ts}
}

// Kind returns the event type.
func (h Header) Kind() Type { return h.Type }

// Time returns when the event was observed.
func (h Header) Time() time.Time { return h.Timestamp }

func (h Header) header() Header { return h }
