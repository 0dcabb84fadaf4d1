// Package parser turns main-log records into domain events.
//
// A Parser owns the derived session state: the active match, the current
// draft and a table of game objects keyed by instance id. It is driven by
// a single goroutine and never performs I/O. Card lookups are returned as
// values for the caller to hand to a resolver.
package parser

import (
	"log/slog"
	"time"

	"github.com/arenalog/arenalog-go/internal/frame"
	"github.com/arenalog/arenalog-go/internal/gamedata"
	"github.com/arenalog/arenalog-go/internal/resolve"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// Record names handled by the main parser.
const (
	NameGreToClient      = "GreToClientEvent"
	NameRoomStateChanged = "MatchGameRoomStateChangedEvent"
	NameSetDeck          = "EventSetDeckV2"
	NameDeckSubmit       = "DeckSubmit"
	NameBotDraftStatus   = "BotDraftDraftStatus"
	NameDraftStatus      = "DraftStatus"
	NameDraftNotify      = "DraftNotify"
	NameBotDraftPick     = "BotDraftDraftPick"
	NamePlayerDraftPick  = "EventPlayerDraftMakePick"
	NameDraftPick        = "DraftPick"
)

// GameObjectInfo is what the parser remembers about a game object.
type GameObjectInfo struct {
	GrpID     int
	OwnerSeat int
	ZoneID    int
	Zone      string
	CardName  string
}

// Result is everything one record produced.
type Result struct {
	Events  []event.Event
	Lookups []resolve.Request
}

// Empty reports whether the record produced nothing.
func (r Result) Empty() bool {
	return len(r.Events) == 0 && len(r.Lookups) == 0
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the time source used for records without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// WithLogger sets the logger for malformed-record diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.log = logger
		}
	}
}

// WithCardNames sets a name lookup used to enrich objects and events.
// Names are display-only; parsing never depends on them.
func WithCardNames(names func(grpID int) (string, bool)) Option {
	return func(p *Parser) {
		p.names = names
	}
}

// Parser is the main-log state machine.
type Parser struct {
	now   func() time.Time
	log   *slog.Logger
	names func(int) (string, bool)

	match      *event.MatchState
	draft      *event.DraftState
	objects    map[int]GameObjectInfo
	zones      gamedata.ZoneTable
	lifeKnown  map[int]bool
	gameNumber int

	// per-record output
	ts  time.Time
	out Result
}

// New creates a Parser with no active match or draft.
func New(opts ...Option) *Parser {
	p := &Parser{
		now:       time.Now,
		log:       slog.New(slog.DiscardHandler),
		objects:   make(map[int]GameObjectInfo),
		lifeKnown: make(map[int]bool),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Parse dispatches one record. Unknown record names produce an empty
// Result; so do malformed payloads of known names.
func (p *Parser) Parse(raw event.RawLogEvent) Result {
	p.ts = raw.Timestamp
	if p.ts.IsZero() {
		p.ts = p.now()
	}
	p.out = Result{}

	switch raw.EventName {
	case frame.StateChanged:
		p.handleStateChanged(raw)
	case NameGreToClient:
		p.handleGREEvent(raw)
	case NameRoomStateChanged:
		p.handleRoomState(raw)
	case NameSetDeck, NameDeckSubmit:
		p.handleDeck(raw)
	case NameBotDraftStatus, NameDraftStatus, NameDraftNotify:
		p.handleDraftStatus(raw)
	case NameBotDraftPick, NamePlayerDraftPick, NameDraftPick:
		p.handleDraftPick(raw)
	}

	out := p.out
	p.out = Result{}
	return out
}

// Match returns a copy of the active match.
func (p *Parser) Match() (event.MatchState, bool) {
	if p.match == nil {
		return event.MatchState{}, false
	}
	return p.match.Clone(), true
}

// Draft returns a copy of the current or last draft.
func (p *Parser) Draft() (event.DraftState, bool) {
	if p.draft == nil {
		return event.DraftState{}, false
	}
	return p.draft.Clone(), true
}

// Lookup returns what is known about a game object.
func (p *Parser) Lookup(instanceID int) (GameObjectInfo, bool) {
	obj, ok := p.objects[instanceID]
	return obj, ok
}

// Objects returns the number of tracked game objects.
func (p *Parser) Objects() int {
	return len(p.objects)
}

func (p *Parser) emit(ev event.Event) {
	p.out.Events = append(p.out.Events, ev)
}

func (p *Parser) request(grpID int, context string) {
	if grpID == 0 {
		return
	}
	p.out.Lookups = append(p.out.Lookups, resolve.Request{Key: grpID, Context: context})
}

func (p *Parser) cardName(grpID int) string {
	if p.names == nil || grpID == 0 {
		return ""
	}
	name, _ := p.names(grpID)
	return name
}

func (p *Parser) malformed(raw event.RawLogEvent, err error) {
	p.log.Debug("skipping malformed record", "event", raw.EventName, "error", err)
}
