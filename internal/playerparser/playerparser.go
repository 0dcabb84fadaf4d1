// Package playerparser decodes the player log into display-oriented
// events: phases and steps with readable names, combat, damage, zone
// moves, mana payments, timers and the local player's choices.
//
// A Parser keeps its own object and zone tables and shares no state with
// the main-log parser; either can run without the other.
package playerparser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/arenalog/arenalog-go/internal/gamedata"
	"github.com/arenalog/arenalog-go/internal/gre"
	"github.com/arenalog/arenalog-go/internal/payload"
	"github.com/arenalog/arenalog-go/internal/resolve"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// Record names handled by the player parser.
const (
	NameGreToClient      = "GreToClientEvent"
	NameClientToGre      = "ClientToGreMessage"
	NameRoomStateChanged = "MatchGameRoomStateChangedEvent"
)

// DefaultTimerWarning is the remaining time at which a running timer is
// reported when it carries no threshold of its own.
const DefaultTimerWarning = 30

const (
	attackStateAttacking = "AttackState_Attacking"
	blockStateBlocking   = "BlockState_Blocking"
	stageGameOver        = "GameStage_GameOver"
)

// Result is everything one record produced.
type Result struct {
	Events  []event.Event
	Lookups []resolve.Request
}

type object struct {
	grpID  int
	owner  int
	zoneID int
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

// WithCardNames sets a name lookup used to label objects.
func WithCardNames(names func(grpID int) (string, bool)) Option {
	return func(p *Parser) {
		p.names = names
	}
}

// Parser is the player-log decoder.
type Parser struct {
	now   func() time.Time
	log   *slog.Logger
	names func(int) (string, bool)

	objects map[int]object
	zones   gamedata.ZoneTable

	turn       uint32
	active     int
	phase      string
	step       string
	gameNumber int

	attacking map[int]bool
	blocking  map[int]bool
	warned    map[int]bool
	gameOver  map[int]bool

	// timerSeats maps timer ids to the seat that owns them.
	timerSeats map[int]int

	ts  time.Time
	out Result
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		now:       time.Now,
		log:       slog.New(slog.DiscardHandler),
		objects:   make(map[int]object),
		attacking: make(map[int]bool),
		blocking:  make(map[int]bool),
		warned:    make(map[int]bool),
		gameOver:  make(map[int]bool),

		timerSeats: make(map[int]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Parse decodes one record. Unknown names and malformed payloads produce
// an empty Result.
func (p *Parser) Parse(raw event.RawLogEvent) Result {
	p.ts = raw.Timestamp
	if p.ts.IsZero() {
		p.ts = p.now()
	}
	p.out = Result{}

	var err error
	switch raw.EventName {
	case NameGreToClient:
		var ev gre.GREEvent
		if err = payload.Decode(raw.RawData, raw.EventName, &ev); err == nil {
			for _, msg := range ev.Messages {
				p.handleMessage(msg)
			}
		}
	case NameClientToGre:
		var msg gre.ClientMessage
		if err = payload.Decode(raw.RawData, raw.EventName, &msg); err == nil {
			p.handleClient(msg)
		}
	case NameRoomStateChanged:
		var room gre.RoomEvent
		if err = payload.Decode(raw.RawData, raw.EventName, &room); err == nil {
			p.handleRoom(room.GameRoomInfo)
		}
	}
	if err != nil {
		p.log.Debug("skipping malformed record", "event", raw.EventName, "error", err)
	}

	out := p.out
	p.out = Result{}
	return out
}

// Objects returns the number of tracked game objects.
func (p *Parser) Objects() int {
	return len(p.objects)
}

func (p *Parser) emit(ev event.Event) {
	p.out.Events = append(p.out.Events, ev)
}

func (p *Parser) ref(id int) event.ObjectRef {
	r := event.ObjectRef{InstanceID: id}
	if obj, ok := p.objects[id]; ok {
		r.GrpID = obj.grpID
		r.Owner = obj.owner
		if p.names != nil && obj.grpID != 0 {
			r.Name, _ = p.names(obj.grpID)
		}
	}
	return r
}

func (p *Parser) handleRoom(info gre.GameRoomInfo) {
	ev := event.RoomState{
		Header:  event.At(event.TypeRoomState, p.ts),
		MatchID: info.GameRoomConfig.MatchID,
		State:   gamedata.ShortName(info.StateType),
	}
	for _, rp := range info.GameRoomConfig.ReservedPlayers {
		ev.Players = append(ev.Players, event.RoomPlayer{Seat: rp.SystemSeatID, TeamID: rp.TeamID, Name: rp.PlayerName})
	}
	if info.StateType == gre.RoomPlaying {
		p.reset()
	}
	if ev.MatchID == "" && info.FinalMatchResult != nil {
		ev.MatchID = info.FinalMatchResult.MatchID
	}
	p.emit(ev)
}

// reset forgets everything tied to the previous match.
func (p *Parser) reset() {
	clear(p.objects)
	clear(p.attacking)
	clear(p.blocking)
	clear(p.warned)
	clear(p.gameOver)
	clear(p.timerSeats)
	p.zones.Reset()
	p.turn, p.active, p.phase, p.step, p.gameNumber = 0, 0, "", "", 0
}

func (p *Parser) handleMessage(msg gre.Message) {
	switch msg.Type {
	case gre.MsgGameState, gre.MsgQueuedGameState:
		if msg.GameStateMessage != nil {
			p.applyGameState(msg.GameStateMessage)
		}
	case gre.MsgTimerState:
		if msg.TimerState != nil {
			p.checkTimers(msg.TimerState.SeatID, msg.TimerState.Timers)
		}
	case gre.MsgIntermissionReq:
		if msg.IntermissionReq != nil && msg.IntermissionReq.Result != nil {
			p.reportGameOver(*msg.IntermissionReq.Result)
		}
	}
}

func (p *Parser) applyGameState(gs *gre.GameState) {
	if gi := gs.GameInfo; gi != nil && gi.GameNumber > p.gameNumber {
		if p.gameNumber != 0 {
			clear(p.objects)
			p.zones.Reset()
		}
		p.gameNumber = gi.GameNumber
	}
	for _, pl := range gs.Players {
		for _, id := range pl.TimerIDs {
			p.timerSeats[id] = pl.SystemSeatNumber
		}
	}
	for _, z := range gs.Zones {
		p.zones.Set(z.ZoneID, z.Type, z.OwnerSeatID)
	}
	for _, obj := range gs.GameObjects {
		p.applyObject(obj)
	}
	if gs.TurnInfo != nil {
		p.applyTurn(gs.TurnInfo)
	}
	p.checkCombat(gs.GameObjects)
	for _, a := range gs.Annotations {
		p.applyAnnotation(a)
	}
	if len(gs.Timers) > 0 {
		p.checkTimers(0, gs.Timers)
	}
	for _, id := range gs.DiffDeletedInstanceIDs {
		delete(p.objects, id)
	}
	if gi := gs.GameInfo; gi != nil && gi.Stage == stageGameOver {
		for _, r := range gi.Results {
			if r.Scope == gre.ScopeGame {
				p.reportGameOver(r)
			}
		}
	}
}

func (p *Parser) applyObject(obj gre.GameObject) {
	if obj.InstanceID == 0 {
		return
	}
	o := p.objects[obj.InstanceID]
	if obj.GrpID != 0 {
		o.grpID = obj.GrpID
	}
	if obj.OwnerSeatID != 0 {
		o.owner = obj.OwnerSeatID
	}
	if obj.ZoneID != 0 {
		o.zoneID = obj.ZoneID
	}
	p.objects[obj.InstanceID] = o
}

// applyTurn reports every phase or step change. A new turn resets the
// combat bookkeeping.
func (p *Parser) applyTurn(ti *gre.TurnInfo) {
	turn, active, phase, step := p.turn, p.active, p.phase, p.step
	if ti.TurnNumber != 0 {
		turn = ti.TurnNumber
	}
	if ti.ActivePlayer != 0 {
		active = ti.ActivePlayer
	}
	if ti.Phase != "" && ti.Phase != phase {
		phase = ti.Phase
		step = ""
	}
	if ti.Step != "" {
		step = ti.Step
	}
	if turn != p.turn {
		clear(p.attacking)
		clear(p.blocking)
	}
	changed := turn != p.turn || phase != p.phase || step != p.step
	p.turn, p.active, p.phase, p.step = turn, active, phase, step
	if !changed || phase == "" {
		return
	}
	ev := event.PhaseStep{
		Header:       event.At(event.TypePhaseStep, p.ts),
		Turn:         turn,
		ActivePlayer: active,
		Phase:        gamedata.PhaseName(phase),
	}
	if step != "" {
		ev.Step = gamedata.StepName(step)
	}
	p.emit(ev)
}

// checkCombat reports attackers and blockers not yet reported this turn.
func (p *Parser) checkCombat(objs []gre.GameObject) {
	var attackers []event.ObjectRef
	var blocks []event.Block
	for _, obj := range objs {
		if obj.AttackState == attackStateAttacking && !p.attacking[obj.InstanceID] {
			p.attacking[obj.InstanceID] = true
			attackers = append(attackers, p.ref(obj.InstanceID))
		}
		if obj.BlockState == blockStateBlocking && !p.blocking[obj.InstanceID] {
			p.blocking[obj.InstanceID] = true
			b := event.Block{Blocker: p.ref(obj.InstanceID)}
			if obj.BlockInfo != nil {
				b.Attackers = append([]int(nil), obj.BlockInfo.AttackerIDs...)
			}
			blocks = append(blocks, b)
		}
	}
	if len(attackers) > 0 {
		p.emit(event.AttackersDeclared{Header: event.At(event.TypeAttackersDeclared, p.ts), Turn: p.turn, Attackers: attackers})
	}
	if len(blocks) > 0 {
		p.emit(event.BlockersDeclared{Header: event.At(event.TypeBlockersDeclared, p.ts), Turn: p.turn, Blocks: blocks})
	}
}

func (p *Parser) applyAnnotation(a gre.Annotation) {
	switch {
	case a.Has(gre.AnnObjectIDChanged):
		orig, ok1 := a.Int("orig_id")
		next, ok2 := a.Int("new_id")
		if obj, ok := p.objects[orig]; ok && ok1 && ok2 {
			if _, exists := p.objects[next]; !exists {
				p.objects[next] = obj
			}
			delete(p.objects, orig)
		}
	case a.Has(gre.AnnZoneTransfer):
		src, _ := a.Int("zone_src")
		dst, _ := a.Int("zone_dest")
		category, _ := a.Text("category")
		for _, id := range a.AffectedIDs {
			if obj, ok := p.objects[id]; ok && dst != 0 {
				obj.zoneID = dst
				p.objects[id] = obj
				if obj.grpID != 0 {
					p.out.Lookups = append(p.out.Lookups, resolve.Request{Key: obj.grpID, Context: gamedata.CategoryContext(category)})
				}
			}
			p.emit(event.ZoneMove{
				Header:   event.At(event.TypeZoneMove, p.ts),
				Object:   p.ref(id),
				From:     p.zones.Name(src),
				To:       p.zones.Name(dst),
				Category: category,
			})
		}
	case a.Has(gre.AnnDamageDealt):
		amount, _ := a.Int("damage")
		p.emit(event.DamageDealt{
			Header:  event.At(event.TypeDamageDealt, p.ts),
			Source:  p.ref(a.AffectorID),
			Targets: append([]int(nil), a.AffectedIDs...),
			Amount:  amount,
		})
	case a.Has(gre.AnnManaPaid):
		p.emit(event.ManaPaid{
			Header:  event.At(event.TypeManaPaid, p.ts),
			Source:  p.ref(a.AffectorID),
			Symbols: gamedata.ManaSymbols(a.Ints("color")),
		})
	}
}

// checkTimers reports each running timer once when it drops to its
// warning threshold. A timer that stops or is refilled may warn again.
// Timers are attributed to seat, or to their owner when seat is 0.
func (p *Parser) checkTimers(seat int, timers []gre.Timer) {
	for _, t := range timers {
		threshold := t.WarningThresholdSec
		if threshold <= 0 {
			threshold = DefaultTimerWarning
		}
		remaining := t.Remaining()
		if !t.Running || remaining > threshold {
			delete(p.warned, t.TimerID)
			continue
		}
		if p.warned[t.TimerID] {
			continue
		}
		p.warned[t.TimerID] = true
		owner := seat
		if owner == 0 {
			owner = p.timerSeats[t.TimerID]
		}
		p.emit(event.TimerWarning{
			Header:           event.At(event.TypeTimerWarning, p.ts),
			Seat:             owner,
			Timer:            gamedata.ShortName(t.Type),
			SecondsRemaining: remaining,
		})
	}
}

// reportGameOver emits GameOver once per game.
func (p *Parser) reportGameOver(r gre.Result) {
	if p.gameOver[p.gameNumber] {
		return
	}
	p.gameOver[p.gameNumber] = true
	p.emit(event.GameOver{
		Header:        event.At(event.TypeGameOver, p.ts),
		WinningTeamID: r.WinningTeamID,
		Result:        gamedata.ShortName(r.Result),
		Reason:        gamedata.ShortName(r.Reason),
	})
}

func (p *Parser) handleClient(msg gre.ClientMessage) {
	choice := event.PlayerChoice{Header: event.At(event.TypePlayerChoice, p.ts), Seat: msg.SystemSeatID}
	switch {
	case msg.MulliganResp != nil:
		choice.Choice = "mulligan"
		choice.Detail = gamedata.ShortName(msg.MulliganResp.Decision)
	case msg.ConcedeReq != nil:
		choice.Choice = "concede"
		choice.Detail = gamedata.ShortName(msg.ConcedeReq.Scope)
	case msg.DeclareAttackers != nil:
		choice.Choice = "declare_attackers"
		n := len(msg.DeclareAttackers.SelectedAttackers)
		switch {
		case msg.DeclareAttackers.AutoDeclare:
			choice.Detail = "all"
		case n == 1:
			choice.Detail = "1 attacker"
		default:
			choice.Detail = fmt.Sprintf("%d attackers", n)
		}
	case msg.PerformActionResp != nil && len(msg.PerformActionResp.Actions) > 0:
		a := msg.PerformActionResp.Actions[0]
		choice.Choice = "perform_action"
		choice.Detail = gamedata.ShortName(a.ActionType)
		if a.GrpID != 0 {
			p.out.Lookups = append(p.out.Lookups, resolve.Request{Key: a.GrpID, Context: "chosen action"})
		}
	default:
		return
	}
	p.emit(choice)
}
