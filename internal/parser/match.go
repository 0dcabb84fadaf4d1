package parser

import (
	"slices"

	"github.com/arenalog/arenalog-go/internal/gamedata"
	"github.com/arenalog/arenalog-go/internal/gre"
	"github.com/arenalog/arenalog-go/internal/payload"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

const (
	statePlaying        = "Playing"
	stateMatchCompleted = "MatchCompleted"

	matchStateComplete = "MatchState_MatchComplete"
	detailDamage       = "damage"
)

// handleStateChanged drives the match state machine from bare state
// transitions. Only entering Playing and Playing -> MatchCompleted are
// transitions; every other pair is informational.
func (p *Parser) handleStateChanged(raw event.RawLogEvent) {
	var sc gre.StateChange
	if err := payload.Decode(raw.RawData, raw.EventName, &sc); err != nil {
		p.malformed(raw, err)
		return
	}
	from, to := gamedata.ShortName(sc.Old), gamedata.ShortName(sc.New)
	switch {
	case to == statePlaying && from != statePlaying:
		p.startMatch("")
	case from == statePlaying && to == stateMatchCompleted:
		p.endMatch()
	}
}

// startMatch makes a match active. A start signal while a match is
// already active is merged into it.
func (p *Parser) startMatch(matchID string) {
	if p.match != nil {
		if p.match.MatchID == "" {
			p.match.MatchID = matchID
		}
		return
	}
	p.match = &event.MatchState{MatchID: matchID, Players: []event.Player{}, StartedAt: p.ts}
	p.resetGame()
	p.emit(event.MatchStarted{Header: event.At(event.TypeMatchStarted, p.ts), Match: p.match.Clone()})
}

func (p *Parser) endMatch() {
	if p.match == nil {
		return
	}
	ended := p.ts
	p.match.EndedAt = &ended
	p.emit(event.MatchEnded{Header: event.At(event.TypeMatchEnded, p.ts), Match: p.match.Clone()})
	p.match = nil
	p.resetGame()
}

// resetGame forgets per-game tables. Instance ids are only unique within
// one game.
func (p *Parser) resetGame() {
	clear(p.objects)
	clear(p.lifeKnown)
	p.zones.Reset()
	p.gameNumber = 0
}

// player returns the player at seat, creating it on first sight.
func (p *Parser) player(seat int) *event.Player {
	if pl, ok := p.match.Player(seat); ok {
		return pl
	}
	p.match.Players = append(p.match.Players, event.Player{SeatID: seat})
	return &p.match.Players[len(p.match.Players)-1]
}

func (p *Parser) handleRoomState(raw event.RawLogEvent) {
	var room gre.RoomEvent
	if err := payload.Decode(raw.RawData, raw.EventName, &room); err != nil {
		p.malformed(raw, err)
		return
	}
	info := room.GameRoomInfo
	switch info.StateType {
	case gre.RoomPlaying:
		p.startMatch(info.GameRoomConfig.MatchID)
		for _, rp := range info.GameRoomConfig.ReservedPlayers {
			if rp.SystemSeatID == 0 {
				continue
			}
			if pl := p.player(rp.SystemSeatID); rp.PlayerName != "" {
				pl.ScreenName = rp.PlayerName
			}
		}
	case gre.RoomMatchCompleted:
		if p.match == nil {
			return
		}
		if r, ok := info.FinalMatchResult.MatchResult(); ok {
			p.match.Result = &event.MatchResult{
				WinningTeamID: r.WinningTeamID,
				Result:        gamedata.ShortName(r.Result),
				Reason:        gamedata.ShortName(r.Reason),
			}
		}
		p.endMatch()
	}
}

func (p *Parser) handleGREEvent(raw event.RawLogEvent) {
	var ev gre.GREEvent
	if err := payload.Decode(raw.RawData, raw.EventName, &ev); err != nil {
		p.malformed(raw, err)
		return
	}
	for _, msg := range ev.Messages {
		switch msg.Type {
		case gre.MsgGameState, gre.MsgQueuedGameState:
			if msg.GameStateMessage != nil {
				p.applyGameState(msg.GameStateMessage)
			}
		case gre.MsgConnectResp:
			if msg.ConnectResp != nil && len(msg.SystemSeatIDs) > 0 {
				p.startMatch("")
				pl := p.player(msg.SystemSeatIDs[0])
				pl.DeckCards = slices.Clone(msg.ConnectResp.DeckMessage.DeckCards)
			}
		case gre.MsgMulliganReq:
			if msg.MulliganReq != nil && len(msg.SystemSeatIDs) > 0 {
				p.startMatch("")
				p.setMulligans(msg.SystemSeatIDs[0], msg.MulliganReq.MulliganCount)
			}
		}
	}
}

// setMulligans records a seat's mulligan count and reports increases.
func (p *Parser) setMulligans(seat, count int) {
	pl := p.player(seat)
	if count <= pl.Mulligans {
		return
	}
	pl.Mulligans = count
	p.emit(event.Mulligan{Header: event.At(event.TypeMulligan, p.ts), Player: seat, Count: count})
}

// applyGameState processes each section of a game state independently. A
// missing section leaves that facet unchanged.
func (p *Parser) applyGameState(gs *gre.GameState) {
	matchID := ""
	if gs.GameInfo != nil {
		matchID = gs.GameInfo.MatchID
	}
	p.startMatch(matchID)

	if gi := gs.GameInfo; gi != nil {
		if gi.GameNumber > p.gameNumber {
			if p.gameNumber != 0 {
				clear(p.objects)
				p.zones.Reset()
			}
			p.gameNumber = gi.GameNumber
		}
		if gi.MatchState == matchStateComplete {
			for _, r := range gi.Results {
				if r.Scope == gre.ScopeMatch {
					p.match.Result = &event.MatchResult{
						WinningTeamID: r.WinningTeamID,
						Result:        gamedata.ShortName(r.Result),
						Reason:        gamedata.ShortName(r.Reason),
					}
				}
			}
		}
	}
	if gs.TurnInfo != nil {
		p.applyTurn(gs.TurnInfo)
	}
	for _, pi := range gs.Players {
		p.applyPlayer(pi)
	}
	for _, z := range gs.Zones {
		p.zones.Set(z.ZoneID, z.Type, z.OwnerSeatID)
	}
	for _, obj := range gs.GameObjects {
		p.applyObject(obj)
	}
	for _, z := range gs.Zones {
		p.applyZone(z)
	}
	for _, a := range gs.Annotations {
		p.applyAnnotation(a)
	}
	for _, a := range gs.PersistentAnnotations {
		p.applyPersistent(a)
	}
	for _, aw := range gs.Actions {
		if a := aw.Action; a.GrpID != 0 && (a.ActionType == "ActionType_Cast" || a.ActionType == "ActionType_Play") {
			p.request(a.GrpID, "playable")
		}
	}
	for _, id := range gs.DiffDeletedInstanceIDs {
		delete(p.objects, id)
	}
}

func (p *Parser) applyTurn(ti *gre.TurnInfo) {
	m := p.match
	if ti.Phase != "" {
		m.Phase = ti.Phase
	}
	if ti.Step != "" {
		m.Step = ti.Step
	}
	if ti.TurnNumber == 0 || ti.TurnNumber == m.CurrentTurn {
		return
	}
	m.CurrentTurn = ti.TurnNumber
	if ti.ActivePlayer != 0 {
		m.ActivePlayer = ti.ActivePlayer
	}
	p.emit(event.TurnChange{
		Header:       event.At(event.TypeTurnChange, p.ts),
		Turn:         m.CurrentTurn,
		ActivePlayer: m.ActivePlayer,
		Phase:        m.Phase,
		Step:         m.Step,
	})
}

// applyPlayer updates a seat. Life changes are reported only against a
// previously recorded value.
func (p *Parser) applyPlayer(pi gre.PlayerInfo) {
	seat := pi.SystemSeatNumber
	if seat == 0 {
		return
	}
	pl := p.player(seat)
	if pi.LifeTotal != nil {
		life := *pi.LifeTotal
		old := pl.LifeTotal
		known := p.lifeKnown[seat]
		pl.LifeTotal = life
		p.lifeKnown[seat] = true
		if known && old != life {
			p.emit(event.LifeChange{
				Header:  event.At(event.TypeLifeChange, p.ts),
				Player:  seat,
				OldLife: old,
				NewLife: life,
			})
		}
	}
	if pi.MulliganCount != nil {
		p.setMulligans(seat, *pi.MulliganCount)
	}
}

func (p *Parser) applyObject(obj gre.GameObject) {
	if obj.InstanceID == 0 {
		return
	}
	info := p.objects[obj.InstanceID]
	if obj.GrpID != 0 {
		info.GrpID = obj.GrpID
	}
	if obj.OwnerSeatID != 0 {
		info.OwnerSeat = obj.OwnerSeatID
	}
	if obj.ZoneID != 0 {
		info.ZoneID = obj.ZoneID
		info.Zone = p.zones.Name(obj.ZoneID)
	}
	if name := p.cardName(info.GrpID); name != "" {
		info.CardName = name
	}
	p.objects[obj.InstanceID] = info
}

// applyZone moves listed objects into the zone and tracks hand sizes. The
// opening hand is the hand as it stands before the first turn.
func (p *Parser) applyZone(z gre.Zone) {
	name := p.zones.Name(z.ZoneID)
	for _, id := range z.ObjectInstanceIDs {
		if obj, ok := p.objects[id]; ok {
			obj.ZoneID = z.ZoneID
			obj.Zone = name
			p.objects[id] = obj
		}
	}
	if !gamedata.IsHandZone(z.Type) || z.OwnerSeatID == 0 {
		return
	}
	pl := p.player(z.OwnerSeatID)
	pl.HandSize = len(z.ObjectInstanceIDs)
	if p.match.CurrentTurn != 0 {
		return
	}
	var hand []int
	for _, id := range z.ObjectInstanceIDs {
		if obj, ok := p.objects[id]; ok && obj.GrpID != 0 {
			hand = append(hand, obj.GrpID)
		}
	}
	if len(hand) > 0 {
		pl.InitialHand = hand
	}
}

func (p *Parser) applyAnnotation(a gre.Annotation) {
	switch {
	case a.Has(gre.AnnObjectIDChanged):
		orig, ok1 := a.Int("orig_id")
		next, ok2 := a.Int("new_id")
		if !ok1 || !ok2 {
			return
		}
		if obj, ok := p.objects[orig]; ok {
			if _, exists := p.objects[next]; !exists {
				p.objects[next] = obj
			}
			delete(p.objects, orig)
		}
	case a.Has(gre.AnnZoneTransfer):
		p.applyZoneTransfer(a)
	case a.Has(gre.AnnDamageDealt):
		amount, _ := a.Int(detailDamage)
		src := p.objects[a.AffectorID]
		p.recordAction(event.Action{
			Turn:       p.match.CurrentTurn,
			Seat:       src.OwnerSeat,
			ActionType: "DamageDealt",
			InstanceID: a.AffectorID,
			GrpID:      src.GrpID,
			Amount:     amount,
		})
	}
}

// applyZoneTransfer moves each affected object and requests its card. Land
// plays and spell casts are reported as CardPlayed; other categories as
// generic actions.
func (p *Parser) applyZoneTransfer(a gre.Annotation) {
	src, _ := a.Int("zone_src")
	dst, _ := a.Int("zone_dest")
	category, _ := a.Text("category")
	from, to := p.zones.Name(src), p.zones.Name(dst)

	for _, id := range a.AffectedIDs {
		obj, known := p.objects[id]
		if dst != 0 {
			obj.ZoneID = dst
			obj.Zone = to
		}
		if known {
			p.objects[id] = obj
			p.request(obj.GrpID, gamedata.CategoryContext(category))
		}

		if gamedata.IsPlayCategory(category) {
			seat := obj.OwnerSeat
			if seat == 0 {
				seat = p.match.ActivePlayer
			}
			name := obj.CardName
			if name == "" {
				name = p.cardName(obj.GrpID)
			}
			p.match.Actions = append(p.match.Actions, event.Action{
				Turn:       p.match.CurrentTurn,
				Seat:       seat,
				ActionType: category,
				InstanceID: id,
				GrpID:      obj.GrpID,
			})
			p.emit(event.CardPlayed{
				Header:     event.At(event.TypeCardPlayed, p.ts),
				Seat:       seat,
				InstanceID: id,
				GrpID:      obj.GrpID,
				Category:   category,
				From:       from,
				To:         to,
				CardName:   name,
			})
			continue
		}
		if category != "" {
			p.recordAction(event.Action{
				Turn:       p.match.CurrentTurn,
				Seat:       obj.OwnerSeat,
				ActionType: category,
				InstanceID: id,
				GrpID:      obj.GrpID,
			})
		}
	}
}

// applyPersistent handles persistent annotations that move objects.
func (p *Parser) applyPersistent(a gre.Annotation) {
	if !a.Has(gre.AnnEnteredZoneThisTurn) || a.AffectorID == 0 {
		return
	}
	name := p.zones.Name(a.AffectorID)
	for _, id := range a.AffectedIDs {
		if obj, ok := p.objects[id]; ok {
			obj.ZoneID = a.AffectorID
			obj.Zone = name
			p.objects[id] = obj
		}
	}
}

func (p *Parser) recordAction(a event.Action) {
	p.match.Actions = append(p.match.Actions, a)
	p.emit(event.GameAction{Header: event.At(event.TypeGameAction, p.ts), Action: a})
}
