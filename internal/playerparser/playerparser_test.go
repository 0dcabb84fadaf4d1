package playerparser

import (
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/arenalog/arenalog-go/internal/resolve"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

var t0 = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

func rec(name, data string) event.RawLogEvent {
	return event.RawLogEvent{Timestamp: t0, EventName: name, RawData: data}
}

func messages(msgs string) event.RawLogEvent {
	return rec(NameGreToClient, `{"transactionId":"7","greToClientEvent":{"greToClientMessages":[`+msgs+`]}}`)
}

func gameState(gs string) event.RawLogEvent {
	return messages(`{"type":"GREMessageType_GameStateMessage","gameStateMessage":` + gs + `}`)
}

func kinds(evs []event.Event) []event.Type {
	out := make([]event.Type, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind()
	}
	return out
}

func TestParser_PhaseStep(t *testing.T) {
	p := New()
	steps := []struct {
		turnInfo string
		want     []event.PhaseStep
	}{
		{`{"turnNumber":1,"activePlayer":1,"phase":"Phase_Beginning","step":"Step_Upkeep"}`,
			[]event.PhaseStep{{Turn: 1, ActivePlayer: 1, Phase: "Beginning", Step: "Upkeep"}}},
		{`{"turnNumber":1,"activePlayer":1,"phase":"Phase_Beginning","step":"Step_Upkeep"}`, nil},
		{`{"phase":"Phase_Beginning","step":"Step_Draw"}`,
			[]event.PhaseStep{{Turn: 1, ActivePlayer: 1, Phase: "Beginning", Step: "Draw"}}},
		{`{"phase":"Phase_Main1"}`,
			[]event.PhaseStep{{Turn: 1, ActivePlayer: 1, Phase: "Main 1"}}},
		{`{"turnNumber":2,"activePlayer":2,"phase":"Phase_Beginning","step":"Step_Untap"}`,
			[]event.PhaseStep{{Turn: 2, ActivePlayer: 2, Phase: "Beginning", Step: "Untap"}}},
	}
	for i, s := range steps {
		res := p.Parse(gameState(`{"turnInfo":` + s.turnInfo + `}`))
		var got []event.PhaseStep
		for _, ev := range res.Events {
			ps := ev.(event.PhaseStep)
			ps.Header = event.Header{}
			got = append(got, ps)
		}
		if !reflect.DeepEqual(got, s.want) {
			t.Errorf("step %d: events = %+v, want %+v", i, got, s.want)
		}
	}
}

func TestParser_Combat(t *testing.T) {
	p := New(WithCardNames(func(id int) (string, bool) {
		if id == 70000 {
			return "Grizzly Bears", true
		}
		return "", false
	}))
	p.Parse(gameState(`{"turnInfo":{"turnNumber":3,"activePlayer":1,"phase":"Phase_Combat","step":"Step_DeclareAttack"}}`))

	res := p.Parse(gameState(`{"gameObjects":[{"instanceId":300,"grpId":70000,"ownerSeatId":1,"attackState":"AttackState_Attacking"}]}`))
	if len(res.Events) != 1 {
		t.Fatalf("events = %v, want AttackersDeclared", kinds(res.Events))
	}
	att := res.Events[0].(event.AttackersDeclared)
	want := []event.ObjectRef{{InstanceID: 300, GrpID: 70000, Owner: 1, Name: "Grizzly Bears"}}
	if att.Turn != 3 || !reflect.DeepEqual(att.Attackers, want) {
		t.Errorf("AttackersDeclared = %+v", att)
	}

	// The same attacker is reported once per turn.
	res = p.Parse(gameState(`{"gameObjects":[{"instanceId":300,"attackState":"AttackState_Attacking"},` +
		`{"instanceId":400,"grpId":71000,"ownerSeatId":2,"blockState":"BlockState_Blocking","blockInfo":{"attackerIds":[300]}}]}`))
	if got := kinds(res.Events); !reflect.DeepEqual(got, []event.Type{event.TypeBlockersDeclared}) {
		t.Fatalf("events = %v, want [blockers_declared]", got)
	}
	blk := res.Events[0].(event.BlockersDeclared)
	if len(blk.Blocks) != 1 || blk.Blocks[0].Blocker.InstanceID != 400 || !reflect.DeepEqual(blk.Blocks[0].Attackers, []int{300}) {
		t.Errorf("BlockersDeclared = %+v", blk)
	}

	// A new turn allows the same creature to attack again.
	p.Parse(gameState(`{"turnInfo":{"turnNumber":5,"activePlayer":1,"phase":"Phase_Combat","step":"Step_DeclareAttack"}}`))
	res = p.Parse(gameState(`{"gameObjects":[{"instanceId":300,"attackState":"AttackState_Attacking"}]}`))
	if got := kinds(res.Events); !reflect.DeepEqual(got, []event.Type{event.TypeAttackersDeclared}) {
		t.Errorf("events = %v, want [attackers_declared]", got)
	}
}

func TestParser_Annotations(t *testing.T) {
	p := New()
	p.Parse(gameState(`{"zones":[{"zoneId":35,"type":"ZoneType_Hand","ownerSeatId":2},{"zoneId":27,"type":"ZoneType_Stack"}],` +
		`"gameObjects":[{"instanceId":10,"grpId":80001,"ownerSeatId":2,"zoneId":35},{"instanceId":11,"grpId":80002,"ownerSeatId":2}]}`))

	res := p.Parse(gameState(`{"annotations":[` +
		`{"id":1,"affectorId":11,"affectedIds":[10],"type":["AnnotationType_ManaPaid"],"details":[{"key":"color","valueInt32":[4,4]}]},` +
		`{"id":2,"affectedIds":[10],"type":["AnnotationType_ZoneTransfer"],"details":[{"key":"zone_src","valueInt32":[35]},{"key":"zone_dest","valueInt32":[27]},{"key":"category","valueString":["CastSpell"]}]},` +
		`{"id":3,"affectorId":10,"affectedIds":[1],"type":["AnnotationType_DamageDealt"],"details":[{"key":"damage","valueInt32":[3]}]}]}`))

	if got, want := kinds(res.Events), []event.Type{event.TypeManaPaid, event.TypeZoneMove, event.TypeDamageDealt}; !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	mana := res.Events[0].(event.ManaPaid)
	if mana.Source.InstanceID != 11 || !reflect.DeepEqual(mana.Symbols, []string{"R", "R"}) {
		t.Errorf("ManaPaid = %+v", mana)
	}
	move := res.Events[1].(event.ZoneMove)
	if move.From != "Hand (P2)" || move.To != "Stack" || move.Category != "CastSpell" || move.Object.GrpID != 80001 {
		t.Errorf("ZoneMove = %+v", move)
	}
	dmg := res.Events[2].(event.DamageDealt)
	if dmg.Amount != 3 || dmg.Source.InstanceID != 10 || !reflect.DeepEqual(dmg.Targets, []int{1}) {
		t.Errorf("DamageDealt = %+v", dmg)
	}
	if want := []resolve.Request{{Key: 80001, Context: "cast spell"}}; !reflect.DeepEqual(res.Lookups, want) {
		t.Errorf("lookups = %+v, want %+v", res.Lookups, want)
	}
}

func TestParser_TimerWarning(t *testing.T) {
	p := New()
	timer := func(elapsed int, running bool) event.RawLogEvent {
		r := "false"
		if running {
			r = "true"
		}
		return messages(`{"type":"GREMessageType_TimerStateMessage","timerStateMessage":{"seatId":2,"timers":[` +
			`{"timerId":4,"type":"TimerType_ActivePlayer","durationSec":75,"elapsedSec":` + strconv.Itoa(elapsed) + `,"running":` + r + `}]}}`)
	}

	tests := []struct {
		elapsed int
		running bool
		want    int // events
	}{
		{10, true, 0},
		{50, true, 1},
		{60, true, 0}, // already warned
		{0, false, 0}, // stopped: rearm
		{70, true, 1},
	}
	for i, tt := range tests {
		res := p.Parse(timer(tt.elapsed, tt.running))
		if len(res.Events) != tt.want {
			t.Errorf("step %d: events = %v, want %d", i, kinds(res.Events), tt.want)
			continue
		}
		if tt.want == 1 {
			w := res.Events[0].(event.TimerWarning)
			if w.Seat != 2 || w.Timer != "ActivePlayer" || w.SecondsRemaining != 75-tt.elapsed {
				t.Errorf("step %d: TimerWarning = %+v", i, w)
			}
		}
	}
}

func TestParser_TimerWarningSeatFromPlayers(t *testing.T) {
	tests := []struct {
		name     string
		players  string
		wantSeat int
	}{
		{"owned by seat 2", `[{"systemSeatNumber":1,"timerIds":[1,2]},{"systemSeatNumber":2,"timerIds":[3,4]}]`, 2},
		{"owned by seat 1", `[{"systemSeatNumber":1,"timerIds":[4]},{"systemSeatNumber":2,"timerIds":[5]}]`, 1},
		{"unlisted", `[{"systemSeatNumber":1,"timerIds":[1]}]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.Parse(gameState(`{"gameInfo":{"gameNumber":1},"players":` + tt.players + `}`))
			res := p.Parse(gameState(`{"timers":[{"timerId":4,"type":"TimerType_Inactivity","durationSec":60,"elapsedSec":45,"running":true}]}`))
			if len(res.Events) != 1 {
				t.Fatalf("events = %v, want one TimerWarning", kinds(res.Events))
			}
			w := res.Events[0].(event.TimerWarning)
			if w.Seat != tt.wantSeat {
				t.Errorf("TimerWarning.Seat = %d, want %d", w.Seat, tt.wantSeat)
			}
			if w.SecondsRemaining != 15 {
				t.Errorf("TimerWarning.SecondsRemaining = %d, want 15", w.SecondsRemaining)
			}
		})
	}
}

func TestParser_GameOverOncePerGame(t *testing.T) {
	p := New()
	res := p.Parse(messages(
		`{"type":"GREMessageType_GameStateMessage","gameStateMessage":{"gameInfo":{"matchID":"m","gameNumber":1,"stage":"GameStage_GameOver",` +
			`"results":[{"scope":"MatchScope_Game","result":"ResultType_WinLoss","winningTeamId":1,"reason":"ResultReason_Concede"}]}}},` +
			`{"type":"GREMessageType_IntermissionReq","intermissionReq":{"result":{"scope":"MatchScope_Game","result":"ResultType_WinLoss","winningTeamId":1}}}`))
	if len(res.Events) != 1 {
		t.Fatalf("events = %v, want one GameOver", kinds(res.Events))
	}
	want := event.GameOver{Header: event.At(event.TypeGameOver, t0), WinningTeamID: 1, Result: "WinLoss", Reason: "Concede"}
	if res.Events[0] != want {
		t.Errorf("GameOver = %+v, want %+v", res.Events[0], want)
	}

	res = p.Parse(gameState(`{"gameInfo":{"gameNumber":2,"stage":"GameStage_GameOver","results":[{"scope":"MatchScope_Game","winningTeamId":2}]}}`))
	if got := kinds(res.Events); !reflect.DeepEqual(got, []event.Type{event.TypeGameOver}) {
		t.Errorf("second game events = %v, want [game_over]", got)
	}
}

func TestParser_PlayerChoice(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		choice string
		detail string
	}{
		{"mulligan", `{"payload":{"type":"ClientMessageType_MulliganResp","systemSeatId":1,"mulliganResp":{"decision":"MulliganOption_AcceptHand"}}}`, "mulligan", "AcceptHand"},
		{"concede", `{"payload":{"type":"ClientMessageType_ConcedeReq","systemSeatId":1,"concedeReq":{"scope":"MatchScope_Match"}}}`, "concede", "Match"},
		{"attackers", `{"payload":{"declareAttackersResp":{"selectedAttackers":[{"attackerInstanceId":1},{"attackerInstanceId":2}]}}}`, "declare_attackers", "2 attackers"},
		{"action", `{"payload":{"performActionResp":{"actions":[{"actionType":"ActionType_Cast","grpId":80001}]}}}`, "perform_action", "Cast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New().Parse(rec(NameClientToGre, tt.data))
			if len(res.Events) != 1 {
				t.Fatalf("events = %v, want one PlayerChoice", kinds(res.Events))
			}
			c := res.Events[0].(event.PlayerChoice)
			if c.Choice != tt.choice || c.Detail != tt.detail {
				t.Errorf("PlayerChoice = %+v, want %s/%s", c, tt.choice, tt.detail)
			}
		})
	}

	if res := New().Parse(rec(NameClientToGre, `{"payload":{"type":"ClientMessageType_SetSettingsReq"}}`)); len(res.Events) != 0 {
		t.Errorf("events = %v, want none", kinds(res.Events))
	}
}

func TestParser_RoomState(t *testing.T) {
	p := New()
	p.Parse(gameState(`{"gameObjects":[{"instanceId":1,"grpId":2}]}`))

	res := p.Parse(rec(NameRoomStateChanged, `{"matchGameRoomStateChangedEvent":{"gameRoomInfo":{`+
		`"gameRoomConfig":{"matchId":"m-9","reservedPlayers":[{"playerName":"Alice","systemSeatId":1,"teamId":1}]},`+
		`"stateType":"MatchGameRoomStateType_Playing"}}}`))
	want := event.RoomState{
		Header:  event.At(event.TypeRoomState, t0),
		MatchID: "m-9",
		State:   "Playing",
		Players: []event.RoomPlayer{{Seat: 1, TeamID: 1, Name: "Alice"}},
	}
	if len(res.Events) != 1 || !reflect.DeepEqual(res.Events[0], want) {
		t.Errorf("events = %+v, want %+v", res.Events, want)
	}
	if p.Objects() != 0 {
		t.Errorf("Objects() = %d after new match, want 0", p.Objects())
	}
}

func TestParser_IgnoresUnknown(t *testing.T) {
	p := New()
	for _, raw := range []event.RawLogEvent{
		rec("GetPlayerInventory", `{}`),
		rec(NameGreToClient, `{{{`),
		rec(NameClientToGre, ``),
	} {
		if res := p.Parse(raw); len(res.Events) != 0 || len(res.Lookups) != 0 {
			t.Errorf("Parse(%s) = %+v, want empty", raw.EventName, res)
		}
	}
}
