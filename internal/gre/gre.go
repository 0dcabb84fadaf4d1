// Package gre describes the JSON shapes the game client writes to its logs
// for game-rules-engine traffic, match rooms, drafts and deck submissions.
//
// Only the fields the parsers read are modelled; unknown fields are
// ignored on decode.
package gre

import (
	"strconv"
	"strings"
)

// Message types carried in GREEvent.Messages.
const (
	MsgGameState       = "GREMessageType_GameStateMessage"
	MsgQueuedGameState = "GREMessageType_QueuedGameStateMessage"
	MsgConnectResp     = "GREMessageType_ConnectResp"
	MsgMulliganReq     = "GREMessageType_MulliganReq"
	MsgTimerState      = "GREMessageType_TimerStateMessage"
	MsgIntermissionReq = "GREMessageType_IntermissionReq"
)

// Annotation types.
const (
	AnnZoneTransfer        = "AnnotationType_ZoneTransfer"
	AnnObjectIDChanged     = "AnnotationType_ObjectIdChanged"
	AnnDamageDealt         = "AnnotationType_DamageDealt"
	AnnManaPaid            = "AnnotationType_ManaPaid"
	AnnModifiedLife        = "AnnotationType_ModifiedLife"
	AnnEnteredZoneThisTurn = "AnnotationType_EnteredZoneThisTurn"
	AnnPhaseOrStep         = "AnnotationType_PhaseOrStepModified"
)

// Room states.
const (
	RoomPlaying        = "MatchGameRoomStateType_Playing"
	RoomMatchCompleted = "MatchGameRoomStateType_MatchCompleted"
)

// Result scopes.
const (
	ScopeGame  = "MatchScope_Game"
	ScopeMatch = "MatchScope_Match"
)

// FlexInt decodes a JSON number or a numeric string.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// Ints converts a FlexInt slice.
func Ints(in []FlexInt) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

// GREEvent is the body of a GreToClientEvent record.
type GREEvent struct {
	Messages []Message `json:"greToClientMessages"`
}

// Message is one server-to-client message.
type Message struct {
	Type             string           `json:"type"`
	SystemSeatIDs    []int            `json:"systemSeatIds"`
	GameStateID      int              `json:"gameStateId"`
	GameStateMessage *GameState       `json:"gameStateMessage"`
	ConnectResp      *ConnectResp     `json:"connectResp"`
	MulliganReq      *MulliganReq     `json:"mulliganReq"`
	TimerState       *TimerStateMsg   `json:"timerStateMessage"`
	IntermissionReq  *IntermissionReq `json:"intermissionReq"`
}

// GameState is a full or diff game state.
type GameState struct {
	Type                    string          `json:"type"`
	GameStateID             int             `json:"gameStateId"`
	GameInfo                *GameInfo       `json:"gameInfo"`
	TurnInfo                *TurnInfo       `json:"turnInfo"`
	Players                 []PlayerInfo    `json:"players"`
	Zones                   []Zone          `json:"zones"`
	GameObjects             []GameObject    `json:"gameObjects"`
	Annotations             []Annotation    `json:"annotations"`
	PersistentAnnotations   []Annotation    `json:"persistentAnnotations"`
	DiffDeletedInstanceIDs  []int           `json:"diffDeletedInstanceIds"`
	DiffDeletedPersistentID []int           `json:"diffDeletedPersistentAnnotationIds"`
	Actions                 []ActionWrapper `json:"actions"`
	Timers                  []Timer         `json:"timers"`
}

// GameInfo carries match-level info and results.
type GameInfo struct {
	MatchID    string   `json:"matchID"`
	GameNumber int      `json:"gameNumber"`
	Stage      string   `json:"stage"`
	MatchState string   `json:"matchState"`
	Results    []Result `json:"results"`
}

// Result is a game or match outcome.
type Result struct {
	Scope         string `json:"scope"`
	Result        string `json:"result"`
	WinningTeamID int    `json:"winningTeamId"`
	Reason        string `json:"reason"`
}

// TurnInfo is the turn/phase section of a game state.
type TurnInfo struct {
	TurnNumber     uint32 `json:"turnNumber"`
	ActivePlayer   int    `json:"activePlayer"`
	PriorityPlayer int    `json:"priorityPlayer"`
	DecisionPlayer int    `json:"decisionPlayer"`
	Phase          string `json:"phase"`
	Step           string `json:"step"`
}

// PlayerInfo is a seat's public state. Pointer fields are nil when the
// diff does not carry them.
type PlayerInfo struct {
	SystemSeatNumber int   `json:"systemSeatNumber"`
	TeamID           int   `json:"teamId"`
	LifeTotal        *int  `json:"lifeTotal"`
	MaxHandSize      int   `json:"maxHandSize"`
	MulliganCount    *int  `json:"mulliganCount"`
	TimerIDs         []int `json:"timerIds"`
}

// Zone lists the objects in one zone.
type Zone struct {
	ZoneID            int    `json:"zoneId"`
	Type              string `json:"type"`
	Visibility        string `json:"visibility"`
	OwnerSeatID       int    `json:"ownerSeatId"`
	ObjectInstanceIDs []int  `json:"objectInstanceIds"`
}

// GameObject is a card, token or ability instance.
type GameObject struct {
	InstanceID       int         `json:"instanceId"`
	GrpID            int         `json:"grpId"`
	Type             string      `json:"type"`
	ZoneID           int         `json:"zoneId"`
	OwnerSeatID      int         `json:"ownerSeatId"`
	ControllerSeatID int         `json:"controllerSeatId"`
	CardTypes        []string    `json:"cardTypes"`
	Name             int         `json:"name"`
	AttackState      string      `json:"attackState"`
	BlockState       string      `json:"blockState"`
	AttackInfo       *AttackInfo `json:"attackInfo"`
	BlockInfo        *BlockInfo  `json:"blockInfo"`
	IsTapped         bool        `json:"isTapped"`
}

// AttackInfo names the attack target.
type AttackInfo struct {
	TargetID int `json:"targetId"`
}

// BlockInfo lists the attackers a blocker blocks.
type BlockInfo struct {
	AttackerIDs []int `json:"attackerIds"`
}

// Annotation is a transient or persistent annotation.
type Annotation struct {
	ID          int      `json:"id"`
	AffectorID  int      `json:"affectorId"`
	AffectedIDs []int    `json:"affectedIds"`
	Types       []string `json:"type"`
	Details     []Detail `json:"details"`
}

// Detail is a typed key/value pair attached to an annotation.
type Detail struct {
	Key         string   `json:"key"`
	Type        string   `json:"type"`
	ValueInt32  []int    `json:"valueInt32"`
	ValueString []string `json:"valueString"`
}

// Has reports whether the annotation carries type t.
func (a Annotation) Has(t string) bool {
	for _, v := range a.Types {
		if v == t {
			return true
		}
	}
	return false
}

// Int returns the first int value of detail key.
func (a Annotation) Int(key string) (int, bool) {
	for _, d := range a.Details {
		if d.Key == key && len(d.ValueInt32) > 0 {
			return d.ValueInt32[0], true
		}
	}
	return 0, false
}

// Ints returns every int value of detail key.
func (a Annotation) Ints(key string) []int {
	for _, d := range a.Details {
		if d.Key == key {
			return d.ValueInt32
		}
	}
	return nil
}

// Text returns the first string value of detail key.
func (a Annotation) Text(key string) (string, bool) {
	for _, d := range a.Details {
		if d.Key == key && len(d.ValueString) > 0 {
			return d.ValueString[0], true
		}
	}
	return "", false
}

// ActionWrapper pairs an available action with its seat.
type ActionWrapper struct {
	SeatID int    `json:"seatId"`
	Action Action `json:"action"`
}

// Action is an action a seat may take or has taken.
type Action struct {
	ActionType string `json:"actionType"`
	InstanceID int    `json:"instanceId"`
	GrpID      int    `json:"grpId"`
	AbilityGrp int    `json:"abilityGrpId"`
}

// ConnectResp is sent when a game starts and carries the local deck.
type ConnectResp struct {
	Status      string      `json:"status"`
	DeckMessage DeckMessage `json:"deckMessage"`
}

// DeckMessage lists deck card definition ids, one entry per copy.
type DeckMessage struct {
	DeckCards      []int `json:"deckCards"`
	SideboardCards []int `json:"sideboardCards"`
}

// MulliganReq asks the local player to keep or mulligan.
type MulliganReq struct {
	MulliganType  string `json:"mulliganType"`
	MulliganCount int    `json:"mulliganCount"`
}

// TimerStateMsg reports a seat's timers.
type TimerStateMsg struct {
	SeatID int     `json:"seatId"`
	Timers []Timer `json:"timers"`
}

// Timer is a single rope/inactivity timer.
type Timer struct {
	TimerID             int    `json:"timerId"`
	Type                string `json:"type"`
	DurationSec         int    `json:"durationSec"`
	ElapsedSec          int    `json:"elapsedSec"`
	Running             bool   `json:"running"`
	WarningThresholdSec int    `json:"warningThresholdSec"`
}

// Remaining returns the seconds left on the timer.
func (t Timer) Remaining() int {
	if r := t.DurationSec - t.ElapsedSec; r > 0 {
		return r
	}
	return 0
}

// IntermissionReq is sent between games.
type IntermissionReq struct {
	Result *Result `json:"result"`
}

// RoomEvent is the body of a MatchGameRoomStateChangedEvent record.
type RoomEvent struct {
	GameRoomInfo GameRoomInfo `json:"gameRoomInfo"`
}

// GameRoomInfo describes a match room.
type GameRoomInfo struct {
	GameRoomConfig   GameRoomConfig    `json:"gameRoomConfig"`
	StateType        string            `json:"stateType"`
	FinalMatchResult *FinalMatchResult `json:"finalMatchResult"`
}

// GameRoomConfig lists the room's seats.
type GameRoomConfig struct {
	MatchID         string           `json:"matchId"`
	ReservedPlayers []ReservedPlayer `json:"reservedPlayers"`
}

// ReservedPlayer is a seat reservation.
type ReservedPlayer struct {
	UserID       string `json:"userId"`
	PlayerName   string `json:"playerName"`
	SystemSeatID int    `json:"systemSeatId"`
	TeamID       int    `json:"teamId"`
}

// FinalMatchResult is reported when the room completes.
type FinalMatchResult struct {
	MatchID              string   `json:"matchId"`
	MatchCompletedReason string   `json:"matchCompletedReason"`
	ResultList           []Result `json:"resultList"`
}

// MatchResult returns the match-scoped result, falling back to the last
// game result.
func (f *FinalMatchResult) MatchResult() (Result, bool) {
	if f == nil || len(f.ResultList) == 0 {
		return Result{}, false
	}
	for _, r := range f.ResultList {
		if r.Scope == ScopeMatch {
			return r, true
		}
	}
	return f.ResultList[len(f.ResultList)-1], true
}

// ClientMessage is the body of a ClientToGreMessage record.
type ClientMessage struct {
	Type              string                `json:"type"`
	SystemSeatID      int                   `json:"systemSeatId"`
	MulliganResp      *MulliganResp         `json:"mulliganResp"`
	ConcedeReq        *ConcedeReq           `json:"concedeReq"`
	DeclareAttackers  *DeclareAttackersResp `json:"declareAttackersResp"`
	PerformActionResp *PerformActionResp    `json:"performActionResp"`
}

// MulliganResp carries the keep/mulligan decision.
type MulliganResp struct {
	Decision string `json:"decision"`
}

// ConcedeReq concedes a game or match.
type ConcedeReq struct {
	Scope string `json:"scope"`
}

// DeclareAttackersResp carries the chosen attackers.
type DeclareAttackersResp struct {
	SelectedAttackers []SelectedAttacker `json:"selectedAttackers"`
	AutoDeclare       bool               `json:"autoDeclare"`
}

// SelectedAttacker is one declared attacker.
type SelectedAttacker struct {
	AttackerInstanceID int `json:"attackerInstanceId"`
}

// PerformActionResp carries the chosen actions.
type PerformActionResp struct {
	Actions []Action `json:"actions"`
}

// StateChange is the body of a StateChanged record.
type StateChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// DraftStatus is a pack presented to the drafter. Field names vary between
// the bot draft and human draft endpoints.
type DraftStatus struct {
	DraftStatus string    `json:"DraftStatus"`
	PackNumber  *FlexInt  `json:"PackNumber"`
	PickNumber  *FlexInt  `json:"PickNumber"`
	SelfPack    *FlexInt  `json:"SelfPack"`
	SelfPick    *FlexInt  `json:"SelfPick"`
	DraftPack   []FlexInt `json:"DraftPack"`
	PackCards   string    `json:"PackCards"`
	PickedCards []FlexInt `json:"PickedCards"`
}

// Pack returns the pack and pick numbers and the card ids.
func (d DraftStatus) Pack() (pack, pick int, cards []int) {
	pack = firstInt(d.PackNumber, d.SelfPack)
	pick = firstInt(d.PickNumber, d.SelfPick)
	cards = Ints(d.DraftPack)
	if len(cards) == 0 && d.PackCards != "" {
		for _, s := range strings.Split(d.PackCards, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				cards = append(cards, n)
			}
		}
	}
	return pack, pick, cards
}

// DraftPick is a pick request or response.
type DraftPick struct {
	PackNumber         *FlexInt   `json:"PackNumber"`
	Pack               *FlexInt   `json:"Pack"`
	PickNumber         *FlexInt   `json:"PickNumber"`
	Pick               *FlexInt   `json:"Pick"`
	CardID             *FlexInt   `json:"CardId"`
	GrpID              *FlexInt   `json:"GrpId"`
	GrpIDs             []FlexInt  `json:"GrpIds"`
	IsPickingCompleted bool       `json:"IsPickingCompleted"`
	DraftStatus        string     `json:"DraftStatus"`
	PickInfo           *DraftPick `json:"PickInfo"`
}

// Resolve flattens a nested PickInfo into the pick.
func (d DraftPick) Resolve() (pack, pick, card int, completed bool) {
	completed = d.IsPickingCompleted || d.DraftStatus == "Completed"
	src := d
	if d.PickInfo != nil {
		src = *d.PickInfo
		completed = completed || src.IsPickingCompleted
	}
	pack = firstInt(src.PackNumber, src.Pack)
	pick = firstInt(src.PickNumber, src.Pick)
	card = firstInt(src.CardID, src.GrpID)
	if card == 0 && len(src.GrpIDs) > 0 {
		card = int(src.GrpIDs[0])
	}
	return pack, pick, card, completed
}

func firstInt(vals ...*FlexInt) int {
	for _, v := range vals {
		if v != nil {
			return int(*v)
		}
	}
	return 0
}

// DeckRequest is the body of a deck submission.
type DeckRequest struct {
	EventName string       `json:"EventName"`
	Summary   *DeckSummary `json:"Summary"`
	Deck      *DeckLists   `json:"Deck"`
	DeckLists
}

// DeckSummary names the deck.
type DeckSummary struct {
	Name string `json:"Name"`
}

// DeckLists holds main deck and sideboard entries.
type DeckLists struct {
	MainDeck  []DeckEntry `json:"MainDeck"`
	Sideboard []DeckEntry `json:"Sideboard"`
}

// DeckEntry is a card and quantity; older clients use "id".
type DeckEntry struct {
	CardID   FlexInt `json:"cardId"`
	ID       FlexInt `json:"id"`
	Quantity FlexInt `json:"quantity"`
}

// Card returns the entry's card id.
func (e DeckEntry) Card() int {
	if e.CardID != 0 {
		return int(e.CardID)
	}
	return int(e.ID)
}

// Lists returns the deck lists from whichever layout the request used.
func (r DeckRequest) Lists() DeckLists {
	if r.Deck != nil && (len(r.Deck.MainDeck) > 0 || len(r.Deck.Sideboard) > 0) {
		return *r.Deck
	}
	return r.DeckLists
}
