package event

// Main log stream variants.

// MatchStarted is emitted when a match becomes active.
type MatchStarted struct {
	Header
	Match MatchState `json:"match"`
}

// MatchEnded is emitted when the active match finishes.
type MatchEnded struct {
	Header
	Match MatchState `json:"match"`
}

// TurnChange is emitted when the turn number advances.
type TurnChange struct {
	Header
	Turn         uint32 `json:"turn"`
	ActivePlayer int    `json:"active_player"`
	Phase        string `json:"phase,omitempty"`
	Step         string `json:"step,omitempty"`
}

// LifeChange is emitted when a seat's life total differs from the last
// recorded value.
type LifeChange struct {
	Header
	Player  int `json:"player"`
	OldLife int `json:"old_life"`
	NewLife int `json:"new_life"`
}

// GameAction wraps a generic recorded action.
type GameAction struct {
	Header
	Action Action `json:"action"`
}

// CardPlayed is emitted when a land is played or a spell is cast.
type CardPlayed struct {
	Header
	Seat       int    `json:"seat"`
	InstanceID int    `json:"instance_id"`
	GrpID      int    `json:"grp_id"`
	Category   string `json:"category"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	CardName   string `json:"card_name,omitempty"`
}

// Mulligan is emitted when a seat's mulligan count increases.
type Mulligan struct {
	Header
	Player int `json:"player"`
	Count  int `json:"count"`
}

// DraftPack is emitted when a pack is presented to the drafter.
type DraftPack struct {
	Header
	PackNumber int   `json:"pack_number"`
	PickNumber int   `json:"pick_number"`
	Cards      []int `json:"cards"`
}

// DraftPick is emitted when the drafter picks a card.
type DraftPick struct {
	Header
	PackNumber int `json:"pack_number"`
	PickNumber int `json:"pick_number"`
	CardID     int `json:"card_id"`
}

// DraftCompleted is emitted once picking is over.
type DraftCompleted struct {
	Header
	Draft DraftState `json:"draft"`
}

// DeckSubmitted is emitted when a deck is submitted.
type DeckSubmitted struct {
	Header
	EventName string     `json:"event_name,omitempty"`
	DeckName  string     `json:"deck_name,omitempty"`
	MainDeck  []DeckCard `json:"main_deck"`
	Sideboard []DeckCard `json:"sideboard,omitempty"`
}

// Player log stream variants.

// RoomPlayer is a reserved seat in a match room.
type RoomPlayer struct {
	Seat   int    `json:"seat"`
	TeamID int    `json:"team_id,omitempty"`
	Name   string `json:"name"`
}

// RoomState reports a match room state transition.
type RoomState struct {
	Header
	MatchID string       `json:"match_id,omitempty"`
	State   string       `json:"state"`
	Players []RoomPlayer `json:"players,omitempty"`
}

// PhaseStep reports entering a new phase or step, with display names.
type PhaseStep struct {
	Header
	Turn         uint32 `json:"turn"`
	ActivePlayer int    `json:"active_player"`
	Phase        string `json:"phase"`
	Step         string `json:"step,omitempty"`
}

// AttackersDeclared lists creatures newly declared as attackers.
type AttackersDeclared struct {
	Header
	Turn      uint32      `json:"turn"`
	Attackers []ObjectRef `json:"attackers"`
}

// Block pairs a blocker with the attackers it blocks.
type Block struct {
	Blocker   ObjectRef `json:"blocker"`
	Attackers []int     `json:"attackers"`
}

// BlockersDeclared lists newly declared blocks.
type BlockersDeclared struct {
	Header
	Turn   uint32  `json:"turn"`
	Blocks []Block `json:"blocks"`
}

// DamageDealt reports damage from a source to its targets.
type DamageDealt struct {
	Header
	Source  ObjectRef `json:"source"`
	Targets []int     `json:"targets"`
	Amount  int       `json:"amount"`
}

// ZoneMove reports an object moving between zones.
type ZoneMove struct {
	Header
	Object   ObjectRef `json:"object"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Category string    `json:"category,omitempty"`
}

// ManaPaid reports mana spent from a source.
type ManaPaid struct {
	Header
	Source  ObjectRef `json:"source"`
	Symbols []string  `json:"symbols"`
}

// TimerWarning reports a running timer crossing its warning threshold.
type TimerWarning struct {
	Header
	Seat             int    `json:"seat"`
	Timer            string `json:"timer"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

// PlayerChoice reports a decision submitted by the local client.
type PlayerChoice struct {
	Header
	Seat   int    `json:"seat,omitempty"`
	Choice string `json:"choice"`
	Detail string `json:"detail,omitempty"`
}

// GameOver reports the end of a single game.
type GameOver struct {
	Header
	WinningTeamID int    `json:"winning_team_id"`
	Result        string `json:"result,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
