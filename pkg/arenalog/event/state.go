package event

import (
	"slices"
	"time"
)

// MatchState is the derived state of one match.
type MatchState struct {
	MatchID      string       `json:"match_id,omitempty"`
	Players      []Player     `json:"players"`
	CurrentTurn  uint32       `json:"current_turn"`
	ActivePlayer int          `json:"active_player"`
	Phase        string       `json:"phase,omitempty"`
	Step         string       `json:"step,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	Result       *MatchResult `json:"result,omitempty"`
	Actions      []Action     `json:"actions,omitempty"`
}

// Player is a participant in a match, identified by seat.
type Player struct {
	SeatID      int    `json:"seat_id"`
	ScreenName  string `json:"screen_name,omitempty"`
	LifeTotal   int    `json:"life_total"`
	HandSize    int    `json:"hand_size"`
	InitialHand []int  `json:"initial_hand,omitempty"`
	Mulligans   int    `json:"mulligans"`
	DeckCards   []int  `json:"deck_cards,omitempty"`
}

// MatchResult is the outcome of a finished match.
type MatchResult struct {
	WinningTeamID int    `json:"winning_team_id"`
	Result        string `json:"result,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Action is one recorded game action.
type Action struct {
	Turn       uint32 `json:"turn"`
	Seat       int    `json:"seat,omitempty"`
	ActionType string `json:"action_type"`
	InstanceID int    `json:"instance_id,omitempty"`
	GrpID      int    `json:"grp_id,omitempty"`
	Amount     int    `json:"amount,omitempty"`
}

// DraftState is the progress of a draft.
type DraftState struct {
	PackNumber  int   `json:"pack_number"`
	PickNumber  int   `json:"pick_number"`
	CurrentPack []int `json:"current_pack"`
	Picks       []int `json:"picks"`
	IsDrafting  bool  `json:"is_drafting"`
}

// DeckCard is a card entry in a submitted deck.
type DeckCard struct {
	CardID   int `json:"card_id"`
	Quantity int `json:"quantity"`
}

// ObjectRef identifies a game object for display.
type ObjectRef struct {
	InstanceID int    `json:"instance_id"`
	GrpID      int    `json:"grp_id,omitempty"`
	Owner      int    `json:"owner,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Player returns the player seated at seatID.
func (m *MatchState) Player(seatID int) (*Player, bool) {
	for i := range m.Players {
		if m.Players[i].SeatID == seatID {
			return &m.Players[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of m.
func (m *MatchState) Clone() MatchState {
	c := *m
	c.Players = make([]Player, len(m.Players))
	for i, p := range m.Players {
		p.InitialHand = slices.Clone(p.InitialHand)
		p.DeckCards = slices.Clone(p.DeckCards)
		c.Players[i] = p
	}
	c.Actions = slices.Clone(m.Actions)
	if m.EndedAt != nil {
		t := *m.EndedAt
		c.EndedAt = &t
	}
	if m.Result != nil {
		r := *m.Result
		c.Result = &r
	}
	return c
}

// Clone returns a deep copy of d.
func (d *DraftState) Clone() DraftState {
	c := *d
	c.CurrentPack = slices.Clone(d.CurrentPack)
	c.Picks = slices.Clone(d.Picks)
	return c
}
