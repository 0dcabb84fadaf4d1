package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	"github.com/arenalog/arenalog-go/pkg/arenalog"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

// Printer writes events in one output format.
type Printer struct {
	format string
	w      io.Writer
	enc    *json.Encoder

	timeStyle lipgloss.Style
	kindStyle lipgloss.Style
	bodyStyle lipgloss.Style
}

// NewPrinter returns a Printer for format. Pretty output is colored only
// when w is a terminal.
func NewPrinter(format string, w io.Writer) (*Printer, error) {
	if !ValidFormats[format] {
		return nil, fmt.Errorf("invalid format %q: must be one of: jsonl, pretty", format)
	}
	p := &Printer{format: format, w: w}
	if format == "jsonl" {
		p.enc = json.NewEncoder(w)
		return p, nil
	}

	r := lipgloss.NewRenderer(w)
	p.timeStyle = r.NewStyle().Faint(true)
	p.kindStyle = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Width(18)
	p.bodyStyle = r.NewStyle()
	return p, nil
}

// Print writes one event.
func (p *Printer) Print(ev arenalog.Event) error {
	if p.enc != nil {
		return p.enc.Encode(ev)
	}
	_, err := fmt.Fprintf(p.w, "%s %s %s\n",
		p.timeStyle.Render(ev.Time().Format("15:04:05")),
		p.kindStyle.Render(string(ev.Kind())),
		p.bodyStyle.Render(describe(ev)))
	return err
}

// OutputEvent writes ev to w in the given format.
func OutputEvent(format string, ev arenalog.Event, w io.Writer) error {
	p, err := NewPrinter(format, w)
	if err != nil {
		return err
	}
	return p.Print(ev)
}

// describe renders the interesting fields of ev as one line of text.
func describe(ev arenalog.Event) string {
	switch e := ev.(type) {
	case event.MatchStarted:
		if names := playerNames(e.Match.Players); names != "" {
			return fmt.Sprintf("Match %s started: %s", e.Match.MatchID, names)
		}
		return fmt.Sprintf("Match %s started", e.Match.MatchID)
	case event.MatchEnded:
		if r := e.Match.Result; r != nil {
			return fmt.Sprintf("Match %s ended: team %d won (%s)", e.Match.MatchID, r.WinningTeamID, r.Reason)
		}
		return fmt.Sprintf("Match %s ended", e.Match.MatchID)
	case event.TurnChange:
		return fmt.Sprintf("Turn %d, seat %d active", e.Turn, e.ActivePlayer)
	case event.LifeChange:
		return fmt.Sprintf("Seat %d life %d -> %d", e.Player, e.OldLife, e.NewLife)
	case event.GameAction:
		return fmt.Sprintf("Seat %d %s", e.Action.Seat, e.Action.ActionType)
	case event.CardPlayed:
		return fmt.Sprintf("Seat %d %s %s", e.Seat, e.Category, cardLabel(e.CardName, e.GrpID))
	case event.Mulligan:
		return fmt.Sprintf("Seat %d mulligan #%d", e.Player, e.Count)
	case event.DraftPack:
		return fmt.Sprintf("Pack %d pick %d: %d cards", e.PackNumber, e.PickNumber, len(e.Cards))
	case event.DraftPick:
		return fmt.Sprintf("Picked %d (pack %d pick %d)", e.CardID, e.PackNumber, e.PickNumber)
	case event.DraftCompleted:
		return fmt.Sprintf("Draft completed with %d picks", len(e.Draft.Picks))
	case event.DeckSubmitted:
		return fmt.Sprintf("Deck %q submitted: %d main, %d sideboard", e.DeckName, countCards(e.MainDeck), countCards(e.Sideboard))
	case event.RoomState:
		return fmt.Sprintf("Room %s: %s", e.MatchID, e.State)
	case event.PhaseStep:
		return strings.TrimSpace(fmt.Sprintf("Turn %d seat %d %s %s", e.Turn, e.ActivePlayer, e.Phase, e.Step))
	case event.AttackersDeclared:
		return fmt.Sprintf("%d attacker(s) declared", len(e.Attackers))
	case event.BlockersDeclared:
		return fmt.Sprintf("%d blocker(s) declared", len(e.Blocks))
	case event.DamageDealt:
		return fmt.Sprintf("%s deals %d damage", objectLabel(e.Source), e.Amount)
	case event.ZoneMove:
		return fmt.Sprintf("%s: %s -> %s", objectLabel(e.Object), e.From, e.To)
	case event.ManaPaid:
		return fmt.Sprintf("Mana paid: %s", strings.Join(e.Symbols, ""))
	case event.TimerWarning:
		return fmt.Sprintf("Seat %d %s timer: %ds left", e.Seat, e.Timer, e.SecondsRemaining)
	case event.PlayerChoice:
		return strings.TrimSpace(fmt.Sprintf("Seat %d chose %s %s", e.Seat, e.Choice, e.Detail))
	case event.GameOver:
		return fmt.Sprintf("Game over: team %d won (%s)", e.WinningTeamID, e.Reason)
	}
	return string(ev.Kind())
}

func playerNames(players []event.Player) string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		if p.ScreenName != "" {
			names = append(names, p.ScreenName)
		}
	}
	return strings.Join(names, " vs ")
}

func cardLabel(name string, grpID int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", grpID)
}

func objectLabel(o event.ObjectRef) string {
	if o.Name != "" {
		return o.Name
	}
	if o.GrpID != 0 {
		return fmt.Sprintf("#%d", o.GrpID)
	}
	return fmt.Sprintf("object %d", o.InstanceID)
}

func countCards(cards []event.DeckCard) int {
	n := 0
	for _, c := range cards {
		n += c.Quantity
	}
	return n
}
