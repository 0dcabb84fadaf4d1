package parser

import (
	"github.com/arenalog/arenalog-go/internal/gre"
	"github.com/arenalog/arenalog-go/internal/payload"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// handleDraftStatus records a presented pack. A pack after a completed
// draft starts a new one.
func (p *Parser) handleDraftStatus(raw event.RawLogEvent) {
	var st gre.DraftStatus
	if err := payload.Decode(raw.RawData, raw.EventName, &st); err != nil {
		p.malformed(raw, err)
		return
	}
	pack, pick, cards := st.Pack()
	if len(cards) == 0 {
		return
	}
	if p.draft == nil || !p.draft.IsDrafting {
		p.draft = &event.DraftState{IsDrafting: true, Picks: []int{}}
	}
	p.draft.PackNumber = pack
	p.draft.PickNumber = pick
	p.draft.CurrentPack = cards

	p.emit(event.DraftPack{
		Header:     event.At(event.TypeDraftPack, p.ts),
		PackNumber: pack,
		PickNumber: pick,
		Cards:      append([]int(nil), cards...),
	})
	for _, c := range cards {
		p.request(c, "draft pack")
	}
}

// handleDraftPick records a pick. A completion signal closes the draft,
// keeping its history, and is reported once.
func (p *Parser) handleDraftPick(raw event.RawLogEvent) {
	var dp gre.DraftPick
	if err := payload.Decode(raw.RawData, raw.EventName, &dp); err != nil {
		p.malformed(raw, err)
		return
	}
	pack, pick, card, completed := dp.Resolve()
	if card == 0 && !completed {
		return
	}
	if p.draft == nil {
		p.draft = &event.DraftState{IsDrafting: true, Picks: []int{}}
	}

	if card != 0 {
		p.draft.PackNumber = pack
		p.draft.PickNumber = pick
		p.draft.Picks = append(p.draft.Picks, card)
		p.emit(event.DraftPick{
			Header:     event.At(event.TypeDraftPick, p.ts),
			PackNumber: pack,
			PickNumber: pick,
			CardID:     card,
		})
		p.request(card, "draft pick")
	}

	if completed && p.draft.IsDrafting {
		p.draft.IsDrafting = false
		p.draft.CurrentPack = nil
		p.emit(event.DraftCompleted{Header: event.At(event.TypeDraftCompleted, p.ts), Draft: p.draft.Clone()})
	}
}

func (p *Parser) handleDeck(raw event.RawLogEvent) {
	var req gre.DeckRequest
	if err := payload.Decode(raw.RawData, raw.EventName, &req); err != nil {
		p.malformed(raw, err)
		return
	}
	lists := req.Lists()
	if len(lists.MainDeck) == 0 {
		return
	}
	ev := event.DeckSubmitted{
		Header:    event.At(event.TypeDeckSubmitted, p.ts),
		EventName: req.EventName,
		MainDeck:  deckCards(lists.MainDeck),
		Sideboard: deckCards(lists.Sideboard),
	}
	if req.Summary != nil {
		ev.DeckName = req.Summary.Name
	}
	p.emit(ev)
	for _, c := range ev.MainDeck {
		p.request(c.CardID, "deck")
	}
}

func deckCards(entries []gre.DeckEntry) []event.DeckCard {
	if len(entries) == 0 {
		return nil
	}
	out := make([]event.DeckCard, 0, len(entries))
	for _, e := range entries {
		if id := e.Card(); id != 0 {
			out = append(out, event.DeckCard{CardID: id, Quantity: int(e.Quantity)})
		}
	}
	return out
}
