// Package gamedata holds the lookup tables shared by both parsers: zone
// names, phase and step names, mana symbols and zone-transfer categories.
package gamedata

import (
	"fmt"
	"strings"
)

// ArenaIDThreshold is the smallest definition id treated as an Arena id.
// Smaller ids are assumed to be MTGO ids. The rule is approximate.
const ArenaIDThreshold = 50000

// Lookup sources returned by LookupSource.
const (
	SourceArena = "arena"
	SourceMTGO  = "mtgo"
)

// LookupSource picks the id namespace for a card definition id.
func LookupSource(id int) string {
	if id >= ArenaIDThreshold {
		return SourceArena
	}
	return SourceMTGO
}

var zoneNames = map[int]string{
	18: "Revealed (P1)",
	19: "Revealed (P2)",
	24: "Suppressed",
	25: "Pending",
	26: "Command",
	27: "Stack",
	28: "Battlefield",
	29: "Exile",
	30: "Limbo",
	31: "Hand (P1)",
	32: "Library (P1)",
	33: "Graveyard (P1)",
	34: "Sideboard (P1)",
	35: "Hand (P2)",
	36: "Library (P2)",
	37: "Graveyard (P2)",
	38: "Sideboard (P2)",
}

// ZoneName returns the display name of a fixed zone id.
func ZoneName(id int) string {
	if name, ok := zoneNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Zone %d", id)
}

// ZoneTypeName turns "ZoneType_Battlefield" into "Battlefield".
func ZoneTypeName(t string) string {
	return ShortName(t)
}

// IsHandZone reports whether a zone type is a hand.
func IsHandZone(t string) bool {
	return t == "ZoneType_Hand"
}

var phaseNames = map[string]string{
	"Phase_Beginning": "Beginning",
	"Phase_Main1":     "Main 1",
	"Phase_Combat":    "Combat",
	"Phase_Main2":     "Main 2",
	"Phase_Ending":    "Ending",
}

var stepNames = map[string]string{
	"Step_Untap":             "Untap",
	"Step_Upkeep":            "Upkeep",
	"Step_Draw":              "Draw",
	"Step_BeginCombat":       "Beginning of Combat",
	"Step_DeclareAttack":     "Declare Attackers",
	"Step_DeclareBlock":      "Declare Blockers",
	"Step_FirstStrikeDamage": "First Strike Damage",
	"Step_CombatDamage":      "Combat Damage",
	"Step_EndCombat":         "End of Combat",
	"Step_End":               "End",
	"Step_Cleanup":           "Cleanup",
}

// PhaseName returns a display name for a phase enum value.
func PhaseName(p string) string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return ShortName(p)
}

// StepName returns a display name for a step enum value.
func StepName(s string) string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return ShortName(s)
}

var manaSymbols = map[int]string{
	1: "W",
	2: "U",
	3: "B",
	4: "R",
	5: "G",
	6: "C",
}

// ManaSymbol maps a mana color code to its symbol, or "?" if unknown.
func ManaSymbol(code int) string {
	if s, ok := manaSymbols[code]; ok {
		return s
	}
	return "?"
}

// ManaSymbols maps a list of color codes.
func ManaSymbols(codes []int) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, ManaSymbol(c))
	}
	return out
}

// Zone transfer categories.
const (
	CategoryPlayLand  = "PlayLand"
	CategoryCastSpell = "CastSpell"
)

var categoryContext = map[string]string{
	"PlayLand":           "played land",
	"CastSpell":          "cast spell",
	"Draw":               "drew",
	"Discard":            "discarded",
	"Resolve":            "resolved",
	"Destroy":            "destroyed",
	"Sacrifice":          "sacrificed",
	"Exile":              "exiled",
	"Countered":          "countered",
	"Mill":               "milled",
	"Return":             "returned to hand",
	"Put":                "put onto battlefield",
	"Surveil":            "surveilled",
	"Conjure":            "conjured",
	"SBA_Damage":         "died from damage",
	"SBA_ZeroToughness":  "died from zero toughness",
	"SBA_ZeroLoyalty":    "died from zero loyalty",
	"SBA_UnattachedAura": "unattached aura",
}

// CategoryContext returns a human-readable context for a zone-transfer
// category, used to annotate card lookups.
func CategoryContext(category string) string {
	if c, ok := categoryContext[category]; ok {
		return c
	}
	if category == "" {
		return "moved"
	}
	return strings.ToLower(category)
}

// IsPlayCategory reports whether a transfer is a land play or spell cast.
func IsPlayCategory(category string) bool {
	return category == CategoryPlayLand || category == CategoryCastSpell
}

// ShortName strips the enum prefix up to the first underscore:
// "MatchGameRoomStateType_Playing" becomes "Playing".
func ShortName(s string) string {
	if _, after, ok := strings.Cut(s, "_"); ok {
		return after
	}
	return s
}
