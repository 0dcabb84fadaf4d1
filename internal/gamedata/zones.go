package gamedata

import "fmt"

// ZoneInfo is what a game state tells us about a zone.
type ZoneInfo struct {
	Type  string
	Owner int
}

// ZoneTable remembers zone types seen in game states so zone ids can be
// named even when they differ from the fixed table. The zero value is
// ready to use. A ZoneTable belongs to one parser.
type ZoneTable struct {
	zones map[int]ZoneInfo
}

// Set records the type and owner of a zone id.
func (t *ZoneTable) Set(id int, typ string, owner int) {
	if t.zones == nil {
		t.zones = make(map[int]ZoneInfo)
	}
	t.zones[id] = ZoneInfo{Type: typ, Owner: owner}
}

// Get returns what is known about a zone id.
func (t *ZoneTable) Get(id int) (ZoneInfo, bool) {
	z, ok := t.zones[id]
	return z, ok
}

// Name returns a display name for a zone id, preferring learned types.
func (t *ZoneTable) Name(id int) string {
	z, ok := t.Get(id)
	if !ok || z.Type == "" {
		return ZoneName(id)
	}
	name := ZoneTypeName(z.Type)
	if z.Owner > 0 {
		return fmt.Sprintf("%s (P%d)", name, z.Owner)
	}
	return name
}

// Reset forgets all learned zones.
func (t *ZoneTable) Reset() {
	t.zones = nil
}
