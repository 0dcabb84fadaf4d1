package arenalog

import "testing"

func TestCompiledFilter_Allows(t *testing.T) {
	tests := []struct {
		name    string
		include []EventType
		exclude []EventType
		event   EventType
		want    bool
	}{
		{name: "nil filter allows all", event: EventLifeChange, want: true},
		{name: "include only specified types", include: []EventType{EventLifeChange}, event: EventLifeChange, want: true},
		{name: "include rejects non-specified types", include: []EventType{EventLifeChange}, event: EventTurnChange, want: false},
		{name: "exclude specified types", exclude: []EventType{EventZoneMove}, event: EventZoneMove, want: false},
		{name: "exclude allows non-specified types", exclude: []EventType{EventZoneMove}, event: EventManaPaid, want: true},
		{
			name:    "exclude takes precedence over include",
			include: []EventType{EventDraftPick, EventDraftPack},
			exclude: []EventType{EventDraftPack},
			event:   EventDraftPack,
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCompiledFilter(tt.include, tt.exclude)
			if got := f.Allows(tt.event); got != tt.want {
				t.Errorf("Allows(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestNewCompiledFilter_EmptyIsNil(t *testing.T) {
	if f := newCompiledFilter(nil, nil); f != nil {
		t.Errorf("newCompiledFilter(nil, nil) = %+v, want nil", f)
	}
}
