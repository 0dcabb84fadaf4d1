package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

func everyType(*cobra.Command, []string) []event.Type {
	return append(event.MainTypes(), event.PlayerTypes()...)
}

func TestCompleteEventTypes(t *testing.T) {
	tests := []struct {
		name       string
		toComplete string
		flagVals   []string
		want       []string
	}{
		{
			name:       "prefix draft filters to draft types",
			toComplete: "draft_",
			want:       []string{"draft_completed", "draft_pack", "draft_pick"},
		},
		{
			name:       "prefix ma matches mana and match types",
			toComplete: "ma",
			want:       []string{"mana_paid", "match_ended", "match_started"},
		},
		{
			name:       "comma prefix preserves already typed values",
			toComplete: "life_change,zo",
			want:       []string{"life_change,zone_move"},
		},
		{
			name:       "excludes already typed values",
			toComplete: "match_started,match_",
			want:       []string{"match_started,match_ended"},
		},
		{
			name:       "excludes values from flag",
			toComplete: "draft_pi",
			flagVals:   []string{"draft_pick"},
			want:       nil,
		},
		{
			name:       "case insensitive matching",
			toComplete: "TIM",
			want:       []string{"timer_warning"},
		},
		{
			name:       "trims whitespace",
			toComplete: "  game_  ",
			want:       []string{"game_action", "game_over"},
		},
		{
			name:       "no match returns empty",
			toComplete: "xyz",
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().StringSlice("include-types", nil, "")
			if tt.flagVals != nil {
				if err := cmd.Flags().Set("include-types", strings.Join(tt.flagVals, ",")); err != nil {
					t.Fatalf("failed to set flag: %v", err)
				}
			}

			got, dir := completeEventTypes("include-types", everyType)(cmd, nil, tt.toComplete)

			expectedDir := cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
			if dir != expectedDir {
				t.Errorf("directive = %v, want %v", dir, expectedDir)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("candidates = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompleteEventTypes_EmptyReturnsAll(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringSlice("exclude-types", nil, "")
	got, _ := completeEventTypes("exclude-types", everyType)(cmd, nil, "")
	if !reflect.DeepEqual(got, ValidEventTypeNames()) {
		t.Errorf("candidates = %v, want all %d types", got, len(ValidEventTypeNames()))
	}
}

// streamCommand mimics the flags tail and parse use to pick log streams.
func streamCommand(t *testing.T, set map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().BoolP("player", "p", false, "")
	cmd.Flags().String("player-log", "", "")
	cmd.Flags().StringSlice("include-types", nil, "")
	for k, v := range set {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatalf("Set(%q) error = %v", k, err)
		}
	}
	return cmd
}

func TestCompleteEventTypes_FollowsStreams(t *testing.T) {
	tests := []struct {
		name  string
		types streamTypes
		flags map[string]string
		args  []string
		want  []string
	}{
		{"tail main log only", tailTypes, nil, nil, []string{"match_ended", "match_started"}},
		{"tail with player", tailTypes, map[string]string{"player": "true"}, nil, []string{"mana_paid", "match_ended", "match_started"}},
		{"tail with player log path", tailTypes, map[string]string{"player-log": "/tmp/Player.log"}, nil, []string{"mana_paid", "match_ended", "match_started"}},
		{"tail player explicitly off", tailTypes, map[string]string{"player": "false"}, nil, []string{"match_ended", "match_started"}},
		{"parse main log", parseTypes, nil, nil, []string{"match_ended", "match_started"}},
		{"parse player log", parseTypes, map[string]string{"player": "true"}, nil, []string{"mana_paid"}},
		{"parse named files", parseTypes, nil, []string{"a.log"}, []string{"mana_paid", "match_ended", "match_started"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := streamCommand(t, tt.flags)
			got, _ := completeEventTypes("include-types", tt.types)(cmd, tt.args, "ma")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("candidates = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompleteFormats(t *testing.T) {
	tests := []struct {
		toComplete string
		want       []string
	}{
		{"", []string{"jsonl\tone JSON object per line", "pretty\taligned, colored text for reading"}},
		{"P", []string{"pretty\taligned, colored text for reading"}},
		{"json", []string{"jsonl\tone JSON object per line"}},
		{"xml", nil},
	}
	for _, tt := range tests {
		t.Run(tt.toComplete, func(t *testing.T) {
			got, dir := completeFormats(nil, nil, tt.toComplete)
			if dir != cobra.ShellCompDirectiveNoFileComp {
				t.Errorf("directive = %v, want %v", dir, cobra.ShellCompDirectiveNoFileComp)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("completeFormats(%q) = %q, want %q", tt.toComplete, got, tt.want)
			}
		})
	}
}

func TestCommands_RegisterValueCompletion(t *testing.T) {
	for _, cmd := range []*cobra.Command{tailCmd, parseCmd} {
		for _, flag := range []string{"format", "include-types", "exclude-types"} {
			if _, ok := cmd.GetFlagCompletionFunc(flag); !ok {
				t.Errorf("%s --%s has no completion", cmd.Name(), flag)
			}
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	var buf strings.Builder
	completionCmd.SetOut(&buf)
	defer completionCmd.SetOut(nil)

	if err := completionCmd.RunE(completionCmd, []string{"bash"}); err != nil {
		t.Fatalf("completion bash error = %v", err)
	}
	if !strings.Contains(buf.String(), "arenalog") {
		t.Error("bash completion does not mention arenalog")
	}
}
