package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Print a completion script for the given shell. Besides subcommands and
flags, the scripts complete --format values and the event type names
accepted by --include-types and --exclude-types, narrowed to the logs the
command will read.

Examples:
  $ source <(arenalog completion bash)
  $ arenalog completion zsh > "${fpath[1]}/_arenalog"
  $ arenalog completion fish > ~/.config/fish/completions/arenalog.fish
  PS> arenalog completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	// Completion scripts need no configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}
		root, out := cmd.Root(), cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		default:
			return root.GenPowerShellCompletionWithDesc(out)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// formatHelp describes each --format value in completion menus.
var formatHelp = map[string]string{
	"jsonl":  "one JSON object per line",
	"pretty": "aligned, colored text for reading",
}

// completeFormats completes --format with the values NewPrinter accepts.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(ValidFormats))
	for name := range ValidFormats {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, strings.ToLower(toComplete)) {
			out = append(out, name+"\t"+formatHelp[name])
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// streamTypes picks the event types a command can emit given the flags
// and arguments typed so far.
type streamTypes func(cmd *cobra.Command, args []string) []event.Type

// tailTypes: the main log always, Player.log only when it is followed too.
func tailTypes(cmd *cobra.Command, _ []string) []event.Type {
	if flagSet(cmd, "player") || flagSet(cmd, "player-log") {
		return append(event.MainTypes(), event.PlayerTypes()...)
	}
	return event.MainTypes()
}

// parseTypes: files named on the command line are sniffed, so any type
// may appear; otherwise --player decides which log is read.
func parseTypes(cmd *cobra.Command, args []string) []event.Type {
	switch {
	case len(args) > 0:
		return append(event.MainTypes(), event.PlayerTypes()...)
	case flagSet(cmd, "player"):
		return event.PlayerTypes()
	default:
		return event.MainTypes()
	}
}

func flagSet(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return false
	}
	return f.Value.Type() != "bool" || f.Value.String() == "true"
}

// completeEventTypes completes a comma-separated event type list. Types
// already typed in the current value or given in an earlier use of the
// flag are not offered again. Each candidate carries the text before the
// last comma so shells replace the whole word.
func completeEventTypes(flagName string, types streamTypes) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		parts := strings.Split(toComplete, ",")
		typed, current := parts[:len(parts)-1], parts[len(parts)-1]

		prefix := strings.Join(typed, ",")
		if prefix != "" {
			prefix += ","
		}

		used := make(map[string]bool)
		for _, v := range typed {
			used[strings.ToLower(strings.TrimSpace(v))] = true
		}
		if vals, err := cmd.Flags().GetStringSlice(flagName); err == nil {
			for _, v := range vals {
				used[strings.ToLower(strings.TrimSpace(v))] = true
			}
		}

		offered := types(cmd, args)
		names := make([]string, 0, len(offered))
		for _, t := range offered {
			names = append(names, string(t))
		}
		sort.Strings(names)

		current = strings.ToLower(strings.TrimSpace(current))
		var candidates []string
		for _, name := range names {
			if !used[name] && strings.HasPrefix(name, current) {
				candidates = append(candidates, prefix+name)
			}
		}
		return candidates, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	}
}

// registerCompletions wires value completion for the shared output and
// filter flags of cmd.
func registerCompletions(cmd *cobra.Command, types streamTypes) {
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	for _, name := range []string{"include-types", "exclude-types"} {
		_ = cmd.RegisterFlagCompletionFunc(name, completeEventTypes(name, types))
	}
}
