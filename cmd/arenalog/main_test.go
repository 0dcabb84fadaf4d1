package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const marker = "[UnityCrossThreadLogger]"

func roomState(ts, state string) string {
	return marker + ts + ": Match to ABC: MatchGameRoomStateChangedEvent\n" +
		`{"matchGameRoomStateChangedEvent":{"gameRoomInfo":{"gameRoomConfig":{"matchId":"m-1"},` +
		`"stateType":"MatchGameRoomStateType_` + state + `"}}}` + "\n"
}

func lifeRecord(ts, life string) string {
	return marker + ts + ": Match to ABC: GreToClientEvent\n" +
		`{"transactionId":"1","greToClientEvent":{"greToClientMessages":[` +
		`{"type":"GREMessageType_GameStateMessage","systemSeatIds":[1],"gameStateMessage":` +
		`{"players":[{"systemSeatNumber":1,"lifeTotal":` + life + `}]}}]}}` + "\n"
}

// sampleLog yields match_started, life_change and match_ended.
var sampleLog = "Initialize engine version: 2022.3\n" +
	roomState("1/15/2024 7:30:00 PM", "Playing") +
	lifeRecord("1/15/2024 7:30:05 PM", "20") +
	lifeRecord("1/15/2024 7:31:00 PM", "18") +
	roomState("1/15/2024 7:40:00 PM", "MatchCompleted")

// writeLogDir creates a log directory holding one main log.
func writeLogDir(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "UTC_Log - 01-15-2024 19.29.00.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

// keepFlags restores every command flag variable when the test ends.
func keepFlags(t *testing.T) {
	t.Helper()
	restore := []func(){
		keep(&logDir), keep(&logFile), keep(&withPlayer), keep(&playerLog),
		keep(&pattern), keep(&format), keep(&tailIncludeTypes), keep(&tailExcludeTypes),
		keep(&fromStart), keep(&fromEnd), keep(&checkpointDir), keep(&noCheckpoint),
		keep(&noResolve), keep(&metricsAddr),
		keep(&parseLogDir), keep(&parsePattern), keep(&parsePlayer),
		keep(&parseIncludeTypes), keep(&parseExcludeTypes), keep(&parseSince),
		keep(&parseUntil), keep(&parseFormat), keep(&parseOutput), keep(&parseNoCache),
	}
	t.Cleanup(func() {
		for _, r := range restore {
			r()
		}
	})
}

func keep[T any](p *T) func() {
	v := *p
	return func() { *p = v }
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestVersionCommand(t *testing.T) {
	var buf strings.Builder
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(buf.String(), "arenalog dev") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestSetup_LoadsConfig(t *testing.T) {
	orig, origPath := settings, configPath
	t.Cleanup(func() { settings, configPath = orig, origPath })

	path := filepath.Join(t.TempDir(), "arenalog.yaml")
	if err := os.WriteFile(path, []byte("pattern: \"Custom*.log\"\nlog:\n  format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	configPath = path
	if err := setup(rootCmd, nil); err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	if got := currentSettings().Pattern; got != "Custom*.log" {
		t.Errorf("Pattern = %q, want Custom*.log", got)
	}
}

func TestSetup_InvalidConfig(t *testing.T) {
	orig, origPath := settings, configPath
	t.Cleanup(func() { settings, configPath = orig, origPath })

	path := filepath.Join(t.TempDir(), "arenalog.yaml")
	if err := os.WriteFile(path, []byte("chunk_size: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	configPath = path
	if err := setup(rootCmd, nil); err == nil {
		t.Error("setup() error = nil, want error")
	}
}
