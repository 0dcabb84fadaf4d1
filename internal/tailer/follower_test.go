package tailer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	recA = "[UnityCrossThreadLogger]==> EventJoin {\"id\":\"a\"}\n"
	recB = "[UnityCrossThreadLogger]==> EventJoin {\"id\":\"b\"}\n"
)

func TestFollower_NewRecords(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "Player.log")

	f, err := os.Create(logFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	follower, err := Follow(ctx, logFile, DefaultFollowConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer follower.Stop()

	// Give the follower a moment to start watching
	time.Sleep(100 * time.Millisecond)

	for i, rec := range []string{recA, recB} {
		f.WriteString(rec)
		f.Sync()

		select {
		case got := <-follower.Records():
			if got.EventName != "EventJoin" {
				t.Errorf("record %d: EventName = %q, want EventJoin", i, got.EventName)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for record %d", i)
		}
	}
}

func TestFollower_FromStart(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "Player.log")
	if err := os.WriteFile(logFile, []byte("noise\n"+recA+recB), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultFollowConfig()
	cfg.FromStart = true

	follower, err := Follow(ctx, logFile, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer follower.Stop()

	for _, want := range []string{`{"id":"a"}`, `{"id":"b"}`} {
		select {
		case got := <-follower.Records():
			if got.RawData != want {
				t.Errorf("RawData = %q, want %q", got.RawData, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func TestFollower_StopMultipleTimes(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "Player.log")
	if err := os.WriteFile(logFile, nil, 0644); err != nil {
		t.Fatal(err)
	}

	follower, err := Follow(context.Background(), logFile, DefaultFollowConfig())
	if err != nil {
		t.Fatal(err)
	}

	if err := follower.Stop(); err != nil {
		t.Errorf("first Stop() error = %v", err)
	}
	if err := follower.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	select {
	case _, ok := <-follower.Records():
		if ok {
			t.Error("expected Records channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for Records channel to close")
	}
}

func TestFollower_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "Player.log")
	if err := os.WriteFile(logFile, nil, 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	follower, err := Follow(ctx, logFile, DefaultFollowConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer follower.Stop()

	cancel()

	select {
	case _, ok := <-follower.Records():
		if ok {
			t.Error("expected Records channel to be closed after context cancel")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for Records channel to close")
	}
}

func TestFollower_FileNotExists(t *testing.T) {
	_, err := Follow(context.Background(), "/nonexistent/path/Player.log", DefaultFollowConfig())
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}
