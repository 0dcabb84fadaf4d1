package tailer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/arenalog/arenalog-go/internal/checkpoint"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

func record(id string) string {
	return "[UnityCrossThreadLogger]==> EventJoin {\"id\":\"" + id + "\"}\n"
}

type collector struct {
	recs []event.RawLogEvent
}

func (c *collector) emit(rec event.RawLogEvent) error {
	c.recs = append(c.recs, rec)
	return nil
}

func (c *collector) ids() []string {
	out := make([]string, len(c.recs))
	for i, r := range c.recs {
		out[i] = strings.TrimSuffix(strings.TrimPrefix(r.RawData, `{"id":"`), `"}`)
	}
	return out
}

func newTestPoller(t *testing.T, cfg PollerConfig) *Poller {
	t.Helper()
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 7 // force records to span chunks
	}
	p, err := NewPoller(cfg)
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return p
}

func appendFile(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		t.Fatal(err)
	}
}

func TestPoller_ReadsAllRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UTC_Log - a.log")
	appendFile(t, path, "boot noise\n"+record("1")+record("2")+record("3"))

	p := newTestPoller(t, PollerConfig{Path: path})
	var c collector
	if err := p.Poll(context.Background(), c.emit); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if got, want := c.ids(), []string{"1", "2", "3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}

	// No new data: nothing emitted.
	if err := p.Poll(context.Background(), c.emit); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(c.recs) != 3 {
		t.Errorf("len(recs) after idle poll = %d, want 3", len(c.recs))
	}
}

func TestPoller_Deterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UTC_Log - a.log")
	appendFile(t, path, record("1")+"chatter\n"+record("2")+record("3"))

	var first, second collector
	for _, c := range []*collector{&first, &second} {
		p := newTestPoller(t, PollerConfig{Path: path, FromStart: true})
		if err := p.Poll(context.Background(), c.emit); err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
	}
	if !reflect.DeepEqual(first.recs, second.recs) {
		t.Errorf("replays differ:\n%+v\n%+v", first.recs, second.recs)
	}
}

func TestPoller_ResumeNeverDuplicatesOrDrops(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "UTC_Log - a.log")
	store := checkpoint.NewMemoryStore()

	// Write two records and half of a third.
	third := record("3")
	appendFile(t, path, record("1")+record("2")+third[:20])

	p := newTestPoller(t, PollerConfig{Path: path, Store: store})
	var c collector
	if err := p.Poll(ctx, c.emit); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	st, err := store.Load(ctx, p.Path())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	wantOffset := uint64(len(record("1")) + len(record("2")))
	if st.BytesRead != wantOffset {
		t.Errorf("checkpoint BytesRead = %d, want %d", st.BytesRead, wantOffset)
	}

	// "Restart": a new poller resumes from the checkpoint.
	appendFile(t, path, third[20:]+record("4"))
	p2 := newTestPoller(t, PollerConfig{Path: path, Store: store})
	if err := p2.Poll(ctx, c.emit); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if got, want := c.ids(), []string{"1", "2", "3", "4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestPoller_FromStartIgnoresCheckpoint(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "UTC_Log - a.log")
	appendFile(t, path, record("1")+record("2"))
	store := checkpoint.NewMemoryStore()
	abs, _ := filepath.Abs(path)
	_ = store.Save(ctx, checkpoint.TailState{FileIdentity: abs, BytesRead: uint64(len(record("1")))})

	var resumed, fresh collector
	if err := newTestPoller(t, PollerConfig{Path: path, Store: store}).Poll(ctx, resumed.emit); err != nil {
		t.Fatal(err)
	}
	if err := newTestPoller(t, PollerConfig{Path: path, Store: store, FromStart: true}).Poll(ctx, fresh.emit); err != nil {
		t.Fatal(err)
	}
	if got := resumed.ids(); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("resumed ids = %v, want [2]", got)
	}
	if got := fresh.ids(); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("from-start ids = %v, want [1 2]", got)
	}
}

func TestPoller_Truncation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "UTC_Log - a.log")
	appendFile(t, path, record("1")+record("2")+record("3"))

	p := newTestPoller(t, PollerConfig{Path: path})
	var c collector
	if err := p.Poll(ctx, c.emit); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	// Truncate in place and write less than before.
	if err := os.WriteFile(path, []byte(record("9")), 0644); err != nil {
		t.Fatal(err)
	}
	if err := p.Poll(ctx, c.emit); err != nil {
		t.Fatalf("Poll() after truncation error = %v", err)
	}
	if got, want := c.ids(), []string{"1", "2", "3", "9"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if st := p.State(); st.BytesRead != uint64(len(record("9"))) {
		t.Errorf("State().BytesRead = %d, want %d", st.BytesRead, len(record("9")))
	}
}

func TestPoller_Rotation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	old := filepath.Join(dir, "UTC_Log - 1.log")
	appendFile(t, old, record("1"))
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	store := checkpoint.NewMemoryStore()
	p := newTestPoller(t, PollerConfig{Dir: dir, Pattern: "UTC_Log*.log", Store: store})
	var c collector
	if err := p.step(ctx, c.emit); err != nil {
		t.Fatalf("step() error = %v", err)
	}

	// Late bytes in the old file plus a newer file.
	appendFile(t, old, record("2"))
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	next := filepath.Join(dir, "UTC_Log - 2.log")
	appendFile(t, next, record("10"))

	if err := p.step(ctx, c.emit); err != nil {
		t.Fatalf("step() error = %v", err)
	}
	if filepath.Base(p.Path()) != "UTC_Log - 2.log" {
		t.Fatalf("Path() = %q, want newer file", p.Path())
	}
	if err := p.step(ctx, c.emit); err != nil {
		t.Fatalf("step() error = %v", err)
	}
	if got, want := c.ids(), []string{"1", "2", "10"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}

	oldAbs, _ := filepath.Abs(old)
	st, err := store.Load(ctx, oldAbs)
	if err != nil || st.BytesRead != uint64(len(record("1"))+len(record("2"))) {
		t.Errorf("old file checkpoint = %+v, %v", st, err)
	}
}

func TestPoller_MissingFileIsFatal(t *testing.T) {
	p, err := NewPoller(PollerConfig{Path: filepath.Join(t.TempDir(), "missing.log")})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}
	err = p.Run(context.Background(), func(event.RawLogEvent) error { return nil })
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Run() error = %v, want fs.ErrNotExist", err)
	}
}

func TestPoller_FileRemovedMidRun(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "Player.log")
	appendFile(t, path, record("1"))
	p := newTestPoller(t, PollerConfig{Path: path})
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	var c collector
	if err := p.step(ctx, c.emit); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("step() error = %v, want fs.ErrNotExist", err)
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Player.log")
	appendFile(t, path, record("1"))

	p, err := NewPoller(PollerConfig{Path: path, PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan event.RawLogEvent, 10)
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(rec event.RawLogEvent) error {
			got <- rec
			return nil
		})
	}()

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for record")
	}
	appendFile(t, path, record("2"))
	select {
	case rec := <-got:
		if rec.RawData != `{"id":"2"}` {
			t.Errorf("RawData = %q", rec.RawData)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for appended record")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestPoller_EmitErrorStopsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Player.log")
	appendFile(t, path, record("1"))
	p, err := NewPoller(PollerConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	sentinel := errors.New("consumer gone")
	err = p.Run(context.Background(), func(event.RawLogEvent) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("Run() error = %v, want %v", err, sentinel)
	}
}

func TestNewPoller_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  PollerConfig
	}{
		{"no path or dir", PollerConfig{}},
		{"negative interval", PollerConfig{Path: "x", PollInterval: -1}},
		{"negative chunk", PollerConfig{Path: "x", ChunkSize: -1}},
		{"empty dir", PollerConfig{Dir: "/nonexistent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPoller(tt.cfg); err == nil {
				t.Error("NewPoller() error = nil, want error")
			}
		})
	}
}
