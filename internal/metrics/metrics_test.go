package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRead(t *testing.T) {
	before := testutil.ToFloat64(BytesRead.WithLabelValues("test-read"))
	beforeRecs := testutil.ToFloat64(RecordsExtracted.WithLabelValues("test-read"))

	RecordRead("test-read", 128, 3)
	RecordRead("test-read", 64, 0)

	if got := testutil.ToFloat64(BytesRead.WithLabelValues("test-read")) - before; got != 192 {
		t.Errorf("BytesRead delta = %v, want 192", got)
	}
	if got := testutil.ToFloat64(RecordsExtracted.WithLabelValues("test-read")) - beforeRecs; got != 3 {
		t.Errorf("RecordsExtracted delta = %v, want 3", got)
	}
}

func TestRecordCheckpoint(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"success", nil, "ok"},
		{"failure", errors.New("disk full"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CheckpointSaves.WithLabelValues("test-ckpt", tt.result)
			before := testutil.ToFloat64(c)
			RecordCheckpoint("test-ckpt", tt.err)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("CheckpointSaves{result=%q} delta = %v, want 1", tt.result, got)
			}
		})
	}
}

func TestRecordLookup(t *testing.T) {
	c := ResolveLookups.WithLabelValues("test-source", "ok")
	before := testutil.ToFloat64(c)
	RecordLookup("test-source", 10*time.Millisecond, nil)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("ResolveLookups delta = %v, want 1", got)
	}
}

func TestServer_ServesMetrics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer("127.0.0.1:0", nil)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	var addr string
	select {
	case a := <-s.Listening():
		addr = a.String()
	case err := <-done:
		t.Fatalf("Serve() returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for metrics server")
	}

	RecordRead("test-http", 1, 1)
	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "arenalog_bytes_read_total") {
		t.Errorf("/metrics body missing arenalog_bytes_read_total")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
