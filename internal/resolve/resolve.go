// Package resolve resolves card definition ids to card metadata off the
// parsing path.
//
// Parsers emit Requests as plain values. A Queue accepts them without ever
// blocking, and a pool of workers answers each one from the memory cache,
// the durable Store, or the remote Source, in that order.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arenalog/arenalog-go/internal/metrics"
)

// ErrNotFound is returned by a Store or Source that has no entry for a key.
var ErrNotFound = errors.New("card not found")

// Request asks for the card with definition id Key. Context describes why
// the card was looked up (e.g. "cast spell").
type Request struct {
	Key     int    `json:"key"`
	Context string `json:"context,omitempty"`
}

// Card is resolved card metadata.
type Card struct {
	Key        int    `json:"key"`
	Name       string `json:"name"`
	ManaCost   string `json:"mana_cost,omitempty"`
	TypeLine   string `json:"type_line,omitempty"`
	OracleText string `json:"oracle_text,omitempty"`
}

// Source fetches card metadata from an external service.
type Source interface {
	Lookup(ctx context.Context, key int) (Card, error)
}

// Store is a durable card cache shared by all workers.
type Store interface {
	Get(ctx context.Context, key int) (Card, error)
	Put(ctx context.Context, card Card) error
}

// Config configures a Queue.
type Config struct {
	QueueSize     int
	Workers       int
	MemoryEntries int
	// Timeout bounds one lookup across all tiers.
	Timeout time.Duration
	// RetryAfter is how long a key whose lookup failed for a reason other
	// than ErrNotFound is left alone. Keys the Source reports as unknown
	// are not looked up again for the life of the Queue.
	RetryAfter time.Duration

	Source Source
	Store  Store
	Logger *slog.Logger
}

// Defaults for zero Config fields.
const (
	DefaultQueueSize     = 256
	DefaultWorkers       = 2
	DefaultMemoryEntries = 4096
	DefaultTimeout       = 10 * time.Second
	DefaultRetryAfter    = time.Minute
)

// Queue is a bounded resolution queue.
type Queue struct {
	cfg Config
	log *slog.Logger

	reqs    chan Request
	results chan Card
	mem     *LRU[int, Card]
	// failed maps keys whose lookup failed to when they may be retried.
	// A zero time means never.
	failed *LRU[int, time.Time]

	mu      sync.Mutex
	pending map[int]struct{}

	dropped atomic.Int64
}

// NewQueue creates a Queue. Workers start when Serve is called.
func NewQueue(cfg Config) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MemoryEntries <= 0 {
		cfg.MemoryEntries = DefaultMemoryEntries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Queue{
		cfg:     cfg,
		log:     cfg.Logger,
		reqs:    make(chan Request, cfg.QueueSize),
		results: make(chan Card, cfg.QueueSize),
		mem:     NewLRU[int, Card](cfg.MemoryEntries),
		failed:  NewLRU[int, time.Time](cfg.MemoryEntries),
		pending: make(map[int]struct{}),
	}
}

// TrySubmit enqueues r without blocking. It returns false only when the
// queue is full and the request was dropped. Keys that are already cached,
// queued, or known to fail are accepted without enqueuing again.
func (q *Queue) TrySubmit(r Request) bool {
	if _, ok := q.mem.Peek(r.Key); ok {
		metrics.ResolveRequests.WithLabelValues("cached").Inc()
		return true
	}
	if q.suppressed(r.Key) {
		metrics.ResolveRequests.WithLabelValues("failed").Inc()
		return true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[r.Key]; ok {
		metrics.ResolveRequests.WithLabelValues("duplicate").Inc()
		return true
	}
	select {
	case q.reqs <- r:
		q.pending[r.Key] = struct{}{}
		metrics.ResolveRequests.WithLabelValues("queued").Inc()
		metrics.ResolveQueueDepth.Set(float64(len(q.reqs)))
		return true
	default:
		q.dropped.Add(1)
		metrics.ResolveRequests.WithLabelValues("dropped").Inc()
		return false
	}
}

// Results delivers resolved cards. Delivery is best-effort: results are
// dropped when the channel buffer is full.
func (q *Queue) Results() <-chan Card {
	return q.results
}

// Name returns the resolved name for key, if known.
func (q *Queue) Name(key int) (string, bool) {
	c, ok := q.mem.Peek(key)
	if !ok || c.Name == "" {
		return "", false
	}
	return c.Name, true
}

// Dropped returns how many requests were rejected because the queue was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	return len(q.reqs)
}

// Serve runs the worker pool until ctx is cancelled. Requests still queued
// at that point are left unprocessed. Serve implements suture.Service.
func (q *Queue) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < q.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (q *Queue) String() string { return "resolve-queue" }

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-q.reqs:
			metrics.ResolveQueueDepth.Set(float64(len(q.reqs)))
			q.resolve(ctx, r)
		}
	}
}

func (q *Queue) resolve(ctx context.Context, r Request) {
	defer func() {
		q.mu.Lock()
		delete(q.pending, r.Key)
		q.mu.Unlock()
	}()

	if card, ok := q.mem.Get(r.Key); ok {
		q.publish(card)
		return
	}
	if q.suppressed(r.Key) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
	defer cancel()

	if q.cfg.Store != nil {
		start := time.Now()
		card, err := q.cfg.Store.Get(ctx, r.Key)
		if err == nil {
			metrics.RecordLookup("store", time.Since(start), nil)
			q.mem.Add(r.Key, card)
			q.publish(card)
			return
		}
		if !errors.Is(err, ErrNotFound) {
			metrics.RecordLookup("store", time.Since(start), err)
			q.log.Warn("card cache read failed", "key", r.Key, "error", err)
		}
	}

	if q.cfg.Source == nil {
		return
	}
	start := time.Now()
	card, err := q.cfg.Source.Lookup(ctx, r.Key)
	metrics.RecordLookup("source", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			q.failed.Add(r.Key, time.Time{})
			q.log.Debug("card not found", "key", r.Key, "context", r.Context)
		} else {
			q.failed.Add(r.Key, time.Now().Add(q.cfg.RetryAfter))
			q.log.Warn("card lookup failed", "key", r.Key, "context", r.Context, "error", err)
		}
		return
	}
	card.Key = r.Key
	q.mem.Add(r.Key, card)
	if q.cfg.Store != nil {
		if err := q.cfg.Store.Put(ctx, card); err != nil {
			q.log.Warn("card cache write failed", "key", r.Key, "error", err)
		}
	}
	q.publish(card)
}

// suppressed reports whether a previous failure for key still stands.
func (q *Queue) suppressed(key int) bool {
	until, ok := q.failed.Peek(key)
	return ok && (until.IsZero() || time.Now().Before(until))
}

func (q *Queue) publish(card Card) {
	select {
	case q.results <- card:
	default:
	}
}
