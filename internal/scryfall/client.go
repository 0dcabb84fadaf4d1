// Package scryfall looks up card metadata on the Scryfall API.
package scryfall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/arenalog/arenalog-go/internal/gamedata"
	"github.com/arenalog/arenalog-go/internal/metrics"
	"github.com/arenalog/arenalog-go/internal/resolve"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.scryfall.com"

// ErrNotFound is returned when the API has no card for an id.
var ErrNotFound = resolve.ErrNotFound

// Config configures a Client.
type Config struct {
	BaseURL string
	// RatePerSecond caps outgoing requests. Scryfall asks for at most 10.
	RatePerSecond float64
	Timeout       time.Duration
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is a resolve.Source for Scryfall.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[resolve.Card]
	log     *slog.Logger
}

var _ resolve.Source = (*Client)(nil)

const breakerName = "scryfall"

// New creates a Client. Zero Config fields take defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	log := cfg.Logger.With("component", breakerName)

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[resolve.Card](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Unknown cards are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, resolve.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state change", "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	burst := int(cfg.RatePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		cb:      cb,
		log:     log,
	}
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// Lookup fetches the card with definition id key.
func (c *Client) Lookup(ctx context.Context, key int) (resolve.Card, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return resolve.Card{}, err
	}
	card, err := c.cb.Execute(func() (resolve.Card, error) {
		return c.fetch(ctx, key)
	})
	if err != nil {
		return resolve.Card{}, err
	}
	return card, nil
}

// cardURL picks the id namespace by magnitude.
func (c *Client) cardURL(key int) string {
	return fmt.Sprintf("%s/cards/%s/%d", c.base, gamedata.LookupSource(key), key)
}

func (c *Client) fetch(ctx context.Context, key int) (resolve.Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cardURL(key), nil)
	if err != nil {
		return resolve.Card{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "arenalog")

	resp, err := c.http.Do(req)
	if err != nil {
		return resolve.Card{}, fmt.Errorf("scryfall request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return resolve.Card{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return resolve.Card{}, fmt.Errorf("scryfall: unexpected status %d", resp.StatusCode)
	}

	var body cardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resolve.Card{}, fmt.Errorf("decoding scryfall card: %w", err)
	}
	card := body.card()
	card.Key = key
	return card, nil
}

type cardFace struct {
	Name       string `json:"name"`
	ManaCost   string `json:"mana_cost"`
	TypeLine   string `json:"type_line"`
	OracleText string `json:"oracle_text"`
}

type cardResponse struct {
	cardFace
	CardFaces []cardFace `json:"card_faces"`
}

// card flattens multi-faced cards: names are joined with " // " and
// missing top-level fields come from the faces.
func (r cardResponse) card() resolve.Card {
	c := resolve.Card{
		Name:       r.Name,
		ManaCost:   r.ManaCost,
		TypeLine:   r.TypeLine,
		OracleText: r.OracleText,
	}
	if len(r.CardFaces) == 0 {
		return c
	}
	names := make([]string, 0, len(r.CardFaces))
	costs := make([]string, 0, len(r.CardFaces))
	texts := make([]string, 0, len(r.CardFaces))
	for _, f := range r.CardFaces {
		names = append(names, f.Name)
		if f.ManaCost != "" {
			costs = append(costs, f.ManaCost)
		}
		if f.OracleText != "" {
			texts = append(texts, f.OracleText)
		}
	}
	if c.Name == "" {
		c.Name = strings.Join(names, " // ")
	}
	if c.ManaCost == "" {
		c.ManaCost = strings.Join(costs, " // ")
	}
	if c.TypeLine == "" {
		c.TypeLine = r.CardFaces[0].TypeLine
	}
	if c.OracleText == "" {
		c.OracleText = strings.Join(texts, "\n//\n")
	}
	return c
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
