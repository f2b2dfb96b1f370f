// internal/scorer/scorer.go

// Package scorer talks to the remote sequence-to-function model service.
// One request scores a whole batch: the merged context interval plus every
// member variant, amortizing a single model inference across nearby
// variants. The service is a black box behind an HTTP JSON API.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"synthator-core/batch"
	"synthator-core/genome"
)

// TrackScore is one prediction for one output track. Name is the composite
// track identifier ("ASSAY:TRACK:STRAND") parsed downstream.
type TrackScore struct {
	Name          string  `json:"name"`
	RawScore      float64 `json:"rawScore"`
	QuantileScore float64 `json:"quantileScore"`
}

// Result is the per-batch scoring response, keyed by variant id.
type Result struct {
	BatchID int
	Scores  map[string][]TrackScore
}

// Typed failure classes, matched with errors.Is by the driver.
var (
	ErrAuth              = errors.New("scorer: authentication failed")
	ErrRateLimited       = errors.New("scorer: rate limited")
	ErrMalformedInterval = errors.New("scorer: malformed interval")
	ErrUnavailable       = errors.New("scorer: service unavailable")
)

// Config for the HTTP client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // per-request; 0 means no deadline beyond ctx

	// MaxRetries bounds re-sends on ErrUnavailable/ErrRateLimited.
	// The first attempt is not a retry.
	MaxRetries int
	// RequestsPerSecond throttles calls client-side; 0 disables.
	RequestsPerSecond float64
}

// Client scores batches over HTTP. Construct once per run and pass by
// reference; it holds the authenticated session state.
type Client struct {
	cfg     Config
	httpc   *http.Client
	limiter *rate.Limiter
}

// New returns a Client for the given service endpoint.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("scorer: base URL required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("scorer: API key required")
	}
	c := &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

type scoreRequest struct {
	Interval scoreInterval  `json:"interval"`
	Variants []scoreVariant `json:"variants"`
}

type scoreInterval struct {
	Chromosome string `json:"chromosome"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
}

type scoreVariant struct {
	Chromosome      string `json:"chromosome"`
	Position        int64  `json:"position"`
	ReferenceAllele string `json:"referenceAllele"`
	AlternateAllele string `json:"alternateAllele"`
	ID              string `json:"id"`
}

type scoreResponse struct {
	Scores map[string][]TrackScore `json:"scores"`
}

// ScoreBatch submits one batch and returns its per-variant track scores.
// The request interval uses UCSC chromosome naming; variant ids keep the
// Ensembl form they carry everywhere else.
func (c *Client) ScoreBatch(ctx context.Context, b batch.Batch) (*Result, error) {
	req := scoreRequest{
		Interval: scoreInterval{
			Chromosome: genome.EnsemblToUCSC(b.MergedContext.Chromosome),
			Start:      b.MergedContext.Start,
			End:        b.MergedContext.End,
		},
	}
	for _, v := range b.Variants() {
		req.Variants = append(req.Variants, scoreVariant{
			Chromosome:      genome.EnsemblToUCSC(v.Chromosome),
			Position:        v.Position,
			ReferenceAllele: v.ReferenceAllele,
			AlternateAllele: v.AlternateAllele,
			ID:              v.ID(),
		})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "scorer: encode request")
	}

	var resp scoreResponse
	for attempt := 0; ; attempt++ {
		err = c.send(ctx, body, &resp)
		if err == nil {
			break
		}
		if attempt >= c.cfg.MaxRetries || !retryable(err) {
			return nil, errors.Wrapf(err, "batch %d", b.ID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return &Result{BatchID: b.ID, Scores: resp.Scores}, nil
}

func (c *Client) send(ctx context.Context, body []byte, out *scoreResponse) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "scorer: new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, string(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "scorer: decode response")
	}
	return nil
}

func statusError(code int, msg string) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.Wrapf(ErrAuth, "status %d: %s", code, msg)
	case code == http.StatusTooManyRequests:
		return errors.Wrapf(ErrRateLimited, "status %d: %s", code, msg)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return errors.Wrapf(ErrMalformedInterval, "status %d: %s", code, msg)
	case code >= 500:
		return errors.Wrapf(ErrUnavailable, "status %d: %s", code, msg)
	default:
		return fmt.Errorf("scorer: unexpected status %d: %s", code, msg)
	}
}

func retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}

func backoff(attempt int) time.Duration {
	d := time.Second << uint(attempt)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
