// Package client fetches schedule and boxscore data from the upstream
// scoreboard provider and normalizes its loosely-typed JSON into strict
// internal records.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"cbb_model/ingestion/internal/metrics"
	"cbb_model/ingestion/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// FetchError is returned after the retry budget for a single call is
// exhausted. Callers treat it as a per-date or per-game failure rather than
// aborting the whole run.
type FetchError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client is the rate-limited, retrying scoreboard API client.
//
// Pacing state lives on the instance, not in package globals, so concurrent
// client instances and tests stay independent. All requests issued through
// one instance share the same limiter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	jitterMax  time.Duration
	maxRetries int
	retryUnit  time.Duration
	timeout    time.Duration
}

// New creates a scoreboard client. minInterval is the minimum spacing
// between requests; a random jitter of up to jitterMax is added on top to
// avoid a metronome request pattern against the upstream.
func New(baseURL string, timeout, minInterval, jitterMax time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		jitterMax:  jitterMax,
		maxRetries: 3,
		retryUnit:  time.Second,
		timeout:    timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// errNotFound signals a 404 from the upstream; it is not retried.
var errNotFound = fmt.Errorf("not found")

// get performs a paced GET with retry and per-attempt timeout.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, path)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * c.retryUnit
			log.Info().
				Str("path", path).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying fetch after backoff")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		body, err := c.attempt(ctx, reqURL)
		if err == nil {
			metrics.RecordFetch(path, "ok")
			return body, nil
		}
		if err == errNotFound {
			metrics.RecordFetch(path, "not_found")
			return nil, errNotFound
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		log.Warn().Err(err).Str("path", path).Int("attempt", attempt).Msg("Fetch attempt failed")
	}

	metrics.RecordFetch(path, "error")
	return nil, &FetchError{Endpoint: path, Attempts: c.maxRetries, Err: lastErr}
}

// pace blocks until the limiter grants a slot, then sleeps a random jitter.
func (c *Client) pace(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.jitterMax <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(c.jitterMax)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// attempt issues one request with its own timeout.
func (c *Client) attempt(ctx context.Context, reqURL string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cbb-model/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	metrics.ObserveFetchDuration(time.Since(start).Seconds())

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return body, nil
}

// FetchDailyEvents fetches and normalizes one league's scoreboard for a day.
// Individual events that cannot be normalized are logged and dropped; the
// rest of the day's slate is still returned.
func (c *Client) FetchDailyEvents(ctx context.Context, league models.League, date time.Time) ([]EventRecord, error) {
	path := fmt.Sprintf("%s/scoreboard", league.ProviderSlug())
	params := url.Values{}
	params.Set("dates", date.Format("20060102"))
	params.Set("groups", "50")
	params.Set("limit", "500")

	body, err := c.get(ctx, path, params)
	if err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}

	var resp scoreboardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoreboard: %w", err)
	}

	events := make([]EventRecord, 0, len(resp.Events))
	for _, raw := range resp.Events {
		record, err := normalizeEvent(raw)
		if err != nil {
			log.Warn().Err(err).
				Str("league", string(league)).
				Str("date", date.Format("2006-01-02")).
				Msg("Dropping unparseable event")
			continue
		}
		events = append(events, record)
	}

	log.Debug().
		Str("league", string(league)).
		Str("date", date.Format("2006-01-02")).
		Int("events", len(events)).
		Msg("Daily events fetched")
	return events, nil
}

// FetchBoxscore fetches and normalizes one game's boxscore. A (nil, nil)
// return means the upstream has no boxscore for the event yet.
func (c *Client) FetchBoxscore(ctx context.Context, league models.League, eventID string) (*BoxscoreRecord, error) {
	path := fmt.Sprintf("%s/summary", league.ProviderSlug())
	params := url.Values{}
	params.Set("event", eventID)

	body, err := c.get(ctx, path, params)
	if err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}

	var resp summaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal boxscore: %w", err)
	}

	record := normalizeBoxscore(eventID, resp)
	if len(record.Teams) == 0 {
		return nil, nil
	}
	return record, nil
}
