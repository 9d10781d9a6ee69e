// Package fyers provides client functionality for a Fyers-style broker API.
package fyers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/suwi/papertrade/internal/domain"
)

const requestTimeout = 10 * time.Second

// Client talks to the broker's REST API for quotes and historical candles.
// It obtains session tokens from a TokenProvider and never embeds any
// retry or backoff policy: a failed call surfaces immediately.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	tokens     domain.TokenProvider
	log        zerolog.Logger
}

// Compile-time check that Client implements domain.BrokerClient
var _ domain.BrokerClient = (*Client)(nil)

// NewClient creates a new broker client
func NewClient(baseURL, clientID string, tokens domain.TokenProvider, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		tokens:     tokens,
		log:        log.With().Str("client", "fyers").Logger(),
	}
}

// Quotes fetches market snapshots for one chunk of symbols.
// Rows the feed reports as invalid are dropped; unknown symbols are omitted.
func (c *Client) Quotes(ctx context.Context, userID string, symbols []string) ([]domain.QuoteSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	token, err := c.activeToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/data/quotes?symbols=" + url.QueryEscape(strings.Join(symbols, ","))

	var envelope quotesEnvelope
	if err := c.getJSON(ctx, endpoint, token, &envelope); err != nil {
		return nil, err
	}

	snapshots := transformQuotes(envelope, time.Now().UTC())

	c.log.Debug().
		Int("requested", len(symbols)).
		Int("received", len(snapshots)).
		Msg("Fetched quotes")

	return snapshots, nil
}

// History fetches daily candles for the window [from, to].
// Callers are responsible for splitting ranges wider than the upstream cap.
func (c *Client) History(ctx context.Context, userID, symbol string, from, to time.Time) ([]domain.Candle, error) {
	token, err := c.activeToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("resolution", "1D")
	params.Set("date_format", "1")
	params.Set("range_from", from.Format("2006-01-02"))
	params.Set("range_to", to.Format("2006-01-02"))

	endpoint := c.baseURL + "/data/history?" + params.Encode()

	var envelope historyEnvelope
	if err := c.getJSON(ctx, endpoint, token, &envelope); err != nil {
		return nil, err
	}

	if envelope.Status != "ok" {
		return nil, fmt.Errorf("history request for %s failed: %w", symbol, domain.ErrQuoteUnavailable)
	}

	return transformCandles(envelope.Candles), nil
}

// activeToken resolves a session token, mapping "must re-authenticate"
// (empty token, nil error) to ErrSessionExpired for callers.
func (c *Client) activeToken(ctx context.Context, userID string) (string, error) {
	token, err := c.tokens.ActiveAccessToken(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	if token == "" {
		return "", domain.ErrSessionExpired
	}
	return token, nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
// Auth failures map to ErrSessionExpired, deadline hits to ErrUpstreamTimeout.
func (c *Client) getJSON(ctx context.Context, endpoint, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", c.clientID+":"+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ErrUpstreamTimeout
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return domain.ErrUpstreamTimeout
		}
		return fmt.Errorf("broker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("broker returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode broker response: %w", err)
	}

	return nil
}
