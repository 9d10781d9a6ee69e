package fyers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suwi/papertrade/internal/domain"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) ActiveAccessToken(context.Context, string) (string, error) {
	return s.token, s.err
}

func TestQuotes_ParsesResponse(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/quotes", r.URL.Path)
		assert.Equal(t, "APP123:tok", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"s": "ok",
			"d": []map[string]interface{}{
				{"n": "NSE:INFY-EQ", "v": map[string]interface{}{
					"symbol": "NSE:INFY-EQ", "code": 200, "lp": 1520.5,
					"prev_close_price": 1500.0, "open_price": 1510.0,
				}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "APP123", &staticTokens{token: "tok"}, log)

	snapshots, err := client.Quotes(context.Background(), "u1", []string{"NSE:INFY-EQ"})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1520.5, snapshots[0].LastPrice)
}

func TestQuotes_AuthFailureMapsToSessionExpired(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "APP123", &staticTokens{token: "stale"}, log)

	_, err := client.Quotes(context.Background(), "u1", []string{"NSE:INFY-EQ"})
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestQuotes_EmptyTokenMeansSessionExpired(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	client := NewClient("http://unused", "APP123", &staticTokens{token: ""}, log)

	_, err := client.Quotes(context.Background(), "u1", []string{"NSE:INFY-EQ"})
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestQuotes_DeadlineMapsToUpstreamTimeout(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, "APP123", &staticTokens{token: "tok"}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Quotes(ctx, "u1", []string{"NSE:INFY-EQ"})
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestHistory_NonOKStatusFails(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/history", r.URL.Path)
		assert.Equal(t, "1D", r.URL.Query().Get("resolution"))
		json.NewEncoder(w).Encode(map[string]interface{}{"s": "no_data"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "APP123", &staticTokens{token: "tok"}, log)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.History(context.Background(), "u1", "NSE:INFY-EQ", from, from.AddDate(0, 1, 0))
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestTokenProvider_RefreshAndFallback(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	var refreshCalls, authCodeCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/validate-refresh-token":
			refreshCalls++
			// Invalid refresh token
			json.NewEncoder(w).Encode(map[string]interface{}{"s": "error", "code": -501})
		case "/validate-authcode":
			authCodeCalls++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"s": "ok", "access_token": "fresh", "refresh_token": "newref",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	provider := NewTokenProvider(server.URL, "APP123", "secret", "1234", "authcode", log)
	provider.SetRefreshToken("u1", "oldref")

	token, err := provider.ActiveAccessToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, 1, refreshCalls, "rejected refresh token falls through to auth code")
	assert.Equal(t, 1, authCodeCalls)

	// The fresh token is now cached; no further upstream calls
	token, err = provider.ActiveAccessToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, 1, authCodeCalls)
}

func TestTokenProvider_NoCredentialsMeansReauthenticate(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	provider := NewTokenProvider("http://unused", "APP123", "secret", "1234", "", log)

	token, err := provider.ActiveAccessToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, token, "empty token with nil error signals re-authentication")
}
