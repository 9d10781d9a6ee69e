package fyers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Access tokens are valid for a trading day; refresh only after 12 hours.
const accessTokenLifetime = 12 * time.Hour

// TokenProvider implements domain.TokenProvider against the broker's token
// endpoints. It caches access tokens per user and exchanges the stored
// refresh token when they age out. When the refresh token itself is invalid
// it falls back to a one-time auth code if one is configured; otherwise it
// returns an empty token so the caller knows the user must re-authenticate.
type TokenProvider struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secretKey  string
	pin        string
	authCode   string

	mu     sync.Mutex
	tokens map[string]cachedToken // keyed by user ID
	log    zerolog.Logger
}

type cachedToken struct {
	accessToken  string
	refreshToken string
	fetchedAt    time.Time
}

// NewTokenProvider creates a token provider with broker app credentials
func NewTokenProvider(baseURL, clientID, secretKey, pin, authCode string, log zerolog.Logger) *TokenProvider {
	return &TokenProvider{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		clientID:   clientID,
		secretKey:  secretKey,
		pin:        pin,
		authCode:   authCode,
		tokens:     make(map[string]cachedToken),
		log:        log.With().Str("client", "fyers_tokens").Logger(),
	}
}

// SetRefreshToken seeds the stored refresh token for a user, typically after
// the UI layer completed the broker's login redirect.
func (p *TokenProvider) SetRefreshToken(userID, refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.tokens[userID]
	t.refreshToken = refreshToken
	p.tokens[userID] = t
}

// ActiveAccessToken returns a live access token for the user, refreshing as
// needed. An empty token with nil error means the user must re-authenticate.
func (p *TokenProvider) ActiveAccessToken(ctx context.Context, userID string) (string, error) {
	p.mu.Lock()
	cached := p.tokens[userID]
	p.mu.Unlock()

	// Reuse the cached token while it is still within its lifetime
	if cached.accessToken != "" && time.Since(cached.fetchedAt) < accessTokenLifetime {
		return cached.accessToken, nil
	}

	if cached.refreshToken != "" {
		token, err := p.refreshAccessToken(ctx, userID, cached.refreshToken)
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
		// Refresh token rejected; fall through to the auth-code path
	}

	if p.authCode != "" {
		return p.exchangeAuthCode(ctx, userID)
	}

	p.log.Warn().Str("user_id", userID).Msg("No usable credentials, user must re-authenticate")
	return "", nil
}

// refreshAccessToken exchanges the refresh token for a fresh access token.
// Returns an empty token (nil error) when the refresh token is rejected.
func (p *TokenProvider) refreshAccessToken(ctx context.Context, userID, refreshToken string) (string, error) {
	payload := map[string]string{
		"grant_type":    "refresh_token",
		"appIdHash":     p.appIDHash(),
		"refresh_token": refreshToken,
		"pin":           p.pin,
	}

	var result tokenResponse
	if err := p.postJSON(ctx, p.baseURL+"/validate-refresh-token", payload, &result); err != nil {
		return "", err
	}

	// Code -501 means the refresh token is invalid or expired
	if result.Code == -501 || result.AccessToken == "" {
		p.log.Warn().
			Str("user_id", userID).
			Int("code", result.Code).
			Msg("Refresh token rejected")
		return "", nil
	}

	p.storeToken(userID, result.AccessToken, refreshToken)
	p.log.Debug().Str("user_id", userID).Msg("Access token refreshed")
	return result.AccessToken, nil
}

// exchangeAuthCode uses the one-time auth code to obtain fresh tokens
func (p *TokenProvider) exchangeAuthCode(ctx context.Context, userID string) (string, error) {
	payload := map[string]string{
		"grant_type": "authorization_code",
		"appIdHash":  p.appIDHash(),
		"code":       p.authCode,
	}

	var result tokenResponse
	if err := p.postJSON(ctx, p.baseURL+"/validate-authcode", payload, &result); err != nil {
		return "", err
	}

	if result.AccessToken == "" {
		p.log.Warn().Str("user_id", userID).Msg("Auth-code exchange rejected")
		return "", nil
	}

	p.storeToken(userID, result.AccessToken, result.RefreshToken)
	p.log.Info().Str("user_id", userID).Msg("Tokens obtained from auth code")
	return result.AccessToken, nil
}

func (p *TokenProvider) storeToken(userID, accessToken, refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tokens[userID] = cachedToken{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		fetchedAt:    time.Now(),
	}
}

// appIDHash is SHA-256 over clientID + secret, as the token API requires
func (p *TokenProvider) appIDHash() string {
	sum := sha256.Sum256([]byte(p.clientID + p.secretKey))
	return fmt.Sprintf("%x", sum)
}

type tokenResponse struct {
	Status       string `json:"s"`
	Code         int    `json:"code"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (p *TokenProvider) postJSON(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	return nil
}
