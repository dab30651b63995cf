package fcm

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// messagingScope is the OAuth scope required by the FCM v1 API.
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

	// jwtBearerGrantType is the OAuth grant type for service account assertions.
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetime is how long each signed assertion is valid.
	assertionLifetime = 1 * time.Hour

	// tokenRefreshSlack refreshes access tokens slightly before expiry so
	// in-flight sends never carry a stale token.
	tokenRefreshSlack = 1 * time.Minute
)

// ServiceAccount holds the Google service account credentials used to mint
// FCM access tokens.
type ServiceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadServiceAccount reads service account credentials from a JSON key file.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	if sa.ProjectID == "" || sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("credentials file missing project_id, client_email, or private_key")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = "https://oauth2.googleapis.com/token"
	}

	return &sa, nil
}

// TokenSource mints and caches OAuth access tokens for a service account by
// signing an RS256 JWT assertion and exchanging it at the token endpoint.
// Safe for concurrent use.
type TokenSource struct {
	account    *ServiceAccount
	key        *rsa.PrivateKey
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// TokenSourceConfig holds configuration for creating a TokenSource.
type TokenSourceConfig struct {
	Account *ServiceAccount

	// HTTPClient is the client used for the token exchange.
	// Defaults to a client with a 10s timeout.
	HTTPClient *http.Client

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewTokenSource creates a token source for the given service account.
func NewTokenSource(cfg TokenSourceConfig) (*TokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.Account.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenSource{
		account:    cfg.Account,
		key:        key,
		httpClient: httpClient,
		now:        now,
	}, nil
}

// Token returns a valid access token, minting a new one when the cached
// token is absent or close to expiry.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.accessToken != "" && ts.now().Add(tokenRefreshSlack).Before(ts.expiresAt) {
		return ts.accessToken, nil
	}

	token, expiresIn, err := ts.exchange(ctx)
	if err != nil {
		return "", err
	}

	ts.accessToken = token
	ts.expiresAt = ts.now().Add(expiresIn)
	return token, nil
}

// exchange signs a fresh assertion and trades it for an access token.
func (ts *TokenSource) exchange(ctx context.Context) (string, time.Duration, error) {
	assertion, err := ts.signAssertion()
	if err != nil {
		return "", 0, fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("unexpected status %d from token endpoint", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned empty access token")
	}

	return result.AccessToken, time.Duration(result.ExpiresIn) * time.Second, nil
}

func (ts *TokenSource) signAssertion() (string, error) {
	now := ts.now()

	claims := jwt.MapClaims{
		"iss":   ts.account.ClientEmail,
		"scope": messagingScope,
		"aud":   ts.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.key)
}
