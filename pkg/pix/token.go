package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// Credentials are the OAuth2 client credentials issued by the PSP.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// TokenManager owns the PSP bearer token. A cached token is handed out only
// while now < expiry; refreshes are collapsed so a burst of callers hitting an
// expired token causes a single exchange.
type TokenManager struct {
	client   *http.Client
	tokenURL string
	creds    Credentials
	style    AuthStyle
	ttl      time.Duration
	cache    TokenCache
	log      zerolog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	token *oauth2.Token
	group singleflight.Group
}

type TokenOption func(*TokenManager)

// WithTokenCache shares leases with other processes through c.
func WithTokenCache(c TokenCache) TokenOption {
	return func(m *TokenManager) { m.cache = c }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

func WithTokenLogger(l zerolog.Logger) TokenOption {
	return func(m *TokenManager) { m.log = l }
}

func NewTokenManager(client *http.Client, profile Profile, creds Credentials, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		client:   client,
		tokenURL: profile.BaseURL + profile.TokenPath,
		creds:    creds,
		style:    profile.AuthStyle,
		ttl:      profile.TokenTTL,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	if m.ttl <= 0 {
		m.ttl = 5 * time.Minute
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ValidToken returns a usable bearer token, exchanging credentials when the
// cached one is missing or its lease ran out.
func (m *TokenManager) ValidToken(ctx context.Context) (*oauth2.Token, error) {
	if tok := m.cached(); tok != nil {
		return tok, nil
	}
	// The exchange outlives an impatient caller so waiters still get the result;
	// the http client timeout bounds it.
	ch := m.group.DoChan("token", func() (interface{}, error) {
		if tok := m.cached(); tok != nil {
			return tok, nil
		}
		return m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, opError(ErrAuthentication, "token", "", 0, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

// Invalidate drops the in-process token, e.g. after the PSP answered 401.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
}

func (m *TokenManager) cached() *oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token != nil && m.now().Before(m.token.Expiry) {
		return m.token
	}
	return nil
}

func (m *TokenManager) refresh(ctx context.Context) (*oauth2.Token, error) {
	if m.cache != nil {
		shared, err := m.cache.Load(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("token cache load failed")
		} else if shared != nil && shared.AccessToken != "" && m.now().Before(shared.Expiry) {
			m.set(shared)
			m.log.Debug().Time("expires_at", shared.Expiry).Msg("adopted shared token")
			return shared, nil
		}
	}

	tok, status, err := m.exchange(ctx)
	if err != nil {
		m.log.Error().Err(err).Int("status", status).Str("style", m.style.String()).Msg("token exchange failed")
		return nil, opError(ErrAuthentication, "token", "", status, err)
	}
	// The PSPs do not report expires_in reliably; use the fixed lease.
	tok.Expiry = m.now().Add(m.ttl)
	m.set(tok)
	m.log.Info().Time("expires_at", tok.Expiry).Msg("token refreshed")

	if m.cache != nil {
		if err := m.cache.Store(ctx, tok); err != nil {
			m.log.Warn().Err(err).Msg("token cache store failed")
		}
	}
	return tok, nil
}

func (m *TokenManager) set(tok *oauth2.Token) {
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
}

func (m *TokenManager) exchange(ctx context.Context) (*oauth2.Token, int, error) {
	switch m.style {
	case AuthStyleForm:
		return m.exchangeForm(ctx)
	case AuthStyleBasicJSON:
		return m.exchangeJSON(ctx, map[string]string{"grant_type": "client_credentials"}, true)
	default:
		return m.exchangeJSON(ctx, map[string]string{
			"client_id":     m.creds.ClientID,
			"client_secret": m.creds.ClientSecret,
			"grant_type":    "client_credentials",
		}, false)
	}
}

func (m *TokenManager) exchangeForm(ctx context.Context) (*oauth2.Token, int, error) {
	cc := clientcredentials.Config{
		ClientID:     m.creds.ClientID,
		ClientSecret: m.creds.ClientSecret,
		TokenURL:     m.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, m.client))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, re.Response.StatusCode, fmt.Errorf("token endpoint returned %d", re.Response.StatusCode)
		}
		return nil, 0, err
	}
	return tok, http.StatusOK, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (m *TokenManager) exchangeJSON(ctx context.Context, body map[string]string, basic bool) (*oauth2.Token, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if basic {
		req.SetBasicAuth(m.creds.ClientID, m.creds.ClientSecret)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var out tokenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return nil, resp.StatusCode, errors.New("token response has no access_token")
	}
	if out.TokenType == "" {
		out.TokenType = "Bearer"
	}
	return &oauth2.Token{AccessToken: out.AccessToken, TokenType: out.TokenType}, resp.StatusCode, nil
}
