package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 4 << 20

// Client talks to a BACEN-style Pix API over mTLS. One implementation serves
// every PSP; the differences live in its Profile.
type Client struct {
	profile Profile
	http    *http.Client
	tokens  *TokenManager
	pixKey  string
	log     zerolog.Logger
}

func NewClient(profile Profile, httpClient *http.Client, tokens *TokenManager, pixKey string, log zerolog.Logger) *Client {
	return &Client{
		profile: profile,
		http:    httpClient,
		tokens:  tokens,
		pixKey:  pixKey,
		log:     log.With().Str("psp", profile.Name).Logger(),
	}
}

func (c *Client) Name() string { return c.profile.Name }

type cobRequest struct {
	Calendario Calendar `json:"calendario"`
	Devedor    *Debtor  `json:"devedor,omitempty"`
	Valor      Value    `json:"valor"`
	Chave      string   `json:"chave"`
}

// CreateCharge creates an immediate charge. It is never retried: a second POST
// could leave two live charges at the PSP.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	tok, err := c.tokens.ValidToken(ctx)
	if err != nil {
		return nil, err
	}
	exp := req.Expiration
	if exp <= 0 {
		exp = DefaultExpiration
	}
	body := cobRequest{
		Calendario: Calendar{Expiracao: int(exp / time.Second)},
		Valor:      Value{Original: req.Amount},
		Chave:      c.pixKey,
	}
	if req.PayerTaxID != "" || req.PayerName != "" {
		body.Devedor = &Debtor{CPF: req.PayerTaxID, Nome: req.PayerName}
	}
	c.log.Info().Str("amount", req.Amount).Msg("creating charge")
	status, raw, err := c.do(ctx, tok, http.MethodPost, c.chargeURL(""), nil, body)
	if err != nil {
		return nil, opError(ErrChargeCreation, "create", "", status, err)
	}
	var out Charge
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, opError(ErrChargeCreation, "create", "", status, fmt.Errorf("decode response: %w", err))
	}
	if out.Txid == "" || out.PixCopiaECola == "" {
		return nil, opError(ErrChargeCreation, "create", out.Txid, status, errors.New("response is missing txid or pixCopiaECola"))
	}
	if err := ValidateTxid(out.Txid); err != nil {
		return nil, opError(ErrChargeCreation, "create", "", status, err)
	}
	c.log.Info().Str("txid", out.Txid).Str("status", out.Status).Msg("charge created")
	return &out, nil
}

// DetailCharge fetches the PSP's current view of txid.
func (c *Client) DetailCharge(ctx context.Context, txid string) (*Charge, error) {
	if err := ValidateTxid(txid); err != nil {
		return nil, err
	}
	status, raw, err := c.read(ctx, c.chargeURL(txid), nil)
	if err != nil {
		return nil, wrapQuery(err, "detail", txid, status)
	}
	var out Charge
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, opError(ErrChargeQuery, "detail", txid, status, fmt.Errorf("decode response: %w", err))
	}
	return &out, nil
}

// ListCharges lists charges created between start and end
// (both YYYY-MM-DD-HH-MM-SS, UTC).
func (c *Client) ListCharges(ctx context.Context, start, end string) (*ChargeList, error) {
	inicio, fim, err := ValidateDateRange(start, end)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("inicio", inicio)
	q.Set("fim", fim)
	status, raw, err := c.read(ctx, c.chargeURL(""), q)
	if err != nil {
		return nil, wrapQuery(err, "list", "", status)
	}
	var out ChargeList
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, opError(ErrChargeQuery, "list", "", status, fmt.Errorf("decode response: %w", err))
	}
	return &out, nil
}

// CreateWebhook registers webhookURL for the receiving key.
func (c *Client) CreateWebhook(ctx context.Context, webhookURL string) error {
	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return opError(ErrWebhookRegistration, "webhook", "", 0, fmt.Errorf("webhook url must be absolute https: %q", webhookURL))
	}
	tok, err := c.tokens.ValidToken(ctx)
	if err != nil {
		return err
	}
	target := c.profile.BaseURL + c.profile.WebhookPath + "/" + url.PathEscape(c.pixKey)
	status, _, err := c.do(ctx, tok, http.MethodPut, target, nil, map[string]string{"webhookUrl": webhookURL})
	if err != nil {
		return opError(ErrWebhookRegistration, "webhook", "", status, err)
	}
	c.log.Info().Str("webhook_url", webhookURL).Msg("webhook registered")
	return nil
}

func (c *Client) chargeURL(txid string) string {
	u := c.profile.BaseURL + c.profile.ChargePath
	if txid != "" {
		u += "/" + txid
	}
	return u
}

// read performs an idempotent GET, retrying once on transport errors, 5xx or
// a rejected token.
func (c *Client) read(ctx context.Context, target string, q url.Values) (int, []byte, error) {
	for attempt := 1; ; attempt++ {
		tok, err := c.tokens.ValidToken(ctx)
		if err != nil {
			return 0, nil, err
		}
		status, raw, err := c.do(ctx, tok, http.MethodGet, target, q, nil)
		if err == nil {
			return status, raw, nil
		}
		if attempt > 1 || ctx.Err() != nil || !retryable(status) {
			return status, nil, err
		}
		c.log.Warn().Err(err).Int("status", status).Str("url", target).Msg("retrying read")
	}
}

func retryable(status int) bool {
	return status == 0 || status == http.StatusUnauthorized || status >= 500
}

type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("psp returned %d %s", e.code, http.StatusText(e.code))
}

func (c *Client) do(ctx context.Context, tok *oauth2.Token, method, target string, q url.Values, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return 0, nil, err
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("url", target).Msg("psp request failed")
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	c.log.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Bytes("body", truncate(raw, 512)).
		Msg("psp response")
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, &httpStatusError{code: resp.StatusCode}
	}
	return resp.StatusCode, raw, nil
}

// wrapQuery keeps authentication failures intact and files everything else
// under ErrChargeQuery.
func wrapQuery(err error, op, txid string, status int) error {
	if errors.Is(err, ErrAuthentication) {
		return err
	}
	return opError(ErrChargeQuery, op, txid, status, err)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
