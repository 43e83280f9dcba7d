package pix

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultExpiration is how long the PSP holds a charge open.
const DefaultExpiration = 600 * time.Second

// ChargeRequest is the input for an immediate charge (cob).
type ChargeRequest struct {
	Amount     string // "25.50"
	PayerTaxID string // CPF, 11 digits
	PayerName  string
	Expiration time.Duration // zero means DefaultExpiration
}

// Calendar is the "calendario" block of a cob.
type Calendar struct {
	Criacao   string `json:"criacao,omitempty"`
	Expiracao int    `json:"expiracao"`
}

// Debtor is the "devedor" block of a cob.
type Debtor struct {
	CPF  string `json:"cpf,omitempty"`
	Nome string `json:"nome,omitempty"`
}

// Value is the "valor" block of a cob.
type Value struct {
	Original string `json:"original"`
}

// Charge is the PSP's view of a cob, as returned by create and detail.
type Charge struct {
	Txid          string   `json:"txid"`
	Status        string   `json:"status"`
	Revisao       int      `json:"revisao"`
	Calendario    Calendar `json:"calendario"`
	Devedor       *Debtor  `json:"devedor,omitempty"`
	Valor         Value    `json:"valor"`
	Chave         string   `json:"chave,omitempty"`
	Location      string   `json:"location,omitempty"`
	PixCopiaECola string   `json:"pixCopiaECola"`
}

// ChargeList is the result of listing cobs in a date window.
type ChargeList struct {
	Parametros json.RawMessage `json:"parametros,omitempty"`
	Cobs       []Charge        `json:"cobs"`
}

// Provider is the capability set every PSP integration offers.
type Provider interface {
	Name() string
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	DetailCharge(ctx context.Context, txid string) (*Charge, error)
	ListCharges(ctx context.Context, start, end string) (*ChargeList, error)
	CreateWebhook(ctx context.Context, webhookURL string) error
}

// AuthStyle is how client credentials travel to the token endpoint.
type AuthStyle int

const (
	// AuthStyleJSON posts client_id, client_secret and grant_type as a JSON object.
	AuthStyleJSON AuthStyle = iota
	// AuthStyleForm posts them form-encoded.
	AuthStyleForm
	// AuthStyleBasicJSON sends HTTP Basic credentials and a JSON grant_type body.
	AuthStyleBasicJSON
)

func (s AuthStyle) String() string {
	switch s {
	case AuthStyleJSON:
		return "json"
	case AuthStyleForm:
		return "form"
	case AuthStyleBasicJSON:
		return "basic+json"
	}
	return fmt.Sprintf("AuthStyle(%d)", int(s))
}

// Profile describes one PSP's flavour of the BACEN Pix API.
type Profile struct {
	Name       string
	BaseURL    string
	TokenPath  string
	ChargePath string
	// WebhookPath is joined with the receiving key: PUT {BaseURL}{WebhookPath}/{key}.
	WebhookPath string
	AuthStyle   AuthStyle
	// TokenTTL must be shorter than the PSP's real token lifetime.
	TokenTTL time.Duration
}

var profiles = map[string]Profile{
	"sulcredi": {
		Name:        "sulcredi",
		BaseURL:     "https://v3.qrcodes.sulcredi.coop.br",
		TokenPath:   "/oauth/token",
		ChargePath:  "/cob",
		WebhookPath: "/webhook",
		AuthStyle:   AuthStyleJSON,
		TokenTTL:    300 * time.Second,
	},
	"modobank": {
		Name:        "modobank",
		BaseURL:     "https://v3.qrcodes.sulcredi.coop.br",
		TokenPath:   "/oauth/token",
		ChargePath:  "/cob",
		WebhookPath: "/webhook",
		AuthStyle:   AuthStyleForm,
		TokenTTL:    50 * time.Minute,
	},
	"efipay": {
		Name:        "efipay",
		BaseURL:     "https://pix.api.efipay.com.br",
		TokenPath:   "/oauth/token",
		ChargePath:  "/v2/cob",
		WebhookPath: "/v2/webhook",
		AuthStyle:   AuthStyleBasicJSON,
		TokenTTL:    50 * time.Minute,
	},
}

// LookupProfile returns the built-in profile for name. A non-empty baseURL
// replaces the profile's default host.
func LookupProfile(name, baseURL string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrProviderNotImplemented, name)
	}
	if baseURL != "" {
		p.BaseURL = baseURL
	}
	return p, nil
}
