package pix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTxid = "k3Yb9f42df4d13a2585822a3247a65Xy1"

type fakePSP struct {
	tokenCalls  int32
	chargeCalls int32
	cob         http.HandlerFunc
}

func newFakePSP(t *testing.T, cob http.HandlerFunc) (*fakePSP, *httptest.Server) {
	t.Helper()
	f := &fakePSP{cob: cob}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"bearer-abc","token_type":"Bearer"}`))
	})
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.chargeCalls, 1)
		if r.Header.Get("Authorization") != "Bearer bearer-abc" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f.cob(w, r)
	}
	mux.HandleFunc("/cob", handler)
	mux.HandleFunc("/cob/", handler)
	mux.HandleFunc("/webhook/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(srv *httptest.Server) *Client {
	profile := testProfile(srv.URL, AuthStyleJSON)
	tm := NewTokenManager(srv.Client(), profile, testCreds)
	return NewClient(profile, srv.Client(), tm, "recebedor@example.com", zerolog.Nop())
}

func TestClient_CreateCharge(t *testing.T) {
	f, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cob", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"expiracao": float64(600)}, body["calendario"])
		assert.Equal(t, map[string]any{"cpf": "44401970004", "nome": "Foobar da Silva"}, body["devedor"])
		assert.Equal(t, map[string]any{"original": "25.50"}, body["valor"])
		assert.Equal(t, "recebedor@example.com", body["chave"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"txid":"` + testTxid + `","status":"ATIVA","pixCopiaECola":"000201code"}`))
	})
	c := newTestClient(srv)

	ch, err := c.CreateCharge(context.Background(), ChargeRequest{Amount: "25.50", PayerTaxID: "44401970004", PayerName: "Foobar da Silva"})
	require.NoError(t, err)
	assert.Equal(t, testTxid, ch.Txid)
	assert.Equal(t, "000201code", ch.PixCopiaECola)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokenCalls))
}

func TestClient_CreateCharge_InvalidAmountMakesNoCalls(t *testing.T) {
	f, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(srv)

	_, err := c.CreateCharge(context.Background(), ChargeRequest{Amount: "25.5"})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.tokenCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.chargeCalls))
}

func TestClient_CreateCharge_MissingFields(t *testing.T) {
	_, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"txid":"` + testTxid + `","status":"ATIVA"}`))
	})
	c := newTestClient(srv)

	_, err := c.CreateCharge(context.Background(), ChargeRequest{Amount: "10.00"})
	assert.ErrorIs(t, err, ErrChargeCreation)
}

func TestClient_CreateCharge_NotRetried(t *testing.T) {
	f, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"internal secret trace"}`, http.StatusServiceUnavailable)
	})
	c := newTestClient(srv)

	_, err := c.CreateCharge(context.Background(), ChargeRequest{Amount: "10.00"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChargeCreation)
	assert.NotContains(t, err.Error(), "internal secret trace")
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.chargeCalls))
}

func TestClient_CreateCharge_AuthFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()
	c := newTestClient(srv)

	_, err := c.CreateCharge(context.Background(), ChargeRequest{Amount: "10.00"})
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.NotErrorIs(t, err, ErrChargeCreation)
}

func TestClient_DetailCharge(t *testing.T) {
	_, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cob/"+testTxid, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"txid":"` + testTxid + `","status":"CONCLUIDA","valor":{"original":"25.50"}}`))
	})
	c := newTestClient(srv)

	ch, err := c.DetailCharge(context.Background(), testTxid)
	require.NoError(t, err)
	assert.Equal(t, "CONCLUIDA", ch.Status)
	assert.Equal(t, "25.50", ch.Valor.Original)
}

func TestClient_DetailCharge_InvalidTxid(t *testing.T) {
	f, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(srv)

	_, err := c.DetailCharge(context.Background(), "short-id")
	assert.ErrorIs(t, err, ErrInvalidTxid)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.tokenCalls))
}

func TestClient_DetailCharge_RetriesOnce(t *testing.T) {
	var n int32
	f, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"txid":"` + testTxid + `","status":"ATIVA"}`))
	})
	c := newTestClient(srv)

	ch, err := c.DetailCharge(context.Background(), testTxid)
	require.NoError(t, err)
	assert.Equal(t, "ATIVA", ch.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.chargeCalls))
}

func TestClient_DetailCharge_GivesUpAfterSecondFailure(t *testing.T) {
	f, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestClient(srv)

	_, err := c.DetailCharge(context.Background(), testTxid)
	assert.ErrorIs(t, err, ErrChargeQuery)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.chargeCalls))
}

func TestClient_DetailCharge_NotFoundIsNotRetried(t *testing.T) {
	f, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(srv)

	_, err := c.DetailCharge(context.Background(), testTxid)
	assert.ErrorIs(t, err, ErrChargeQuery)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.chargeCalls))
}

func TestClient_ListCharges(t *testing.T) {
	_, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cob", r.URL.Path)
		assert.Equal(t, "2025-07-16T00:00:00Z", r.URL.Query().Get("inicio"))
		assert.Equal(t, "2025-07-17T00:00:00Z", r.URL.Query().Get("fim"))
		_, _ = w.Write([]byte(`{"parametros":{"inicio":"2025-07-16T00:00:00Z"},"cobs":[{"txid":"` + testTxid + `","status":"ATIVA"}]}`))
	})
	c := newTestClient(srv)

	list, err := c.ListCharges(context.Background(), "2025-07-16-00-00-00", "2025-07-17-00-00-00")
	require.NoError(t, err)
	require.Len(t, list.Cobs, 1)
	assert.Equal(t, testTxid, list.Cobs[0].Txid)
	assert.Contains(t, string(list.Parametros), "inicio")
}

func TestClient_ListCharges_InvalidRange(t *testing.T) {
	f, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(srv)

	_, err := c.ListCharges(context.Background(), "2025-13-01-00-00-00", "2025-07-17-00-00-00")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.chargeCalls))
}

func TestClient_CreateWebhook(t *testing.T) {
	_, srv := newFakePSP(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/webhook/"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://hooks.example.com/api/v1/webhooks/pix", body["webhookUrl"])
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(srv)

	require.NoError(t, c.CreateWebhook(context.Background(), "https://hooks.example.com/api/v1/webhooks/pix"))
	assert.ErrorIs(t, c.CreateWebhook(context.Background(), "http://insecure.example.com"), ErrWebhookRegistration)
}

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile("efipay", "")
	require.NoError(t, err)
	assert.Equal(t, "/v2/cob", p.ChargePath)
	assert.Equal(t, AuthStyleBasicJSON, p.AuthStyle)

	p, err = LookupProfile("modobank", "https://sandbox.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.example.com", p.BaseURL)
	assert.Equal(t, AuthStyleForm, p.AuthStyle)

	_, err = LookupProfile("nubank", "")
	assert.ErrorIs(t, err, ErrProviderNotImplemented)
}

func TestNewMTLSClient_RequiresCertificate(t *testing.T) {
	_, err := NewMTLSClient(TLSConfig{})
	assert.ErrorIs(t, err, ErrMissingCertificate)

	_, err = NewMTLSClient(TLSConfig{CertPath: "/does/not/exist.crt", KeyPath: "/does/not/exist.key"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingCertificate)
}
