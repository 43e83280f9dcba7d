// Package webhook authenticates and decodes PSP status notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderSecret    = "X-Webhook-Secret"
	QuerySecret     = "hmac"
)

var ErrWebhookRejected = errors.New("webhook rejected")

// Verifier checks that a notification came from the PSP. It accepts either
// an HMAC-SHA256 signature or the shared secret itself for PSPs that cannot
// sign. With a positive tolerance a signature must carry a fresh timestamp;
// an untimed signature could be replayed indefinitely.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

// Verify authenticates r whose body has already been read into body.
func (v *Verifier) Verify(r *http.Request, body []byte) error {
	if len(v.secret) == 0 {
		return ErrWebhookRejected
	}
	if sig := r.Header.Get(HeaderSignature); sig != "" {
		return v.verifySignature(sig, r.Header.Get(HeaderTimestamp), body)
	}
	if s := r.Header.Get(HeaderSecret); s != "" {
		return v.verifySecret(s)
	}
	if s := r.URL.Query().Get(QuerySecret); s != "" {
		return v.verifySecret(s)
	}
	return ErrWebhookRejected
}

func (v *Verifier) verifySecret(got string) error {
	if subtle.ConstantTimeCompare([]byte(got), v.secret) != 1 {
		return ErrWebhookRejected
	}
	return nil
}

func (v *Verifier) verifySignature(sig, ts string, body []byte) error {
	sig = strings.TrimPrefix(strings.TrimSpace(sig), "sha256=")
	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrWebhookRejected
	}
	if ts == "" && v.tolerance > 0 {
		return ErrWebhookRejected
	}
	if ts != "" {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return ErrWebhookRejected
		}
		if v.tolerance > 0 {
			skew := v.now().Sub(time.Unix(unix, 0))
			if skew < 0 {
				skew = -skew
			}
			if skew > v.tolerance {
				return ErrWebhookRejected
			}
		}
	}
	if !hmac.Equal(got, Sign(v.secret, ts, body)) {
		return ErrWebhookRejected
	}
	return nil
}

// Sign computes the MAC over "timestamp.body", or over body alone when ts is
// empty.
func Sign(secret []byte, ts string, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	if ts != "" {
		mac.Write([]byte(ts))
		mac.Write([]byte("."))
	}
	mac.Write(body)
	return mac.Sum(nil)
}

// SignHex is Sign encoded the way the signature header carries it.
func SignHex(secret, ts string, body []byte) string {
	return hex.EncodeToString(Sign([]byte(secret), ts, body))
}
