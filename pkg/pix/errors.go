package pix

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTxid            = errors.New("invalid txid")
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrAuthentication         = errors.New("psp authentication failed")
	ErrChargeCreation         = errors.New("charge creation failed")
	ErrChargeQuery            = errors.New("charge query failed")
	ErrWebhookRegistration    = errors.New("webhook registration failed")
	ErrMissingCertificate     = errors.New("mtls certificate and key paths are required")
	ErrProviderNotImplemented = errors.New("unknown pix provider")
)

// Error is returned by every PSP call that failed after input validation.
// The provider's response body is never part of the message.
type Error struct {
	Kind       error
	Op         string
	Txid       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		b.WriteString(": op=")
		b.WriteString(e.Op)
	}
	if e.Txid != "" {
		b.WriteString(" txid=")
		b.WriteString(e.Txid)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(kind error, op, txid string, status int, err error) *Error {
	return &Error{Kind: kind, Op: op, Txid: txid, StatusCode: status, Err: err}
}
