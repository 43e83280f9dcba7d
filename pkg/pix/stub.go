package pix

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StubProvider is an in-memory PSP for local development. It never leaves the
// process and must not be configured in production.
type StubProvider struct {
	mu      sync.Mutex
	charges map[string]*Charge
	now     func() time.Time
}

func NewStubProvider() *StubProvider {
	return &StubProvider{charges: make(map[string]*Charge), now: time.Now}
}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	exp := req.Expiration
	if exp <= 0 {
		exp = DefaultExpiration
	}
	txid := strings.ReplaceAll(uuid.New().String(), "-", "")
	ch := &Charge{
		Txid:   txid,
		Status: "ATIVA",
		Calendario: Calendar{
			Criacao:   s.now().UTC().Format(time.RFC3339),
			Expiracao: int(exp / time.Second),
		},
		Devedor:       &Debtor{CPF: req.PayerTaxID, Nome: req.PayerName},
		Valor:         Value{Original: req.Amount},
		PixCopiaECola: fmt.Sprintf("00020101021226stub%s5204000053039865406%s", txid, req.Amount),
	}
	s.mu.Lock()
	s.charges[txid] = ch
	s.mu.Unlock()
	out := *ch
	return &out, nil
}

func (s *StubProvider) DetailCharge(ctx context.Context, txid string) (*Charge, error) {
	if err := ValidateTxid(txid); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.charges[txid]
	if !ok {
		return nil, opError(ErrChargeQuery, "detail", txid, 404, fmt.Errorf("unknown charge"))
	}
	out := *ch
	return &out, nil
}

func (s *StubProvider) ListCharges(ctx context.Context, start, end string) (*ChargeList, error) {
	inicio, fim, err := ValidateDateRange(start, end)
	if err != nil {
		return nil, err
	}
	from, _ := time.Parse(time.RFC3339, inicio)
	to, _ := time.Parse(time.RFC3339, fim)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := &ChargeList{Parametros: []byte(fmt.Sprintf(`{"inicio":%q,"fim":%q}`, inicio, fim))}
	for _, ch := range s.charges {
		created, err := time.Parse(time.RFC3339, ch.Calendario.Criacao)
		if err != nil || created.Before(from) || created.After(to) {
			continue
		}
		list.Cobs = append(list.Cobs, *ch)
	}
	return list, nil
}

func (s *StubProvider) CreateWebhook(ctx context.Context, webhookURL string) error {
	return nil
}

// SetStatus simulates the PSP moving a charge, e.g. to "CONCLUIDA".
func (s *StubProvider) SetStatus(txid, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.charges[txid]
	if ok {
		ch.Status = status
		ch.Revisao++
	}
	return ok
}
