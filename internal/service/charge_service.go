package service

import (
	"context"
	"errors"
	"fmt"

	"pixcharge/internal/domain"
	"pixcharge/internal/models"
	"pixcharge/internal/repository"
	"pixcharge/pkg/pix"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cpfRule matches the binding tag on the HTTP create request.
const cpfRule = "required,len=11,numeric"

var validate = validator.New()

// UserStore is the user half of the payment store contract.
type UserStore interface {
	GetOrCreate(ctx context.Context, cpf, email, name string) (*models.User, error)
}

// ChargeStore is the payment half of the store contract used for charges.
type ChargeStore interface {
	PaymentStore
	Create(ctx context.Context, p *models.Payment) error
}

// CreateChargeInput is the inbound charge creation request.
type CreateChargeInput struct {
	Amount     decimal.Decimal
	PayerTaxID string
	PayerName  string
	PayerEmail string
}

// ChargeService composes the PSP client, the store and the reconciler.
type ChargeService struct {
	psp        pix.Provider
	payments   ChargeStore
	users      UserStore
	reconciler *Reconciler
	log        zerolog.Logger
}

func NewChargeService(psp pix.Provider, payments ChargeStore, users UserStore, reconciler *Reconciler, log zerolog.Logger) *ChargeService {
	return &ChargeService{
		psp:        psp,
		payments:   payments,
		users:      users,
		reconciler: reconciler,
		log:        log.With().Str("component", "charges").Logger(),
	}
}

// CreateCharge asks the PSP for a charge and persists it only once the PSP
// returned both a txid and the copy-and-paste code. The payer is resolved
// first so that a local conflict never strands a charge at the PSP.
func (s *ChargeService) CreateCharge(ctx context.Context, in CreateChargeInput) (*models.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", pix.ErrInvalidAmount)
	}
	if err := validate.Var(in.PayerTaxID, cpfRule); err != nil {
		return nil, fmt.Errorf("%w: cpf must have 11 digits", ErrInvalidRequest)
	}
	amount := pix.FormatAmount(in.Amount)
	if !in.Amount.Equal(decimal.RequireFromString(amount)) {
		return nil, fmt.Errorf("%w: at most two decimal places", pix.ErrInvalidAmount)
	}
	cents, err := pix.AmountToCents(amount)
	if err != nil {
		return nil, err
	}

	var userCPF *string
	if in.PayerEmail != "" {
		u, err := s.users.GetOrCreate(ctx, in.PayerTaxID, in.PayerEmail, in.PayerName)
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, fmt.Errorf("%w: email is registered to another cpf", ErrInvalidRequest)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve payer: %w", err)
		}
		userCPF = &u.CPF
	}

	charge, err := s.psp.CreateCharge(ctx, pix.ChargeRequest{
		Amount:     amount,
		PayerTaxID: in.PayerTaxID,
		PayerName:  in.PayerName,
	})
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		Txid:          charge.Txid,
		UserCPF:       userCPF,
		AmountCents:   cents,
		Status:        domain.StatusActive,
		PixCopiaECola: charge.PixCopiaECola,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		s.log.Error().Err(err).Str("txid", charge.Txid).Msg("persist payment failed; charge exists at psp only")
		return nil, fmt.Errorf("store payment %s: %w", charge.Txid, err)
	}
	s.log.Info().Str("txid", p.Txid).Int64("amount_cents", cents).Msg("payment created")
	return p, nil
}

// GetPayment returns the stored record without contacting the PSP.
func (s *ChargeService) GetPayment(ctx context.Context, txid string) (*models.Payment, error) {
	if err := pix.ValidateTxid(txid); err != nil {
		return nil, err
	}
	p, err := s.payments.GetByTxid(ctx, txid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, txid)
	}
	return p, err
}

// RefreshStatus polls the PSP for txid and reconciles the stored record.
func (s *ChargeService) RefreshStatus(ctx context.Context, txid string) (*models.Payment, error) {
	if _, err := s.GetPayment(ctx, txid); err != nil {
		return nil, err
	}
	charge, err := s.psp.DetailCharge(ctx, txid)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Reconcile(ctx, txid, domain.MapProviderStatus(charge.Status), "poll")
}

// ListCharges passes a date-window listing through from the PSP.
func (s *ChargeService) ListCharges(ctx context.Context, start, end string) (*pix.ChargeList, error) {
	return s.psp.ListCharges(ctx, start, end)
}

// ApplyWebhook reconciles a status pushed by the PSP.
func (s *ChargeService) ApplyWebhook(ctx context.Context, txid, providerStatus string) (*models.Payment, error) {
	if err := pix.ValidateTxid(txid); err != nil {
		return nil, err
	}
	return s.reconciler.Reconcile(ctx, txid, domain.MapProviderStatus(providerStatus), "webhook")
}
