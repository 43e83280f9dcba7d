package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pixcharge/internal/domain"
	"pixcharge/internal/models"
	"pixcharge/internal/repository"

	"github.com/rs/zerolog"
)

// PaymentStore is the slice of the payment repository the reconciler needs.
type PaymentStore interface {
	GetByTxid(ctx context.Context, txid string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, txid string, status domain.PaymentStatus, at time.Time) (bool, error)
}

// Reconciler applies observed PSP statuses to stored payments. Polls and
// webhooks for the same txid can race; both end in a single UPDATE, so the
// last report wins. No transition is forbidden: report order is not
// guaranteed, so the most recent report is trusted.
type Reconciler struct {
	store    PaymentStore
	notifier *NotificationService
	log      zerolog.Logger
	now      func() time.Time
}

func NewReconciler(store PaymentStore, notifier *NotificationService, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "reconciler").Logger(),
		now:      time.Now,
	}
}

// Reconcile records observed for txid and returns the resulting payment.
// Nothing is written when the stored status already equals observed.
func (r *Reconciler) Reconcile(ctx context.Context, txid string, observed domain.PaymentStatus, source string) (*models.Payment, error) {
	p, err := r.store.GetByTxid(ctx, txid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, txid)
	}
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", txid, err)
	}
	if p.Status == observed {
		return p, nil
	}

	at := r.now().UTC()
	changed, err := r.store.UpdateStatus(ctx, txid, observed, at)
	if err != nil {
		return nil, fmt.Errorf("update payment %s: %w", txid, err)
	}
	if !changed {
		// A concurrent reconciliation already stored this status.
		p.Status = observed
		return p, nil
	}
	from := p.Status
	p.Status = observed
	p.UpdatedAt = at
	r.log.Info().Str("txid", txid).Str("from", string(from)).Str("to", string(observed)).Str("source", source).Msg("payment status changed")
	if r.notifier != nil {
		r.notifier.StatusChanged(ctx, domain.StatusChange{Txid: txid, From: from, To: observed, Source: source, At: at})
	}
	return p, nil
}
