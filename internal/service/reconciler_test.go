package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pixcharge/internal/domain"
	"pixcharge/internal/models"
	"pixcharge/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recTxid = "Rc0000000000000000000000000000001"

type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]models.Payment
	updates int
	failGet error
}

func newFakeStore(ps ...models.Payment) *fakeStore {
	s := &fakeStore{rows: make(map[string]models.Payment)}
	for _, p := range ps {
		s.rows[p.Txid] = p
	}
	return s
}

func (s *fakeStore) GetByTxid(ctx context.Context, txid string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	p, ok := s.rows[txid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, txid string, status domain.PaymentStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	p, ok := s.rows[txid]
	if !ok || p.Status == status {
		return false, nil
	}
	p.Status = status
	p.UpdatedAt = at
	s.rows[txid] = p
	return true, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.StatusChange
	err    error
}

func (p *recordingPublisher) PublishStatus(ctx context.Context, ev domain.StatusChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []domain.StatusChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.StatusChange(nil), p.events...)
}

func TestReconcile_ChangesStatusOnce(t *testing.T) {
	store := newFakeStore(models.Payment{Txid: recTxid, Status: domain.StatusActive, AmountCents: 100})
	pub := &recordingPublisher{}
	r := NewReconciler(store, NewNotificationService(zerolog.Nop(), pub), zerolog.Nop())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	p, err := r.Reconcile(context.Background(), recTxid, domain.StatusConcluded, "poll")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConcluded, p.Status)
	assert.Equal(t, fixed, p.UpdatedAt)
	assert.Equal(t, 1, store.updates)

	// Same observation again: no write, no event.
	p, err = r.Reconcile(context.Background(), recTxid, domain.StatusConcluded, "webhook")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConcluded, p.Status)
	assert.Equal(t, 1, store.updates)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.StatusChange{Txid: recTxid, From: domain.StatusActive, To: domain.StatusConcluded, Source: "poll", At: fixed}, events[0])
}

func TestReconcile_UnchangedActiveDoesNotWrite(t *testing.T) {
	store := newFakeStore(models.Payment{Txid: recTxid, Status: domain.StatusActive})
	r := NewReconciler(store, nil, zerolog.Nop())

	p, err := r.Reconcile(context.Background(), recTxid, domain.StatusActive, "poll")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Zero(t, store.updates)
}

func TestReconcile_NotFound(t *testing.T) {
	r := NewReconciler(newFakeStore(), nil, zerolog.Nop())
	_, err := r.Reconcile(context.Background(), recTxid, domain.StatusConcluded, "webhook")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestReconcile_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failGet = errors.New("connection refused")
	r := NewReconciler(store, nil, zerolog.Nop())

	_, err := r.Reconcile(context.Background(), recTxid, domain.StatusConcluded, "poll")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentNotFound)
}

func TestReconcile_PublisherFailureIsIgnored(t *testing.T) {
	store := newFakeStore(models.Payment{Txid: recTxid, Status: domain.StatusActive})
	pub := &recordingPublisher{err: errors.New("broker down")}
	r := NewReconciler(store, NewNotificationService(zerolog.Nop(), pub), zerolog.Nop())

	p, err := r.Reconcile(context.Background(), recTxid, domain.StatusRemovedByPSP, "webhook")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRemovedByPSP, p.Status)
	assert.Len(t, pub.Events(), 1)
}

func TestReconcile_ConcurrentReportsEmitOneEvent(t *testing.T) {
	store := newFakeStore(models.Payment{Txid: recTxid, Status: domain.StatusActive})
	pub := &recordingPublisher{}
	r := NewReconciler(store, NewNotificationService(zerolog.Nop(), pub), zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := r.Reconcile(context.Background(), recTxid, domain.StatusConcluded, "webhook")
			assert.NoError(t, err)
			assert.Equal(t, domain.StatusConcluded, p.Status)
		}()
	}
	wg.Wait()
	assert.Len(t, pub.Events(), 1)
}
