package repository

import (
	"context"
	"errors"
	"time"

	"pixcharge/internal/domain"
	"pixcharge/internal/models"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByTxid(ctx context.Context, txid string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Where("txid = ?", txid).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateStatus sets status and updated_at in one statement. It reports false
// when the row already had that status (or does not exist).
func (r *PaymentRepository) UpdateStatus(ctx context.Context, txid string, status domain.PaymentStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("txid = ? AND status <> ?", txid, status).
		Updates(map[string]interface{}{"status": status, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
