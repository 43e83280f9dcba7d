package models

import (
	"time"

	"pixcharge/internal/domain"
)

// Payment is the local record of a PSP charge. Txid, AmountCents, UserCPF and
// PixCopiaECola are written once at creation; only Status and UpdatedAt move.
type Payment struct {
	Txid          string               `gorm:"primaryKey;size:35" json:"txid"`
	UserCPF       *string              `gorm:"size:11;index" json:"user_cpf"`
	AmountCents   int64                `gorm:"not null" json:"amount_cents"`
	Status        domain.PaymentStatus `gorm:"size:40;not null;index" json:"status"`
	PixCopiaECola string               `gorm:"type:text;not null" json:"pixCopiaECola"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`

	User *User `gorm:"foreignKey:UserCPF;references:CPF;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
