package models

import "time"

// User is a payer identified by CPF. Rows are inserted once and never updated.
type User struct {
	CPF       string    `gorm:"primaryKey;size:11" json:"cpf"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}
