package repository

import (
	"context"
	"errors"

	"pixcharge/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEmailTaken means the email already belongs to a user with another CPF.
var ErrEmailTaken = errors.New("email belongs to another user")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByCPF(ctx context.Context, cpf string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("cpf = ?", cpf).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreate looks the user up by CPF and inserts only on a miss. An existing
// row is returned untouched even if email or name differ. An email already
// held by another CPF yields ErrEmailTaken.
func (r *UserRepository) GetOrCreate(ctx context.Context, cpf, email, name string) (*models.User, error) {
	u, err := r.GetByCPF(ctx, cpf)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if taken, err := r.emailTaken(ctx, email, cpf); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	u = &models.User{CPF: cpf, Email: email, Name: name}
	// A concurrent insert on either unique key wins; re-read to see which.
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(u)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByCPF(ctx, cpf)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrEmailTaken
		}
		return existing, err
	}
	return u, nil
}

func (r *UserRepository) emailTaken(ctx context.Context, email, cpf string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND cpf <> ?", email, cpf).Count(&n).Error
	return n > 0, err
}
