package repository

import (
	"context"
	"strings"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"password_hash": user.PasswordHash,
			"roles":         user.Roles,
			"providers":     user.Providers,
		}).Error
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// AllowlistRepository stores the emails permitted to sign up when the
// list is not empty.
type AllowlistRepository interface {
	Count(ctx context.Context) (int64, error)
	Contains(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]models.AllowedEmail, error)
	Add(ctx context.Context, email string) error
	Remove(ctx context.Context, email string) error
}

type allowlistRepository struct {
	db *gorm.DB
}

func NewAllowlistRepository(db *gorm.DB) AllowlistRepository {
	return &allowlistRepository{db: db}
}

func (r *allowlistRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AllowedEmail{}).Count(&count).Error
	return count, err
}

func (r *allowlistRepository) Contains(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AllowedEmail{}).
		Where("email = ?", strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *allowlistRepository) List(ctx context.Context) ([]models.AllowedEmail, error) {
	var items []models.AllowedEmail
	if err := r.db.WithContext(ctx).Order("email ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *allowlistRepository) Add(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Where(models.AllowedEmail{Email: strings.ToLower(email)}).
		FirstOrCreate(&models.AllowedEmail{}).Error
}

func (r *allowlistRepository) Remove(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).Delete(&models.AllowedEmail{}).Error
}
