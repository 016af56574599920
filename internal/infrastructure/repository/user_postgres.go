package repository

import (
	"context"
	"errors"
	"time"

	"zengarden/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FirstOrCreate возвращает пользователя по аккаунту, создавая его при первом обращении.
func (r *UserRepository) FirstOrCreate(ctx context.Context, accountID string) (*domain.User, bool, error) {
	newID := uuid.New()
	user := domain.User{}
	res := r.db.WithContext(ctx).
		Where(domain.User{AccountID: accountID}).
		Attrs(domain.User{ID: newID, Level: 1}).
		FirstOrCreate(&user)
	if res.Error != nil {
		// Параллельный запрос успел создать запись раньше нас
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			existing, err := r.GetByAccountID(ctx, accountID)
			return existing, false, err
		}
		return nil, false, res.Error
	}
	return &user, user.ID == newID, nil
}

func (r *UserRepository) TouchLastSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("last_session_at", at).Error
}

// SaveProgress пишет счетчики только если версия не изменилась с момента чтения.
func (r *UserRepository) SaveProgress(ctx context.Context, user *domain.User) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND version = ?", user.ID, user.Version).
		Updates(map[string]interface{}{
			"total_xp":           user.TotalXP,
			"level":              user.Level,
			"sessions_completed": user.SessionsCompleted,
			"total_minutes":      user.TotalMinutes,
			"last_session_at":    user.LastSessionAt,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	user.Version++
	return nil
}
