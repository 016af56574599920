package repository

import (
	"context"
	"errors"
	"time"

	"zengarden/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateNonce
	}
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// MarkCompleted переводит сессию incomplete -> completed ровно один раз.
// Это граница долговечности: после коммита повторы упираются в ErrAlreadyCompleted.
func (r *SessionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, duration, xp int, endTime time.Time, proof string) error {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"duration":     duration,
			"xp_earned":    xp,
			"end_time":     endTime.UTC(),
			"signed_proof": proof,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlreadyCompleted
	}
	return nil
}

// AttachResults сохраняет рефлексию и координаты аудита и помечает прогресс примененным.
func (r *SessionRepository) AttachResults(ctx context.Context, id uuid.UUID, refl domain.EncryptedReflection, audit domain.AuditCoordinates) error {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND progress_applied = ?", id, false).
		Updates(map[string]interface{}{
			"reflection_ciphertext":     refl.Ciphertext,
			"reflection_iv":             refl.IV,
			"reflection_salt":           refl.Salt,
			"reflection_hash":           refl.Hash,
			"reflection_cid":            refl.CID,
			"audit_topic_id":            audit.TopicID,
			"audit_sequence_number":     audit.SequenceNumber,
			"audit_consensus_timestamp": audit.ConsensusTimestamp,
			"audit_transaction_id":      audit.TransactionID,
			"progress_applied":          true,
			"updated_at":                time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

type SessionFilter struct {
	UserID    *uuid.UUID
	AccountID string
}

func (r *SessionRepository) ListCompleted(ctx context.Context, f SessionFilter) ([]domain.Session, error) {
	q := r.db.WithContext(ctx).Where("completed = ?", true)
	if f.AccountID != "" {
		q = q.Where("account_id = ?", f.AccountID)
	} else if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	var sessions []domain.Session
	err := q.Order("end_time desc").Find(&sessions).Error
	return sessions, err
}

// ListUnapplied - сессии, которые завершены, но прогресс по ним не записан.
func (r *SessionRepository) ListUnapplied(ctx context.Context, olderThan time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("completed = ? AND progress_applied = ? AND end_time < ?", true, false, olderThan.UTC()).
		Order("end_time asc").
		Find(&sessions).Error
	return sessions, err
}
