package domain

import (
	"time"

	"github.com/google/uuid"
)

// User - аккаунт практикующего, привязан к аккаунту в леджере.
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID         string    `gorm:"uniqueIndex;not null;size:64"`
	TotalXP           int       `gorm:"not null;default:0"`
	Level             int       `gorm:"not null;default:1"`
	SessionsCompleted int       `gorm:"not null;default:0"`
	TotalMinutes      int       `gorm:"not null;default:0"`
	LastSessionAt     *time.Time

	// Счетчик для CAS-обновлений
	Version int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
