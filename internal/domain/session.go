package domain

import (
	"time"

	"github.com/google/uuid"
)

// EncryptedReflection хранится как есть: сервер не видит открытый текст.
type EncryptedReflection struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	Hash       string `json:"hash,omitempty"`
	// Явное имя колонки: иначе gorm разбивает CID в c_id
	CID string `json:"cid,omitempty" gorm:"column:cid"`
}

func (r EncryptedReflection) Present() bool {
	return r.Hash != ""
}

type AuditCoordinates struct {
	TopicID            string     `json:"topicId"`
	SequenceNumber     int64      `json:"sequenceNumber"`
	ConsensusTimestamp *time.Time `json:"consensusTimestamp,omitempty"`
	TransactionID      string     `json:"transactionId,omitempty"`
}

func (a AuditCoordinates) Present() bool {
	return a.TopicID != ""
}

type Session struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`
	AccountID      string    `gorm:"not null;size:64;index:idx_session_account_completed"`
	Mode           Mode      `gorm:"not null;size:16"`
	TargetDuration int       `gorm:"not null"`
	Duration       int       `gorm:"not null;default:0"`
	StartTime      time.Time `gorm:"not null"`
	EndTime        *time.Time
	Completed      bool `gorm:"not null;default:false;index:idx_session_account_completed"`
	XPEarned       int  `gorm:"not null;default:0"`

	// Одноразовый nonce, уникальность гарантирует БД
	Nonce       string `gorm:"not null;uniqueIndex;size:64"`
	SignedProof string `gorm:"type:text"`

	Reflection EncryptedReflection `gorm:"embedded;embeddedPrefix:reflection_"`
	Audit      AuditCoordinates    `gorm:"embedded;embeddedPrefix:audit_"`

	// true, когда XP/сад пользователя уже обновлены по этой сессии
	ProgressApplied bool `gorm:"not null;default:false;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
