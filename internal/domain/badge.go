package domain

import "time"

// BadgeRecord - снимок прогресса на момент заполнения сетки и данные минта.
// Level/TotalXP/CompletionDate пишутся один раз при заполнении сетки,
// остальное - после успешного минта.
type BadgeRecord struct {
	Level          int        `json:"level"`
	TotalXP        int        `json:"totalXP"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`

	TokenID       string     `json:"tokenId,omitempty" gorm:"size:64"`
	SerialNumber  int64      `json:"serialNumber,omitempty"`
	ContentID     string     `json:"contentId,omitempty" gorm:"size:128"`
	TransactionID string     `json:"transactionId,omitempty" gorm:"size:128"`
	MintedAt      *time.Time `json:"mintedAt,omitempty"`
	JourneyHash   string     `json:"journeyHash,omitempty" gorm:"size:32"`
}

func (b BadgeRecord) HasSnapshot() bool {
	return b.CompletionDate != nil
}

// MintReceipt - результат операции в леджере.
type MintReceipt struct {
	TokenID       string    `json:"tokenId"`
	SerialNumber  int64     `json:"serialNumber"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

type BadgeAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// BadgeMetadata - документ, который уходит в контентное хранилище.
type BadgeMetadata struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Image          string           `json:"image"`
	Attributes     []BadgeAttribute `json:"attributes"`
	Level          int              `json:"level"`
	TotalXP        int              `json:"totalXP"`
	Sessions       int              `json:"sessionsCompleted"`
	CompletionDate string           `json:"completionDate"`
	JourneyHash    string           `json:"journeyHash"`
}
