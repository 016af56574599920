package usecase

import (
	"context"

	"zengarden/internal/domain"
)

// ContentStore - контентно-адресуемое хранилище (IPFS).
type ContentStore interface {
	Upload(ctx context.Context, name string, payload interface{}) (string, error)
}

// AuditLog - журнал консенсуса. nil означает, что топик не настроен.
type AuditLog interface {
	SubmitAudit(ctx context.Context, message []byte) (domain.AuditCoordinates, error)
}

// Minter выпускает бейдж в леджере. Если вместе с ошибкой вернулся ненулевой
// SerialNumber, токен в сети уже существует. Непустой TransactionID без серийного
// номера значит, что транзакция отправлена, а ее исход неизвестен.
type Minter interface {
	MintBadge(ctx context.Context, recipient, contentID, idempotencyKey string) (domain.MintReceipt, error)
}

type ProofVerifier interface {
	Verify(ctx context.Context, proof, accountID, nonce, sessionID string) bool
}

type MintLocker interface {
	Acquire(ctx context.Context, gardenID, token string) error
	Release(ctx context.Context, gardenID, token string) error
}
