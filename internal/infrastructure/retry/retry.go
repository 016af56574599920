// Package retry оборачивает ненадежные внешние вызовы экспоненциальными повторами.
// Минт сюда не заворачивается никогда.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"zengarden/internal/domain"
)

type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

func DefaultPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Initial: 200 * time.Millisecond, Max: 2 * time.Second}
}

// Do выполняет op до Attempts раз. Ошибка, обернутая backoff.Permanent, повторов не вызывает.
func Do(ctx context.Context, p Policy, logger *zap.Logger, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.MaxElapsedTime = 0

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		logger.Warn("retrying external call",
			zap.String("op", name),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}

type Uploader interface {
	Upload(ctx context.Context, name string, payload interface{}) (string, error)
}

type Auditor interface {
	SubmitAudit(ctx context.Context, message []byte) (domain.AuditCoordinates, error)
}

type retryingUploader struct {
	next   Uploader
	policy Policy
	logger *zap.Logger
}

func NewUploader(next Uploader, p Policy, logger *zap.Logger) Uploader {
	return &retryingUploader{next: next, policy: p, logger: logger}
}

func (r *retryingUploader) Upload(ctx context.Context, name string, payload interface{}) (string, error) {
	var cid string
	err := Do(ctx, r.policy, r.logger, "content.upload", func() error {
		var err error
		cid, err = r.next.Upload(ctx, name, payload)
		return err
	})
	return cid, err
}

type retryingAuditor struct {
	next   Auditor
	policy Policy
	logger *zap.Logger
}

// NewAuditor - повтор может задублировать сообщение в журнале, для аудита это допустимо.
func NewAuditor(next Auditor, p Policy, logger *zap.Logger) Auditor {
	return &retryingAuditor{next: next, policy: p, logger: logger}
}

func (r *retryingAuditor) SubmitAudit(ctx context.Context, message []byte) (domain.AuditCoordinates, error) {
	var coords domain.AuditCoordinates
	err := Do(ctx, r.policy, r.logger, "ledger.audit", func() error {
		var err error
		coords, err = r.next.SubmitAudit(ctx, message)
		return err
	})
	return coords, err
}
