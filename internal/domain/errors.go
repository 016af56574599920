package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrGardenNotFound   = errors.New("garden not found")
	ErrDuplicateNonce   = errors.New("nonce already issued")
	ErrAlreadyCompleted = errors.New("session already completed")
	ErrVersionConflict  = errors.New("concurrent update detected")
	ErrMintNotClaimed   = errors.New("garden mint gate is held by another attempt")
)

// ValidationError - кривой или выходящий за диапазон ввод. Всегда 400.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string { return e.Message }

type NotFoundError struct {
	Message string
	Err     error
}

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Unwrap() error { return e.Err }

// AuthorizationError - сессия принадлежит другому аккаунту (403).
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// AuthenticationError - подпись/пруф не прошли проверку (401).
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// ConflictError - повторное завершение или повторный минт.
type ConflictError struct {
	Message       string
	AlreadyMinted bool
	Existing      *BadgeRecord
	Err           error
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return e.Err }

// IneligibleError - сад еще не готов к минту.
type IneligibleError struct {
	Message string
}

func (e *IneligibleError) Error() string { return e.Message }

// DependencyError - отказ внешней системы. Advisory-ошибки наружу не уходят,
// фатальные превращаются в 500.
type DependencyError struct {
	Op       string
	Message  string
	Advisory bool
	Err      error
}

func (e *DependencyError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// InvariantError - внутреннее состояние противоречиво. Не чиним молча.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string { return "invariant violated: " + e.Message }

// ReconciliationError - токен в леджере уже выпущен, а локальная запись не сохранилась.
// Несет идентификаторы, чтобы оператор мог свести состояние вручную.
type ReconciliationError struct {
	Message   string
	Receipt   MintReceipt
	ContentID string
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s (token %s serial %d tx %s): %v",
		e.Message, e.Receipt.TokenID, e.Receipt.SerialNumber, e.Receipt.TransactionID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
