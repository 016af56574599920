package security

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ProofClaims - то, что клиент подписывает ключом своего аккаунта при завершении сессии.
type ProofClaims struct {
	Nonce     string `json:"nonce"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// PublicKeyResolver отдает ED25519-ключ аккаунта, зарегистрированный в леджере.
type PublicKeyResolver interface {
	PublicKey(ctx context.Context, accountID string) (ed25519.PublicKey, error)
}

// KeyForgetter - резолвер с кэшем, который умеет сбросить ключ после ротации.
type KeyForgetter interface {
	Forget(ctx context.Context, accountID string) error
}

type ProofVerifier struct {
	keys   PublicKeyResolver
	logger *zap.Logger
	now    func() time.Time
}

func NewProofVerifier(keys PublicKeyResolver, logger *zap.Logger) *ProofVerifier {
	return &ProofVerifier{keys: keys, logger: logger, now: time.Now}
}

// Verify проверяет подпись пруфа ключом аккаунта и привязку к nonce, сессии и аккаунту.
// Любой дефект - структурный или криптографический - дает false, паник наружу нет.
func (v *ProofVerifier) Verify(ctx context.Context, proof, accountID, nonce, sessionID string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("proof verification panicked", zap.Any("panic", r))
			ok = false
		}
	}()

	if proof == "" || accountID == "" || nonce == "" || sessionID == "" {
		return false
	}

	key, err := v.keys.PublicKey(ctx, accountID)
	if err != nil {
		v.logger.Warn("cannot resolve account public key", zap.String("account", accountID), zap.Error(err))
		return false
	}

	claims, err := v.parse(proof, key, accountID)
	if errors.Is(err, jwt.ErrEd25519Verification) {
		// Ключ в кэше мог устареть после ротации: одна повторная попытка со свежим ключом
		if fresh, ok := v.refreshKey(ctx, accountID, key); ok {
			claims, err = v.parse(proof, fresh, accountID)
		}
	}
	if err != nil {
		v.logger.Info("proof rejected", zap.String("session", sessionID), zap.Error(err))
		return false
	}

	if claims.Nonce != nonce {
		v.logger.Info("nonce mismatch in proof", zap.String("session", sessionID))
		return false
	}
	if claims.SessionID != sessionID {
		v.logger.Info("session mismatch in proof", zap.String("session", sessionID))
		return false
	}
	return true
}

func (v *ProofVerifier) parse(proof string, key ed25519.PublicKey, accountID string) (*ProofClaims, error) {
	claims := &ProofClaims{}
	_, err := jwt.ParseWithClaims(proof, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithSubject(accountID),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// refreshKey сбрасывает закэшированный ключ и возвращает новый, если он отличается.
func (v *ProofVerifier) refreshKey(ctx context.Context, accountID string, stale ed25519.PublicKey) (ed25519.PublicKey, bool) {
	f, ok := v.keys.(KeyForgetter)
	if !ok {
		return nil, false
	}
	if err := f.Forget(ctx, accountID); err != nil {
		v.logger.Warn("cannot drop cached account key", zap.String("account", accountID), zap.Error(err))
		return nil, false
	}
	fresh, err := v.keys.PublicKey(ctx, accountID)
	if err != nil || bytes.Equal(fresh, stale) {
		return nil, false
	}
	v.logger.Info("account key rotated", zap.String("account", accountID))
	return fresh, true
}

// SignProof собирает пруф так же, как это делает клиент. Используется в утилитах и тестах.
func SignProof(key ed25519.PrivateKey, accountID, sessionID, nonce string, issuedAt time.Time) (string, error) {
	claims := ProofClaims{
		Nonce:     nonce,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  accountID,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
}
