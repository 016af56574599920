package cache

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeySource - источник правды для ключей аккаунтов (леджер).
type KeySource interface {
	PublicKey(ctx context.Context, accountID string) (ed25519.PublicKey, error)
}

// KeyCache кэширует публичные ключи аккаунтов, чтобы не ходить в леджер на каждое завершение.
type KeyCache struct {
	client *redis.Client
	source KeySource
	ttl    time.Duration
}

func NewKeyCache(client *redis.Client, source KeySource, ttl time.Duration) *KeyCache {
	return &KeyCache{client: client, source: source, ttl: ttl}
}

func keyFor(accountID string) string {
	return "ledger_pubkey:" + accountID
}

func (c *KeyCache) PublicKey(ctx context.Context, accountID string) (ed25519.PublicKey, error) {
	val, err := c.client.Get(ctx, keyFor(accountID)).Result()
	if err == nil {
		raw, decErr := hex.DecodeString(val)
		if decErr == nil && len(raw) == ed25519.PublicKeySize {
			return ed25519.PublicKey(raw), nil
		}
		// Битое значение в кэше: выкидываем и идем в источник
		c.client.Del(ctx, keyFor(accountID))
	} else if !errors.Is(err, redis.Nil) {
		// Redis лежит - это не повод отказывать в проверке
		return c.source.PublicKey(ctx, accountID)
	}

	key, err := c.source.PublicKey(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("account %s: unexpected key size %d", accountID, len(key))
	}
	c.client.Set(ctx, keyFor(accountID), hex.EncodeToString(key), c.ttl)
	return key, nil
}

// Forget сбрасывает ключ, например после ротации ключа аккаунта.
func (c *KeyCache) Forget(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, keyFor(accountID)).Err()
}
