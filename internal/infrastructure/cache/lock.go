package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("mint lock is held by another request")

// Снимаем лок только если он все еще наш
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// MintLock - рекомендательная блокировка минта на сад. Настоящий гейт - ClaimMint в БД,
// лок только отсекает параллельные запросы до похода в базу.
type MintLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMintLock(client *redis.Client, ttl time.Duration) *MintLock {
	return &MintLock{client: client, ttl: ttl}
}

func (l *MintLock) Acquire(ctx context.Context, gardenID, token string) error {
	ok, err := l.client.SetNX(ctx, "mint_lock:"+gardenID, token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

func (l *MintLock) Release(ctx context.Context, gardenID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{"mint_lock:" + gardenID}, token).Err()
}
