package blocklist

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 3 * time.Second

// Blocklist is the revocation registry: a set of revoked token identifiers in
// an expiring key-value store. Entries outlive process restarts and clean
// themselves up after TTL.
type Blocklist struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(addr string, ttl time.Duration) (*Blocklist, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Blocklist{Client: client, TTL: ttl}, nil
}

// Revoke inserts a jti. Revoking an already revoked jti refreshes the entry
// and is treated as success.
func (b *Blocklist) Revoke(ctx context.Context, jti string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return b.Client.Set(ctx, key(jti), "", b.TTL).Err()
}

// IsRevoked reports whether a jti has an active blocklist entry. Lookup
// failures surface to the caller; a store outage must not let revoked tokens
// through as valid.
func (b *Blocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := b.Client.Get(ctx, key(jti)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Blocklist) Close() error { return b.Client.Close() }

func key(jti string) string { return "blocklist:" + jti }
