package pix

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// TokenCache stores a lease where other processes using the same PSP
// credentials can pick it up. Load returns nil, nil on a miss.
type TokenCache interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Store(ctx context.Context, tok *oauth2.Token) error
}

// RedisTokenCache keeps the lease under a single key that expires with it.
type RedisTokenCache struct {
	rdb *redis.Client
	key string
}

func NewRedisTokenCache(rdb *redis.Client, provider, clientID string) *RedisTokenCache {
	return &RedisTokenCache{rdb: rdb, key: "pix:token:" + provider + ":" + clientID}
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

func (c *RedisTokenCache) Load(ctx context.Context) (*oauth2.Token, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ct cachedToken
	if err := json.Unmarshal(raw, &ct); err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: ct.AccessToken, TokenType: ct.TokenType, Expiry: ct.Expiry}, nil
}

func (c *RedisTokenCache) Store(ctx context.Context, tok *oauth2.Token) error {
	ttl := time.Until(tok.Expiry)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(cachedToken{AccessToken: tok.AccessToken, TokenType: tok.TokenType, Expiry: tok.Expiry})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, raw, ttl).Err()
}
