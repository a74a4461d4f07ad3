package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	refreshBlacklistPrefix = "auth:refresh:blacklist:"
	loginRatePrefix        = "rate:login:"
	loginFailPrefix        = "lock:login:fail:"
	loginLockPrefix        = "lock:login:"
)

var (
	errLoginThrottled = errors.New("rate limit exceeded")
	errAccountLocked  = errors.New("account temporarily locked")
)

type sessionRedis interface {
	Pipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// sessionGuard 基于 Redis 实现登录限流、失败锁定与刷新令牌黑名单。
type sessionGuard struct {
	redis         sessionRedis
	perHour       int
	lockThreshold int
	lockTTL       time.Duration
	now           func() time.Time
}

func newSessionGuard(client sessionRedis, perHour, lockThreshold int, lockTTL time.Duration) *sessionGuard {
	return &sessionGuard{
		redis:         client,
		perHour:       perHour,
		lockThreshold: lockThreshold,
		lockTTL:       lockTTL,
		now:           time.Now,
	}
}

// counter 自增并保证键带过期时间；Redis 故障时不拦截登录。
func (g *sessionGuard) counter(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	var current *redis.DurationCmd
	_, err := g.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		current = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	if current.Val() < 0 {
		if err := g.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return incr.Val(), nil
}

// Admit checks the hourly budget for ip+username and the account lock.
func (g *sessionGuard) Admit(ctx context.Context, ip, username string) error {
	name := strings.ToLower(username)
	rateKey := loginRatePrefix + ip + ":" + name + ":" + g.now().UTC().Format("2006010215")
	if count, err := g.counter(ctx, rateKey, time.Hour); err == nil && g.perHour > 0 && count > int64(g.perHour) {
		return errLoginThrottled
	}

	locked, err := g.redis.Exists(ctx, loginLockPrefix+name).Result()
	if err == nil && locked > 0 {
		return errAccountLocked
	}
	return nil
}

// RecordFailure counts a failed login and locks the account at the threshold.
func (g *sessionGuard) RecordFailure(ctx context.Context, username string) error {
	name := strings.ToLower(username)
	count, err := g.counter(ctx, loginFailPrefix+name, g.lockTTL)
	if err != nil {
		return err
	}
	if g.lockThreshold > 0 && count >= int64(g.lockThreshold) {
		return g.redis.Set(ctx, loginLockPrefix+name, "1", g.lockTTL).Err()
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (g *sessionGuard) Reset(ctx context.Context, username string) error {
	return g.redis.Del(ctx, loginFailPrefix+strings.ToLower(username)).Err()
}

// Revoke blacklists a refresh token id until the token would have expired anyway.
func (g *sessionGuard) Revoke(ctx context.Context, jti string, expiresAt *jwt.NumericDate, fallback time.Duration) error {
	ttl := fallback
	if expiresAt != nil {
		ttl = expiresAt.Time.Sub(g.now())
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return g.redis.Set(ctx, refreshBlacklistPrefix+jti, "revoked", ttl).Err()
}

// IsRevoked reports whether a refresh token id has been blacklisted.
func (g *sessionGuard) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := g.redis.Exists(ctx, refreshBlacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
