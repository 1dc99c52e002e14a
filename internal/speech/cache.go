package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "storybook:speech:"

// CachedSynthesizer кеширует аудио в Redis. Ошибки Redis не ломают озвучку,
// запрос просто уходит провайдеру.
type CachedSynthesizer struct {
	next   Synthesizer
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSynthesizer оборачивает next кешем с заданным TTL.
func NewCachedSynthesizer(next Synthesizer, rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CachedSynthesizer {
	return &CachedSynthesizer{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.Named("SpeechCache"),
	}
}

func (c *CachedSynthesizer) Name() string { return c.next.Name() }

func (c *CachedSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	key := CacheKey(c.next.Name(), language, text)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil && len(cached) > 0:
		speechCacheLookups.WithLabelValues("hit").Inc()
		c.logger.Debug("Speech cache hit", zap.String("key", key))
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		speechCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Speech cache lookup failed", zap.String("key", key), zap.Error(err))
	default:
		speechCacheLookups.WithLabelValues("miss").Inc()
	}

	audio, err := c.next.Synthesize(ctx, text, language)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, key, audio, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to store speech in cache", zap.String("key", key), zap.Error(err))
	}
	return audio, nil
}

// CacheKey returns the Redis key for a provider, language and text.
func CacheKey(provider, language, text string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + language + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
