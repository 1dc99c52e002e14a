package handler

import (
	"net/http"
	"strconv"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storybook-server/internal/models"
)

// NewStoryRateLimiter ограничивает генерацию историй limit запросами в минуту.
// Без Redis счетчики живут в памяти процесса.
func NewStoryRateLimiter(rdb *redis.Client, limit uint, logger *zap.Logger) gin.HandlerFunc {
	var store ratelimit.Store
	if rdb != nil {
		store = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: rdb,
			Rate:        time.Minute,
			Limit:       limit,
		})
	} else {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Minute,
			Limit: limit,
		})
	}

	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			logger.Warn("Rate limit exceeded",
				zap.String("key", rateLimitKey(c)),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			retryAfter := int(time.Until(info.ResetTime).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    models.ErrCodeRateLimited,
				Message: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: rateLimitKey,
	})
}

// rateLimitKey: пользователь, если он аутентифицирован, иначе IP.
func rateLimitKey(c *gin.Context) string {
	if userID := userIDFromContext(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}
