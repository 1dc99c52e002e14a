package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"storybook-server/internal/models"
)

// JWTVerifier проверяет HS256 токены внешнего провайдера аутентификации.
type JWTVerifier struct {
	secret []byte
	logger *zap.Logger
}

func NewJWTVerifier(secret string, logger *zap.Logger) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWTVerifier{secret: []byte(secret), logger: logger.Named("JWTVerifier")}, nil
}

// VerifyToken проверяет подпись и срок действия, user id берется из sub.
func (v *JWTVerifier) VerifyToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		v.logger.Debug("Failed to verify token", zap.String("tokenSnippet", tokenSnippet(tokenString)), zap.Error(err))
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, models.ErrTokenMalformed
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject missing", models.ErrTokenInvalid)
	}
	return claims, nil
}

// AuthMiddleware требует валидный Bearer токен.
func (h *StoryHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, models.ErrUnauthorized)
			return
		}
		if !h.authenticate(c, tokenString) {
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware пропускает анонимные запросы, но битый токен отклоняет.
func (h *StoryHandler) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, models.ErrTokenMalformed)
			return
		}
		if !h.authenticate(c, tokenString) {
			return
		}
		c.Next()
	}
}

func (h *StoryHandler) authenticate(c *gin.Context, tokenString string) bool {
	claims, err := h.verifier.VerifyToken(tokenString)
	if err != nil {
		h.logger.Warn("Access token verification failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		tokenVerificationsTotal.WithLabelValues("failure").Inc()
		handleServiceError(c, err)
		return false
	}
	tokenVerificationsTotal.WithLabelValues("success").Inc()
	c.Set(userIDKey, claims.Subject)
	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// tokenSnippet безопасная для логов часть токена.
func tokenSnippet(tokenString string) string {
	if len(tokenString) > 15 {
		return tokenString[:15] + "..."
	}
	return tokenString
}
