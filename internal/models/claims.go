package models

import "github.com/golang-jwt/jwt/v5"

// Claims токен внешнего провайдера аутентификации. Идентификатор
// пользователя лежит в Subject, как у большинства хостинговых провайдеров.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
