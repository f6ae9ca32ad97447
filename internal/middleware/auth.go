package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey ключ gin-контекста с идентификатором пользователя из токена
const UserIDKey = "user_id"

// AuthConfig конфигурация проверки bearer токена
type AuthConfig struct {
	// Secret ключ подписи HS256. Пустой секрет отключает проверку целиком.
	Secret string
	// Required если false, запросы без токена пропускаются анонимно
	Required bool
}

// Auth извлекает пользователя из JWT в заголовке Authorization
type Auth struct {
	config AuthConfig
	parser *jwt.Parser
}

func NewAuth(config AuthConfig) *Auth {
	return &Auth{
		config: config,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Middleware возвращает Gin middleware. Невалидный токен всегда отклоняется,
// отсутствующий только при Required.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.config.Secret == "" {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if !a.config.Required {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Требуется токен в заголовке Authorization: Bearer",
			})
			return
		}

		subject, err := a.subject(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Невалидный токен",
			})
			return
		}

		c.Set(UserIDKey, subject)
		c.Next()
	}
}

func (a *Auth) subject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := a.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(a.config.Secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// UserIDFromContext извлекает пользователя, установленного Auth
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
