package auth

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"todoagent/pkg/config"
	"todoagent/pkg/response"
)

var ErrInvalidToken = errors.New("invalid access token")

type JWT struct {
	Secret string
}

// CreateToken signs an HS256 token for subject that expires after ttl.
func (j *JWT) CreateToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	return token.SignedString([]byte(j.Secret))
}

// VerifyToken checks signature and expiry and returns the subject.
func (j *JWT) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(j.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		slog.Error("Error verifying token", "error", err)
		return "", errors.Join(ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// GinJwtMiddleware requires a bearer token signed with secret and stores
// its subject under config.ContextSubjectKey.
func GinJwtMiddleware(secret string) gin.HandlerFunc {
	verifier := &JWT{Secret: secret}

	return func(c *gin.Context) {
		bearer := c.GetHeader("Authorization")

		if bearer == "" {
			response.SendUnauthorizedError(c, "Unauthorized request")
			return
		}

		if !strings.HasPrefix(bearer, "Bearer ") {
			response.SendUnauthorizedError(c, "Invalid authorization format")
			return
		}

		subject, err := verifier.VerifyToken(strings.TrimPrefix(bearer, "Bearer "))
		if err != nil {
			response.SendUnauthorizedError(c, "Unauthorized request")
			return
		}

		c.Set(config.ContextSubjectKey, subject)
		c.Next()
	}
}
