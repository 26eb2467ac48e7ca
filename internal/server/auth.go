package server

import (
	"net/http"
	"time"

	"taskflow/internal/domain/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionCookie = "jwt_token"

// Sessions issues and verifies the opaque tokens carried in the session
// cookie. Injected so tests can authenticate callers without a real login.
type Sessions interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

type jwtSessions struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTSessions(secret string) Sessions {
	return &jwtSessions{
		secret: []byte(secret),
		ttl:    24 * time.Hour,
	}
}

func (s *jwtSessions) Issue(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *jwtSessions) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.ErrUnauthorized
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.ErrUnauthorized
	}
	return userID, nil
}

// authRequired rejects the request with 401 before any handler work when
// the session cookie is missing or invalid.
func (api *TaskAPI) authRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		cookie, err := ctx.Cookie(sessionCookie)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
			return
		}

		userID, err := api.sessions.Verify(cookie)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
			return
		}

		ctx.Set("userID", userID)
		ctx.Next()
	}
}
