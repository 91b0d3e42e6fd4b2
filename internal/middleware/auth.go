package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
	"github.com/waypointhq/onboarding-backend/internal/platform/envutil"
)

// ActorKey is the gin context key holding the authenticated user id.
const ActorKey = "actor_user_id"

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(baseLog *logger.Logger, jwtSecret string) (*AuthMiddleware, error) {
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}
	return &AuthMiddleware{
		log:    baseLog.With("middleware", "AuthMiddleware"),
		secret: []byte(jwtSecret),
	}, nil
}

func NewAuthMiddlewareFromEnv(baseLog *logger.Logger) (*AuthMiddleware, error) {
	return NewAuthMiddleware(baseLog, envutil.Str("JWT_SECRET", ""))
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		actorID, err := am.parseActor(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		c.Set(ActorKey, actorID)
		c.Next()
	}
}

func (am *AuthMiddleware) parseActor(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("missing subject")
	}
	return uuid.Parse(sub)
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

// Actor returns the authenticated user id set by RequireAuth, or nil on
// unauthenticated routes.
func Actor(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return nil
	}
	return &id
}

// SignalMiddleware guards the inbound webhook endpoints with a shared
// secret header.
type SignalMiddleware struct {
	log    *logger.Logger
	secret string
}

func NewSignalMiddlewareFromEnv(baseLog *logger.Logger) (*SignalMiddleware, error) {
	secret := envutil.Str("SIGNAL_WEBHOOK_SECRET", "")
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("missing SIGNAL_WEBHOOK_SECRET")
	}
	return &SignalMiddleware{
		log:    baseLog.With("middleware", "SignalMiddleware"),
		secret: secret,
	}, nil
}

func (sm *SignalMiddleware) RequireSharedSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Webhook-Secret")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(sm.secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}
