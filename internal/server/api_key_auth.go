package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/ringbill/ringbill/internal/apikey/domain"
	obscontext "github.com/ringbill/ringbill/internal/observability/context"
	"github.com/ringbill/ringbill/internal/observability/logger"
	"github.com/ringbill/ringbill/internal/orgcontext"
	"github.com/ringbill/ringbill/internal/ratelimit"
)

const scopesContextKey = "auth.scopes"

// APIKeyAuth authenticates the request via "Authorization: Bearer <key>",
// applies the per-key rate limit and stores the org on the request context.
func APIKeyAuth(db *gorm.DB, limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    "unauthorized",
				Message: "missing or malformed Authorization header",
			})
			return
		}

		hash := apikeydomain.HashAPIKey(strings.TrimSpace(token))

		var key apikeydomain.APIKey
		err := db.WithContext(c.Request.Context()).
			Where("key_hash = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > now())", hash, true).
			Limit(1).
			Find(&key).Error
		if err != nil {
			logger.FromContext(c.Request.Context()).Error("api key lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Code:    "internal_error",
				Message: "something went wrong",
			})
			return
		}
		if key.ID == 0 || subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    "unauthorized",
				Message: "invalid API key",
			})
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), key.ID.String())
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("rate limit error", zap.Error(err))
		} else if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:    "rate_limited",
				Message: "rate limit exceeded, retry later",
			})
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), key.OrgID)
		ctx = obscontext.WithActor(ctx, "api_key", key.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(scopesContextKey, []string(key.Scopes))
		c.Next()
	}
}

// RequireScope gates a route on one API key scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scopes, _ := c.Get(scopesContextKey)
		granted, _ := scopes.([]string)
		if !apikeydomain.HasScope(granted, scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Code:    "forbidden",
				Message: "API key lacks scope " + scope,
			})
			return
		}
		c.Next()
	}
}
