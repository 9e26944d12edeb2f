package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by the middleware.
const (
	RequestIDKey = "request_id"
	ClaimsKey    = "claims"
)

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(common.RequestIDHeaderName)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(common.RequestIDHeaderName, requestID)

		c.Next()
	}
}

// GetRequestID returns the request ID stored by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Logger logs one line per request, at a level that follows the status code.
func Logger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", GetRequestID(c),
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.Error(ctx, "Server error", args...)
		case status >= 400:
			log.Warn(ctx, "Client error", args...)
		default:
			log.Info(ctx, "Request completed", args...)
		}
	}
}

// Recovery turns a panic into a 500 problem response.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		log.Error(c.Request.Context(), "panic in handler", "panic", err, "path", c.Request.URL.Path)
		abortWithProblem(c, newProblem(c, http.StatusInternalServerError, "", ""))
	})
}

// TokenValidator fully validates an access token.
type TokenValidator interface {
	Validate(token string, now time.Time) (*auth.ClaimSet, error)
}

// Bearer rejects requests without a valid, unexpired access token and stores
// its claims under ClaimsKey.
func Bearer(v TokenValidator, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			abortWithProblem(c, newProblem(c, http.StatusUnauthorized, "", "missing bearer token"))
			return
		}

		claims, err := v.Validate(token, now())
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			abortWithProblem(c, newProblem(c, http.StatusUnauthorized, "", "invalid token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), claimsCtxKey{}, claims))
		c.Next()
	}
}

type claimsCtxKey struct{}

// ClaimsFromContext returns the claims stored by Bearer, if any.
func ClaimsFromContext(ctx context.Context) (*auth.ClaimSet, bool) {
	c, ok := ctx.Value(claimsCtxKey{}).(*auth.ClaimSet)
	return c, ok
}
