package middleware

import (
	"strings"

	"streamhub/internal/core/ports"
	"streamhub/pkg/errors"
	"streamhub/pkg/logger"
	"streamhub/pkg/tracing"

	"github.com/gin-gonic/gin"
)

// unauthorizedMessage is the single message for every token failure kind.
const unauthorizedMessage = "could not validate credentials"

// AuthMiddleware requires a valid bearer token and stores the principal in the
// request context, where logger.Principal reads it.
func AuthMiddleware(authService ports.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		email, err := authService.CurrentUser(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		ctx := logger.WithPrincipal(c.Request.Context(), email)
		tracing.AddSpanAttributes(ctx, tracing.PrincipalKey.String(email))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	_ = c.Error(errors.NewUnauthorizedError(unauthorizedMessage))
	c.Abort()
}
