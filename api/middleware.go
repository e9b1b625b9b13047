package api

import (
	"strings"
	"time"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const principalKey = "principal"

type Authenticator interface {
	Authenticate(token string) (domain.Principal, error)
}

type AdminAuthorizer interface {
	Authorize(apiKey string) error
}

// RequireUser admits requests carrying a valid bearer token and stores the
// caller in the gin context.
func RequireUser(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(c, domain.ErrUnauthorized)
			return
		}
		principal, err := auth.Authenticate(token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func RequireAdmin(admin AdminAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := admin.Authorize(c.GetHeader("X-API-Key")); err != nil {
			writeError(c, err)
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}
