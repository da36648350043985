package session

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/validation"
)

type contextKey struct{}

// WithID stores a session id in ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFrom returns the session id stored by WithID.
func IDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Middleware resolves the caller's session from its cookie, starting a new
// session when the cookie is missing, expired or forged.
func Middleware(issuer *TokenIssuer) gin.HandlerFunc {
	log := logger.WithComponent("session")
	return func(c *gin.Context) {
		var id string
		if raw, err := c.Cookie(issuer.CookieName()); err == nil && raw != "" {
			sid, err := issuer.Parse(raw)
			if err == nil {
				if verr := validation.New().RequiredUUID("session_id", sid).Validate(); verr != nil {
					err = verr
				}
			}
			if err == nil {
				id = sid
			} else {
				log.WithContext(c.Request.Context()).Debug("discarding session cookie",
					logger.Fields(logger.FieldError, errors.InvalidToken().WithCause(err).Error()))
			}
		}
		if id == "" {
			id = uuid.NewString()
			token, err := issuer.Issue(id)
			if err != nil {
				appErr := errors.Internal(err)
				c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(issuer.CookieName(), token, int(issuer.TTL().Seconds()), "/", "", issuer.Secure(), true)
		}
		c.Request = c.Request.WithContext(WithID(c.Request.Context(), id))
		c.Next()
	}
}

// ID returns the session id resolved by Middleware.
func ID(c *gin.Context) string {
	id, _ := IDFrom(c.Request.Context())
	return id
}
