package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dimaskp/conduit-api/internal/domain/entity"
	repo "github.com/dimaskp/conduit-api/internal/domain/repository"
	"github.com/dimaskp/conduit-api/pkg/helpers"
)

// CtxUserKey is the gin context key holding the authenticated *entity.User.
const CtxUserKey = "currentUser"

const bearerPrefix = "Bearer "

// Identity resolves an optional bearer token into a request-scoped user.
// Every failure mode (missing header, malformed token, bad signature, user
// since deleted, store error) degrades to "continue unauthenticated"; the
// middleware never aborts and never writes a response. Handlers that require
// an identity check CurrentUser themselves.
func Identity(users repo.UserRepository, codec *helpers.TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.Next()
			return
		}

		userID, ok := codec.Decode(strings.TrimPrefix(header, bearerPrefix))
		if !ok {
			c.Next()
			return
		}

		u, err := users.GetByID(c.Request.Context(), userID)
		if err == nil && u != nil {
			c.Set(CtxUserKey, u)
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by Identity, if any.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}
