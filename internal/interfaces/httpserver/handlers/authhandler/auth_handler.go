// Package authhandler resolves the authenticated principal into an
// application user record.
package authhandler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"glowchat/internal/domain/user"
	middleware "glowchat/internal/interfaces/httpserver/middlewares"
	"glowchat/internal/interfaces/httpserver/responses"
	"glowchat/internal/utils/platformerrors"
)

const appUserContextKey = "app_user"

// AuthHandler coordinates per-request authentication helpers.
type AuthHandler struct {
	userService *user.Service
	logger      zerolog.Logger
}

func NewAuthHandler(userService *user.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// WithAppUserAuthChain ensures the authenticated app user exists before executing handlers.
func (h *AuthHandler) WithAppUserAuthChain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{h.ensureAppUser()}
	return append(chain, handlers...)
}

// GetUserFromContext returns the ensured application user from the request context.
func GetUserFromContext(c *gin.Context) (*user.User, bool) {
	val, ok := c.Get(appUserContextKey)
	if !ok || val == nil {
		return nil, false
	}
	usr, ok := val.(*user.User)
	return usr, ok && usr != nil
}

func (h *AuthHandler) ensureAppUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.userService == nil {
			c.Next()
			return
		}

		if _, ok := GetUserFromContext(c); ok {
			c.Next()
			return
		}

		principal, ok := middleware.PrincipalFromContext(c)
		if !ok {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "7b2e9c41-5d8f-4a36-b1e7-3c9a6d2f8b54")
			c.Abort()
			return
		}

		identity := user.Identity{
			Provider: string(principal.AuthMethod),
			Issuer:   principal.Issuer,
			Subject:  principal.Subject,
		}
		if identity.Issuer == "" || identity.Subject == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "invalid user identity", "3d8f5a27-9c1e-4b64-a7d3-6e2b8f4c1a95")
			c.Abort()
			return
		}

		if principal.Username != "" {
			username := principal.Username
			identity.Username = &username
		}
		if principal.Email != "" {
			email := principal.Email
			identity.Email = &email
		}
		if principal.Name != "" {
			name := principal.Name
			identity.Name = &name
		}

		usr, err := h.userService.EnsureUser(c.Request.Context(), identity)
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to ensure user from principal")
			responses.HandleNewError(c, platformerrors.ErrorTypeInternal, "unable to resolve user identity", "5a1c7e93-2b8d-4f45-9a6c-8e3d1b7f2c64")
			c.Abort()
			return
		}

		c.Set(appUserContextKey, usr)
		c.Next()
	}
}
