package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"glowchat/internal/domain"
	authvalidator "glowchat/internal/infrastructure/auth"
	"glowchat/internal/infrastructure/metrics"
	"glowchat/internal/interfaces/httpserver/responses"
)

const principalContextKey = "principal"

// errNoBearerToken signals that the request simply carried no usable token,
// as opposed to an invalid one.
var errNoBearerToken = errors.New("no bearer token")

// AuthMiddleware validates JWT bearer tokens against the configured issuer.
func AuthMiddleware(validator *authvalidator.JWTValidator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := principalFromJWT(c, validator)
		if err != nil {
			if errors.Is(err, errNoBearerToken) {
				logger.Warn().
					Str("path", c.FullPath()).
					Str("method", c.Request.Method).
					Msg("unauthenticated request")
				metrics.AuthRequestsTotal.WithLabelValues("jwt", "missing").Inc()
				responses.HandleErrorWithStatus(c, http.StatusUnauthorized, errors.New("authentication required"), "unauthorized")
				return
			}
			logger.Error().Err(err).Msg("jwt validation failed")
			metrics.AuthRequestsTotal.WithLabelValues("jwt", "invalid").Inc()
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized, err, "unauthorized")
			return
		}

		metrics.AuthRequestsTotal.WithLabelValues("jwt", "ok").Inc()
		setPrincipal(c, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := val.(domain.Principal)
	return principal, ok
}

func setPrincipal(c *gin.Context, principal domain.Principal) {
	c.Set(principalContextKey, principal)
	c.Set("user_id", principal.ID)
	if principal.ID != "" {
		c.Writer.Header().Set("X-User-ID", principal.ID)
	}
	if principal.Subject != "" {
		c.Writer.Header().Set("X-User-Subject", principal.Subject)
	}
	if len(principal.Scopes) > 0 {
		c.Writer.Header().Set("X-Scopes", strings.Join(principal.Scopes, " "))
	}
}

func principalFromJWT(c *gin.Context, validator *authvalidator.JWTValidator) (domain.Principal, error) {
	if validator == nil {
		return domain.Principal{}, errNoBearerToken
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return domain.Principal{}, errNoBearerToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return domain.Principal{}, errNoBearerToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return domain.Principal{}, errNoBearerToken
	}

	claims, err := validator.Validate(c.Request.Context(), token)
	if err != nil {
		return domain.Principal{}, err
	}

	return domain.Principal{
		ID:         claims.Subject,
		AuthMethod: domain.AuthMethodJWT,
		Subject:    claims.Subject,
		Issuer:     claims.Issuer,
		Username:   claims.PreferredUsername,
		Email:      claims.Email,
		Name:       claims.Name,
		Scopes:     claims.Scopes,
	}, nil
}
