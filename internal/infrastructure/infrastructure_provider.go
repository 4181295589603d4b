package infrastructure

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"resty.dev/v3"

	"glowchat/internal/config"
	"glowchat/internal/infrastructure/auth"
	"glowchat/internal/infrastructure/crontab"
	"glowchat/internal/infrastructure/database"
	"glowchat/internal/infrastructure/database/repository"
	"glowchat/internal/infrastructure/inference"
	"glowchat/internal/infrastructure/logger"
	"glowchat/internal/infrastructure/ratelimit"
	"glowchat/internal/utils/httpclients"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideJWTValidator provides a JWT validator backed by the issuer's JWKS
func ProvideJWTValidator(cfg *config.Config, log zerolog.Logger) (*auth.JWTValidator, error) {
	ctx := context.Background()
	jwksURL, err := cfg.ResolveJWKSURL(ctx)
	if err != nil {
		return nil, err
	}
	return auth.NewJWTValidator(
		ctx,
		jwksURL,
		cfg.Issuer,
		cfg.Audience,
		cfg.RefreshJWKSInterval,
		cfg.AuthClockSkew,
		log,
	)
}

// ProvideDatabase provides a database connection
func ProvideDatabase(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(cfg.GetDatabaseWriteDSN(), cfg.GetDatabaseReadDSN())
	if err != nil {
		return nil, err
	}

	// Run migrations if AUTO_MIGRATE is enabled
	if cfg.AutoMigrate {
		log.Info().Msg("Running database migrations...")
		if err := database.AutoMigrate(db); err != nil {
			log.Error().Err(err).Msg("Failed to run database migrations")
			return nil, err
		}
		log.Info().Msg("Database migrations completed successfully")
	}

	return db, nil
}

// ProvideRateLimiter provides the per-instance request rate limiter
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

// ProvideRestyClient provides the shared HTTP client for upstream calls
func ProvideRestyClient() *resty.Client {
	return httpclients.NewClient("completion")
}

// Infrastructure holds all infrastructure dependencies
type Infrastructure struct {
	DB           *gorm.DB
	JWTValidator *auth.JWTValidator
	RateLimiter  *ratelimit.Limiter
	Logger       zerolog.Logger
}

// NewInfrastructure creates a new infrastructure instance
func NewInfrastructure(
	db *gorm.DB,
	jwtValidator *auth.JWTValidator,
	rateLimiter *ratelimit.Limiter,
	logger zerolog.Logger,
) *Infrastructure {
	return &Infrastructure{
		DB:           db,
		JWTValidator: jwtValidator,
		RateLimiter:  rateLimiter,
		Logger:       logger,
	}
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,

	// Database
	ProvideDatabase,

	// Repositories
	repository.RepositoryProvider,

	// Upstream completion provider
	ProvideRestyClient,
	inference.NewProviderFromConfig,

	// Logger
	logger.GetLogger,

	// Auth
	ProvideJWTValidator,

	// Rate limiting
	ProvideRateLimiter,

	// Crontab for retention sweep
	crontab.NewCrontab,

	// Infrastructure struct
	NewInfrastructure,
)
