package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/FilipeAphrody/sentinel-trust/internal/adapters/notify"
	"github.com/FilipeAphrody/sentinel-trust/internal/adapters/oidc"
	"github.com/FilipeAphrody/sentinel-trust/internal/adapters/passkey"
	"github.com/FilipeAphrody/sentinel-trust/internal/config"
	delivery "github.com/FilipeAphrody/sentinel-trust/internal/delivery/http"
	"github.com/FilipeAphrody/sentinel-trust/internal/repository"
	"github.com/FilipeAphrody/sentinel-trust/internal/token"
	"github.com/FilipeAphrody/sentinel-trust/internal/trust"
	"github.com/FilipeAphrody/sentinel-trust/internal/usecase"
	"github.com/FilipeAphrody/sentinel-trust/internal/verification"
	"github.com/FilipeAphrody/sentinel-trust/pkg/security"

	_ "github.com/lib/pq" // Postgres driver
)

func main() {
	// 1. Load Configuration from Environment
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := config.InitLogger(cfg.SlogLevel())

	// 2. Initialize Infrastructure (Persistence)
	db, err := sql.Open("postgres", cfg.DBURL)
	if err != nil {
		fatal(logger, "failed to open PostgreSQL", err)
	}
	defer db.Close()

	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		fatal(logger, "invalid redis configuration", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	principalRepo := repository.NewPostgresPrincipalRepo(db)
	if cfg.DBAutoMigrate {
		if err := principalRepo.EnsureSchema(startupCtx); err != nil {
			fatal(logger, "failed to apply schema", err)
		}
	}
	codeStore := repository.NewRedisCodeStore(rdb)
	credentials := repository.NewCredentialRouter(principalRepo, codeStore)

	// 3. Initialize Verification (one strategy per credential type)
	hasher := security.NewPasswordHasher(security.DefaultParams)

	var social verification.SocialIdentityVerifier
	if providers, _ := cfg.Providers(); len(providers) > 0 {
		v, err := oidc.NewVerifier(startupCtx, toProviderConfigs(providers))
		if err != nil {
			fatal(logger, "failed to discover oidc providers", err)
		}
		social = v
		logger.Info("social login enabled", "providers", v.Providers())
	}

	var (
		passkeyVerifier verification.PasskeyVerifier
		challenger      usecase.PasskeyChallenger
	)
	if cfg.WebAuthnRPID != "" {
		v, err := passkey.NewVerifier(passkey.Config{
			RPID:          cfg.WebAuthnRPID,
			RPDisplayName: cfg.WebAuthnRPName,
			RPOrigins:     cfg.WebAuthnRPOrigins,
		}, repository.NewRedisChallengeStore(rdb), logger)
		if err != nil {
			logger.Warn("passkeys disabled", "error", err)
		} else {
			passkeyVerifier, challenger = v, v
		}
	}

	dispatcher := verification.NewDispatcher(
		verification.NewPasswordStrategy(hasher, logger),
		verification.NewSocialStrategy(social, logger),
		verification.NewPasskeyStrategy(passkeyVerifier, logger),
		verification.NewOneTimeCodeStrategy(nil),
	)

	policy := trust.DefaultPolicy()
	policy.AlwaysRequireChannels = cfg.MFAAlwaysChannels
	policy.RequireForServiceAccounts = cfg.MFARequireServiceAccounts

	// 4. Initialize Tokens
	previous, err := cfg.PreviousKeys()
	if err != nil {
		fatal(logger, "invalid previous keys", err)
	}
	keys, err := token.NewKeyring(cfg.JWTKeyID, []byte(cfg.JWTSecret), previous)
	if err != nil {
		fatal(logger, "invalid signing key", err)
	}
	tokens := token.NewService(keys, token.Config{
		Issuer:        cfg.TokenIssuer,
		BaseTTL:       cfg.TokenBaseTTL,
		RefreshTTL:    cfg.TokenRefreshTTL,
		MFAPendingTTL: cfg.TokenMFAPendingTTL,
	})

	// 5. Initialize Business Logic (Usecases)
	authUsecase := usecase.NewAuthUsecase(usecase.Deps{
		Principals:  principalRepo,
		Credentials: credentials,
		Registry:    principalRepo,
		Audit:       principalRepo,
		Codes:       codeStore,
		Sender:      notify.NewLogSender(logger),
		Passkeys:    challenger,
		Hasher:      hasher,
		Dispatcher:  dispatcher,
		Policy:      policy,
		Tokens:      tokens,
		Logger:      logger,
	}, usecase.Config{CodeTTL: cfg.OTPCodeTTL})

	// 6. Setup Framework and Global Middlewares
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(requestLogger(logger)))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.Secure())

	// 7. Register Delivery Handlers (Routes)
	v1 := e.Group("/v1")
	delivery.NewAuthHandler(v1, authUsecase, tokens, logger)
	delivery.NewMFAHandler(v1, authUsecase, tokens, logger)

	// 8. Health Check
	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		return c.JSON(code, echo.Map{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 9. Start Server with Graceful Shutdown
	go func() {
		logger.Info("starting sentinel trust server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server stopped", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exiting")
}

func toProviderConfigs(in []config.OIDCProvider) []oidc.ProviderConfig {
	out := make([]oidc.ProviderConfig, 0, len(in))
	for _, p := range in {
		out = append(out, oidc.ProviderConfig{Name: p.Name, Issuer: p.Issuer, ClientID: p.ClientID})
	}
	return out
}

// requestLogger routes echo's access log through slog.
func requestLogger(logger *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				logger.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
