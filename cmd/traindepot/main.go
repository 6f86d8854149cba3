package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/depothub/traindepot/pkg/authflow"
	authapi "github.com/depothub/traindepot/pkg/authflow/api"
	"github.com/depothub/traindepot/pkg/catalog"
	catalogapi "github.com/depothub/traindepot/pkg/catalog/api"
	"github.com/depothub/traindepot/pkg/challenge"
	"github.com/depothub/traindepot/pkg/notice"
	"github.com/depothub/traindepot/pkg/notification"
	"github.com/depothub/traindepot/pkg/password"
	"github.com/depothub/traindepot/pkg/tokengenerator"
	"github.com/depothub/traindepot/pkg/totp"
)

type DepotDbConfig struct {
	Host     string `env:"DEPOT_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"DEPOT_PG_PORT" env-default:"5432"`
	Database string `env:"DEPOT_PG_DATABASE" env-default:"depot_db"`
	User     string `env:"DEPOT_PG_USER" env-default:"depot"`
	Password string `env:"DEPOT_PG_PASSWORD" env-default:"pwd"`
}

func (d DepotDbConfig) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

type JwtConfig struct {
	// Access and refresh tokens are signed with independent secrets;
	// envelope tokens for challenge flows use a third one.
	AccessSecret   string `env:"JWT_ACCESS_SECRET" env-default:"access-secret-change-me"`
	RefreshSecret  string `env:"JWT_REFRESH_SECRET" env-default:"refresh-secret-change-me"`
	EnvelopeSecret string `env:"JWT_ENVELOPE_SECRET" env-default:"envelope-secret-change-me"`
	Issuer         string `env:"JWT_ISSUER" env-default:"traindepot"`
	Audience       string `env:"JWT_AUDIENCE" env-default:"traindepot"`

	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" env-default:"20m"`
}

type ChallengeConfig struct {
	StepUpTTL     time.Duration `env:"CHALLENGE_STEP_UP_TTL" env-default:"3m"`
	ResetTTL      time.Duration `env:"CHALLENGE_RESET_TTL" env-default:"4m"`
	SweepInterval time.Duration `env:"CHALLENGE_SWEEP_INTERVAL" env-default:"1m"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:"noreply@example.com"`
	Password string `env:"EMAIL_PASSWORD" env-default:"pwd"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type ServerConfig struct {
	Port int `env:"PORT" env-default:"9000"`
}

type Config struct {
	BaseUrl         string `env:"BASE_URL" env-default:"http://localhost:9000"`
	FrontendUrl     string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	DepotDbConfig   DepotDbConfig
	ServerConfig    ServerConfig
	JwtConfig       JwtConfig
	ChallengeConfig ChallengeConfig
	EmailConfig     EmailConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	// Load .env if present; real env vars win
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded configuration from .env file")
	}

	config := Config{}
	cleanenv.ReadEnv(&config)

	dbConfig := config.DepotDbConfig.toDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	notificationManager, err := notice.NewNotificationManager(
		config.FrontendUrl,
		notification.SMTPConfig{
			Host:     config.EmailConfig.Host,
			Port:     int(config.EmailConfig.Port),
			Username: config.EmailConfig.Username,
			Password: config.EmailConfig.Password,
			From:     config.EmailConfig.From,
			TLS:      config.EmailConfig.TLS,
		},
	)
	if err != nil {
		slog.Error("Failed initializing notification manager", "err", err)
		os.Exit(-1)
	}

	tokenService := tokengenerator.NewDefaultTokenService(
		tokengenerator.NewJwtTokenGenerator(config.JwtConfig.AccessSecret, config.JwtConfig.Issuer, config.JwtConfig.Audience),
		tokengenerator.NewJwtTokenGenerator(config.JwtConfig.RefreshSecret, config.JwtConfig.Issuer, config.JwtConfig.Audience),
		tokengenerator.NewJwtTokenGenerator(config.JwtConfig.EnvelopeSecret, config.JwtConfig.Issuer, config.JwtConfig.Audience),
		tokengenerator.WithAccessTokenExpiry(config.JwtConfig.AccessTokenExpiry),
		tokengenerator.WithRefreshTokenExpiry(config.JwtConfig.RefreshTokenExpiry),
	)

	hasher := password.NewBcryptHasher()

	challengeRepo := challenge.NewPostgresChallengeRepository(pool)
	challengeService := challenge.NewChallengeService(challengeRepo, tokenService, hasher)

	authService := authflow.NewAuthService(
		authflow.NewPostgresUserRepository(pool),
		authflow.NewPostgresTwoFactorRepository(pool),
		tokenService,
		challengeService,
		totp.NewEngine(),
		hasher,
		notificationManager,
		authflow.WithStepUpTTL(config.ChallengeConfig.StepUpTTL),
		authflow.WithResetTTL(config.ChallengeConfig.ResetTTL),
	)

	componentService := catalog.NewComponentService(catalog.NewPostgresComponentRepository(pool))

	// Expired challenges are rejected on consume either way; the sweeper
	// keeps the tables from accumulating dead rows.
	sweeper := challenge.NewSweeper(challengeRepo,
		challenge.WithSweepInterval(config.ChallengeConfig.SweepInterval))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	server := app.NewApp(
		app.WithAppConfig(app.AppConfig{Server: app.Server{Port: config.ServerConfig.Port}}),
		app.WithCors(&cors.Options{
			AllowedOrigins:   []string{config.FrontendUrl},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	accessAuth := jwtauth.New("HS256", []byte(config.JwtConfig.AccessSecret), nil)

	authHandle := authapi.NewHandle(authService)
	server.R.Route("/api/auth", func(r chi.Router) {
		authapi.Routes(r, authHandle, accessAuth)
	})

	catalogHandle := catalogapi.NewHandle(componentService)
	server.R.Route("/api/trainComponents", func(r chi.Router) {
		catalogapi.Routes(r, catalogHandle, accessAuth)
	})

	slog.Info("Starting traindepot", "port", config.ServerConfig.Port, "base_url", config.BaseUrl)
	server.Run()
}
