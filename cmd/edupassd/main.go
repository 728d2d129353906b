// Command edupassd runs the education credit ledger HTTP service.
//
// All configuration comes from environment variables; see Config for the
// complete list. The defaults serve the in-memory store on :3000 with
// authorization disabled, which suits local development only.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/edupass/edupass-ledger/edupass"
	"github.com/edupass/edupass-ledger/edupass/auth"
	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/edupass/edupass-ledger/edupass/net/http"
	"github.com/edupass/edupass-ledger/edupass/opentelemetry"
	"github.com/edupass/edupass-ledger/edupass/server"
	"github.com/edupass/edupass-ledger/edupass/store/bolt"
	"github.com/edupass/edupass-ledger/edupass/store/memory"
	"github.com/edupass/edupass-ledger/edupass/store/mongo"
	"github.com/edupass/edupass-ledger/edupass/store/postgres"
	"github.com/edupass/edupass-ledger/edupass/store/redis"
	"github.com/edupass/edupass-ledger/edupass/zap"
)

const serviceName = "edupass-ledger"

// storeBootTimeout bounds backend connection attempts during startup.
const storeBootTimeout = 30 * time.Second

// Config defines every environment variable the daemon reads. Variables
// left unset keep the defaults from defaultConfig.
type Config struct {
	EnvName          string `env:"ENV_NAME"`
	LogLevel         string `env:"LOG_LEVEL"`
	ServerAddress    string `env:"SERVER_ADDRESS"`
	ServiceVersion   string `env:"VERSION"`
	StoreBackend     string `env:"EDUPASS_STORE"`
	BoltPath         string `env:"EDUPASS_BOLT_PATH"`
	PostgresPrimary  string `env:"EDUPASS_POSTGRES_PRIMARY"`
	PostgresReplica  string `env:"EDUPASS_POSTGRES_REPLICA"`
	PostgresDatabase string `env:"EDUPASS_POSTGRES_DATABASE"`
	RedisAddress     string `env:"EDUPASS_REDIS_ADDRESS"`
	RedisPassword    string `env:"EDUPASS_REDIS_PASSWORD"`
	MongoURI         string `env:"EDUPASS_MONGO_URI"`
	MongoDatabase    string `env:"EDUPASS_MONGO_DATABASE"`
	AuthMode         string `env:"EDUPASS_AUTH"`
	AuthSecret       string `env:"EDUPASS_AUTH_SECRET"`
	OtelEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTelemetry  bool   `env:"ENABLE_TELEMETRY"`
}

func defaultConfig() Config {
	return Config{
		EnvName:          "local",
		ServerAddress:    ":3000",
		StoreBackend:     "memory",
		BoltPath:         "edupass.db",
		PostgresDatabase: "edupass",
		MongoDatabase:    "edupass",
		AuthMode:         "allow",
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "edupassd:", err)
		os.Exit(1)
	}
}

func run() error {
	edupass.InitLocalEnvConfig()

	cfg := defaultConfig()
	if err := edupass.SetConfigFromEnvVars(&cfg); err != nil {
		return fmt.Errorf("load environment config: %w", err)
	}

	logger, _, err := zap.New(zap.Config{
		Environment:     logEnvironment(cfg.EnvName),
		Level:           cfg.LogLevel,
		OTelLibraryName: serviceName,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	telemetry, err := opentelemetry.InitializeTelemetryWithError(&opentelemetry.TelemetryConfig{
		LibraryName:               serviceName,
		ServiceName:               serviceName,
		ServiceVersion:            cfg.ServiceVersion,
		DeploymentEnv:             cfg.EnvName,
		CollectorExporterEndpoint: cfg.OtelEndpoint,
		EnableTelemetry:           cfg.EnableTelemetry,
		Logger:                    logger,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	bootCtx, cancel, err := edupass.WithTimeoutSafe(context.Background(), storeBootTimeout)
	if err != nil {
		return err
	}

	st, err := buildStore(bootCtx, cfg, logger)

	cancel()

	if err != nil {
		return fmt.Errorf("initialize %s store: %w", cfg.StoreBackend, err)
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return err
	}

	engine := ledger.New(st, verifier)
	app := http.NewRouter(logger, telemetry, engine, st)

	logger.Info("Booting edupass ledger service",
		zap.String("store", cfg.StoreBackend),
		zap.String("auth", cfg.AuthMode),
		zap.String("address", cfg.ServerAddress),
	)

	return server.NewServerManager(telemetry, logger).
		WithHTTPServer(app, cfg.ServerAddress).
		WithStore(st).
		StartWithGracefulShutdownWithError()
}

// buildStore selects and connects the ledger store named by
// EDUPASS_STORE. Remote backends are dialed eagerly so a misconfigured
// deployment fails at boot instead of on the first request.
func buildStore(ctx context.Context, cfg Config, logger log.Logger) (ledger.Store, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "", "memory":
		return memory.New(), nil
	case "bolt":
		return bolt.Open(cfg.BoltPath)
	case "postgres":
		st := postgres.New(postgres.Config{
			ConnectionStringPrimary: cfg.PostgresPrimary,
			ConnectionStringReplica: cfg.PostgresReplica,
			DatabaseName:            cfg.PostgresDatabase,
			Logger:                  logger,
		})
		if err := st.Connect(ctx); err != nil {
			return nil, err
		}

		return st, nil
	case "redis":
		return redis.NewStore(ctx, redis.Config{
			Topology: redis.Topology{
				Standalone: &redis.StandaloneTopology{Address: cfg.RedisAddress},
			},
			Password: cfg.RedisPassword,
			Logger:   logger,
		})
	case "mongo":
		return mongo.NewStore(ctx, mongo.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// buildVerifier selects the authorization mode named by EDUPASS_AUTH.
func buildVerifier(cfg Config) (auth.Verifier, error) {
	switch strings.ToLower(cfg.AuthMode) {
	case "", "allow":
		return auth.AllowAll{}, nil
	case "hmac":
		if cfg.AuthSecret == "" {
			return nil, fmt.Errorf("EDUPASS_AUTH_SECRET is required when EDUPASS_AUTH=hmac")
		}

		return auth.NewHMACVerifier([]byte(cfg.AuthSecret)), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

func logEnvironment(name string) zap.Environment {
	switch strings.ToLower(name) {
	case "production", "prod":
		return zap.EnvironmentProduction
	case "staging":
		return zap.EnvironmentStaging
	case "development", "dev":
		return zap.EnvironmentDevelopment
	default:
		return zap.EnvironmentLocal
	}
}
