package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/kpi-visual-backend/internal/data/db"
	"github.com/yungbote/kpi-visual-backend/internal/filestore"
	"github.com/yungbote/kpi-visual-backend/internal/observability"
	"github.com/yungbote/kpi-visual-backend/internal/platform/envutil"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

const (
	ServiceName    = "KPI Visual API"
	ServiceVersion = "1.0.0"
)

type Config struct {
	Port    string
	LogMode string

	DB db.Config

	Upload       filestore.Config
	MaxUploadMB  int
	WorkerCount  int
	WorkerPoll   time.Duration
	ETLBatchSize int

	JWTSecretKey         string
	AccessTokenTTL       time.Duration
	DefaultAdminUsername string
	DefaultAdminPassword string

	RedisAddr          string
	CacheTTL           time.Duration
	AnalyzeConcurrency int

	CORSOrigins []string
	Otel        observability.OtelConfig
}

// LoadConfig reads the optional CONFIG_FILE overlay and then the environment.
// A variable that is set always wins over the file.
func LoadConfig(log *logger.Logger) (Config, error) {
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := applyConfigFile(path); err != nil {
			return Config{}, err
		}
		log.Info("config overlay applied", "path", path)
	}

	cfg := Config{
		Port:    envutil.String("PORT", "8000"),
		LogMode: envutil.String("LOG_MODE", "development"),
		DB: db.Config{
			Driver:        envutil.String("DB_DRIVER", db.DriverPostgres),
			DSN:           envutil.String("DATABASE_URL", ""),
			Host:          envutil.String("POSTGRES_HOST", "localhost"),
			Port:          envutil.String("POSTGRES_PORT", "5432"),
			User:          envutil.String("POSTGRES_USER", "postgres"),
			Password:      envutil.String("POSTGRES_PASSWORD", ""),
			Name:          envutil.String("POSTGRES_NAME", "kpi_visual"),
			SSLMode:       envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:    envutil.String("SQLITE_PATH", "kpi_visual.db"),
			MaxOpenConns:  envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20),
			SlowThreshold: time.Duration(envutil.Int("DB_SLOW_QUERY_MS", 1000)) * time.Millisecond,
		},
		Upload: filestore.Config{
			Mode:         filestore.ParseMode(envutil.String("UPLOAD_STORE", "")),
			Dir:          envutil.String("UPLOAD_DIR", "uploads"),
			Bucket:       envutil.String("GCS_UPLOAD_BUCKET", ""),
			EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
			Credentials:  envutil.String("GCS_CREDENTIALS", ""),
		},
		MaxUploadMB:  envutil.Int("MAX_UPLOAD_MB", 100),
		WorkerCount:  envutil.Int("WORKER_CONCURRENCY", 2),
		WorkerPoll:   time.Duration(envutil.Int("WORKER_POLL_MS", 2000)) * time.Millisecond,
		ETLBatchSize: envutil.Int("ETL_BATCH_SIZE", 500),

		JWTSecretKey:         envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL:       time.Duration(envutil.Int("JWT_EXPIRE_HOURS", 8)) * time.Hour,
		DefaultAdminUsername: envutil.String("DEFAULT_ADMIN_USERNAME", "admin"),
		DefaultAdminPassword: envutil.String("DEFAULT_ADMIN_PASSWORD", ""),

		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		CacheTTL:           envutil.Seconds("CACHE_TTL_SECONDS", 5*time.Minute),
		AnalyzeConcurrency: envutil.Int("ANALYZE_CONCURRENCY", 4),

		CORSOrigins: envutil.List("CORS_ORIGINS", nil),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "kpi-visual"),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development"),
			Version:     ServiceVersion,
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: floatEnv("OTEL_SAMPLER_RATIO", 0.1),
		},
	}

	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set, using an insecure development secret")
		cfg.JWTSecretKey = "dev-secret-change-me"
	}
	if cfg.DefaultAdminPassword == "" {
		log.Warn("DEFAULT_ADMIN_PASSWORD not set, default admin will not be bootstrapped")
	}
	if cfg.ETLBatchSize <= 0 {
		cfg.ETLBatchSize = 500
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 8 * time.Hour
	}
	return cfg, nil
}

func (c Config) Address() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// applyConfigFile exports every key of a flat YAML mapping that is not already
// set to a non-blank value in the environment.
func applyConfigFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}
	for key, val := range values {
		name := strings.ToUpper(strings.TrimSpace(key))
		if name == "" {
			continue
		}
		if cur, set := os.LookupEnv(name); set && strings.TrimSpace(cur) != "" {
			continue
		}
		if err := os.Setenv(name, overlayString(val)); err != nil {
			return fmt.Errorf("apply CONFIG_FILE key %s: %w", name, err)
		}
	}
	return nil
}

func overlayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, overlayString(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func floatEnv(name string, def float64) float64 {
	v := envutil.String(name, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
