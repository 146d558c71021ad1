// Package config loads the server configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is used when neither the caller nor HEALTHALLY_CONFIG names a file.
const ConfigPath = "config.yaml"

const (
	defaultSessionTTL       = 24 * time.Hour
	defaultExportLinkTTL    = 15 * time.Minute
	defaultExportPurgeEvery = time.Hour
	defaultMedicineDataPath = "data/medicine.csv"
	defaultSymptomDataPath  = "data/symptoms.csv"
	defaultMongoDatabase    = "healthcare_chatbot"
	defaultGenerationModel  = "gemma-7b-it"
	defaultTemperature      = 0.5
	defaultMaxTokens        = 500
)

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
}

// Enabled reports whether exports go to object storage.
func (m MinioConfig) Enabled() bool {
	return strings.TrimSpace(m.Endpoint) != ""
}

// BootstrapAdminConfig names the admin created on startup when the admins
// collection is empty.
type BootstrapAdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type AnalyticsQueueConfig struct {
	Stream      string `yaml:"stream"`
	Group       string `yaml:"group"`
	Concurrency int    `yaml:"concurrency"`
}

func (q AnalyticsQueueConfig) Enabled() bool {
	return strings.TrimSpace(q.Stream) != ""
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string   `yaml:"port"`
	LogLevel                 string   `yaml:"logLevel"`
	AllowedOrigins           []string `yaml:"allowedOrigins"`
	MongoURI                 string   `yaml:"mongoURI"`
	MongoDatabase            string   `yaml:"mongoDatabase"`
	DatabaseURL              string   `yaml:"databaseURL"`
	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	SessionTTL               string   `yaml:"sessionTTL"`
	JWTSecret                string   `yaml:"jwtSecret"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`
	LoginRateLimitPerMinute  int      `yaml:"loginRateLimitPerMinute"`
	SignupRateLimitPerMinute int      `yaml:"signupRateLimitPerMinute"`
	MedicineDataPath         string   `yaml:"medicineDataPath"`
	SymptomDataPath          string   `yaml:"symptomDataPath"`

	GenerationProvider    string   `yaml:"generationProvider"`
	GenerationBaseURL     string   `yaml:"generationBaseURL"`
	GenerationAPIKey      string   `yaml:"generationAPIKey"`
	GenerationModel       string   `yaml:"generationModel"`
	GenerationTemperature *float64 `yaml:"generationTemperature"`
	GenerationMaxTokens   int      `yaml:"generationMaxTokens"`
	GenerationTimeout     string   `yaml:"generationTimeout"`

	Minio               MinioConfig          `yaml:"minio"`
	ExportLinkTTL       string               `yaml:"exportLinkTTL"`
	ExportPurgeInterval string               `yaml:"exportPurgeInterval"`
	AnalyticsQueue      AnalyticsQueueConfig `yaml:"analyticsQueue"`

	BootstrapAdmin BootstrapAdminConfig `yaml:"bootstrapAdmin"`

	SentryDSN         string `yaml:"sentryDSN"`
	SentryEnvironment string `yaml:"sentryEnvironment"`
}

// Load reads .env (if present), then the YAML file, then environment overrides.
// An empty path falls back to HEALTHALLY_CONFIG and then ConfigPath.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	_ = godotenv.Load()
	if path == "" {
		path = os.Getenv("HEALTHALLY_CONFIG")
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString(&cfg.Port, "HEALTHALLY_PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("HEALTHALLY_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDatabase, "MONGO_DATABASE")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.SessionTTL, "HEALTHALLY_SESSION_TTL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	if v := os.Getenv("HEALTHALLY_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	setInt(&cfg.LoginRateLimitPerMinute, "HEALTHALLY_LOGIN_RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.SignupRateLimitPerMinute, "HEALTHALLY_SIGNUP_RATE_LIMIT_PER_MINUTE")
	setString(&cfg.MedicineDataPath, "HEALTHALLY_MEDICINE_DATA_PATH")
	setString(&cfg.SymptomDataPath, "HEALTHALLY_SYMPTOM_DATA_PATH")

	setString(&cfg.GenerationProvider, "GENERATION_PROVIDER")
	setString(&cfg.GenerationBaseURL, "GENERATION_BASE_URL")
	setString(&cfg.GenerationAPIKey, "GROQ_API_KEY")
	setString(&cfg.GenerationAPIKey, "GENERATION_API_KEY")
	setString(&cfg.GenerationModel, "GENERATION_MODEL")
	if v := os.Getenv("GENERATION_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.GenerationTemperature = &f
		}
	}
	setInt(&cfg.GenerationMaxTokens, "GENERATION_MAX_TOKENS")
	setString(&cfg.GenerationTimeout, "GENERATION_TIMEOUT")

	setString(&cfg.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&cfg.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.Minio.Bucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Minio.UseSSL = b
		}
	}
	setString(&cfg.ExportLinkTTL, "HEALTHALLY_EXPORT_LINK_TTL")
	setString(&cfg.ExportPurgeInterval, "HEALTHALLY_EXPORT_PURGE_INTERVAL")
	setString(&cfg.AnalyticsQueue.Stream, "ANALYTICS_QUEUE_STREAM")
	setString(&cfg.AnalyticsQueue.Group, "ANALYTICS_QUEUE_GROUP")
	setInt(&cfg.AnalyticsQueue.Concurrency, "ANALYTICS_QUEUE_CONCURRENCY")
	setString(&cfg.BootstrapAdmin.Username, "ADMIN_USERNAME")
	setString(&cfg.BootstrapAdmin.Email, "ADMIN_EMAIL")
	setString(&cfg.BootstrapAdmin.Password, "ADMIN_PASSWORD")
	setString(&cfg.SentryDSN, "SENTRY_DSN")
	setString(&cfg.SentryEnvironment, "SENTRY_ENVIRONMENT")
}

func applyDefaults(cfg *FileConfig) {
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = defaultMongoDatabase
	}
	if cfg.MedicineDataPath == "" {
		cfg.MedicineDataPath = defaultMedicineDataPath
	}
	if cfg.SymptomDataPath == "" {
		cfg.SymptomDataPath = defaultSymptomDataPath
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = defaultGenerationModel
	}
	if cfg.GenerationTemperature == nil {
		t := defaultTemperature
		cfg.GenerationTemperature = &t
	}
	if cfg.GenerationMaxTokens == 0 {
		cfg.GenerationMaxTokens = defaultMaxTokens
	}
	if cfg.AnalyticsQueue.Enabled() && cfg.AnalyticsQueue.Group == "" {
		cfg.AnalyticsQueue.Group = "analytics-writers"
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required (set in config.yaml or HEALTHALLY_PORT)")
	}
	if strings.TrimSpace(cfg.MongoURI) == "" {
		return errors.New("config: mongoURI is required (set in config.yaml or MONGO_URI)")
	}
	if _, err := ParseDuration("sessionTTL", cfg.SessionTTL, defaultSessionTTL); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := ParseDuration("exportLinkTTL", cfg.ExportLinkTTL, defaultExportLinkTTL); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := ParseDuration("exportPurgeInterval", cfg.ExportPurgeInterval, defaultExportPurgeEvery); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(cfg.BootstrapAdmin.Username) != "" && strings.TrimSpace(cfg.BootstrapAdmin.Password) == "" {
		return errors.New("config: bootstrapAdmin.password is required when bootstrapAdmin.username is set (ADMIN_PASSWORD)")
	}
	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		return errors.New("config: jwtSecret must be at least 32 bytes (or leave it empty for opaque sessions)")
	}
	if cfg.LoginRateLimitPerMinute < 0 || cfg.SignupRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if (cfg.LoginRateLimitPerMinute > 0 || cfg.SignupRateLimitPerMinute > 0) && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	switch provider := strings.ToLower(strings.TrimSpace(cfg.GenerationProvider)); provider {
	case "", "openai-compat", "gemini":
		if strings.TrimSpace(cfg.GenerationAPIKey) == "" {
			return errors.New("config: generationAPIKey is required (set GROQ_API_KEY or GENERATION_API_KEY)")
		}
	case "ollama":
	default:
		return fmt.Errorf("config: unsupported generationProvider %q", cfg.GenerationProvider)
	}
	if t := *cfg.GenerationTemperature; t < 0 || t > 2 {
		return errors.New("config: generationTemperature must be between 0 and 2")
	}
	if cfg.GenerationMaxTokens < 0 {
		return errors.New("config: generationMaxTokens must be > 0")
	}
	if _, err := ParseDuration("generationTimeout", cfg.GenerationTimeout, 0); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Minio.Enabled() {
		if cfg.Minio.Bucket == "" || cfg.Minio.AccessKey == "" || cfg.Minio.SecretKey == "" {
			return errors.New("config: minio bucket, accessKey and secretKey are required when minio.endpoint is set")
		}
	}
	if cfg.AnalyticsQueue.Enabled() {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required when analyticsQueue.stream is set")
		}
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required when analyticsQueue.stream is set")
		}
		if cfg.AnalyticsQueue.Concurrency < 0 {
			return errors.New("config: analyticsQueue.concurrency must be >= 0")
		}
	}
	return nil
}

// ParseDuration parses an optional duration setting, returning def when empty.
func ParseDuration(name, value string, def time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

// SessionTTLDuration returns the parsed session lifetime.
func (c FileConfig) SessionTTLDuration() time.Duration {
	d, _ := ParseDuration("sessionTTL", c.SessionTTL, defaultSessionTTL)
	return d
}

// ExportLinkTTLDuration returns how long presigned export links stay valid.
func (c FileConfig) ExportLinkTTLDuration() time.Duration {
	d, _ := ParseDuration("exportLinkTTL", c.ExportLinkTTL, defaultExportLinkTTL)
	return d
}

// ExportPurgeIntervalDuration returns the period of the export cleanup job.
func (c FileConfig) ExportPurgeIntervalDuration() time.Duration {
	d, _ := ParseDuration("exportPurgeInterval", c.ExportPurgeInterval, defaultExportPurgeEvery)
	return d
}

// GenerationTimeoutDuration returns the per-call cap on model requests.
// Zero when unset.
func (c FileConfig) GenerationTimeoutDuration() time.Duration {
	d, _ := ParseDuration("generationTimeout", c.GenerationTimeout, 0)
	return d
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
