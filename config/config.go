package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the backend configuration, read from the environment once at
// startup. Clients built from it are passed explicitly to their users.
type Config struct {
	Port    string
	GinMode string

	PostgresURI  string
	AutoMigrate  bool
	MongoURI     string
	MongoDB      string
	MongoTLS     bool
	MongoTLSSkip bool
	RedisAddr    string

	GCSBucket       string
	GCSSignerEmail  string
	GCPCredentials  string
	SignedURLExpiry time.Duration

	SupabaseJWTSecret   string
	SupabaseJWTIssuer   string
	SupabaseJWTAudience string

	STTLanguage       string
	WorkerConcurrency int
	TranscribeStream  string
	TranscribeGroup   string

	QuestionCacheTTL  time.Duration
	SessionTTL        time.Duration
	GlobalSeconds     int
	MaxAudioBytes     int64
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
}

func Load() Config {
	return Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "release"),

		PostgresURI:  os.Getenv("POSTGRES_URI"),
		AutoMigrate:  getEnvBool("AUTO_MIGRATE", false),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      getEnv("MONGO_DB", "audition"),
		MongoTLS:     getEnvBool("MONGO_FORCE_TLS_CONFIG", false),
		MongoTLSSkip: getEnvBool("MONGO_INSECURE_TLS", false),
		RedisAddr:    firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),

		GCSBucket:       os.Getenv("GCS_BUCKET"),
		GCSSignerEmail:  os.Getenv("GCS_SIGNER_EMAIL"),
		GCPCredentials:  os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		SignedURLExpiry: getEnvDuration("SIGNED_URL_EXPIRY", 15*time.Minute),

		SupabaseJWTSecret:   os.Getenv("SUPABASE_JWT_SECRET"),
		SupabaseJWTIssuer:   os.Getenv("SUPABASE_JWT_ISSUER"),
		SupabaseJWTAudience: os.Getenv("SUPABASE_JWT_AUDIENCE"),

		STTLanguage:       getEnv("STT_LANGUAGE", "en-US"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		TranscribeStream:  getEnv("TRANSCRIBE_STREAM", "stream:transcribe"),
		TranscribeGroup:   getEnv("TRANSCRIBE_GROUP", "transcribers"),

		QuestionCacheTTL:  getEnvDuration("QUESTION_CACHE_TTL", 10*time.Minute),
		SessionTTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		GlobalSeconds:     getEnvInt("AUDITION_GLOBAL_SECONDS", 1800),
		MaxAudioBytes:     int64(getEnvInt("MAX_AUDIO_BYTES", 25<<20)),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "*")),
		ReadHeaderTimeout: getEnvDuration("READ_HEADER_TIMEOUT", 10*time.Second),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_URI environment variable is not set"))
	}
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI environment variable is not set"))
	}
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR (or REDIS_URI/REDIS_URL) environment variable is not set"))
	}
	if c.GCSBucket == "" {
		errs = append(errs, errors.New("GCS_BUCKET environment variable is not set"))
	}
	if c.GlobalSeconds <= 0 {
		errs = append(errs, errors.New("AUDITION_GLOBAL_SECONDS must be positive"))
	}
	if c.WorkerConcurrency <= 0 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be positive"))
	}
	if c.MaxAudioBytes <= 0 {
		errs = append(errs, errors.New("MAX_AUDIO_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
