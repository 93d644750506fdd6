package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Supabase struct {
	URL            string
	ServiceRoleKey string
	JWTSecret      string
	StorageBucket  string
}

type Config struct {
	Port        string
	FrontendURL string
	PostgresURI string
	RedisURI    string
	Timezone    string

	Supabase       Supabase
	StorageBackend string // supabase or r2
	R2             R2

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	EnhancerAPIKey  string
	EnhancerBaseURL string

	ImageGenAPIKey  string
	ImageGenBaseURL string

	TinyPNGAPIKey  string
	TinyPNGBaseURL string

	TiktokClientKey    string
	TiktokClientSecret string
	TiktokRedirectURI  string
	TiktokAPIBaseURL   string
	TiktokAuthURL      string

	// SecretKey encrypts TikTok tokens at rest; 16, 24 or 32 bytes.
	SecretKey string

	EnhancementMaxWait time.Duration
	EnhancementJobAge  time.Duration
	WorkerConcurrency  int
}

func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "3000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		Timezone:    getEnv("TIMEZONE", "UTC"),
		Supabase: Supabase{
			URL:            getEnv("SUPABASE_URL", ""),
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			JWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
			StorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "restaurant-images"),
		},
		StorageBackend: getEnv("STORAGE_BACKEND", "supabase"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", "restaurant-images"),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		EnhancerAPIKey:     getEnv("ENHANCER_API_KEY", ""),
		EnhancerBaseURL:    getEnv("ENHANCER_BASE_URL", ""),
		ImageGenAPIKey:     getEnv("IMAGE_GENERATOR_API_KEY", ""),
		ImageGenBaseURL:    getEnv("IMAGE_GENERATOR_BASE_URL", ""),
		TinyPNGAPIKey:      getEnv("TINYPNG_API_KEY", ""),
		TinyPNGBaseURL:     getEnv("TINYPNG_BASE_URL", "https://api.tinify.com"),
		TiktokClientKey:    getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
		TiktokRedirectURI:  getEnv("TIKTOK_REDIRECT_URI", ""),
		TiktokAPIBaseURL:   getEnv("TIKTOK_API_BASE_URL", "https://open.tiktokapis.com"),
		TiktokAuthURL:      getEnv("TIKTOK_AUTH_URL", "https://www.tiktok.com/v2/auth/authorize/"),
		SecretKey:          getEnv("SECRET_KEY", ""),
		EnhancementMaxWait: getDuration("ENHANCEMENT_MAX_WAIT", 2*time.Minute),
		EnhancementJobAge:  getDuration("ENHANCEMENT_JOB_AGE", 15*time.Minute),
		WorkerConcurrency:  getInt("WORKER_CONCURRENCY", 10),
	}
}

// Location returns the timezone posting calendars are built in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
