package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DevSecret is the fallback signing secret. Only accepted when APP_ENV=dev.
const DevSecret = "dev-secret-change-me"

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string
	Env           string
	DatabaseURL   string
	SecretKey     string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDB       string

	BlobBackend    string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	AdminUsername string
	AdminPassword string
	CORSOrigins   []string
	MaxUploadMB   int
}

// Load reads .env (if any) and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	maxUpload, err := strconv.Atoi(getenv("MAX_UPLOAD_MB", "10"))
	if err != nil || maxUpload <= 0 {
		maxUpload = 10
	}

	return Config{
		Port:          getenv("PORT", "8080"),
		Env:           getenv("APP_ENV", "dev"),
		DatabaseURL:   normalizeDatabaseURL(getenv("DATABASE_URL", "")),
		SecretKey:     getenv("SECRET_KEY", DevSecret),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		MongoURI:      getenv("MONGO_URI", ""),
		MongoDB:       getenv("MONGO_DB", "rentnow"),

		BlobBackend:    getenv("BLOB_BACKEND", "minio"),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "rentnow"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
		MinioPublicURL: getenv("MINIO_PUBLIC_URL", ""),

		CloudinaryCloudName: getenv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getenv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getenv("CLOUDINARY_API_SECRET", ""),

		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),
		CORSOrigins:   splitList(getenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		MaxUploadMB:   maxUpload,
	}
}

// Validate reports the first configuration problem that would prevent startup.
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: PORT is empty")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is empty")
	}
	if cfg.Env != "dev" && (cfg.SecretKey == "" || cfg.SecretKey == DevSecret) {
		return errors.New("config: SECRET_KEY must be set outside dev")
	}
	switch cfg.BlobBackend {
	case "minio":
	case "cloudinary":
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return errors.New("config: cloudinary backend needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
	default:
		return errors.New("config: BLOB_BACKEND must be minio or cloudinary")
	}
	return nil
}

// Hosted Postgres providers still hand out the legacy scheme.
func normalizeDatabaseURL(u string) string {
	if strings.HasPrefix(u, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(u, "postgres://")
	}
	return u
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

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
