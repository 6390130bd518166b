package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string

	AdminJWTSecret string
	JWTSecret      string

	// Gemini assistant
	GeminiAPIKey string
	GeminiModel  string

	// Chat behaviour
	ChatSessionTTL  time.Duration
	SupportPath     string
	WhatsAppNumber  string
	WhatsAppText    string

	// Upload handshake
	UploadDir           string
	UploadTTL           time.Duration
	UploadSweepInterval time.Duration

	// Workbook archive (S3-compatible)
	ArchiveBucket       string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SupportInbox      string

	// Licensing
	LicenseTrialEnabled bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		ChatSessionTTL: getEnvAsDuration("CHAT_SESSION_TTL", 10*time.Minute),
		SupportPath:    getEnv("SUPPORT_PATH", "/soporte/"),
		WhatsAppNumber: getEnv("SUPPORT_WHATSAPP_NUMBER", "59177682918"),
		WhatsAppText:   getEnv("SUPPORT_WHATSAPP_TEXT", "Hola, necesito ayuda con SISARM Search."),

		UploadDir:           getEnv("UPLOAD_DIR", ""),
		UploadTTL:           getEnvAsDuration("UPLOAD_TTL", 30*time.Minute),
		UploadSweepInterval: getEnvAsDuration("UPLOAD_SWEEP_INTERVAL", 10*time.Minute),

		ArchiveBucket:       getEnv("ARCHIVE_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "no-responder@sisarm.com"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "SISARM Search"),
		SupportInbox:      getEnv("SUPPORT_INBOX", "soporte@sisarm.com"),

		LicenseTrialEnabled: getEnvAsBool("LICENSE_TRIAL_ENABLED", true),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
