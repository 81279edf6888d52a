package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"artisan-marketplace/internal/models"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database. DatabaseURL (e.g. a Neon connection string) wins over the discrete fields.
	DatabaseURL string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis
	RedisURL string

	// NATS
	NATSURL string

	// Server
	Port        string
	Environment string
	LogLevel    string

	// JWT
	JWTSecret      string
	JWTExpiryHours int

	// Razorpay
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	// Media storage
	MediaProvider       string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	MediaFolder         string
	S3Endpoint          string
	S3Region            string
	S3Bucket            string
	S3AccessKey         string
	S3SecretKey         string
	S3PublicBaseURL     string
	MaxUploadBytes      int64

	// Generative AI
	GeminiAPIKey        string
	GeminiTextModel     string
	GeminiImageModel    string
	AIRequestsPerSecond float64
	DefaultHourlyRate   float64

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Orders
	DefaultCurrency       string
	FlatShippingCost      float64
	FreeShippingThreshold float64

	// Bootstrap admin account
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpiry, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	maxUpload, _ := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	aiRPS, _ := strconv.ParseFloat(getEnv("AI_REQUESTS_PER_SECOND", "2"), 64)
	hourlyRate, _ := strconv.ParseFloat(getEnv("DEFAULT_HOURLY_RATE", "150"), 64)
	flatShipping, _ := strconv.ParseFloat(getEnv("FLAT_SHIPPING_COST", "99"), 64)
	freeShipping, _ := strconv.ParseFloat(getEnv("FREE_SHIPPING_THRESHOLD", "999"), 64)

	return &Config{
		// Database - password comes from the secret manager when enabled
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      dbPort,
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  secrets.GetDBPassword(),
		DBName:      getEnv("DB_NAME", "artisan_marketplace"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// JWT
		JWTSecret:      secrets.GetJWTSecret(),
		JWTExpiryHours: jwtExpiry,

		// Razorpay
		RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),

		// Media storage
		MediaProvider:       strings.ToLower(getEnv("MEDIA_PROVIDER", "cloudinary")),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		MediaFolder:         getEnv("MEDIA_FOLDER", "artisan-marketplace"),
		S3Endpoint:          getEnv("S3_ENDPOINT", ""),
		S3Region:            getEnv("S3_REGION", "ap-south-1"),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3AccessKey:         getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:         getEnv("S3_SECRET_KEY", ""),
		S3PublicBaseURL:     getEnv("S3_PUBLIC_BASE_URL", ""),
		MaxUploadBytes:      maxUpload,

		// Generative AI
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiTextModel:     getEnv("GEMINI_TEXT_MODEL", "gemini-2.0-flash"),
		GeminiImageModel:    getEnv("GEMINI_IMAGE_MODEL", "imagen-3.0-generate-002"),
		AIRequestsPerSecond: aiRPS,
		DefaultHourlyRate:   hourlyRate,

		// Pagination
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,

		// Orders
		DefaultCurrency:       getEnv("DEFAULT_CURRENCY", "INR"),
		FlatShippingCost:      flatShipping,
		FreeShippingThreshold: freeShipping,

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Marketplace Admin"),
	}
}

// DSN returns the Postgres connection string
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func InitDB(cfg *Config, log *logrus.Logger) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// Neon closes idle connections aggressively
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	log.Info("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.AdminMessage{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTimeline{},
		&models.Payment{},
		&models.AIGeneration{},
	); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.WithError(err).Warn("Migration constraint warning (safe to ignore)")
		} else {
			return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Info("Auto-migrations completed successfully")

	return db, nil
}

// InitRedis connects to Redis. It returns nil when Redis is not configured or
// unreachable so callers run without caching.
func InitRedis(cfg *Config, log *logrus.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not configured, caching disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("Failed to parse Redis URL, continuing without Redis caching")
		return nil
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, continuing without Redis caching")
		_ = client.Close()
		return nil
	}

	log.Info("✓ Connected to Redis for caching")
	return client
}

// NewLogger builds the service logger
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
