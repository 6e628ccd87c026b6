package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	DBDriver     string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSQLitePath string

	RabbitURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PageCacheTTL  time.Duration

	JWTSecret     string
	SessionTTL    time.Duration
	RefreshEvery  time.Duration
	AllowedDomain string
	BcryptCost    int
	BrokerSecret  string

	RoomCapacity    int
	DefaultPageSize int
	Timezone        string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] no .env file found, using environment")
	}

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBDriver:     getEnv("DB_DRIVER", "postgres"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBName:       getEnv("DB_NAME", "reservas"),
		DBSQLitePath: getEnv("DB_SQLITE_PATH", "reservas.db"),

		RabbitURL: os.Getenv("RABBITMQ_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		PageCacheTTL:  getEnvDuration("PAGE_CACHE_TTL", 30*time.Second),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		SessionTTL:    getEnvDuration("SESSION_TTL", time.Hour),
		RefreshEvery:  getEnvDuration("SESSION_REFRESH_EVERY", 10*time.Minute),
		AllowedDomain: getEnv("ALLOWED_EMAIL_DOMAIN", "uamv.edu.ni"),
		BcryptCost:    getEnvInt("BCRYPT_COST", 10),
		BrokerSecret:  os.Getenv("IDENTITY_BROKER_SECRET"),

		RoomCapacity:    getEnvInt("ROOM_CAPACITY", 16),
		DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 10),
		Timezone:        getEnv("TIMEZONE", "America/Managua"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[Config] JWT_SECRET is required")
	}
	return cfg
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	case "sqlite":
		return c.DBSQLitePath
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[Config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[Config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
