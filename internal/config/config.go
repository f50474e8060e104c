package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	PORT               string
	DB_HOST            string
	DB_PORT            string
	DB_USER            string
	DB_PASSWORD        string
	DB_NAME            string
	REDIS_ADDR         string
	ES_URL             string
	ES_USER            string
	ES_PASSWORD        string
	JWT_SECRET         string
	EMAIL_TOKEN_SECRET string
	KAFKA_ADDRESS      string
	MAIL_SERVER        string
	MAIL_PORT          int
	MAIL_USERNAME      string
	MAIL_PASSWORD      string
	MAIL_FROM          string
	MAIL_FROM_NAME     string
	DOMAIN             string
	LOG_LEVEL          string
	AccessTTLMin       int
	RefreshTTLDays     int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:               getenv("PORT", "8000"),
		DB_HOST:            os.Getenv("DB_HOST"),
		DB_PORT:            os.Getenv("DB_PORT"),
		DB_USER:            os.Getenv("DB_USER"),
		DB_PASSWORD:        os.Getenv("DB_PASSWORD"),
		DB_NAME:            os.Getenv("DB_NAME"),
		REDIS_ADDR:         getenv("REDIS_ADDR", "localhost:6379"),
		ES_URL:             os.Getenv("ES_URL"),
		ES_USER:            os.Getenv("ES_USER"),
		ES_PASSWORD:        os.Getenv("ES_PASSWORD"),
		JWT_SECRET:         os.Getenv("JWT_SECRET"),
		EMAIL_TOKEN_SECRET: os.Getenv("EMAIL_TOKEN_SECRET"),
		KAFKA_ADDRESS:      os.Getenv("KAFKA_ADDRESS"),
		MAIL_SERVER:        os.Getenv("MAIL_SERVER"),
		MAIL_PORT:          getenvInt("MAIL_PORT", 587),
		MAIL_USERNAME:      os.Getenv("MAIL_USERNAME"),
		MAIL_PASSWORD:      os.Getenv("MAIL_PASSWORD"),
		MAIL_FROM:          os.Getenv("MAIL_FROM"),
		MAIL_FROM_NAME:     getenv("MAIL_FROM_NAME", "Bookly"),
		DOMAIN:             getenv("DOMAIN", "localhost:8000"),
		LOG_LEVEL:          getenv("LOG_LEVEL", "info"),
		AccessTTLMin:       getenvInt("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays:     getenvInt("REFRESH_TOKEN_TTL_DAYS", 2),
	}

	return config, nil
}

// RefreshTTLSeconds is the upper bound on any token's lifetime. The blocklist
// uses it as entry TTL so a revoked jti can never outlive its entry.
func (c *Config) RefreshTTLSeconds() int {
	return c.RefreshTTLDays * 24 * 60 * 60
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
