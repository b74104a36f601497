package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration

	// Content
	BankPath string // YAML or JSON bank file loaded at startup
	DBPath   string // SQLite file holding finished attempts

	// Live sessions; empty RedisAddr keeps them in process memory
	RedisAddr  string
	SessionTTL time.Duration

	// Events; empty RabbitMQURI disables publishing
	RabbitMQURI      string
	RabbitMQExchange string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()
	return &Config{
		ServerAddress:    mustGetenv("SERVER_ADDRESS"),
		ShutdownTimeout:  mustGetDuration("SHUTDOWN_TIMEOUT"),
		BankPath:         mustGetenv("BANK_PATH"),
		DBPath:           getenvDefault("DB_PATH", "opobank.db"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		SessionTTL:       getDurationDefault("SESSION_TTL", 24*time.Hour),
		RabbitMQURI:      os.Getenv("RABBITMQ_URI"),
		RabbitMQExchange: getenvDefault("RABBITMQ_EXCHANGE", "opobank.events"),
	}
}

func mustGetenv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	return v
}

func mustGetDuration(k string) time.Duration {
	v := mustGetenv(k)
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getDurationDefault(k string, fallback time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}
