package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDsn    string
	HTTPAddr string

	PasarelaURL   string
	PasarelaToken string

	BotToken    string
	AdminChatID string

	// Días que una transferencia puede quedar pendiente antes de vencer.
	PagoVenceDias int
}

func Load() *Config {
	// El .env es opcional; en producción las variables vienen del entorno.
	_ = godotenv.Load()

	return &Config{
		DBDsn:    getEnvOrDefault("DB_DSN", "/data/gesa.db"),
		HTTPAddr: getEnvOrDefault("HTTP_ADDR", "0.0.0.0:8080"),

		PasarelaURL:   getEnvOrDefault("PASARELA_URL", "https://api.pasarela.example.com"),
		PasarelaToken: os.Getenv("PASARELA_TOKEN"),

		BotToken:    os.Getenv("BOT_TOKEN"),
		AdminChatID: os.Getenv("ADMIN_CHAT_ID"),

		PagoVenceDias: getEnvIntOrDefault("PAGO_VENCE_DIAS", 7),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
