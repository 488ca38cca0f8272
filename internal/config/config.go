package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port        string
	OrdersTable string
	ConfigTable string
	BusinessTZ  string
	WhatsApp    WhatsAppConfig
}

// WhatsAppConfig carries the messaging API credentials. Notifications are
// disabled unless Enabled is set and both credentials are present.
type WhatsAppConfig struct {
	Token   string
	PhoneID string
	Enabled bool
}

// Load reads a .env file if present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "3000"),
		OrdersTable: getEnv("ORDERS_TABLE", "pedidos"),
		ConfigTable: getEnv("CONFIG_TABLE", "configuracao"),
		BusinessTZ:  getEnv("BUSINESS_TZ", "America/Sao_Paulo"),
		WhatsApp: WhatsAppConfig{
			Token:   getEnv("WHATSAPP_TOKEN", ""),
			PhoneID: getEnv("WHATSAPP_PHONE_ID", ""),
			Enabled: boolEnv("NOTIFICATIONS_ENABLED"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolEnv(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return v == "1" || strings.EqualFold(v, "true")
}
