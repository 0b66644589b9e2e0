package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Auth configuration
	JWTSecret string

	// Gateway fallbacks. The live values come from the system_settings
	// table at call time; these are only used when a setting row is absent.
	MomoPartnerCode string
	MomoAccessKey   string
	MomoSecretKey   string
	MomoEndpoint    string
	MomoReturnURL   string
	MomoNotifyURL   string

	ZaloPayAppID       string
	ZaloPayKey1        string
	ZaloPayKey2        string
	ZaloPayEndpoint    string
	ZaloPayCallbackURL string

	// Outbound gateway call timeout in seconds
	GatewayTimeoutSeconds int
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:        getEnv("PORT", "8080"),
		Mode:        getEnv("GIN_MODE", "debug"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),

		MomoPartnerCode: getEnv("MOMO_PARTNER_CODE", "MOMO"),
		MomoAccessKey:   getEnv("MOMO_ACCESS_KEY", "F8BBA842ECF85"),
		MomoSecretKey:   getEnv("MOMO_SECRET_KEY", "K951B6PE1waDMi640xX08PD3vg6EkVlz"),
		MomoEndpoint:    getEnv("MOMO_ENDPOINT", "https://test-payment.momo.vn"),
		MomoReturnURL:   getEnv("MOMO_RETURN_URL", "http://localhost:3001/payment/success"),
		MomoNotifyURL:   getEnv("MOMO_NOTIFY_URL", "http://localhost:8080/api/payment/callback"),

		ZaloPayAppID:       getEnv("ZALOPAY_APP_ID", "2553"),
		ZaloPayKey1:        getEnv("ZALOPAY_KEY1", "PcY4iZIKFCIdgZvA21hgDTRLxnoXaOSy"),
		ZaloPayKey2:        getEnv("ZALOPAY_KEY2", "kLtgPl8HHhfvMuDHPwKfgfsY4Ydm9eIz"),
		ZaloPayEndpoint:    getEnv("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2"),
		ZaloPayCallbackURL: getEnv("ZALOPAY_CALLBACK_URL", "http://localhost:8080/api/payment/zalopay-callback"),

		GatewayTimeoutSeconds: getEnvInt("GATEWAY_TIMEOUT_SECONDS", 30),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
