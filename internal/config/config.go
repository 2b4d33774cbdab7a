package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Port string
	Host string

	DatabaseURL string

	GeminiAPIKey      string
	GeminiModel       string
	GeminiTemperature float32

	WorkerPoolSize int

	LearnerMinSamples   int
	RegressionTolerance float64
	RecencyHalfLifeDays float64
	RecencyWindowYears  float64

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:                GetEnv("PORT", "8086"),
		Host:                GetEnv("HOST", "0.0.0.0"),
		DatabaseURL:         GetEnv("DATABASE_URL", ""),
		GeminiAPIKey:        GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:         GetEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTemperature:   GetEnvFloat32("GEMINI_TEMPERATURE", 0.3),
		WorkerPoolSize:      GetEnvInt("WORKER_POOL_SIZE", 8),
		LearnerMinSamples:   GetEnvInt("LEARNER_MIN_SAMPLES", 100),
		RegressionTolerance: GetEnvFloat64("REGRESSION_TOLERANCE", 0.02),
		RecencyHalfLifeDays: GetEnvFloat64("RECENCY_HALF_LIFE_DAYS", 90),
		RecencyWindowYears:  GetEnvFloat64("RECENCY_WINDOW_YEARS", 3),
		LogLevel:            GetEnv("LOG_LEVEL", "INFO"),
		LogFormat:           GetEnv("LOG_FORMAT", "json"),
	}
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func GetEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func GetEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
