package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Strategy StrategyConfig
	Ranking  RankingConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// StrategyConfig points at the external arm-selection collaborator.
// An empty URL means arm selection stays fully in-process.
type StrategyConfig struct {
	URL     string
	Timeout time.Duration
}

type RankingConfig struct {
	// Final rank blend; the four weights must sum to 1.
	WImportance     float64
	WRecency        float64
	WRelevance      float64
	WNovelty        float64
	Epsilon         float64
	TopicCap        int
	DiversityWeight float64
}

type JobsConfig struct {
	AggregationInterval time.Duration
	AutoStopInterval    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "News Ranking Engine"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "news_ranker"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Strategy: StrategyConfig{
			URL:     getEnv("STRATEGY_SERVICE_URL", ""),
			Timeout: getEnvDuration("STRATEGY_SERVICE_TIMEOUT", 2*time.Second),
		},
		Ranking: RankingConfig{
			WImportance:     getEnvFloat("RANK_W_IMPORTANCE", 0.45),
			WRecency:        getEnvFloat("RANK_W_RECENCY", 0.20),
			WRelevance:      getEnvFloat("RANK_W_RELEVANCE", 0.25),
			WNovelty:        getEnvFloat("RANK_W_NOVELTY", 0.10),
			Epsilon:         getEnvFloat("BANDIT_EPSILON", 0.1),
			TopicCap:        getEnvInt("RANK_TOPIC_CAP", 2),
			DiversityWeight: getEnvFloat("RANK_DIVERSITY_WEIGHT", 0.7),
		},
		Jobs: JobsConfig{
			AggregationInterval: getEnvDuration("METRICS_AGGREGATION_INTERVAL", time.Hour),
			AutoStopInterval:    getEnvDuration("AUTO_STOP_INTERVAL", 6*time.Hour),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
