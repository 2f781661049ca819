package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
// Игровые таблицы подгружаются отдельно (см. tables.go), здесь только окружение.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	EventBus    EventBusConfig    `yaml:"eventbus"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Game        GameConfig        `yaml:"game"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

type ServerConfig struct {
	HTTPPort     int    `yaml:"http_port"`
	TicksPerSec  int    `yaml:"ticks_per_second"`
	LogComponent string `yaml:"log_component"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`    // пусто: только шина в памяти
	Stream    string `yaml:"stream"` // имя JetStream стрима
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type LeaderboardConfig struct {
	RedisAddr  string `yaml:"redis_addr"`  // приоритетнее badger_path
	BadgerPath string `yaml:"badger_path"` // локальное хранилище; если оба пусты, in-memory
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Key        string `yaml:"key"`
	Queue      int    `yaml:"queue"`
	CacheTTL   int    `yaml:"cache_ttl_seconds"` // 0 выключает кеш чтений
}

// CacheDuration TTL кеша таблицы рекордов
func (l *LeaderboardConfig) CacheDuration() time.Duration {
	return time.Duration(l.CacheTTL) * time.Second
}

type GameConfig struct {
	TablesPath string  `yaml:"tables_path"` // пусто: встроенные таблицы
	Character  string  `yaml:"character"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Seed       int64   `yaml:"seed"` // 0 значит несидированный режим
}

// TelemetryConfig экспорт трасс по OTLP/HTTP
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// GetHTTPPort возвращает HTTP порт с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getIntWithEnvFallback(s.HTTPPort, "ARENA_HTTP_PORT", 8088)
}

// GetTicksPerSecond возвращает частоту симуляции
func (s *ServerConfig) GetTicksPerSecond() int {
	return getIntWithEnvFallback(s.TicksPerSec, "ARENA_TPS", 60)
}

// RetentionDuration возвращает время хранения событий в стриме
func (e *EventBusConfig) RetentionDuration() time.Duration {
	if e.Retention <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(e.Retention) * time.Hour
}

// Bounds возвращает размеры арены, подставляя значения по умолчанию
func (g *GameConfig) Bounds() (float64, float64) {
	w, h := g.Width, g.Height
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 720
	}
	return w, h
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV ARENA_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ARENA_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан, используются дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}
