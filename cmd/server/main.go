package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/annel0/arena-core/internal/cache"
	"github.com/annel0/arena-core/internal/config"
	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/game"
	"github.com/annel0/arena-core/internal/leaderboard"
	"github.com/annel0/arena-core/internal/logging"
	"github.com/annel0/arena-core/internal/observability"
	"github.com/annel0/arena-core/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "arena"

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или ARENA_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	component := cfg.Server.LogComponent
	if component == "" {
		component = "server"
	}
	if err := logging.InitDefaultLogger(component); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🎮 Запуск Arena Core...")

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// === ИГРОВЫЕ ТАБЛИЦЫ ===
	var tables *config.Tables
	var err error
	if cfg.Game.TablesPath != "" {
		tables, err = config.LoadTables(cfg.Game.TablesPath)
	} else {
		tables, err = config.DefaultTables()
	}
	if err != nil {
		return err
	}

	// === МЕТРИКИ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gameMetrics, err := game.NewMetrics(registry)
	if err != nil {
		return err
	}

	// === ТРАССИРОВКА ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: serviceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			logging.Warn("⚠️ OpenTelemetry недоступен: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	// === ШИНА СОБЫТИЙ ===
	bus, closeBus, err := openBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer closeBus()

	if sub, err := eventbus.StartLoggingListener(bus); err == nil {
		defer sub.Unsubscribe()
	} else {
		logging.Warn("LoggingListener: %v", err)
	}
	exporter, err := eventbus.NewMetricsExporter(bus, registry)
	if err != nil {
		return err
	}
	exporter.Start(5 * time.Second)
	defer exporter.Stop()

	// === ТАБЛИЦА РЕКОРДОВ ===
	store, err := openLeaderboard(ctx, cfg.Leaderboard)
	if err != nil {
		return err
	}
	defer store.Close()
	repo, closeCache := withCache(store, cfg)
	defer closeCache()
	submitter := leaderboard.NewSubmitter(repo, cfg.Leaderboard.Queue)

	// === СЕССИИ И HTTP ===
	manager, err := server.NewManager(server.ManagerOptions{
		Tables:         tables,
		Game:           cfg.Game,
		TicksPerSecond: cfg.Server.GetTicksPerSecond(),
		IdleTimeout:    2 * time.Minute,
		Bus:            bus,
		EventBuffer:    cfg.EventBus.Buffer,
		Metrics:        gameMetrics,
		Results:        submitter,
	})
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(server.Options{
		Addr:        ":" + strconv.Itoa(cfg.Server.GetHTTPPort()),
		Service:     serviceName,
		Registry:    registry,
		Manager:     manager,
		Leaderboard: repo,
		Submitter:   submitter,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🕹️  WebSocket: ws://localhost:%d/ws", cfg.Server.GetHTTPPort())
	logging.Info("   ❤️  Health check: http://localhost:%d/healthz", cfg.Server.GetHTTPPort())

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки HTTP: %v", err)
	}
	if err := manager.Close(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки забегов: %v", err)
	}
	if err := submitter.Close(shutdownCtx); err != nil {
		logging.Error("Не все рекорды сохранены: %v", err)
	}
	return nil
}

// openBus выбирает JetStream, если задан URL, иначе шину в памяти
func openBus(cfg config.EventBusConfig) (eventbus.EventBus, func(), error) {
	if cfg.URL == "" {
		mb := eventbus.NewMemoryBus(cfg.Buffer)
		return mb, mb.Close, nil
	}
	jb, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, cfg.RetentionDuration())
	if err != nil {
		return nil, nil, err
	}
	logging.Info("📨 События публикуются в NATS JetStream %s", cfg.URL)
	return jb, func() {
		if err := jb.Close(); err != nil {
			logging.Warn("NATS drain: %v", err)
		}
	}, nil
}

// withCache кеширует чтения таблицы; при NATS кеш сбрасывается на всех узлах
func withCache(store leaderboard.Repository, cfg *config.Config) (leaderboard.Repository, func()) {
	ttl := cfg.Leaderboard.CacheDuration()
	if ttl <= 0 {
		return store, func() {}
	}
	hot, err := cache.NewMemoryCache(ttl)
	if err != nil {
		logging.Warn("⚠️ Кеш таблицы рекордов отключён: %v", err)
		return store, func() {}
	}
	if cfg.EventBus.URL == "" {
		return leaderboard.NewCachedRepository(store, hot, nil), hot.Close
	}

	inv, err := cache.NewNATSInvalidator(cfg.EventBus.URL, "", uuid.NewString())
	if err != nil {
		logging.Warn("⚠️ Инвалидация кеша между узлами недоступна: %v", err)
		return leaderboard.NewCachedRepository(store, hot, nil), hot.Close
	}
	cached := leaderboard.NewCachedRepository(store, hot, inv)
	if err := inv.Subscribe(cached.OnInvalidation); err != nil {
		logging.Warn("⚠️ Подписка на инвалидации: %v", err)
	}
	return cached, func() {
		_ = inv.Close()
		hot.Close()
	}
}

// openLeaderboard: Redis, затем BadgerDB, иначе память процесса
func openLeaderboard(ctx context.Context, cfg config.LeaderboardConfig) (leaderboard.Repository, error) {
	switch {
	case cfg.RedisAddr != "":
		return leaderboard.NewRedisRepository(ctx, leaderboard.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Key:      cfg.Key,
		})
	case cfg.BadgerPath != "":
		return leaderboard.NewBadgerRepository(cfg.BadgerPath)
	default:
		logging.Info("🧠 Таблица рекордов в памяти процесса")
		return leaderboard.NewMemoryRepository(0), nil
	}
}
