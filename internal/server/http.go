// Package server раздаёт забеги по WebSocket и обслуживает HTTP API:
// здоровье процесса, метрики Prometheus, таблицу рекордов и список забегов.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/arena-core/internal/leaderboard"
	"github.com/annel0/arena-core/internal/logging"
	"github.com/annel0/arena-core/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Options конфигурация HTTP сервера
type Options struct {
	Addr           string // ":8088"
	Service        string // имя для метрик и трассировки
	AllowedOrigins []string
	Registry       *prometheus.Registry
	Manager        *Manager
	Leaderboard    leaderboard.Repository
	Submitter      *leaderboard.Submitter // для счётчиков в /healthz, может быть nil
}

// GenericResponse общий формат ответа API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Server HTTP + WebSocket фасад над Manager
type Server struct {
	router   *gin.Engine
	http     *http.Server
	opts     Options
	metrics  *ProcessMetrics
	upgrader websocket.Upgrader
	log      *logging.Logger
}

// New собирает роутер. Метрики HTTP регистрируются в opts.Registry.
func New(opts Options) (*Server, error) {
	if opts.Manager == nil {
		return nil, errors.New("server: manager is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8088"
	}
	if opts.Service == "" {
		opts.Service = "arena"
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.Service))
	router.Use(middleware.NewRequestLogger("/healthz", "/metrics").Handler())

	promMw, err := middleware.NewPrometheusMiddleware(opts.Service, opts.Registry)
	if err != nil {
		return nil, err
	}
	router.Use(promMw.Handler())

	s := &Server{
		router:   router,
		opts:     opts,
		metrics:  NewProcessMetrics(),
		upgrader: newUpgrader(opts.AllowedOrigins),
		log:      logging.GetServerLogger(),
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	middleware.RegisterMetricsEndpoint(s.router, s.opts.Registry)

	api := s.router.Group("/api")
	{
		api.GET("/leaderboard", s.handleLeaderboard)
		api.GET("/runs", s.handleRuns)
		api.POST("/runs", s.handleCreateRun)
	}

	s.router.GET("/ws", s.handleWS)
}

// Handler корневой http.Handler (для тестов и встраивания)
func (s *Server) Handler() http.Handler { return s.router }

// Start блокирует до остановки сервера
func (s *Server) Start() error {
	s.log.Info("🌐 HTTP сервер слушает %s", s.opts.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown мягко останавливает приём соединений
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	data := s.metrics.Snapshot()
	data["runs"] = s.opts.Manager.Count()
	if sub := s.opts.Submitter; sub != nil {
		data["leaderboard"] = gin.H{
			"stored":  sub.Stored(),
			"failed":  sub.Failed(),
			"dropped": sub.Dropped(),
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: data})
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	if s.opts.Leaderboard == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: "leaderboard disabled"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{Message: "limit must be an integer"})
			return
		}
		limit = v
	}

	entries, err := s.opts.Leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("Ошибка чтения таблицы рекордов: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Message: "leaderboard unavailable"})
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: entries})
}

func (s *Server) handleRuns(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: s.opts.Manager.List()})
}

type createRunRequest struct {
	Character string `json:"character"`
}

func (s *Server) handleCreateRun(c *gin.Context) {
	var req createRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный формат запроса"})
			return
		}
	}
	sess, err := s.opts.Manager.Create(req.Character)
	if err != nil {
		c.JSON(statusFor(err), GenericResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Data: sess.Info()})
}

// handleWS подключение к забегу: /ws?run=<id>&character=RUNNER&compress=zstd.
// Без run создаётся новый забег.
func (s *Server) handleWS(c *gin.Context) {
	sess, err := s.opts.Manager.GetOrCreate(c.Query("run"), c.Query("character"))
	if err != nil {
		c.JSON(statusFor(err), GenericResponse{Message: err.Error()})
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws, c.Query("compress") == "zstd")
	if !sess.Join(client) {
		client.Close()
		return
	}
	go client.writePump()
	go client.readPump(sess)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownRun):
		return http.StatusNotFound
	case errors.Is(err, ErrTooManySession), errors.Is(err, ErrManagerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
