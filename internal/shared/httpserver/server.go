package httpserver

import (
	"context"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) error

type Server struct {
	app    *fiber.App
	checks map[string]HealthCheck
}

var log = logger.GetLogger() // Instancia logger para el pakg

func NewServer(checks map[string]HealthCheck) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "pigeonAuction",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})
	app.Use(recover.New())

	// Middleware de logging
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("remote_addr", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	})

	s := &Server{app: app, checks: checks}
	// Endpoint de health check
	app.Get("/health", s.health)
	return s
}

// App exposes the fiber app so modules can mount their routes
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	results := make(fiber.Map, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = fiber.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	message := "OK"
	if status != fiber.StatusOK {
		message = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    results,
	})
}

// Start blocks serving on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Shutting down HTTP server...")
	return s.app.ShutdownWithContext(ctx)
}
