package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"dernier-metro/internal/metrics"
	"dernier-metro/internal/schedule"
)

// Server exposes the projector over HTTP.
type Server struct {
	app       *fiber.App
	projector *schedule.Projector
	line      string
	metrics   *metrics.Collector
	now       func() time.Time
}

// New wires the routes. mcol may be nil.
func New(projector *schedule.Projector, line string, mcol *metrics.Collector) *Server {
	s := &Server{
		projector: projector,
		line:      line,
		metrics:   mcol,
		now:       time.Now,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "dernier-metro",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(NewLogger(mcol))
	s.app.Get("/health", health)
	s.app.Get("/next-metro", s.nextMetro)
	s.app.Use(notFound)
	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.ShutdownWithContext(ctx) }

func health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not Found"})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
