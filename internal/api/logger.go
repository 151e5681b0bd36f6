package api

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"dernier-metro/internal/metrics"
)

// NewLogger logs every request with its status and latency and records it in
// mcol, which may be nil.
func NewLogger(mcol *metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		startTime := time.Now()
		err = c.Next()

		msg := "HTTP Request"
		if err != nil {
			msg = err.Error()
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		code := c.Response().StatusCode()
		latency := time.Since(startTime)

		route := c.Route().Path
		if code == fiber.StatusNotFound {
			route = "not_found"
		}
		mcol.ObserveRequest(route, code, latency)

		requestLogger := log.With().
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.OriginalURL()).
			Str("ip", c.IP()).
			Str("latency", latency.String()).
			Str("user-agent", c.Get(fiber.HeaderUserAgent)).
			Logger()

		switch {
		case code >= fiber.StatusBadRequest && code < fiber.StatusInternalServerError:
			requestLogger.Warn().Msg(msg)
		case code >= http.StatusInternalServerError:
			requestLogger.Error().Msg(msg)
		default:
			requestLogger.Info().Msg(msg)
		}

		return nil
	}
}
