package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/pkg/logger"
)

// ErrorHandler logs every request, recovers from panics and renders errors
// returned by later handlers through the app's error handler.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		logger.RequestLogger.Info("Incoming request",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
		)

		if err := next(c); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.RequestLogger.Info("Request completed",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return nil
	}
}

func next(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			errMsg := fmt.Sprintf("Recovered from panic: %v", r)
			logger.ErrorLogger.Error(errMsg, zap.String("stack", string(debug.Stack())))
			err = apperr.Internal("Internal server error", fmt.Errorf("panic: %v", r))
		}
	}()
	return c.Next()
}
