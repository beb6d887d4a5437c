package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/pkg/api"
)

// ErrorHandler renders any error attached by a handler as an RFC 9457
// problem body. Handlers call c.Error(...) and return; nothing writes an
// error response directly.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var problem *api.Problem
		if !errors.As(err, &problem) {
			problem = api.FromDomain(err)
		}

		if problem.Log != nil {
			logger.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(problem.Log),
			)
		}

		c.JSON(problem.Status, problem)
		c.Abort()
	}
}
