package telegram

import (
	"github.com/m3rciful/relaybot/core/telegram/middleware"
)

// DefaultMiddlewares builds the global middleware chain, outermost first.
func DefaultMiddlewares() []Middleware {
	return []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.UpdateMetricsMiddleware},
	}
}
