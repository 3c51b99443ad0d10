package middleware

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/metrics"
	tghelpers "github.com/m3rciful/relaybot/core/telegram/helpers"
)

// UpdateMetricsMiddleware counts received updates by payload kind.
func UpdateMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		metrics.IncUpdate(tghelpers.PayloadKind(c))
		return next(c)
	}
}
