package router

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/internal/relay"
)

func logHandlerSummary(ctx context.Context, handlerName string, start time.Time, out relay.Outcome, err error) {
	status, outcome := "ok", "ok"
	switch {
	case err == nil:
	case userFacing(err):
		outcome = "skip"
	default:
		status, outcome = "fail", "fail"
	}

	level := slog.LevelInfo
	if status == "fail" {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", normalizeHandlerName(handlerName)),
		slog.String("outcome", outcome),
		slog.String("result", out.Result),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if out.Notified > 0 || out.NotifyFailed > 0 || out.NotifyUnknown > 0 {
		attrs = append(attrs,
			slog.Int("notified", out.Notified),
			slog.Int("notify_failed", out.NotifyFailed),
			slog.Int("notify_unknown", out.NotifyUnknown),
		)
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
