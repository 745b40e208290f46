// Package slog logs dispatch events with log/slog.
package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/fastlane"
)

// NewHandler returns an event handler that writes one record per event to
// logger. Field updates log at Debug; rejections, trigger failures and
// partial failures at Warn; producer and final failures at Error; the
// trigger, all-complete, final completion and cancellation at Info.
func NewHandler(logger *slog.Logger) func(fastlane.Event) {
	return func(e fastlane.Event) {
		level, msg, attrs := describe(e)
		logger.LogAttrs(context.Background(), level, msg,
			append([]slog.Attr{slog.String("event", fastlane.EventName(e))}, attrs...)...)
	}
}

func describe(e fastlane.Event) (slog.Level, string, []slog.Attr) {
	switch ev := e.(type) {
	case fastlane.EventFieldUpdated:
		return slog.LevelDebug, "field updated", []slog.Attr{
			slog.String("field", ev.Field),
			slog.String("phase", ev.Phase.String()),
		}
	case fastlane.EventValidationRejected:
		return slog.LevelWarn, "update rejected", []slog.Attr{
			slog.String("field", ev.Field),
			slog.String("error", ev.Reason),
		}
	case fastlane.EventEarlyTriggerFired:
		return slog.LevelInfo, "early trigger fired", []slog.Attr{
			slog.Duration("elapsed", ev.Elapsed),
			slog.Any("fields", ev.Fields.Names()),
		}
	case fastlane.EventTriggerFailed:
		return slog.LevelWarn, "early trigger failed", errAttr(ev.Err)
	case fastlane.EventAllComplete:
		return slog.LevelInfo, "all fields complete", []slog.Attr{
			slog.Duration("elapsed", ev.Elapsed),
			slog.Int("fields", ev.Fields.Len()),
		}
	case fastlane.EventFinalCompleted:
		return slog.LevelInfo, "final completed", []slog.Attr{
			slog.Duration("elapsed", ev.Elapsed),
			slog.Int("fields", ev.Fields.Len()),
		}
	case fastlane.EventFinalFailed:
		return slog.LevelError, "final callback failed", errAttr(ev.Err)
	case fastlane.EventProducerFailed:
		return slog.LevelError, "producer failed", errAttr(ev.Err)
	case fastlane.EventCancelled:
		return slog.LevelInfo, "session cancelled", errAttr(ev.Err)
	case fastlane.EventPartialFailure:
		return slog.LevelWarn, "stream ended after early trigger", errAttr(ev.Err)
	default:
		return slog.LevelWarn, "unknown event", nil
	}
}

func errAttr(err error) []slog.Attr {
	if err == nil {
		return nil
	}
	return []slog.Attr{slog.String("error", err.Error())}
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, err
	}
	return l, nil
}
