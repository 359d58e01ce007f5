package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// badKey marks a value whose key was missing or not a string, the same way
// log/slog does.
const badKey = "!BADKEY"

// DispatcherLogger writes dispatcher events through zerolog.
type DispatcherLogger struct {
	zl zerolog.Logger
}

func NewDispatcherLogger(zl zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{zl: zl.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, kv ...any) { emit(l.zl.Debug(), msg, kv) }

func (l *DispatcherLogger) Info(msg string, kv ...any) { emit(l.zl.Info(), msg, kv) }

func (l *DispatcherLogger) Error(msg string, kv ...any) { emit(l.zl.Error(), msg, kv) }

// emit appends kv pairs to e. Errors keep their message, a trailing key with
// no value is kept under badKey.
func emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	for len(kv) > 0 {
		key, ok := kv[0].(string)
		if !ok || len(kv) == 1 {
			e = e.Interface(badKey, kv[0])
			kv = kv[1:]
			continue
		}
		switch v := kv[1].(type) {
		case error:
			e = e.AnErr(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		default:
			e = e.Interface(key, v)
		}
		kv = kv[2:]
	}
	e.Msg(msg)
}
