package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Fanout writes every record to each enabled handler. A failing handler does
// not stop the others; all failures are returned together.
type Fanout struct {
	handlers []slog.Handler
}

// NewFanout drops nil handlers.
func NewFanout(handlers ...slog.Handler) *Fanout {
	f := &Fanout{handlers: make([]slog.Handler, 0, len(handlers))}
	for _, h := range handlers {
		if h != nil {
			f.handlers = append(f.handlers, h)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) each(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{handlers: make([]slog.Handler, len(f.handlers))}
	for i, h := range f.handlers {
		out.handlers[i] = fn(h)
	}
	return out
}

// ContextProvider returns attributes evaluated at log time, such as the
// session id and the active map type.
type ContextProvider func() []slog.Attr

// ContextHandler appends the provider's attributes to every record. Empty
// string values are left out.
type ContextHandler struct {
	slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{Handler: inner, provider: provider}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		for _, a := range h.provider() {
			if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
				continue
			}
			r.AddAttrs(a)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{Handler: h.Handler.WithGroup(name), provider: h.provider}
}
