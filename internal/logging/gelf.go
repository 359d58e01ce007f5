package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELFSink ships JSON-encoded records to a Graylog input over UDP.
type GELFSink struct {
	writer  *gelf.Writer
	handler slog.Handler
}

// NewGELFSink dials addr (host:port) and returns a sink whose Handler can be
// passed to SlogManager.Setup.
func NewGELFSink(addr, facility, level string) (*GELFSink, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to graylog at %s: %w", addr, err)
	}
	if facility != "" {
		w.Facility = facility
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &GELFSink{writer: w, handler: h}, nil
}

func (s *GELFSink) Handler() slog.Handler {
	return s.handler
}

func (s *GELFSink) Close() error {
	return s.writer.Close()
}
