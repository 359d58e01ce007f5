// Package stream publishes map loads, selection changes and post-match
// scoreboards to an overlay server over WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/pkg/core"
	"github.com/SuiteSpot/extension/pkg/streaming"
)

// Feed streams session events to the overlay server.
type Feed struct {
	link *link
	cfg  config.StreamConfig
	log  *slog.Logger
}

func New(cfg config.StreamConfig, log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "stream")
	return &Feed{
		link: newLink(log, cfg.ReconnectDelay, cfg.MaxBackoff),
		cfg:  cfg,
		log:  log,
	}
}

// Start connects and announces the session, waiting for the server's ack.
// A Feed that fails to start is shut down.
func (f *Feed) Start(sessionID, version string) error {
	if err := f.link.open(f.cfg.URL, f.cfg.Secret); err != nil {
		return err
	}

	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{
		SessionID: sessionID,
		Version:   version,
		Started:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	f.link.setHello(data)
	if err := f.link.request(data, streaming.TypeStartSession, ackTimeout); err != nil {
		_ = f.link.shutdown()
		return err
	}
	f.log.Info("Overlay feed connected", "url", f.cfg.URL)
	return nil
}

// Close sends end_session, waits briefly for the ack and disconnects.
func (f *Feed) Close() error {
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err == nil {
		if ackErr := f.link.request(data, streaming.TypeEndSession, ackTimeout); ackErr != nil {
			f.log.Warn("No ack for end_session", "error", ackErr)
		}
	}

	f.link.setHello(nil)
	return f.link.shutdown()
}

func (f *Feed) MapLoaded(_ context.Context, ev core.MapLoadEvent) error {
	return f.sendEnvelope(streaming.TypeMapLoaded, ev)
}

func (f *Feed) QueueScheduled(_ context.Context, ev core.QueueEvent) error {
	return f.sendEnvelope(streaming.TypeQueueScheduled, ev)
}

// PublishSelection reports the current selection after it changes.
func (f *Feed) PublishSelection(sel streaming.SelectionPayload) error {
	return f.sendEnvelope(streaming.TypeSelection, sel)
}

// PublishPostMatch sends the final scoreboard of a match.
func (f *Feed) PublishPostMatch(pm streaming.PostMatchPayload) error {
	return f.sendEnvelope(streaming.TypePostMatch, pm)
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload and pushes it to the write loop.
func (f *Feed) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	f.link.post(data)
	return nil
}
