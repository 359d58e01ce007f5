package streaming

import (
	"encoding/json"
	"time"

	"github.com/SuiteSpot/extension/pkg/core"
)

// Message type constants matching the overlay feed protocol.
const (
	TypeStartSession   = "start_session"
	TypeEndSession     = "end_session"
	TypeMapLoaded      = "map_loaded"
	TypeQueueScheduled = "queue_scheduled"
	TypeSelection      = "selection"
	TypePostMatch      = "post_match"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload identifies the plugin session. It is replayed after
// every reconnect.
type StartSessionPayload struct {
	SessionID string    `json:"sessionId"`
	Version   string    `json:"version,omitempty"`
	Started   time.Time `json:"started"`
}

// SelectionPayload reports the currently selected map of each type.
type SelectionPayload struct {
	MapType  core.MapType `json:"mapType"`
	Freeplay string       `json:"freeplay,omitempty"`
	Training string       `json:"training,omitempty"`
	Workshop string       `json:"workshop,omitempty"`
	BagSize  int          `json:"bagSize"`
}

// PostMatchPayload carries the final scoreboard and the overlay layout the
// server should draw it with.
type PostMatchPayload struct {
	Match   core.PostMatch `json:"match"`
	Overlay OverlayLayout  `json:"overlay"`
}

// OverlayLayout sizes and colours the post-match overlay. Hues are degrees.
type OverlayLayout struct {
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Alpha     float64       `json:"alpha"`
	Duration  time.Duration `json:"duration"`
	BlueHue   float64       `json:"blueHue"`
	OrangeHue float64       `json:"orangeHue"`
}
