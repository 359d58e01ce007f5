// pkg/core/events.go
package core

import "time"

// MapLoadEvent describes one map load scheduled through the host.
type MapLoadEvent struct {
	Type     MapType       `json:"type"`
	Code     string        `json:"code"`
	Name     string        `json:"name"`
	Command  string        `json:"command"`
	Delay    time.Duration `json:"delay"`
	Shuffled bool          `json:"shuffled"`
	Time     time.Time     `json:"time"`
}

// QueueEvent describes an auto-queue request scheduled after a map load.
type QueueEvent struct {
	Delay time.Duration `json:"delay"`
	Time  time.Time     `json:"time"`
}
