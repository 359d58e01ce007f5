package hostbridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SuiteSpot/extension/internal/dispatcher"
)

const (
	statusOK    = "ok"
	statusError = "error"

	timestampCommand = ":TIMESTAMP:"
)

// Dispatcher is the part of the command router the bridge needs.
type Dispatcher interface {
	HasHandler(command string) bool
	Dispatch(e dispatcher.Event) (any, error)
}

// Bridge turns request lines into dispatcher events and formats the replies.
type Bridge struct {
	d   Dispatcher
	now func() time.Time
}

func NewBridge(d Dispatcher) *Bridge {
	return &Bridge{d: d, now: time.Now}
}

// Handle processes one request line and returns the response line.
//
// Two request forms are accepted:
//
//	:COMMAND:|arg1|arg2
//	[":COMMAND:", "arg1", "arg2"]
func (b *Bridge) Handle(line string) string {
	line = strings.TrimRight(line, "\r\n")
	command, args, err := parseRequest(line)
	if err != nil {
		return FormatResponse(line, nil, err)
	}

	if command == timestampCommand {
		return FormatResponse(command, strconv.FormatInt(b.now().UTC().UnixNano(), 10), nil)
	}

	if b.d == nil || !b.d.HasHandler(command) {
		return FormatResponse(command, nil, fmt.Errorf("no handler registered"))
	}

	result, err := b.d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: b.now(),
	})
	return FormatResponse(command, result, err)
}

func parseRequest(line string) (string, []string, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "[") {
		var parts []string
		if err := json.Unmarshal([]byte(trimmed), &parts); err != nil {
			return "", nil, fmt.Errorf("malformed request: %w", err)
		}
		if len(parts) == 0 || parts[0] == "" {
			return "", nil, fmt.Errorf("malformed request: missing command")
		}
		return parts[0], parts[1:], nil
	}

	parts := strings.Split(trimmed, "|")
	if parts[0] == "" {
		return "", nil, fmt.Errorf("malformed request: missing command")
	}
	return parts[0], parts[1:], nil
}

// FormatResponse renders ["ok", cmd, result] or ["error", cmd, message] as a
// single JSON line. A nil result is omitted.
func FormatResponse(command string, result any, err error) string {
	var reply []any
	switch {
	case err != nil:
		reply = []any{statusError, command, err.Error()}
	case result == nil:
		reply = []any{statusOK, command}
	default:
		reply = []any{statusOK, command, result}
	}

	data, mErr := json.Marshal(reply)
	if mErr != nil {
		data, _ = json.Marshal([]any{statusError, command, fmt.Sprintf("encoding result: %v", mErr)})
	}
	return string(data)
}
