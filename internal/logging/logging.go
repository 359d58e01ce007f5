package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const sessionStamp = "20060102_150405"

// LogFilePath names the log file for a session started at sessionStart.
func LogFilePath(logsDir, prefix string, sessionStart time.Time) string {
	return filepath.Join(logsDir, prefix+"."+sessionStart.Format(sessionStamp)+".log")
}

// OpenSessionLog creates logsDir and opens the session log for appending. A
// file left at the same path by an earlier run is kept as <name>.old.
func OpenSessionLog(logsDir, prefix string, sessionStart time.Time) (*os.File, string, error) {
	path := LogFilePath(logsDir, prefix, sessionStart)
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, path, fmt.Errorf("creating logs directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, path, fmt.Errorf("opening log file: %w", err)
	}
	return f, path, nil
}
