// Package logging sets up the hclog loggers used across the console.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// New creates a logger with the console's standard settings. Setting
// ROVER_JSON_LOG=1 switches to JSON output and ROVER_LOG_LEVEL overrides
// level.
func New(name, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}
	if env := os.Getenv("ROVER_LOG_LEVEL"); env != "" {
		level = env
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv("ROVER_JSON_LOG") == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05.000Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// OpenFile opens path for appending log lines.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
