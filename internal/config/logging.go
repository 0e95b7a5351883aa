package config

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger builds the process logger. An unknown level falls back to info.
func NewLogger(w io.Writer, level, prefix string) *log.Logger {
	lvl, err := log.ParseLevel(Normalize(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}
