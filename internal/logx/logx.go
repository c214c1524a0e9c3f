package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"pyforge/internal/paths"
)

// New creates a logger that writes logfmt lines to a timestamped file inside
// the pyforge logs directory. The returned closer should be closed when
// logging is no longer needed.
func New(home paths.Home, command string) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(home.LogsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := command + "-" + time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(home.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := log.NewWithOptions(file, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.LogfmtFormatter,
	})
	return logger, file, nil
}

// Discard returns a logger that drops everything. Callers use it when the
// file logger cannot be opened so logging stays nil-safe.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
