// Package logging builds the zerolog logger used for diagnostics. Report
// output does not go through it.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a console logger writing to w at the named level. An empty
// level means info. Color is only used when w is a terminal.
func New(level string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if name := strings.TrimSpace(level); name != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(name))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FailureLogger logs every failed request at warn level.
type FailureLogger struct {
	logger zerolog.Logger
}

func NewFailureLogger(logger zerolog.Logger) *FailureLogger {
	return &FailureLogger{logger: logger}
}

func (l *FailureLogger) LogFailure(method, target string, status int, err error) {
	ev := l.logger.Warn().
		Str("method", method).
		Str("url", target)
	if status > 0 {
		ev = ev.Int("status", status)
	}
	ev.Err(err).Msg("request failed")
}
