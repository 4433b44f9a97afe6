package logging

import (
	"io"
	"os"

	"github.com/Somebody914/Wager-Bot/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var writer io.Writer = os.Stdout

// Init configures the global logger. When cfg.FilePath is set, output goes
// to a size-capped file instead of stdout.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	writer = os.Stdout
	if cfg.FilePath != "" {
		if w, err := newSizeLimitedWriter(cfg.FilePath, cfg.FileMaxMB); err == nil {
			writer = w
		}
	}

	output := writer
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleN > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleN)})
	}
	log.Logger = logger
}

// Writer exposes the raw log sink so the HTTP request logger can share it.
func Writer() io.Writer {
	return writer
}
