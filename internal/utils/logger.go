package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger from the logging section of the config.
// JSON lines go to stdout unless output is "stderr"; console switches to the
// human-readable writer.
func NewLogger(config *Config) (zerolog.Logger, error) {
	var output io.Writer = os.Stdout
	switch config.Logging.Output {
	case "", "stdout":
	case "stderr":
		output = os.Stderr
	default:
		return zerolog.Nop(), fmt.Errorf("%w: logging.output %q is not one of stdout, stderr", ErrInvalidConfig, config.Logging.Output)
	}

	return newLogger(config, output)
}

func newLogger(config *Config, output io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if config.Logging.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(config.Logging.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
		}
	}

	if config.Logging.Console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}
