package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger zerolog.Logger
var logFile *os.File

// Init configures the global zerolog logger. level falls back to info when
// unparseable, format "pretty" selects the console writer, and a non-empty
// filePath mirrors output into that file.
func Init(level, format, filePath string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	if filePath == "" || filePath == "none" || filePath == "disabled" {
		logFile = nil
	} else {
		logFile, err = os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open log file, using stdout only")
			logFile = nil
		}
	}

	var writers []io.Writer
	if format == "pretty" {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		writers = append(writers, os.Stdout)
	}
	if logFile != nil {
		writers = append(writers, logFile)
	}

	Logger = zerolog.New(io.MultiWriter(writers...)).With().
		Timestamp().
		Logger()

	log.Logger = Logger

	if logFile != nil {
		Logger.Info().
			Str("log_file", filePath).
			Str("log_level", parsed.String()).
			Msg("Logger initialized - writing to console and file")
	} else {
		Logger.Info().
			Str("log_level", parsed.String()).
			Msg("Logger initialized - writing to console only")
	}
}

func Close() {
	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
		logFile = nil
	}
}

func GetLogger() zerolog.Logger {
	return Logger
}
