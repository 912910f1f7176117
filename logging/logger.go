package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes zerolog with the specified configuration
func InitLogger(level string, format string) {
	// Set time format
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().
			Timestamp().
			Caller().
			Logger()
	}

	// Add service metadata
	log.Logger = log.With().
		Str("service", "codedeploy-task").
		Logger()
}

// DeployLogger creates a logger for one deployment run
func DeployLogger(runID string) zerolog.Logger {
	return log.With().
		Str("run_id", runID).
		Str("component", "deploy").
		Logger()
}

// AWSLogger creates a logger for AWS API operations
func AWSLogger() zerolog.Logger {
	return log.With().
		Str("component", "aws").
		Logger()
}

// GitHubLogger creates a logger for the GitHub status mirror
func GitHubLogger() zerolog.Logger {
	return log.With().
		Str("component", "github").
		Logger()
}
