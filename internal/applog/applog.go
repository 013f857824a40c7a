// Package applog provides the process-wide structured logger for the
// routing dispatch core, one component sub-logger per concern (facade,
// gate, dispatch, loader) so log lines can be filtered per subsystem
// without grepping message text.
package applog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the global base logger, set up by Initialize. It defaults to
// a stderr JSON logger so packages that log before main calls
// Initialize (tests, mainly) still have a valid writer.
var Log = zerolog.New(os.Stderr).With().Timestamp().Str("service", "routingd").Logger()

// Initialize configures the global logger. level is a zerolog level
// name ("debug", "info", ...); pretty selects human-readable console
// output over JSON (JSON is the production default).
func Initialize(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Log = log.With().Str("service", "routingd").Logger()
	Log.Info().Str("level", logLevel.String()).Bool("pretty", pretty).Msg("logger initialized")
}

// Facade returns the sub-logger for dataset facade events (attach,
// reload, unmap).
func Facade() *zerolog.Logger {
	l := Log.With().Str("component", "facade").Logger()
	return &l
}

// Gate returns the sub-logger for query gate events (enter/leave,
// drain waits).
func Gate() *zerolog.Logger {
	l := Log.With().Str("component", "gate").Logger()
	return &l
}

// Dispatch returns the sub-logger for the plugin dispatcher.
func Dispatch() *zerolog.Logger {
	l := Log.With().Str("component", "dispatch").Logger()
	return &l
}

// Loader returns the sub-logger for the dataset loader/swap protocol.
func Loader() *zerolog.Logger {
	l := Log.With().Str("component", "loader").Logger()
	return &l
}

// Metrics returns the sub-logger for Prometheus registration/scrape
// events.
func Metrics() *zerolog.Logger {
	l := Log.With().Str("component", "metrics").Logger()
	return &l
}

// Events returns the sub-logger for the best-effort NATS lifecycle
// event publisher.
func Events() *zerolog.Logger {
	l := Log.With().Str("component", "events").Logger()
	return &l
}
