// Package logging provides structured logging for the live bus.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. Channel
// delivery, coordinator ticks, and conflict resolution all emit through the
// same [Logger] so that a single log file tells the whole story of a live
// event.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (channel ID, event ID, region)
//   - Log rotation with configurable size limits
//   - Log aggregation and filtering utilities
//   - Export to JSON, text, or CSV formats
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for a log directory:
//
//	logger, err := logging.NewLogger("/var/log/livebus", "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	chLogger := logger.WithChannel("events.competition")
//	evLogger := chLogger.WithEvent("evt-1756512000-412-7")
//	regLogger := evLogger.WithRegion("eu-west")
//
//	// All logs from regLogger include channel_id, event_id, and region
//	regLogger.Info("contribution applied", "amount", 250)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"contribution applied","channel_id":"events.competition","event_id":"evt-1756512000-412-7","region":"eu-west","amount":250}
//
// # Log Rotation
//
// The bus runs for the full duration of a live season, so rotation keeps the
// log file bounded:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10, // Rotate when file exceeds 10MB
//	    MaxBackups: 3,  // Keep 3 backup files
//	}
//
// Rotated files are named livebus.log.1, livebus.log.2, etc., where .1 is
// the most recent backup.
//
// # Aggregation and Export
//
// After a live event, [AggregateLogs] parses the log file back into
// [LogEntry] values, [FilterLogs] narrows them by level, channel, event,
// region, or time range, and [ExportLogEntries] writes the result as JSON,
// text, or CSV for offline analysis.
package logging
