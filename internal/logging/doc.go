// Package logging provides structured logging for ecofan.
//
// This package wraps a zap logger with package-level helpers. Long-lived
// components (the fan entity, the setup prober, the platform) do not call the
// helpers directly; they receive a *zap.Logger at construction time, usually
// obtained from Named:
//
//	entity := fan.New(entry, client, fan.WithLogger(logging.Named("fan")))
//
// # Log Levels
//
//   - Debug: wire payloads, poll ticks
//   - Info: entries created, server start/stop
//   - Warn: device unreachable (network failures)
//   - Error: unparseable device responses, unexpected failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// CLI commands call InitializeFromEnv, which stays silent unless
// ECOFAN_LOG_LEVEL is set.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
