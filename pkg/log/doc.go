/*
Package log provides structured logging for the ReifyDB core using
zerolog.

The log package wraps zerolog to provide JSON or console output, a
global logger initialized once at startup, and component-scoped child
loggers so every subsystem (store, catalog, txn, cdc, flow) tags its
log lines without threading a logger through every call.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	storeLog := log.WithComponent("store")
	storeLog.Info().Msg("opened bolt store")

	txLog := log.WithComponent("txn").With().Uint64("tx_id", uint64(tx)).Logger()
	txLog.Warn().Msg("serialization conflict, retrying")

# Integration Points

  - pkg/store: backend open/close, commit failures
  - pkg/txn: commit outcomes, conflicts, retries
  - pkg/cdc: consumer registration, broadcast drops
  - pkg/flow: dispatcher reconcile passes, operator panics
  - pkg/engine: startup and shutdown sequencing

# Design Patterns

Global Logger Pattern:
  - a single package-level Logger, initialized once via Init
  - component loggers derive from it via With().Str("component", ...)

Structured Logging Pattern:
  - typed fields (.Str, .Uint64, .Err) instead of string interpolation,
    so log lines stay machine-parseable under JSON output
*/
package log
