// Package services defines shared utilities consumed by the sync engine and
// the remote service clients.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, instance keys, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across components.
//
// Use these helpers when wiring new sync logic so operational behaviour (error
// handling, observability) stays uniform across the engine.
package services
