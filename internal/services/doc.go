// Package services defines shared utilities consumed by the pipeline
// stage handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp task and image IDs, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate
//     failures into consistent task statuses (failed vs review).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the
// pipeline.
package services
