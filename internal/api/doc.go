// Package api implements the operations behind the HTTP and IPC
// surfaces: task and image lifecycle, OCR text corrections, annotation
// editing, and stats aggregation. Handlers stay thin; this package owns
// the validation and persistence rules and returns transport-friendly
// DTOs.
package api
