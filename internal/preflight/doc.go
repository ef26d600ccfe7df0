// Package preflight provides readiness checks for the OCR backend and
// the filesystem paths redink depends on.
//
// The CLI "redink status" command uses them to display service health,
// and the daemon runs them once at startup so misconfiguration shows up
// before the first task is claimed.
package preflight
