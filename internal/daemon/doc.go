// Package daemon hosts the long-running redink process: the workflow
// manager, the HTTP API, and the single-instance lock. The IPC server
// and the HTTP handlers both drive the daemon through the same methods.
package daemon
