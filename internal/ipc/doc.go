// Package ipc provides JSON-RPC daemon control over a Unix domain
// socket. The CLI is the only intended client; browser-facing traffic
// goes through the HTTP API instead.
package ipc
