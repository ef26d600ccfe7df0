// Command redink is the CLI for the redink grading daemon. It manages
// tasks and page images, controls the daemon over its unix socket, and
// offers an offline compare mode for diffing text files.
package main
