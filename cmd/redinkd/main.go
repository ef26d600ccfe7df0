// Command redinkd runs the grading daemon in the foreground. It is the
// standalone equivalent of the hidden `redink daemon` subcommand and is
// what service managers should invoke.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"redink/internal/config"
	"redink/internal/daemonrun"
)

func main() {
	var configPath string
	var logLevel string
	var development bool
	flag.StringVar(&configPath, "config", "", "Configuration file path")
	flag.StringVar(&logLevel, "log-level", "", "Override configured log level")
	flag.BoolVar(&development, "dev", false, "Enable development logger output")
	flag.Parse()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	level := strings.TrimSpace(logLevel)
	if level == "" {
		level = cfg.Logging.Level
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    level,
		Development: development,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "redinkd: %v\n", err)
		os.Exit(1)
	}
}
