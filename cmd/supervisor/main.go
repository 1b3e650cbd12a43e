// Voice supervisor - arbitrates robot subsystem tasks from spoken commands.
// Listens for speech (or manual override codes), classifies each utterance
// against the command table and drives the actuation bus.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yongli3/voice-system/internal/config"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	app, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialization failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = app.Run(ctx)
	cancel()
	app.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags loads the environment configuration and applies flag overrides.
func parseFlags() (*config.Config, error) {
	manual := flag.Bool("manual", false, "Manual control mode: take command codes from the override topic instead of speech")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	commandsFile := flag.String("commands", "", "Command table file (overrides VOICE_COMMANDS_FILE)")
	dashboard := flag.String("dashboard", "", "Dashboard listen address (overrides VOICE_DASHBOARD_ADDR)")
	busBackend := flag.String("bus", "", "Bus backend: redis or memory (overrides VOICE_BUS)")
	envFile := flag.String("env", ".env", "Dotenv file to load if present")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil, err
	}
	if *manual {
		cfg.Mode = "manual"
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if *commandsFile != "" {
		cfg.CommandsFile = *commandsFile
	}
	if *dashboard != "" {
		cfg.DashboardAddr = *dashboard
	}
	if *busBackend != "" {
		cfg.Bus = *busBackend
	}
	return cfg, cfg.Validate()
}
