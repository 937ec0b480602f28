package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-agecam/internal/log"
	"github.com/teslashibe/go-agecam/pkg/config"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	logLevel   string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:     "agecam",
	Short:   "Real-time face detection and age classification",
	Version: Version,
	// Running with no subcommand starts the pipeline.
	RunE:          runPipeline,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Without a flag the level comes from the config file (see run).
		if debugMode {
			logLevel = "debug"
		}
		if logLevel != "" {
			log.Init(logLevel)
		}
	},
}

// Execute runs the root command with a context canceled by SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "agecam:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file (defaults apply when omitted)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&debugMode, "debug", false, "shorthand for --log-level debug")

	addRunFlags(rootCmd)
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}
	cfg.LoadEnv()

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := applyRunFlags(cmd, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Check()
}
