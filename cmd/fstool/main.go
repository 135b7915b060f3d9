package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/fstool/internal/bufpool"
	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/config"
	"github.com/marmos91/fstool/pkg/console"
	"github.com/marmos91/fstool/pkg/fileops"
	"github.com/marmos91/fstool/pkg/resolver"
	"github.com/marmos91/fstool/pkg/shell"
	"github.com/marmos91/fstool/pkg/volume"
	flag "github.com/spf13/pflag"
)

const usage = `fstool - interactive file system utility

Usage:
  fstool [flags]          Run the interactive menu
  fstool init [--force]   Write a sample configuration file

Flags:
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		os.Exit(runInit(os.Args[2:]))
	}
	os.Exit(run(os.Args[1:]))
}

// runInit handles the init subcommand.
func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration file")
	configPath := fs.String("config", "", "Write to this path instead of the default location")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := *configPath
	var err error
	if path == "" {
		path, err = config.InitConfig(*force)
	} else {
		err = config.InitConfigToPath(path, *force)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Configuration written to %s\n", path)
	return 0
}

// run starts the interactive utility and returns the process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("fstool", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "Path to config file (default $XDG_CONFIG_HOME/fstool/config.yaml)")
	logLevel := fs.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	bootDevice := fs.String("boot-device", "", "Device the tool was loaded from")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// ========================================================================
	// Step 1: Configuration (flags override file and environment)
	// ========================================================================

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *bootDevice != "" {
		cfg.Boot.ImageDevice = *bootDevice
	}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	// ========================================================================
	// Step 2: Logging
	// ========================================================================

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		return 1
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Step 3: Devices
	// ========================================================================

	devices, err := config.BuildRegistry(ctx, cfg)
	if err != nil {
		logger.Error("Failed to build device registry: %v", err)
		return 1
	}
	defer func() {
		if err := devices.Close(); err != nil {
			logger.Warn("Failed to close devices: %v", err)
		}
	}()
	logger.Info("Devices: %v", devices.Names())

	term, err := console.NewTerminal(os.Stdin, os.Stdout)
	if err != nil {
		logger.Error("Failed to open terminal: %v", err)
		return 1
	}
	defer func() { _ = term.Close() }()

	// ========================================================================
	// Step 4: Root volume
	// ========================================================================

	root, err := resolver.ResolveRoot(ctx, devices, resolver.BootContext{ImageDevice: cfg.Boot.ImageDevice})
	if err != nil {
		logger.Error("Failed to open root volume: %v", err)
		term.Print("Open root failed: %s\n", volume.StatusOf(err))
		term.Print("Press any key to exit...")
		if err := term.WaitForKey(ctx); err == nil {
			_, _ = term.ReadKey()
		}
		term.Print("\n")
		return 1
	}
	defer func() {
		if err := root.Close(); err != nil {
			logger.Warn("Failed to close root volume: %v", err)
		}
	}()

	// ========================================================================
	// Step 5: Interactive menu
	// ========================================================================

	exec, err := fileops.New(root, term, fileops.WithAllocator(bufpool.New(cfg.Limits.MaxBufferBytes)))
	if err != nil {
		logger.Error("Failed to create executor: %v", err)
		return 1
	}

	if err := shell.New(term, exec).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Shell terminated: %v", err)
		return 1
	}

	term.Clear()
	return 0
}
