package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/config"
	"github.com/marmos91/vfinder/pkg/mount"
	"github.com/marmos91/vfinder/pkg/registry"
	"github.com/marmos91/vfinder/pkg/server"
)

const usage = `vfinder - file manager backend for VueFinder

Usage:
  vfinder <command> [flags]

Commands:
  init     Write a sample configuration file
  start    Start the server
  version  Print the version

Run 'vfinder <command> -h' for the flags of a command.
`

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("vfinder %s\n", version)
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration file")
	path := fs.String("config", "", "Where to write the file (default: "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	target := *path
	if target == "" {
		target = config.GetDefaultConfigPath()
	}

	if err := config.InitConfigToPath(target, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", target)
	fmt.Println("Edit it, then run: vfinder start")
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the configuration file (default: "+config.GetDefaultConfigPath()+")")
	seed := fs.Bool("seed", false, "Populate an empty default storage with sample files")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	logger.Info("vfinder %s starting", version)
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := config.InitializeRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Error("Failed to close storages: %v", err)
		}
	}()

	if *seed {
		if err := seedDefaultStorage(ctx, reg); err != nil {
			return fmt.Errorf("failed to seed storage: %w", err)
		}
	}

	handler, err := config.CreateHandler(cfg, reg)
	if err != nil {
		return err
	}

	m := config.InitializeMetrics(cfg)
	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	adapters, err := config.CreateAdapters(cfg, m.ActionMetrics)
	if err != nil {
		return err
	}

	srv := server.New(handler, server.Config{StopTimeout: cfg.Server.ShutdownTimeout})
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// sampleFiles are written by --seed, relative to the storage root.
var sampleFiles = []struct {
	path    string
	content string
}{
	{"readme.txt", "This is a README file.\nWelcome to vfinder!\n"},
	{"notes.txt", "Some notes about this file manager.\nIt's pretty cool!\n"},
	{"documents/todo.md", "# TODO\n\n- upload something\n- try the archive action\n"},
}

// seedDefaultStorage creates the sample structure in the default storage,
// skipping storages that already contain something.
func seedDefaultStorage(ctx context.Context, reg *registry.Registry) error {
	fs := mount.NewManager(reg)
	root := reg.Default() + "://"

	entries, err := fs.ListContents(ctx, root, false)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		logger.Info("Storage %q is not empty, skipping sample files", reg.Default())
		return nil
	}

	for _, dir := range []string{"documents", "images"} {
		if err := fs.CreateDirectory(ctx, root+dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	for _, f := range sampleFiles {
		if err := fs.Write(ctx, root+f.path, []byte(f.content)); err != nil {
			return fmt.Errorf("failed to create %s: %w", f.path, err)
		}
	}
	logger.Info("Sample file structure created in %s", root)
	return nil
}
