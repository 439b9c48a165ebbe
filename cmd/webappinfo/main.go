package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"webappinfo/internal/config"
	"webappinfo/internal/docker"
	"webappinfo/internal/extract"
	"webappinfo/internal/icon"
	"webappinfo/internal/install"
	"webappinfo/internal/webapp"
)

const usage = `Usage: webappinfo [flags] <command> [args]

Commands:
  fetch URL...      Print the metadata of each page as YAML
  install URL...    Fetch each page, download its icons and install it
  list              List installed apps
  uninstall ID...   Remove installed apps
  docker            Install every container labelled webapp.enable=true

Flags:
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// Configure slog
	var logLevel slog.Level
	if cfg.Debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Create context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Debug("Configuration", "outputDir", cfg.OutputDir, "timeout", cfg.FetchTimeout, "iconSizes", cfg.IconSizes)

	if err := run(ctx, cfg, args[0], args[1:]); err != nil {
		slog.Error("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string) error {
	client := &http.Client{Timeout: cfg.FetchTimeout}
	extractor := extract.New(extract.WithHTTPClient(client))
	fetcher := icon.NewFetcher(
		icon.WithHTTPClient(client),
		icon.WithCacheTTL(cfg.CacheTTL),
		icon.WithMaxBytes(cfg.MaxIconBytes),
	)

	switch cmd {
	case "fetch":
		for _, u := range args {
			info, err := extractor.Extract(ctx, u)
			if err != nil {
				slog.Error("Failed to extract", "url", u, "error", err)
				continue
			}
			if err := printYAML(info); err != nil {
				return err
			}
		}
		return nil

	case "install":
		installer, err := install.NewInstaller(cfg.OutputDir, nil)
		if err != nil {
			return err
		}
		for _, u := range args {
			info, err := extractor.Extract(ctx, u)
			if err != nil {
				slog.Error("Failed to extract", "url", u, "error", err)
				continue
			}
			if err := installOne(ctx, cfg, fetcher, installer, info); err != nil {
				slog.Error("Failed to install", "url", u, "error", err)
			}
		}
		return nil

	case "docker":
		installer, err := install.NewInstaller(cfg.OutputDir, nil)
		if err != nil {
			return err
		}
		source, err := docker.NewSource(cfg.DockerHost, nil)
		if err != nil {
			return err
		}
		defer source.Close()

		apps, err := source.Discover(ctx)
		if err != nil {
			return err
		}
		slog.Info("Discovered container apps", "count", len(apps))
		for _, info := range apps {
			if err := installOne(ctx, cfg, fetcher, installer, info); err != nil {
				slog.Error("Failed to install", "url", info.AppURL, "error", err)
			}
		}
		return nil

	case "list":
		installer, err := install.NewInstaller(cfg.OutputDir, nil)
		if err != nil {
			return err
		}
		if err := installer.Load(); err != nil {
			return err
		}
		for _, app := range installer.List() {
			fmt.Printf("%-32s %-24s %s\n", app.ID, app.Info.Title, app.Info.AppURL)
		}
		return nil

	case "uninstall":
		installer, err := install.NewInstaller(cfg.OutputDir, nil)
		if err != nil {
			return err
		}
		if err := installer.Load(); err != nil {
			return err
		}
		for _, id := range args {
			if err := installer.Uninstall(id); err != nil {
				return err
			}
		}
		return nil
	}

	flag.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

// installOne downloads icons, adds any missing standard sizes and installs.
func installOne(ctx context.Context, cfg *config.Config, fetcher *icon.Fetcher, installer *install.Installer, info *webapp.WebApplicationInfo) error {
	if err := fetcher.FetchAll(ctx, info); err != nil {
		return err
	}

	generated, err := icon.GenerateSizes(*info, cfg.IconSizes)
	if err != nil {
		slog.Warn("Failed to generate icon sizes", "url", info.AppURL, "error", err)
	}
	for _, ic := range generated {
		info.AddIcon(ic)
	}

	_, err = installer.Install(*info)
	return err
}

func printYAML(info *webapp.WebApplicationInfo) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(info); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
