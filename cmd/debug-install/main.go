package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"webappinfo/internal/icon"
	"webappinfo/internal/install"
	"webappinfo/internal/webapp"
)

func main() {
	outputDir := flag.String("output", "./debug-output", "Output directory for installed apps")
	flag.Parse()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler))

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	info := &webapp.WebApplicationInfo{
		Title:  "Test App",
		AppURL: "http://localhost:8080/",
	}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			fmt.Printf("Invalid argument: %s (expected key=value)\n", arg)
			continue
		}
		if err := applyArg(info, key, value); err != nil {
			fmt.Printf("Invalid argument %s: %v\n", arg, err)
		}
	}

	fmt.Println("=== Web Application ===")
	fmt.Printf("Title:        %s\n", info.Title)
	fmt.Printf("Description:  %s\n", info.Description)
	fmt.Printf("AppURL:       %s\n", info.AppURL)
	fmt.Printf("Bookmark:     %t\n", info.IsBookmarkApp)
	fmt.Printf("Offline:      %t\n", info.IsOfflineEnabled)
	for i, ic := range info.Icons {
		fmt.Printf("Icon %d:       %s (%dx%d, %d bytes)\n", i, ic.URL, ic.Width, ic.Height, len(ic.Data))
	}
	fmt.Printf("Output:       %s\n", *outputDir)
	fmt.Println()

	installer, err := install.NewInstaller(*outputDir, nil)
	if err != nil {
		slog.Error("Failed to create installer", "error", err)
		os.Exit(1)
	}

	app, err := installer.Install(*info)
	if err != nil {
		slog.Error("Failed to install app", "error", err)
		os.Exit(1)
	}

	fmt.Println("=== Installed Files ===")
	printTree(app.Dir, "")
	fmt.Println()
	fmt.Printf("App directory: %s\n", app.Dir)
}

func printUsage() {
	fmt.Println("Debug Install - Install a web application described by key=value pairs")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  debug-install [flags] key=value [key=value ...]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -output string   Output directory (default \"./debug-output\")")
	fmt.Println()
	fmt.Println("Supported keys:")
	fmt.Println("  title          - Application title")
	fmt.Println("  desc           - Description")
	fmt.Println("  url            - Application URL (http or https)")
	fmt.Println("  bookmark       - true or false")
	fmt.Println("  offline        - true or false")
	fmt.Println("  icon           - Local image file (PNG, JPEG, GIF, BMP, WebP, ICO); repeatable")
	fmt.Println()
	fmt.Println("Example:")
	fmt.Println("  debug-install title=\"Nginx\" url=http://localhost:80/ icon=./favicon.ico")
}

func applyArg(info *webapp.WebApplicationInfo, key, value string) error {
	switch key {
	case "title":
		info.Title = value
	case "desc":
		info.Description = value
	case "url":
		info.AppURL = value
	case "bookmark", "offline":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		if key == "bookmark" {
			info.IsBookmarkApp = b
		} else {
			info.IsOfflineEnabled = b
		}
	case "icon":
		data, err := os.ReadFile(value)
		if err != nil {
			return err
		}
		frames, err := icon.Frames(webapp.IconInfo{URL: "file://" + value, Data: data})
		if err != nil {
			return err
		}
		for _, ic := range frames {
			if err := icon.Fill(&ic); err != nil {
				return err
			}
			info.AddIcon(ic)
		}
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func printTree(path string, prefix string) {
	entries, _ := os.ReadDir(path)
	for i, entry := range entries {
		connector := "├── "
		if i == len(entries)-1 {
			connector = "└── "
		}
		fmt.Printf("%s%s%s\n", prefix, connector, entry.Name())
		if entry.IsDir() {
			newPrefix := prefix + "│   "
			if i == len(entries)-1 {
				newPrefix = prefix + "    "
			}
			printTree(path+"/"+entry.Name(), newPrefix)
		}
	}
}
