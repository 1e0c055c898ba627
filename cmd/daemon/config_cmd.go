// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/nostalgia/internal/config"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nostalgia config validate [--config|-c config.yaml]")
	fmt.Fprintln(w, "  nostalgia config dump [--config|-c config.yaml] [--format=yaml|json]")
}

// configPathFlag registers --config and its -c shorthand on fs.
func configPathFlag(fs *flag.FlagSet) *string {
	var path string
	fs.StringVar(&path, "config", "", "path to YAML configuration file")
	fs.StringVar(&path, "c", "", "path to YAML configuration file (shorthand)")
	return &path
}

func loadForCLI(path string, stderr io.Writer) (config.AppConfig, string, bool) {
	configPath := strings.TrimSpace(path)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}
	cfg, err := config.NewLoader(configPath, version).Load()
	if err != nil {
		source := configPath
		if source == "" {
			source = "environment"
		}
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", source, err)
		return cfg, configPath, false
	}
	return cfg, configPath, true
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nostalgia config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := configPathFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, configPath, ok := loadForCLI(*path, stderr)
	if !ok {
		return 1
	}
	if configPath == "" {
		fmt.Fprintln(stdout, "✓ environment and defaults are valid")
		return 0
	}
	fmt.Fprintf(stdout, "✓ %s is valid\n", configPath)
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nostalgia config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := configPathFlag(fs)
	var format string
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, ok := loadForCLI(*path, stderr)
	if !ok {
		return 1
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		if err := config.Encode(stdout, cfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}
