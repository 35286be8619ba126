// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the CIE CLI: a set of read-only queries over a
// project's call graph, specs, types, and structs, run against either of
// two interchangeable backends.
//
// Usage:
//
//	cie init                        Create .cie/project.yaml configuration
//	cie migrate                     Bootstrap the configured backend's schema
//	cie [--json] status             Show resolved config and backend reachability
//	cie [--json] search <pattern>   Run a query against the configured backend
package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cie/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .cie/project.yaml (default: ./.cie/project.yaml)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
	)

	// Stop parsing at the first non-flag argument so subcommand-specific
	// flags (e.g. "search foo --limit 10") reach their own FlagSet instead
	// of being rejected here.
	flag.SetInterspersed(false)

	flag.Usage = printUsage

	flag.Parse()

	if *showVersion {
		fmt.Printf("cie version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Verbose: *verbose, Quiet: *quiet}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]
	ctx := context.Background()

	switch command {
	case "init":
		runInit(cmdArgs, *configPath, globals)
	case "migrate":
		runMigrate(ctx, cmdArgs, *configPath, globals)
	case "status":
		runStatus(ctx, cmdArgs, *configPath, globals)
	default:
		if cmd, ok := lookupQueryCommand(command); ok {
			runQuery(ctx, cmd, cmdArgs, *configPath, globals)
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `CIE - Code Intelligence Engine

Queries a project's call graph, specs, types, and struct shapes through
either of two interchangeable backends.

Usage:
  cie <command> [options]

Setup:
  init                   Create .cie/project.yaml configuration
  migrate                Bootstrap the configured backend's schema
  status                 Show resolved config and backend reachability

Queries:
`)
	for _, c := range queryCommands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
	fmt.Fprintf(os.Stderr, `
Global Options:
  --json            Output in JSON format
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output
  -c, --config      Path to .cie/project.yaml
  -V, --version     Show version and exit

Examples:
  cie init --backend cozodb
  cie migrate
  cie search "^handle_" --module MyApp.Controller
  cie --json cycles

For detailed command help: cie <command> --help

`)
}
