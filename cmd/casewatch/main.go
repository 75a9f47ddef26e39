// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/wingedpig/casewatch/internal/app"
	"github.com/wingedpig/casewatch/internal/config"
)

var (
	version = "0.9"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var (
		configPath  string
		host        string
		port        int
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("casewatch %s\n", version)
		os.Exit(0)
	}

	if configPath == "" {
		found, err := config.NewLoader().FindConfig()
		if err != nil {
			log.Fatalf("Error: %v (run \"casewatch init\" to create one)", err)
		}
		configPath = found
	}

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		Debug:      debug,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// runInit handles the "casewatch init" command
func runInit(args []string, in io.Reader, out io.Writer) error {
	initFlags := flag.NewFlagSet("init", flag.ContinueOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	configFile := initFlags.String("o", "casewatch.hjson", "File to write")
	if err := initFlags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		fmt.Fprintln(out, `Usage: casewatch init [options]

Create a new casewatch.hjson configuration file in the current directory.

Options:
  -o <file>    File to write (default: casewatch.hjson)
  -h, -help    Show this help message

The command will ask about:
  - Your contact address (owner of your own case)
  - Narrative language (en, es, pt)
  - Server port (defaults to 1040)
  - Postgres connection string (empty for an in-memory demo)
  - Local cache backend (file, sqlite, redis)`)
		return nil
	}

	if _, err := os.Stat(*configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", *configFile)
	}

	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "casewatch Configuration Setup")
	fmt.Fprintln(out, "=============================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Enter to accept defaults shown in [brackets].")
	fmt.Fprintln(out)

	opts := config.StarterOptions{}
	opts.Contact = prompt(reader, out, "Your contact (email or phone)", "")
	opts.Locale = prompt(reader, out, "Language for summaries (en/es/pt)", "en")

	portStr := prompt(reader, out, "Server port", "1040")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		port = 1040
	}
	opts.Port = port

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Cases are shared through a Postgres database. Leave empty to try casewatch in memory.")
	opts.DSN = prompt(reader, out, "Postgres DSN", "")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "The local cache keeps your dashboard working while the database is unreachable.")
	opts.Cache = strings.ToLower(prompt(reader, out, "Cache backend (file/sqlite/redis)", "file"))
	switch opts.Cache {
	case "file", "sqlite", "redis":
	default:
		opts.Cache = "file"
	}

	if err := os.WriteFile(*configFile, []byte(config.StarterConfig(opts)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created %s\n", *configFile)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Review and edit %s as needed\n", *configFile)
	fmt.Fprintln(out, "  2. Run: ./casewatch")
	fmt.Fprintln(out, "  3. Open: http://localhost:"+strconv.Itoa(port)+"/api/v1/stats")
	fmt.Fprintln(out)

	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
