// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command knowledge runs the knowledge pipeline: the HTTP service plus
// administrative commands for migrations, imports, ingestion, queries and
// project-wide re-embedding.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/knowledge"
	"github.com/poiesic/knowledge/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the CLI. dbOpts are passed to every knowledge.Open call.
func newApp(stdout, stderr io.Writer, dbOpts ...knowledge.DatabaseOption) *cli.App {
	cmds := &commands{dbOpts: dbOpts}
	return &cli.App{
		Name:      "knowledge",
		Usage:     "Retrieval-augmented knowledge pipeline",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML configuration file",
				EnvVars: []string{"KNOWLEDGE_CONFIG"},
			},
		},
		Before:   setupLogger,
		Commands: cmds.list(),
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))
	level, err := config.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the --config file (if any), applies its overlay and
// finalizes it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type commands struct {
	dbOpts []knowledge.DatabaseOption
}

// open loads the configuration and opens the knowledge database.
func (cmds *commands) open(c *cli.Context) (*knowledge.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return cmds.openDatabase(c, cfg)
}

func (cmds *commands) openDatabase(c *cli.Context, cfg *config.Config) (*knowledge.Database, error) {
	opts := append([]knowledge.DatabaseOption{knowledge.WithLogger(slog.Default())}, cmds.dbOpts...)
	db, err := knowledge.Open(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge database: %w", err)
	}
	return db, nil
}
