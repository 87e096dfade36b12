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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/config"
	"github.com/urfave/cli/v2"
)

const (
	metaConfig    = "config"
	metaLogCloser = "log-closer"
)

// openEngine is replaced in tests.
var openEngine = func(cfg *config.Config, logger *slog.Logger) (*docrag.Engine, error) {
	return docrag.Open(cfg, docrag.WithLogger(logger))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "docrag",
		Usage:    "Multimodal document ingestion and retrieval",
		Metadata: map[string]any{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Dotenv files to read before the environment (default .env)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the configured logging level (debug, info, warn, error)",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Check the configuration and exit",
				Action: validateCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "connect",
						Usage: "Also ping the vector index and probe the embedder",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Upload files and wait until they are indexed",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "User id recorded on the jobs",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-ingest files even when identical content was seen before",
					},
					&cli.DurationFlag{
						Name:  "poll",
						Usage: "How often job progress is refreshed",
						Value: 500 * time.Millisecond,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a retrieval query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "text-limit",
						Usage: "Maximum text results (0 means the configured maximum)",
					},
					&cli.IntFlag{
						Name:  "image-limit",
						Usage: "Maximum image results (0 means the configured maximum)",
					},
					&cli.StringSliceFlag{
						Name:  "source",
						Usage: "Restrict results to these uploaded filenames",
					},
					&cli.BoolFlag{
						Name:  "text-only",
						Usage: "Skip the image collection",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print each search step to stderr",
					},
				},
			},
		},
	}
}

// setup loads the configuration once and installs the process logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), c.StringSlice("env-file")...)
	if err != nil {
		return err
	}
	if level := c.String("log-level"); level != "" {
		if _, err := config.ParseLevel(level); err != nil {
			return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
		}
		cfg.Log.Level = level
	}

	logger, closer := config.SetupLogger(cfg.Log)
	slog.SetDefault(logger)

	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLogCloser] = closer
	return nil
}

func teardown(c *cli.Context) error {
	if closer, ok := c.App.Metadata[metaLogCloser].(func() error); ok {
		return closer()
	}
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata[metaConfig].(*config.Config)
}

func validateCommand(c *cli.Context) error {
	cfg := configFrom(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Bool("connect") {
		engine, err := openEngine(cfg, slog.Default())
		if err != nil {
			return err
		}
		if err := engine.Close(); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.App.Writer, "configuration OK (index %s, embedding %s, dimension %d)\n",
		cfg.Index.Backend, cfg.AI.EmbeddingModel, cfg.AI.EmbeddingDimension)
	return nil
}
