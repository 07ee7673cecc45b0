// cmd/popsync/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/andresuchdata/popsync/internal/config"
	"github.com/andresuchdata/popsync/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "popsync",
		Usage: "Mirror public datasets into object storage and report on them",
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			logger.Configure(cfg.Log.Format, cfg.Log.Level)
			if err := cfg.Validate(); err != nil {
				return err
			}
			c.App.Metadata = map[string]interface{}{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Mirror the BLS listing and sync the population document",
				Action: runIngest,
			},
			{
				Name:   "report",
				Usage:  "Summarize the stored population document",
				Action: runReport,
			},
			{
				Name:   "latest",
				Usage:  "Print the most recent stored report summary (needs DATABASE_URL)",
				Action: runLatest,
			},
			{
				Name:  "serve",
				Usage: "Expose ingest and report as HTTP triggers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Usage:   "Port to listen on",
						EnvVars: []string{"SERVER_PORT"},
					},
				},
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("popsync failed")
		os.Exit(1)
	}
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata["config"].(*config.Config); ok {
		return cfg
	}
	return config.Load()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func runIngest(c *cli.Context) error {
	cfg := configFrom(c)
	store, err := newStorage(cfg)
	if err != nil {
		return err
	}

	result, err := newIngestService(cfg, store, newReportCache(cfg)).Run(c.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"ok": true, "result": result})
}

func runReport(c *cli.Context) error {
	cfg := configFrom(c)
	store, err := newStorage(cfg)
	if err != nil {
		return err
	}

	job, closeFn := newReportJob(c.Context, cfg, store, newReportCache(cfg))
	defer closeFn()

	summary, err := job.Run(c.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"ok": true, "summary": summary})
}

func runLatest(c *cli.Context) error {
	cfg := configFrom(c)
	if cfg.Database.URL == "" {
		return fmt.Errorf("latest: DATABASE_URL is not set")
	}

	repo, closeFn, err := newReportRepository(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := repo.LatestSummary(c.Context, cfg.Storage.PopulationKey)
	if err != nil {
		return fmt.Errorf("latest: %w", err)
	}
	return printJSON(summary)
}
