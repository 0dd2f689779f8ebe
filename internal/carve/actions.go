package carve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/I0633852860/ultimate-recovery-temp/models"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/db"
)

// NewLogger builds the JSON stderr logger used by all commands.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads --config and applies every flag the user set on top of it.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("image") {
		cfg.ImagePath = c.String("image")
	} else if c.NArg() > 0 {
		cfg.ImagePath = c.Args().First()
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("candidates") {
		cfg.Candidates = c.String("candidates")
	}
	if c.IsSet("workers") {
		cfg.WorkerCount = c.Int("workers")
	}
	if c.IsSet("max-files") {
		cfg.MaxFiles = c.Int("max-files")
	}
	if c.IsSet("max-clusters") {
		cfg.MaxClusters = c.Int("max-clusters")
	}
	if c.IsSet("max-gap") {
		cfg.Assembly.MaxGap = c.Int64("max-gap")
	}
	if c.IsSet("similarity") {
		cfg.Assembly.SimilarityThreshold = c.Float64("similarity")
	}
	if c.IsSet("clusterer") {
		cfg.Assembly.Clusterer = strings.ToLower(c.String("clusterer"))
	}
	if c.IsSet("chunk-min") {
		cfg.Assembly.ChunkMinKB = c.Int("chunk-min")
	}
	if c.IsSet("chunk-max") {
		cfg.Assembly.ChunkMaxKB = c.Int("chunk-max")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ImagePath == "" {
		return nil, fmt.Errorf("no image provided\nUsage: carver carve --image disk.img [--output-dir recovered]")
	}
	return cfg, nil
}

// CarveAction runs the full pipeline and prints the run result as JSON.
func CarveAction(c *cli.Context) error {
	logger := NewLogger(c)

	cfg, err := LoadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return cli.Exit(err.Error(), 2)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, runErr := Run(ctx, logger, cfg, database)
	if runErr != nil {
		logger.Error("Run failed", "run_id", out.RunID, "error", runErr)
	} else {
		logger.Info("Run finished", "run_id", out.RunID, "recovered", out.Recovered, "seconds", out.TotalTimeSeconds)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))

	if runErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return cli.Exit("interrupted", 130)
		}
		return cli.Exit(runErr.Error(), 2)
	}
	return nil
}
