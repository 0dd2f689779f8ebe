package carve

import (
	"github.com/urfave/cli/v2"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

// Flags returns the options of the carve command. Defaults shown in help come from
// models.DefaultConfig; only flags the user sets override the config file.
func Flags() []cli.Flag {
	def := models.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
		},
		&cli.StringFlag{
			Name:    "image",
			Aliases: []string{"i"},
			Usage:   "Raw disk image to carve",
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Value:   def.OutputDir,
			Usage:   "Directory for recovered files",
		},
		&cli.StringFlag{
			Name:  "candidates",
			Usage: "YAML list of filesystem-metadata candidates (offset, size, filename)",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Value:   def.WorkerCount,
			Usage:   "Number of concurrent workers",
		},
		&cli.IntFlag{
			Name:  "max-files",
			Usage: "Stop after saving this many files (0 = no limit)",
		},
		&cli.IntFlag{
			Name:  "max-clusters",
			Usage: "Only read the top N clusters (0 = all)",
		},
		&cli.Int64Flag{
			Name:  "max-gap",
			Value: def.Assembly.MaxGap,
			Usage: "Largest gap in bytes between consecutive fragments of one file",
		},
		&cli.Float64Flag{
			Name:  "similarity",
			Value: def.Assembly.SimilarityThreshold,
			Usage: "Link Jaccard threshold for grouping fragments",
		},
		&cli.StringFlag{
			Name:  "clusterer",
			Value: def.Assembly.Clusterer,
			Usage: "Fine clusterer for large pools: none, stream or affinity",
		},
		&cli.IntFlag{
			Name:  "chunk-min",
			Value: def.Assembly.ChunkMinKB,
			Usage: "Single-window minimum chunk in KB",
		},
		&cli.IntFlag{
			Name:  "chunk-max",
			Value: def.Assembly.ChunkMaxKB,
			Usage: "Single-window maximum chunk in KB",
		},
	}
}
