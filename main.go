package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/I0633852860/ultimate-recovery-temp/internal/carve"
	dbcmd "github.com/I0633852860/ultimate-recovery-temp/internal/db"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/db"
)

func main() {
	dbFlag := &cli.StringFlag{
		Name:  "db",
		Value: db.DefaultDBName,
		Usage: "SQLite run catalog",
	}

	app := &cli.App{
		Name:  "carver",
		Usage: "Carve link-bearing files out of raw disk images",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "carve",
				Usage:     "Scan an image, reassemble fragments and save recovered files",
				ArgsUsage: "[image]",
				Flags:     append(carve.Flags(), dbFlag),
				Action:    carve.CarveAction,
			},
			{
				Name:   "runs",
				Usage:  "List recent carve runs",
				Flags:  []cli.Flag{dbFlag, &cli.IntFlag{Name: "limit", Value: 20, Usage: "Number of runs to show"}},
				Action: dbcmd.RunsAction,
			},
			{
				Name:      "files",
				Usage:     "Show the files recovered by a run (latest by default)",
				ArgsUsage: "[run_id]",
				Flags:     []cli.Flag{dbFlag, &cli.BoolFlag{Name: "clusters", Usage: "Also list the run's clusters"}},
				Action:    dbcmd.FilesAction,
			},
			{
				Name:      "extract",
				Usage:     "Print the stored content of a recovered file",
				ArgsUsage: "<file_id>",
				Flags:     []cli.Flag{dbFlag, &cli.StringFlag{Name: "out", Usage: "Write to this path instead of stdout"}},
				Action:    dbcmd.ExtractAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
