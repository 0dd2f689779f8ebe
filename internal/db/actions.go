package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func RunsAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-6s %-20s %-10s %-8s %-9s %-10s %-30s\n",
		"ID", "Started", "Status", "Hits", "Clusters", "Recovered", "Image")
	fmt.Println(strings.Repeat("-", 100))

	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-10s %-8d %-9d %-10d %-30s\n",
			r.RunID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Status,
			r.HitCount,
			r.ClusterCount,
			r.RecoveredCount,
			r.ImagePath,
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'carver files <id>' to list recovered files\n")

	return nil
}

// FilesAction shows a run's clusters and recovered files
func FilesAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}

	run, err := database.GetRun(runID)
	if err != nil {
		return err
	}
	clusters, err := database.ListClusters(runID)
	if err != nil {
		return err
	}
	files, err := database.ListRecoveredFiles(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %d\n", run.RunID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Image:       %s (%d bytes)\n", run.ImagePath, run.ImageSize)
	fmt.Printf("Started:     %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Status:      %s\n", run.Status)
	if run.Error != "" {
		fmt.Printf("Error:       %s\n", run.Error)
	}
	fmt.Printf("Output:      %s\n", run.OutputDir)
	fmt.Printf("Hits:        %d in %d clusters\n", run.HitCount, run.ClusterCount)

	if c.Bool("clusters") && len(clusters) > 0 {
		fmt.Printf("\nClusters (%d):\n", len(clusters))
		fmt.Println(strings.Repeat("-", 60))
		for i, cl := range clusters {
			fmt.Printf("%3d. [%d, %d) density %.2f, %d links\n", i+1, cl.StartOffset, cl.EndOffset, cl.Density, cl.LinkCount)
		}
	}

	fmt.Printf("\nRecovered files (%d):\n", len(files))
	fmt.Println(strings.Repeat("-", 60))
	for _, f := range files {
		fmt.Printf("[#%d] %s\n", f.FileID, f.SuggestedName)
		fmt.Printf("    %s %s at %d | %d bytes | confidence %.1f", f.Kind, f.FileType, f.Offset, f.SizeBytes, f.Confidence)
		if f.Language != "" {
			fmt.Printf(" | %s", f.Language)
		}
		fmt.Println()
		if len(f.FragmentOffsets) > 1 {
			fmt.Printf("    Fragments: %v\n", f.FragmentOffsets)
		}
		if f.Title != "" {
			fmt.Printf("    Title: %s\n", f.Title)
		}
		if len(f.TopKeywords) > 0 {
			fmt.Printf("    Keywords: %s\n", strings.Join(f.TopKeywords, ", "))
		}
	}

	fmt.Printf("\nTip: Use 'carver extract <file_id>' to print a file's content\n")
	return nil
}

// ExtractAction prints, or writes with --out, the stored content of a recovered file
func ExtractAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("file ID required\nUsage: carver extract <file_id> [--out path]")
	}

	var fileID int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &fileID); err != nil {
		return fmt.Errorf("invalid file ID: %s", c.Args().First())
	}

	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	content, err := database.GetRecoveredContent(fileID)
	if err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", len(content), out)
		return nil
	}

	fmt.Print(string(content))
	return nil
}
