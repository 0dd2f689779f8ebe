package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents one carve invocation
type Run struct {
	RunID          int64
	ImagePath      string
	ImageSize      int64
	OutputDir      string
	Status         string
	HitCount       int
	ClusterCount   int
	RecoveredCount int
	Error          string
	StartedAt      time.Time
	FinishedAt     sql.NullTime
}

// RunStats are the counters recorded when a run finishes.
type RunStats struct {
	Hits      int
	Clusters  int
	Recovered int
}

// InsertRun records the start of a run and returns its run_id.
func (db *DB) InsertRun(imagePath string, imageSize int64, outputDir, config string) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (image_path, image_size, output_dir, config, status)
		VALUES (?, ?, ?, ?, ?)
	`, imagePath, imageSize, outputDir, config, RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun stores the final counters and marks the run completed, or failed when runErr
// is non-nil.
func (db *DB) FinishRun(runID int64, stats RunStats, runErr error) error {
	status := RunStatusCompleted
	var errText sql.NullString
	if runErr != nil {
		status = RunStatusFailed
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := db.Exec(`
		UPDATE runs
		SET status = ?, hit_count = ?, cluster_count = ?, recovered_count = ?, error = ?, finished_at = CURRENT_TIMESTAMP
		WHERE run_id = ?
	`, status, stats.Hits, stats.Clusters, stats.Recovered, errText, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

const runColumns = `run_id, image_path, image_size, COALESCE(output_dir, ''), status,
	hit_count, cluster_count, recovered_count, COALESCE(error, ''), started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.RunID, &r.ImagePath, &r.ImageSize, &r.OutputDir, &r.Status,
		&r.HitCount, &r.ClusterCount, &r.RecoveredCount, &r.Error, &r.StartedAt, &r.FinishedAt)
	return r, err
}

// GetRun returns a single run by ID.
func (db *DB) GetRun(runID int64) (*Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertClusters stores ranked clusters for a run in one transaction.
func (db *DB) InsertClusters(runID int64, clusters []models.Cluster) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO clusters (run_id, rank, start_offset, end_offset, density, link_count, links)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cluster insert: %w", err)
	}
	defer stmt.Close()

	for rank, c := range clusters {
		links, err := json.Marshal(c.Links)
		if err != nil {
			return fmt.Errorf("failed to encode cluster links: %w", err)
		}
		if _, err := stmt.Exec(runID, rank, int64(c.StartOffset), int64(c.EndOffset), c.Density, c.LinkCount, string(links)); err != nil {
			return fmt.Errorf("failed to insert cluster: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clusters: %w", err)
	}
	return nil
}

// ListClusters returns a run's clusters in rank order.
func (db *DB) ListClusters(runID int64) ([]models.Cluster, error) {
	rows, err := db.Query(`
		SELECT start_offset, end_offset, density, link_count, COALESCE(links, '[]')
		FROM clusters WHERE run_id = ? ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	defer rows.Close()

	var clusters []models.Cluster
	for rows.Next() {
		var (
			c          models.Cluster
			start, end int64
			links      string
		)
		if err := rows.Scan(&start, &end, &c.Density, &c.LinkCount, &links); err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		c.StartOffset, c.EndOffset = uint64(start), uint64(end)
		if err := json.Unmarshal([]byte(links), &c.Links); err != nil {
			return nil, fmt.Errorf("failed to decode cluster links: %w", err)
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// InsertCandidateMatches stores the metadata candidates that overlapped fragments.
func (db *DB) InsertCandidateMatches(runID int64, analysis models.CandidateAnalysis) error {
	for _, m := range analysis.FragmentedFiles {
		_, err := db.Exec(`
			INSERT INTO candidate_matches (run_id, byte_offset, size_bytes, filename, fragment_count)
			VALUES (?, ?, ?, ?, ?)
		`, runID, int64(m.Candidate.Offset), int64(m.Candidate.Size), m.Candidate.Filename, len(m.LinkedFragments))
		if err != nil {
			return fmt.Errorf("failed to insert candidate match: %w", err)
		}
	}
	return nil
}

// CountCandidateMatches returns the number of stored candidate matches for a run.
func (db *DB) CountCandidateMatches(runID int64) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM candidate_matches WHERE run_id = ?", runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count candidate matches: %w", err)
	}
	return count, nil
}
