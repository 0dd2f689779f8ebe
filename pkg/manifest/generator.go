package manifest

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/I0633852860/ultimate-recovery-temp/pkg/db"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/mapreduce"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/storage"
)

// Per-file result statuses.
const (
	StatusSaved     = "saved"
	StatusDuplicate = "duplicate"
	StatusError     = "error"
)

// RunInfo carries the run-level counters into the manifest.
type RunInfo struct {
	RunID            int64
	Image            string
	ImageSize        int64
	Hits             int
	Clusters         int
	CandidateMatches int
}

// FileResult is the outcome of persisting one recovered file.
// This is passed from the carve pipeline to avoid circular dependencies.
type FileResult struct {
	Name       string
	FilePath   string
	Kind       string
	FileType   string
	Offset     uint64
	SizeBytes  int64
	Confidence float64
	Fragments  int
	Links      int
	Language   string
	Title      string
	Duplicate  bool
	Error      error
	WordCounts map[string]int
}

// Build aggregates per-file results into a manifest.
func Build(info RunInfo, results []FileResult, aggregateKeywords map[string]int) SummaryManifest {
	m := SummaryManifest{
		GeneratedAt:       time.Now().Format(time.RFC3339),
		RunID:             info.RunID,
		Image:             info.Image,
		ImageSize:         info.ImageSize,
		Hits:              info.Hits,
		Clusters:          info.Clusters,
		CandidateMatches:  info.CandidateMatches,
		AggregateKeywords: mapreduce.TopKeywords(aggregateKeywords, 25),
		Files:             make([]FileSummary, 0, len(results)),
	}

	for _, r := range results {
		summary := FileSummary{
			Name:       r.Name,
			Kind:       r.Kind,
			FileType:   r.FileType,
			Offset:     r.Offset,
			SizeBytes:  r.SizeBytes,
			Confidence: r.Confidence,
			Fragments:  r.Fragments,
			Links:      r.Links,
			Language:   r.Language,
			Title:      r.Title,
		}

		switch {
		case r.Error != nil:
			m.Failed++
			summary.Status = StatusError
			summary.ErrorMessage = r.Error.Error()
		case r.Duplicate:
			m.Duplicates++
			summary.Status = StatusDuplicate
		default:
			m.Recovered++
			if r.Kind == db.KindAssembled {
				m.Assembled++
			} else {
				m.Single++
			}
			summary.Status = StatusSaved
			summary.FilePath = r.FilePath
			if r.WordCounts != nil {
				summary.TopKeywords = mapreduce.TopKeywords(r.WordCounts, 10)
			}
		}

		m.Files = append(m.Files, summary)
	}

	return m
}

// GenerateSummary builds the manifest and writes it as YAML into s.
// Returns the path to the generated manifest file.
func GenerateSummary(info RunInfo, results []FileResult, aggregateKeywords map[string]int, s *storage.Storage) (string, error) {
	m := Build(info, results, aggregateKeywords)

	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("error marshalling manifest: %w", err)
	}

	path, err := s.SaveFile(fmt.Sprintf("summary-run-%d.yaml", info.RunID), data)
	if err != nil {
		return "", fmt.Errorf("error saving manifest: %w", err)
	}
	return path, nil
}
