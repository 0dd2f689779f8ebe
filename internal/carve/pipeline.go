package carve

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/I0633852860/ultimate-recovery-temp/models"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/analytics"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/assembler"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/cluster"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/db"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/detector"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/manifest"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/mapreduce"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/reconstructor"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/scanner"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/storage"
)

const (
	kb = 1024
	// maxWindowEntropy in bits per byte; windows above it hold compressed or encrypted data.
	maxWindowEntropy = 7.5
)

// recovered is one accepted reconstruction on its way to the sink.
type recovered struct {
	kind       string
	offset     uint64
	cleaned    string
	fileType   models.FileType
	confidence float64
	name       string
	links      []string
	fragments  []uint64
}

type windowJob struct {
	index   int
	cluster models.Cluster
}

type windowResult struct {
	index int
	file  *models.ReconstructedFile
	err   error
}

// Run carves cfg.ImagePath and records the run in database. The returned Output is
// populated even when err is non-nil, as far as the run got.
func Run(ctx context.Context, logger *slog.Logger, cfg *models.Config, database *db.DB) (*Output, error) {
	startTime := time.Now()
	out := &Output{Status: StatusFailed}

	img, err := storage.OpenImage(cfg.ImagePath)
	if err != nil {
		return out, err
	}
	defer img.Close()

	store, err := storage.New(cfg.OutputDir)
	if err != nil {
		return out, err
	}

	configYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return out, fmt.Errorf("failed to encode config: %w", err)
	}
	runID, err := database.InsertRun(cfg.ImagePath, img.Size(), cfg.OutputDir, string(configYAML))
	if err != nil {
		return out, err
	}
	out.RunID = runID
	out.ImageSize = img.Size()
	logger.Info("Run started", "run_id", runID, "image", cfg.ImagePath, "size", img.Size())

	runErr := carve(ctx, logger, cfg, database, img, store, out)

	stats := db.RunStats{Hits: out.Hits, Clusters: out.Clusters, Recovered: out.Recovered}
	if err := database.FinishRun(runID, stats, runErr); err != nil {
		logger.Error("Failed to finish run", "run_id", runID, "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	out.TotalTimeSeconds = time.Since(startTime).Seconds()
	if runErr == nil {
		out.Status = StatusCompleted
	}
	return out, runErr
}

func carve(ctx context.Context, logger *slog.Logger, cfg *models.Config, database *db.DB, img *storage.Image, store *storage.Storage, out *Output) error {
	logger.Info("Starting scan phase", "chunk_mb", cfg.Scan.ChunkSizeMB, "overlap_kb", cfg.Scan.OverlapKB)
	hits, err := scanner.Scan(ctx, img, img.Size(), scanner.Options{
		ChunkSize: cfg.Scan.ChunkSizeMB * kb * kb,
		Overlap:   cfg.Scan.OverlapKB * kb,
	})
	if err != nil {
		return fmt.Errorf("failed to scan image: %w", err)
	}
	out.Hits = len(hits)

	clusters := cluster.NewAnalyzer(cfg.Cluster.Window, cfg.Cluster.MinDensity).Analyze(hits)
	out.Clusters = len(clusters)
	logger.Info("Clustering finished", "hits", len(hits), "clusters", len(clusters))
	if err := database.InsertClusters(out.RunID, clusters); err != nil {
		return err
	}
	if cfg.MaxClusters > 0 && len(clusters) > cfg.MaxClusters {
		clusters = clusters[:cfg.MaxClusters]
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := readWindows(img, clusters, cfg.Cluster.PaddingKB*kb)
	if err != nil {
		return err
	}

	singles := reconstructWindows(ctx, logger, img, clusters, cfg)
	if err := ctx.Err(); err != nil {
		return err
	}

	if cfg.Candidates != "" {
		matchCandidates(logger, cfg.Candidates, records, database, out)
	}

	asm := assembler.New(logger, assembler.Options{
		MaxGap:              cfg.Assembly.MaxGap,
		SimilarityThreshold: cfg.Assembly.SimilarityThreshold,
		Workers:             cfg.WorkerCount,
		LargePoolSize:       cfg.Assembly.LargePoolSize,
		NewClusterer:        clustererFactory(cfg.Assembly),
	})
	logger.Info("Starting assembly phase", "records", len(records), "clusterer", cfg.Assembly.Clusterer)
	assembled := asm.ProcessPool(records)
	logger.Info("Assembly finished", "assembled", len(assembled), "single", len(singles))

	var queue []recovered
	for _, f := range assembled {
		queue = append(queue, fromAssembled(f))
	}
	for _, f := range singles {
		queue = append(queue, fromSingle(f))
	}

	return sink(ctx, logger, cfg, database, store, queue, out)
}

// readWindows reads each cluster with padding on both sides as a fragment record. The
// padding is cut back to the zero blocks bracketing the cluster, and trailing NUL bytes
// are dropped.
func readWindows(img *storage.Image, clusters []models.Cluster, padding int) ([]models.FragmentRecord, error) {
	records := make([]models.FragmentRecord, 0, len(clusters))
	for _, c := range clusters {
		start := c.StartOffset - min(c.StartOffset, uint64(padding))
		length := int(c.EndOffset-start) + padding
		data, err := img.ReadWindow(start, length)
		if err != nil {
			return nil, fmt.Errorf("failed to read cluster window: %w", err)
		}

		skip := leadingBoundary(data, c.StartOffset-start)
		tail := min(max(int(c.EndOffset-start), skip), len(data))
		end := tail + reconstructor.DetectBoundary(data[tail:], true)
		data = bytes.TrimRight(data[skip:end], "\x00")
		if len(data) == 0 {
			continue
		}
		records = append(records, models.FragmentRecord{
			Offset:   start + uint64(skip),
			Data:     data,
			FileType: reconstructor.DetectFileType(data),
		})
	}
	return records, nil
}

// leadingBoundary returns the index just past the last zero block in the first lead
// bytes of data.
func leadingBoundary(data []byte, lead uint64) int {
	n := int(min(lead, uint64(len(data))))
	return reconstructor.DetectBoundary(data[:n], false)
}

// reconstructWindows validates each cluster as a single contiguous file, in parallel.
// Results keep cluster rank order; windows that fail to read are logged and skipped.
func reconstructWindows(ctx context.Context, logger *slog.Logger, img *storage.Image, clusters []models.Cluster, cfg *models.Config) []models.ReconstructedFile {
	var wg sync.WaitGroup
	jobs := make(chan windowJob, len(clusters))
	results := make(chan windowResult, len(clusters))

	for w := 1; w <= cfg.WorkerCount; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					results <- windowResult{index: job.index, err: ctx.Err()}
					continue
				}
				file, err := reconstructWindow(img, job.cluster, cfg)
				if err != nil {
					logger.Error("Error reading cluster window", "worker_id", id, "offset", job.cluster.StartOffset, "error", err)
				}
				results <- windowResult{index: job.index, file: file, err: err}
			}
		}(w)
	}

	for i, c := range clusters {
		jobs <- windowJob{index: i, cluster: c}
	}
	close(jobs)

	wg.Wait()
	close(results)

	ordered := make([]*models.ReconstructedFile, len(clusters))
	for r := range results {
		if r.err == nil {
			ordered[r.index] = r.file
		}
	}

	var files []models.ReconstructedFile
	for _, f := range ordered {
		if f != nil {
			files = append(files, *f)
		}
	}
	return files
}

// reconstructWindow reads up to ChunkMaxKB from just before the cluster, trims it to
// the content between zero blocks and validates it. Near-random windows are rejected
// without validation. A nil file means rejected.
func reconstructWindow(img *storage.Image, c models.Cluster, cfg *models.Config) (*models.ReconstructedFile, error) {
	padding := uint64(cfg.Cluster.PaddingKB * kb)
	start := c.StartOffset - min(c.StartOffset, padding)

	data, err := img.ReadWindow(start, cfg.Assembly.ChunkMaxKB*kb)
	if err != nil {
		return nil, err
	}

	skip := leadingBoundary(data, c.StartOffset-start)
	data = data[skip:]
	data = data[:reconstructor.ComputeChunkSize(data, cfg.Assembly.ChunkMinKB*kb, cfg.Assembly.ChunkMaxKB*kb)]
	data = data[:reconstructor.DetectBoundary(data, true)]
	if reconstructor.Entropy(data) > maxWindowEntropy {
		return nil, nil
	}

	file := reconstructor.Reconstruct(data)
	if !file.IsValid || file.Confidence < cfg.Assembly.MinSingleConfidence {
		return nil, nil
	}
	file.Offset = start + uint64(skip)
	return &file, nil
}

func matchCandidates(logger *slog.Logger, path string, records []models.FragmentRecord, database *db.DB, out *Output) {
	candidates, err := models.LoadCandidates(path)
	if err != nil {
		logger.Warn("Skipping metadata candidates", "path", path, "error", err)
		return
	}

	frags := make([]models.Fragment, 0, len(records))
	for _, rec := range records {
		frags = append(frags, assembler.NewFragment(rec))
	}
	analysis := assembler.AnalyzeCandidates(candidates, frags)
	out.CandidateMatches = analysis.PotentialMatches
	logger.Info("Metadata candidates matched", "candidates", len(candidates), "matches", analysis.PotentialMatches, "confidence", analysis.ConfidenceScore)

	if err := database.InsertCandidateMatches(out.RunID, analysis); err != nil {
		logger.Warn("Failed to store candidate matches", "error", err)
	}
}

func clustererFactory(cfg models.AssemblyConfig) assembler.ClustererFactory {
	switch cfg.Clusterer {
	case models.ClustererStream:
		maxGap := cfg.MaxGap
		return func() assembler.FineClusterer { return assembler.NewStreamClusterer(maxGap) }
	case models.ClustererAffinity:
		return func() assembler.FineClusterer { return assembler.NewAffinityClusterer() }
	}
	return nil
}

func fromAssembled(f models.AssembledFile) recovered {
	offsets := make([]uint64, len(f.Fragments))
	for i, frag := range f.Fragments {
		offsets[i] = frag.Offset
	}
	return recovered{
		kind:       db.KindAssembled,
		offset:     f.Offset(),
		cleaned:    reconstructor.CleanText(f.Content),
		fileType:   f.FileType,
		confidence: f.Confidence,
		name:       f.SuggestedName,
		links:      f.Links,
		fragments:  offsets,
	}
}

func fromSingle(f models.ReconstructedFile) recovered {
	return recovered{
		kind:       db.KindSingle,
		offset:     f.Offset,
		cleaned:    f.CleanedText,
		fileType:   f.FileType,
		confidence: f.Confidence,
		name:       f.SuggestedName,
		links:      f.Links,
	}
}

// sink persists queued files until MaxFiles have been saved. Content already stored in
// this run is recorded as a duplicate and not written again.
func sink(ctx context.Context, logger *slog.Logger, cfg *models.Config, database *db.DB, store *storage.Storage, queue []recovered, out *Output) error {
	a := &analytics.Analytics{}
	var (
		results      []manifest.FileResult
		intermediate []map[string]int
	)

	for _, r := range queue {
		if cfg.MaxFiles > 0 && out.Recovered >= cfg.MaxFiles {
			logger.Info("Reached max files", "max_files", cfg.MaxFiles, "remaining", len(queue)-len(results))
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := persist(logger, database, store, a, r, out.RunID)
		if err != nil {
			return err
		}
		results = append(results, result)

		switch {
		case result.Error != nil:
			out.Failed++
		case result.Duplicate:
			out.Duplicates++
		default:
			out.Recovered++
			if r.kind == db.KindAssembled {
				out.Assembled++
			} else {
				out.Single++
			}
			intermediate = append(intermediate, result.WordCounts)
		}
		out.Files = append(out.Files, fileOutput(result))
	}

	aggregate := mapreduce.Reduce(intermediate)
	out.TopKeywords = mapreduce.TopKeywords(aggregate, 25)

	manifestPath, err := manifest.GenerateSummary(manifest.RunInfo{
		RunID:            out.RunID,
		Image:            cfg.ImagePath,
		ImageSize:        out.ImageSize,
		Hits:             out.Hits,
		Clusters:         out.Clusters,
		CandidateMatches: out.CandidateMatches,
	}, results, aggregate, store)
	if err != nil {
		logger.Warn("Failed to write summary manifest", "error", err)
	}
	out.ManifestPath = manifestPath
	return nil
}

// persist writes one file and its catalog row. Only catalog errors are returned; a file
// that cannot be written is reported in the result.
func persist(logger *slog.Logger, database *db.DB, store *storage.Storage, a *analytics.Analytics, r recovered, runID int64) (manifest.FileResult, error) {
	content := []byte(r.cleaned)
	result := manifest.FileResult{
		Name:       r.name,
		Kind:       r.kind,
		FileType:   string(r.fileType),
		Offset:     r.offset,
		SizeBytes:  int64(len(content)),
		Confidence: r.confidence,
		Fragments:  len(r.fragments),
		Links:      len(r.links),
	}

	dup, err := database.HasContent(runID, db.ContentHash(content))
	if err != nil {
		return result, err
	}
	if dup {
		logger.Debug("Skipping duplicate content", "name", r.name, "offset", r.offset)
		result.Duplicate = true
		return result, nil
	}

	meta := detector.Enrich(r.cleaned, r.fileType)
	result.Language = meta.Language
	result.Title = meta.Title
	result.WordCounts = mapreduce.Map(r.cleaned, a)

	path, err := store.SaveFile(r.name, content)
	if err != nil {
		logger.Error("Error saving recovered file", "name", r.name, "error", err)
		result.Error = err
		return result, nil
	}
	result.FilePath = path
	if stats, err := store.GetFileStats(filepath.Base(path)); err != nil {
		logger.Warn("Failed to stat recovered file", "path", path, "error", err)
	} else {
		result.SizeBytes = stats.SizeBytes
	}

	if _, _, err := database.InsertRecoveredFile(&db.RecoveredFile{
		RunID:           runID,
		Kind:            r.kind,
		Offset:          r.offset,
		SizeBytes:       len(content),
		FileType:        string(r.fileType),
		Confidence:      r.confidence,
		SuggestedName:   r.name,
		FilePath:        path,
		Links:           r.links,
		FragmentOffsets: r.fragments,
		Language:        meta.Language,
		Title:           meta.Title,
		Excerpt:         meta.Excerpt,
		TopKeywords:     mapreduce.TopKeywords(result.WordCounts, 10),
	}, content); err != nil {
		return result, err
	}

	logger.Info("Recovered file", "name", r.name, "kind", r.kind, "offset", r.offset, "confidence", r.confidence, "language", meta.Language)
	return result, nil
}
