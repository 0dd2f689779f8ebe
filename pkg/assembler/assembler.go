// Package assembler reassembles carved fragments into files, including fragments of several
// files interleaved on disk.
package assembler

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/I0633852860/ultimate-recovery-temp/models"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/reconstructor"
)

const (
	// DefaultLargePoolSize is the pool size from which a fine clusterer is consulted.
	DefaultLargePoolSize = 64
	// acceptThreshold is the minimum final confidence (0..1) of an emitted AssembledFile.
	acceptThreshold = 0.4
)

// Options configures an Assembler. Zero values select defaults.
type Options struct {
	MaxGap              int64
	SimilarityThreshold float64
	Workers             int
	LargePoolSize       int
	// NewClusterer builds the fine clusterer used for large pools. Nil disables fine
	// clustering; large pools are then disentangled directly.
	NewClusterer ClustererFactory
}

// Assembler runs fragment assembly over batches of fragment records.
type Assembler struct {
	opts   Options
	logger *slog.Logger
}

// New returns an Assembler. A nil logger discards log output.
func New(logger *slog.Logger, opts Options) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxGap <= 0 {
		opts.MaxGap = DefaultMaxGap
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.LargePoolSize < 1 {
		opts.LargePoolSize = DefaultLargePoolSize
	}
	return &Assembler{opts: opts, logger: logger}
}

// NewFragment converts a raw record, extracting link ids from its cleaned text.
func NewFragment(rec models.FragmentRecord) models.Fragment {
	data := rec.Data
	if uint64(len(data)) > math.MaxUint32 {
		data = data[:math.MaxUint32]
	}
	fileType := rec.FileType
	if fileType == "" {
		fileType = models.FileTypeUnknown
	}
	return models.Fragment{
		Offset:   rec.Offset,
		Size:     uint32(len(data)),
		Content:  data,
		Links:    models.NewLinkSet(reconstructor.ExtractLinksFromBytes(data)...),
		FileType: fileType,
	}
}

// AssembleGroup reconstructs frags as one sequence (strict) or as the streams found by
// DisentangleCluster (smart), and returns the sequences that validate with a final
// confidence above 0.4.
func (a *Assembler) AssembleGroup(frags []models.Fragment, smart bool) []models.AssembledFile {
	if len(frags) == 0 {
		return nil
	}

	sequences := [][]models.Fragment{frags}
	if smart {
		sequences = DisentangleCluster(frags, a.opts.MaxGap)
	}

	var files []models.AssembledFile
	for _, seq := range sequences {
		file, ok, err := a.assembleSequence(seq, smart)
		if err != nil {
			a.logger.Error("Failed to validate sequence", "offset", seq[0].Offset, "fragments", len(seq), "error", err)
			continue
		}
		if ok {
			files = append(files, file)
		}
	}
	return files
}

// reconstruct validates concatenated sequence content.
var reconstruct = reconstructor.Reconstruct

// assembleSequence validates one candidate sequence. A panic while validating is
// returned as an error so the remaining sequences are still assembled.
func (a *Assembler) assembleSequence(seq []models.Fragment, smart bool) (file models.AssembledFile, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			file, ok = models.AssembledFile{}, false
			err = fmt.Errorf("panic while validating %d fragments: %v", len(seq), r)
		}
	}()

	seq = sortByOffset(seq)

	var buf bytes.Buffer
	for _, f := range seq {
		buf.Write(f.Content)
	}
	content := buf.Bytes()

	rec := reconstruct(content)
	if !rec.IsValid {
		return file, false, nil
	}
	final := rec.Confidence / 100 * ScoreSequence(seq, a.opts.MaxGap, smart)
	if final <= acceptThreshold {
		a.logger.Debug("Rejected low-confidence sequence", "offset", seq[0].Offset, "fragments", len(seq), "confidence", final)
		return file, false, nil
	}

	return models.AssembledFile{
		Fragments:     seq,
		Content:       content,
		Confidence:    final * 100,
		FileType:      rec.FileType,
		IsValid:       true,
		SuggestedName: rec.SuggestedName,
		Links:         rec.Links,
	}, true, nil
}

type poolJob struct {
	index int
	pool  pool
}

type poolResult struct {
	index int
	files []models.AssembledFile
	err   error
}

// ProcessPool converts records to fragments, deduplicates them by offset (the later record
// wins), groups them by link similarity, pools the groups by dominant link domain and
// assembles every pool. A pool that fails is logged and skipped.
func (a *Assembler) ProcessPool(records []models.FragmentRecord) []models.AssembledFile {
	frags := dedupeByOffset(records)
	if len(frags) == 0 {
		return nil
	}

	groups := GroupBySimilarity(frags, a.opts.SimilarityThreshold)
	pools := poolByDomain(groups)
	a.logger.Info("Starting fragment assembly", "fragments", len(frags), "groups", len(groups), "pools", len(pools), "workers", a.opts.Workers)

	var wg sync.WaitGroup
	jobs := make(chan poolJob, len(pools))
	results := make(chan poolResult, len(pools))

	for w := 1; w <= min(a.opts.Workers, len(pools)); w++ {
		wg.Add(1)
		go a.worker(w, &wg, jobs, results)
	}
	for i, p := range pools {
		jobs <- poolJob{index: i, pool: p}
	}
	close(jobs)

	wg.Wait()
	close(results)

	collected := make([]poolResult, 0, len(pools))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	var files []models.AssembledFile
	for _, r := range collected {
		if r.err != nil {
			a.logger.Error("Failed to assemble pool", "pool", r.index, "error", r.err)
			continue
		}
		files = append(files, r.files...)
	}
	a.logger.Info("Fragment assembly finished", "assembled", len(files))
	return files
}

func (a *Assembler) worker(id int, wg *sync.WaitGroup, jobs <-chan poolJob, results chan<- poolResult) {
	defer wg.Done()
	for job := range jobs {
		files, err := a.safeAssemblePool(job.pool)
		if err != nil {
			a.logger.Debug("Pool failed", "worker_id", id, "pool", job.index)
		}
		results <- poolResult{index: job.index, files: files, err: err}
	}
}

func (a *Assembler) safeAssemblePool(p pool) (files []models.AssembledFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			files = nil
			err = fmt.Errorf("panic while assembling %d fragments: %v", len(p.frags), r)
		}
	}()
	return a.assemblePool(p), nil
}

func (a *Assembler) assemblePool(p pool) []models.AssembledFile {
	if p.domain == "" {
		return a.AssembleGroup(p.frags, false)
	}

	frags := sortByOffset(p.frags)
	if len(frags) >= a.opts.LargePoolSize {
		if a.opts.NewClusterer == nil {
			a.logger.Warn("No fine clusterer configured, disentangling large pool directly", "domain", p.domain, "fragments", len(frags))
		} else {
			var files []models.AssembledFile
			for _, group := range a.fineCluster(frags) {
				files = append(files, a.AssembleGroup(group, true)...)
			}
			return files
		}
	}
	return a.AssembleGroup(frags, true)
}

func (a *Assembler) fineCluster(frags []models.Fragment) [][]models.Fragment {
	c := a.opts.NewClusterer()
	for _, f := range frags {
		c.Add(f.Offset, f.Content, f.Links.Sorted())
	}

	// Each offset joins at most one group, at most once.
	used := make(map[uint64]bool, len(frags))
	var groups [][]models.Fragment
	for _, indices := range c.Cluster() {
		var group []models.Fragment
		for _, i := range indices {
			if i < 0 || i >= len(frags) {
				a.logger.Warn("Fine clusterer returned out-of-range index", "index", i, "fragments", len(frags))
				continue
			}
			if used[frags[i].Offset] {
				a.logger.Debug("Fine clusterer repeated fragment", "index", i, "offset", frags[i].Offset)
				continue
			}
			used[frags[i].Offset] = true
			group = append(group, frags[i])
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

func dedupeByOffset(records []models.FragmentRecord) []models.Fragment {
	index := make(map[uint64]int, len(records))
	frags := make([]models.Fragment, 0, len(records))
	for _, rec := range records {
		f := NewFragment(rec)
		if i, ok := index[f.Offset]; ok {
			frags[i] = f
			continue
		}
		index[f.Offset] = len(frags)
		frags = append(frags, f)
	}
	return frags
}
