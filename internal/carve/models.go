package carve

import "github.com/I0633852860/ultimate-recovery-temp/pkg/manifest"

// Run status values reported in Output.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Output is the structured JSON printed for a carve run.
type Output struct {
	RunID            int64        `json:"run_id"`
	Status           string       `json:"status"`
	ImageSize        int64        `json:"image_size"`
	Hits             int          `json:"hits"`
	Clusters         int          `json:"clusters"`
	CandidateMatches int          `json:"candidate_matches"`
	Recovered        int          `json:"recovered"`
	Single           int          `json:"single"`
	Assembled        int          `json:"assembled"`
	Duplicates       int          `json:"duplicates"`
	Failed           int          `json:"failed"`
	ManifestPath     string       `json:"manifest_path,omitempty"`
	TotalTimeSeconds float64      `json:"total_time_seconds"`
	TopKeywords      []string     `json:"top_keywords,omitempty"`
	Files            []FileOutput `json:"files"`
}

// FileOutput is the structured output for a single recovered file.
type FileOutput struct {
	Name       string  `json:"name"`
	FilePath   string  `json:"file_path,omitempty"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Kind       string  `json:"kind"`
	FileType   string  `json:"file_type"`
	Offset     uint64  `json:"offset"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

func fileOutput(r manifest.FileResult) FileOutput {
	fo := FileOutput{
		Name:       r.Name,
		FilePath:   r.FilePath,
		Status:     manifest.StatusSaved,
		Kind:       r.Kind,
		FileType:   r.FileType,
		Offset:     r.Offset,
		Confidence: r.Confidence,
		Language:   r.Language,
	}
	switch {
	case r.Error != nil:
		fo.Status = manifest.StatusError
		fo.Error = r.Error.Error()
	case r.Duplicate:
		fo.Status = manifest.StatusDuplicate
	}
	return fo
}
