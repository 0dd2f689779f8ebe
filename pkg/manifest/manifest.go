package manifest

// SummaryManifest is the YAML overview written next to the recovered files.
// It lists every persisted file with enough metadata to pick one without opening it.
type SummaryManifest struct {
	GeneratedAt       string        `yaml:"generated_at"`
	RunID             int64         `yaml:"run_id"`
	Image             string        `yaml:"image"`
	ImageSize         int64         `yaml:"image_size"`
	Hits              int           `yaml:"hits"`
	Clusters          int           `yaml:"clusters"`
	CandidateMatches  int           `yaml:"candidate_matches"`
	Recovered         int           `yaml:"recovered"`
	Single            int           `yaml:"single"`
	Assembled         int           `yaml:"assembled"`
	Duplicates        int           `yaml:"duplicates"`
	Failed            int           `yaml:"failed"`
	AggregateKeywords []string      `yaml:"aggregate_keywords,omitempty"`
	Files             []FileSummary `yaml:"files"`
}

// FileSummary describes one recovered file.
type FileSummary struct {
	Name         string   `yaml:"name"`
	FilePath     string   `yaml:"file_path,omitempty"`
	Status       string   `yaml:"status"` // "saved", "duplicate" or "error"
	ErrorMessage string   `yaml:"error_message,omitempty"`
	Kind         string   `yaml:"kind"`
	FileType     string   `yaml:"file_type"`
	Offset       uint64   `yaml:"offset"`
	SizeBytes    int64    `yaml:"size_bytes"`
	Confidence   float64  `yaml:"confidence"`
	Fragments    int      `yaml:"fragments,omitempty"`
	Links        int      `yaml:"links"`
	Language     string   `yaml:"language,omitempty"`
	Title        string   `yaml:"title,omitempty"`
	TopKeywords  []string `yaml:"top_keywords,omitempty"`
}
