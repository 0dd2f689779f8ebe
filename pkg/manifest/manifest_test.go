package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/I0633852860/ultimate-recovery-temp/pkg/db"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/storage"
)

func testResults() []FileResult {
	return []FileResult{
		{Name: "КУРС_Alpha.json", FilePath: "out/КУРС_Alpha.json", Kind: db.KindAssembled, FileType: "json",
			Offset: 4096, SizeBytes: 900, Confidence: 87.5, Fragments: 3, Links: 2,
			WordCounts: map[string]int{"alpha": 3, "курс": 1}},
		{Name: "GENERAL_recovered_file.txt", Kind: db.KindSingle, FileType: "txt", Duplicate: true},
		{Name: "ВЕБИНАР_Notes.html", Kind: db.KindSingle, FileType: "html", Error: errors.New("disk full")},
		{Name: "РАЗБОР_Review.html", FilePath: "out/РАЗБОР_Review.html", Kind: db.KindSingle, FileType: "html"},
	}
}

func TestBuild(t *testing.T) {
	m := Build(RunInfo{RunID: 7, Image: "disk.img", Hits: 40, Clusters: 5}, testResults(), map[string]int{"alpha": 3})

	if m.Recovered != 2 || m.Assembled != 1 || m.Single != 1 {
		t.Errorf("recovered/assembled/single = %d/%d/%d, want 2/1/1", m.Recovered, m.Assembled, m.Single)
	}
	if m.Duplicates != 1 || m.Failed != 1 {
		t.Errorf("duplicates/failed = %d/%d, want 1/1", m.Duplicates, m.Failed)
	}
	if len(m.Files) != 4 {
		t.Fatalf("len(Files) = %d, want 4", len(m.Files))
	}
	if m.Files[0].Status != StatusSaved || len(m.Files[0].TopKeywords) != 2 {
		t.Errorf("Files[0] = %+v", m.Files[0])
	}
	if m.Files[2].Status != StatusError || m.Files[2].ErrorMessage != "disk full" {
		t.Errorf("Files[2] = %+v", m.Files[2])
	}
	if m.Files[1].FilePath != "" {
		t.Errorf("duplicate FilePath = %q, want empty", m.Files[1].FilePath)
	}
	if len(m.AggregateKeywords) != 1 || m.AggregateKeywords[0] != "alpha:3" {
		t.Errorf("AggregateKeywords = %v", m.AggregateKeywords)
	}
}

func TestGenerateSummary(t *testing.T) {
	s, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New() failed: %v", err)
	}

	path, err := GenerateSummary(RunInfo{RunID: 3, Image: "disk.img"}, testResults(), nil, s)
	if err != nil {
		t.Fatalf("GenerateSummary() failed: %v", err)
	}
	if filepath.Base(path) != "summary-run-3.yaml" {
		t.Errorf("path = %s, want summary-run-3.yaml", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	var got SummaryManifest
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("yaml.Unmarshal() failed: %v", err)
	}
	if got.RunID != 3 || got.Recovered != 2 || len(got.Files) != 4 {
		t.Errorf("manifest = run %d, recovered %d, files %d", got.RunID, got.Recovered, len(got.Files))
	}
	if got.Files[0].Name != "КУРС_Alpha.json" {
		t.Errorf("Files[0].Name = %q", got.Files[0].Name)
	}
}
