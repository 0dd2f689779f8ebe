package db

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/I0633852860/ultimate-recovery-temp/pkg/db"
)

func newTestApp() *cli.App {
	dbFlag := &cli.StringFlag{Name: "db"}
	return &cli.App{
		Name: "carver",
		Commands: []*cli.Command{
			{Name: "runs", Flags: []cli.Flag{dbFlag, &cli.IntFlag{Name: "limit", Value: 10}}, Action: RunsAction},
			{Name: "files", Flags: []cli.Flag{dbFlag, &cli.BoolFlag{Name: "clusters"}}, Action: FilesAction},
			{Name: "extract", Flags: []cli.Flag{dbFlag, &cli.StringFlag{Name: "out"}}, Action: ExtractAction},
		},
	}
}

func seedCatalog(t *testing.T) (string, int64) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "carver.db")
	database, err := dbpkg.Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer database.Close()

	runID, err := database.InsertRun("disk.img", 4096, "recovered", "")
	if err != nil {
		t.Fatalf("InsertRun() failed: %v", err)
	}
	fileID, _, err := database.InsertRecoveredFile(&dbpkg.RecoveredFile{
		RunID:         runID,
		Kind:          dbpkg.KindSingle,
		FileType:      "txt",
		SuggestedName: "GENERAL_recovered_file.txt",
	}, []byte("recovered text"))
	if err != nil {
		t.Fatalf("InsertRecoveredFile() failed: %v", err)
	}
	if err := database.FinishRun(runID, dbpkg.RunStats{Recovered: 1}, nil); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}
	return dbPath, fileID
}

func TestExtractAction(t *testing.T) {
	dbPath, fileID := seedCatalog(t)
	out := filepath.Join(t.TempDir(), "file.txt")

	err := newTestApp().Run([]string{"carver", "extract", "--db", dbPath, "--out", out, formatID(fileID)})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "recovered text" {
		t.Errorf("content = %q, want %q", data, "recovered text")
	}
}

func TestExtractAction_Errors(t *testing.T) {
	dbPath, _ := seedCatalog(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing id", []string{"carver", "extract", "--db", dbPath}},
		{"bad id", []string{"carver", "extract", "--db", dbPath, "abc"}},
		{"unknown id", []string{"carver", "extract", "--db", dbPath, "999"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := newTestApp().Run(tt.args); err == nil {
				t.Error("extract error = nil, want error")
			}
		})
	}
}

func TestRunsAndFilesActions(t *testing.T) {
	dbPath, _ := seedCatalog(t)

	if err := newTestApp().Run([]string{"carver", "runs", "--db", dbPath}); err != nil {
		t.Errorf("runs failed: %v", err)
	}
	if err := newTestApp().Run([]string{"carver", "files", "--db", dbPath, "--clusters"}); err != nil {
		t.Errorf("files failed: %v", err)
	}
	if err := newTestApp().Run([]string{"carver", "files", "--db", dbPath, "42"}); err == nil {
		t.Error("files for unknown run error = nil, want not found")
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
