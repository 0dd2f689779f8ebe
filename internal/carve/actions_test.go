package carve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

// loadWithArgs runs LoadConfig behind a throwaway app so flags parse as they do for carver.
func loadWithArgs(t *testing.T, args ...string) (*models.Config, error) {
	t.Helper()
	var (
		cfg     *models.Config
		loadErr error
	)
	app := &cli.App{
		Name:  "carver",
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			cfg, loadErr = LoadConfig(c)
			return nil
		},
	}
	if err := app.Run(append([]string{"carver"}, args...)); err != nil {
		t.Fatalf("app.Run() failed: %v", err)
	}
	return cfg, loadErr
}

func TestLoadConfig_Flags(t *testing.T) {
	cfg, err := loadWithArgs(t, "--image", "disk.img", "--workers", "3", "--clusterer", "AFFINITY", "--max-gap", "4096")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.ImagePath != "disk.img" || cfg.WorkerCount != 3 {
		t.Errorf("image/workers = %q/%d, want disk.img/3", cfg.ImagePath, cfg.WorkerCount)
	}
	if cfg.Assembly.Clusterer != models.ClustererAffinity {
		t.Errorf("Clusterer = %q, want affinity", cfg.Assembly.Clusterer)
	}
	if cfg.Assembly.MaxGap != 4096 {
		t.Errorf("MaxGap = %d, want 4096", cfg.Assembly.MaxGap)
	}
	if cfg.OutputDir != "recovered" {
		t.Errorf("OutputDir = %q, want recovered", cfg.OutputDir)
	}
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carver.yaml")
	yaml := "image: from-file.img\nworkers: 6\nassembly:\n  max_gap: 2048\n  similarity_threshold: 0.3\n  clusterer: none\n  chunk_min_kb: 32\n  chunk_max_kb: 2048\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := loadWithArgs(t, "--config", path, "--workers", "2")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.ImagePath != "from-file.img" {
		t.Errorf("ImagePath = %q, want from-file.img", cfg.ImagePath)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want 2 (flag wins)", cfg.WorkerCount)
	}
	if cfg.Assembly.MaxGap != 2048 || cfg.Assembly.Clusterer != models.ClustererNone {
		t.Errorf("assembly = %+v", cfg.Assembly)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no image", nil},
		{"bad clusterer", []string{"--image", "disk.img", "--clusterer", "kmeans"}},
		{"zero workers", []string{"--image", "disk.img", "--workers", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadWithArgs(t, tt.args...); err == nil {
				t.Error("LoadConfig() error = nil, want error")
			}
		})
	}
}

func TestLoadConfig_PositionalImage(t *testing.T) {
	cfg, err := loadWithArgs(t, "disk.img")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.ImagePath != "disk.img" {
		t.Errorf("ImagePath = %q, want disk.img", cfg.ImagePath)
	}
}
