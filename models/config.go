package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Clusterer strategy names accepted in Config.Clusterer.
const (
	ClustererNone     = "none"
	ClustererStream   = "stream"
	ClustererAffinity = "affinity"
)

// Config holds runtime configuration for a carve run.
// Values come from an optional YAML file and are then overridden by CLI flags.
type Config struct {
	ImagePath  string `yaml:"image"`
	OutputDir  string `yaml:"output_dir"`
	DBPath     string `yaml:"db"`
	Candidates string `yaml:"candidates,omitempty"` // YAML list of metadata candidates

	WorkerCount int `yaml:"workers"`
	MaxFiles    int `yaml:"max_files"`    // stop persisting after this many files; 0 = no limit
	MaxClusters int `yaml:"max_clusters"` // 0 = all

	Scan     ScanConfig     `yaml:"scan"`
	Cluster  ClusterConfig  `yaml:"cluster"`
	Assembly AssemblyConfig `yaml:"assembly"`
}

// ScanConfig tunes the needle scanner.
type ScanConfig struct {
	ChunkSizeMB int `yaml:"chunk_size_mb"`
	OverlapKB   int `yaml:"overlap_kb"`
}

// ClusterConfig tunes hit clustering.
type ClusterConfig struct {
	Window     uint64  `yaml:"window"`
	MinDensity float64 `yaml:"min_density"`
	PaddingKB  int     `yaml:"padding_kb"` // context read around each cluster
}

// AssemblyConfig tunes fragment assembly and single-window reconstruction.
type AssemblyConfig struct {
	MaxGap              int64   `yaml:"max_gap"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Clusterer           string  `yaml:"clusterer"`
	LargePoolSize       int     `yaml:"large_pool_size"`
	ChunkMinKB          int     `yaml:"chunk_min_kb"`
	ChunkMaxKB          int     `yaml:"chunk_max_kb"`
	MinSingleConfidence float64 `yaml:"min_single_confidence"`
}

// DefaultConfig returns the configuration used when no file or flag overrides a value.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   "recovered",
		DBPath:      "carver.db",
		WorkerCount: 4,
		Scan: ScanConfig{
			ChunkSizeMB: 64,
			OverlapKB:   64,
		},
		Cluster: ClusterConfig{
			Window:     1,
			MinDensity: 0.5,
			PaddingKB:  4,
		},
		Assembly: AssemblyConfig{
			MaxGap:              1024 * 1024,
			SimilarityThreshold: 0.3,
			Clusterer:           ClustererStream,
			LargePoolSize:       64,
			ChunkMinKB:          32,
			ChunkMaxKB:          2048,
			MinSingleConfidence: 50,
		},
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
// A missing path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.WorkerCount)
	}
	if c.Assembly.MaxGap <= 0 {
		return fmt.Errorf("max_gap must be positive, got %d", c.Assembly.MaxGap)
	}
	if c.Assembly.SimilarityThreshold <= 0 || c.Assembly.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be within (0,1], got %v", c.Assembly.SimilarityThreshold)
	}
	if c.Assembly.ChunkMinKB > c.Assembly.ChunkMaxKB {
		return fmt.Errorf("chunk_min_kb (%d) exceeds chunk_max_kb (%d)", c.Assembly.ChunkMinKB, c.Assembly.ChunkMaxKB)
	}
	switch c.Assembly.Clusterer {
	case ClustererNone, ClustererStream, ClustererAffinity:
	default:
		return fmt.Errorf("unknown clusterer %q (want none, stream or affinity)", c.Assembly.Clusterer)
	}
	return nil
}

// LoadCandidates reads filesystem-metadata candidates from a YAML list.
func LoadCandidates(path string) ([]MetadataCandidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}
	var candidates []MetadataCandidate
	if err := yaml.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse candidates %s: %w", path, err)
	}
	return candidates, nil
}
