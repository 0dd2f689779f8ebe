package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per carve invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    image_path TEXT NOT NULL,
    image_size INTEGER NOT NULL DEFAULT 0,
    output_dir TEXT,
    config TEXT,                  -- effective config as YAML
    status TEXT NOT NULL DEFAULT 'running', -- running, completed, failed
    hit_count INTEGER DEFAULT 0,
    cluster_count INTEGER DEFAULT 0,
    recovered_count INTEGER DEFAULT 0,
    error TEXT,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

-- Clusters: ranked dense regions found in a run
CREATE TABLE IF NOT EXISTS clusters (
    cluster_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    rank INTEGER NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    density REAL NOT NULL,
    link_count INTEGER NOT NULL,
    links TEXT,                   -- JSON array
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_clusters_run ON clusters(run_id, rank);

-- Recovered files: accepted reconstructions, content zstd-compressed
CREATE TABLE IF NOT EXISTS recovered_files (
    file_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    kind TEXT NOT NULL,           -- single, assembled
    byte_offset INTEGER NOT NULL,
    size_bytes INTEGER NOT NULL,
    file_type TEXT NOT NULL,
    confidence REAL NOT NULL,
    suggested_name TEXT NOT NULL,
    file_path TEXT,
    content_hash TEXT NOT NULL,   -- blake3 hex of uncompressed content
    links TEXT,                   -- JSON array
    fragment_offsets TEXT,        -- JSON array, assembled files only
    language TEXT,
    title TEXT,
    excerpt TEXT,
    top_keywords TEXT,            -- JSON array
    content BLOB,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, content_hash)
);

CREATE INDEX IF NOT EXISTS idx_files_run ON recovered_files(run_id);
CREATE INDEX IF NOT EXISTS idx_files_hash ON recovered_files(content_hash);
CREATE INDEX IF NOT EXISTS idx_files_type ON recovered_files(file_type);

-- Candidate matches: metadata candidates overlapping carved fragments
CREATE TABLE IF NOT EXISTS candidate_matches (
    match_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    byte_offset INTEGER NOT NULL,
    size_bytes INTEGER NOT NULL,
    filename TEXT,
    fragment_count INTEGER NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_candidates_run ON candidate_matches(run_id);
`
