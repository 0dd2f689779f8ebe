package db

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// Recovered file kinds.
const (
	KindSingle    = "single"
	KindAssembled = "assembled"
)

// zstd encoders and decoders are safe for concurrent use and reused across calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("db: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("db: zstd decoder initialization failed: " + err.Error())
	}
}

// ContentHash returns the hex blake3 digest used to deduplicate recovered content.
func ContentHash(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// RecoveredFile is a catalog row for one accepted reconstruction.
type RecoveredFile struct {
	FileID          int64
	RunID           int64
	Kind            string
	Offset          uint64
	SizeBytes       int
	FileType        string
	Confidence      float64
	SuggestedName   string
	FilePath        string
	ContentHash     string
	Links           []string
	FragmentOffsets []uint64
	Language        string
	Title           string
	Excerpt         string
	TopKeywords     []string
	CreatedAt       time.Time
}

// HasContent reports whether a run already stored content with this hash.
func (db *DB) HasContent(runID int64, contentHash string) (bool, error) {
	var id int64
	err := db.QueryRow("SELECT file_id FROM recovered_files WHERE run_id = ? AND content_hash = ?", runID, contentHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check content hash: %w", err)
	}
	return true, nil
}

// InsertRecoveredFile stores f and its zstd-compressed content. The content hash is
// computed here; content already stored for the run is not inserted twice and the
// existing file_id is returned with duplicate set.
func (db *DB) InsertRecoveredFile(f *RecoveredFile, content []byte) (fileID int64, duplicate bool, err error) {
	f.ContentHash = ContentHash(content)

	var existingID int64
	err = db.QueryRow("SELECT file_id FROM recovered_files WHERE run_id = ? AND content_hash = ?", f.RunID, f.ContentHash).Scan(&existingID)
	if err == nil {
		return existingID, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to check existing file: %w", err)
	}

	links, err := json.Marshal(f.Links)
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode links: %w", err)
	}
	fragments, err := json.Marshal(f.FragmentOffsets)
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode fragment offsets: %w", err)
	}
	keywords, err := json.Marshal(f.TopKeywords)
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode keywords: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO recovered_files (run_id, kind, byte_offset, size_bytes, file_type, confidence,
			suggested_name, file_path, content_hash, links, fragment_offsets, language, title,
			excerpt, top_keywords, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.RunID, f.Kind, int64(f.Offset), f.SizeBytes, f.FileType, f.Confidence,
		f.SuggestedName, f.FilePath, f.ContentHash, string(links), string(fragments), f.Language, f.Title,
		f.Excerpt, string(keywords), zstdEncoder.EncodeAll(content, nil))
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert recovered file: %w", err)
	}

	fileID, err = result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get file ID: %w", err)
	}
	f.FileID = fileID
	return fileID, false, nil
}

// ListRecoveredFiles returns a run's files ordered by descending confidence.
func (db *DB) ListRecoveredFiles(runID int64) ([]RecoveredFile, error) {
	rows, err := db.Query(`
		SELECT file_id, run_id, kind, byte_offset, size_bytes, file_type, confidence, suggested_name,
			COALESCE(file_path, ''), content_hash, COALESCE(links, 'null'), COALESCE(fragment_offsets, 'null'),
			COALESCE(language, ''), COALESCE(title, ''), COALESCE(excerpt, ''), COALESCE(top_keywords, 'null'),
			created_at
		FROM recovered_files
		WHERE run_id = ?
		ORDER BY confidence DESC, file_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recovered files: %w", err)
	}
	defer rows.Close()

	var files []RecoveredFile
	for rows.Next() {
		var (
			f                          RecoveredFile
			offset                     int64
			links, fragments, keywords string
		)
		if err := rows.Scan(&f.FileID, &f.RunID, &f.Kind, &offset, &f.SizeBytes, &f.FileType, &f.Confidence,
			&f.SuggestedName, &f.FilePath, &f.ContentHash, &links, &fragments,
			&f.Language, &f.Title, &f.Excerpt, &keywords, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recovered file: %w", err)
		}
		f.Offset = uint64(offset)
		if err := json.Unmarshal([]byte(links), &f.Links); err != nil {
			return nil, fmt.Errorf("failed to decode links: %w", err)
		}
		if err := json.Unmarshal([]byte(fragments), &f.FragmentOffsets); err != nil {
			return nil, fmt.Errorf("failed to decode fragment offsets: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &f.TopKeywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetRecoveredContent returns the decompressed content of a recovered file.
func (db *DB) GetRecoveredContent(fileID int64) ([]byte, error) {
	var compressed []byte
	err := db.QueryRow("SELECT content FROM recovered_files WHERE file_id = ?", fileID).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recovered file %d not found", fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	content, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress content: %w", err)
	}
	return content, nil
}
