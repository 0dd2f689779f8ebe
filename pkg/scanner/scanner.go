// Package scanner searches a raw image for embedded video links and emits one hit per
// link occurrence.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

const (
	idLength = 11
	// DefaultChunkSize is the number of bytes searched per read.
	DefaultChunkSize = 64 * 1024 * 1024
	// DefaultOverlap is the number of bytes re-read at each chunk boundary so that links
	// straddling it are still found.
	DefaultOverlap = 64 * 1024
)

// Needles are the byte patterns that precede a video id.
var Needles = [][]byte{
	[]byte("youtube.com/watch?v="),
	[]byte("youtu.be/"),
}

// Options tunes a scan. Zero values select defaults.
type Options struct {
	ChunkSize int
	Overlap   int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap <= 0 {
		o.Overlap = DefaultOverlap
	}
	if o.Overlap >= o.ChunkSize {
		o.Overlap = o.ChunkSize / 2
	}
	return o
}

// Scan reads size bytes of r in overlapping chunks and returns the hits in ascending
// offset order. The context is checked between chunks.
func Scan(ctx context.Context, r io.ReaderAt, size int64, opts Options) ([]models.RawHit, error) {
	opts = opts.withDefaults()
	buf := make([]byte, min(int64(opts.ChunkSize+opts.Overlap), max(size, 0)))

	var hits []models.RawHit
	for pos := int64(0); pos < size; pos += int64(opts.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return hits, err
		}

		want := min(int64(len(buf)), size-pos)
		n, err := r.ReadAt(buf[:want], pos)
		if err != nil && !errors.Is(err, io.EOF) {
			return hits, fmt.Errorf("failed to read image at offset %d: %w", pos, err)
		}
		c := chunk{
			data:    buf[:n],
			base:    pos,
			primary: opts.ChunkSize,
			hasNext: pos+int64(opts.ChunkSize) < size,
			atEnd:   pos+int64(n) >= size,
		}
		hits = append(hits, c.scan()...)
	}
	return hits, nil
}

type chunk struct {
	data    []byte
	base    int64
	primary int  // bytes owned by this chunk; the rest is overlap
	hasNext bool // another chunk starts at base+primary
	atEnd   bool // data reaches the end of the image
}

// scan finds links in the chunk. Matches starting inside the overlap are left to the next
// chunk.
func (c chunk) scan() []models.RawHit {
	var hits []models.RawHit
	for _, needle := range Needles {
		for from := 0; ; {
			idx := bytes.Index(c.data[from:], needle)
			if idx < 0 {
				break
			}
			idx += from
			from = idx + 1
			if idx >= c.primary && c.hasNext {
				continue
			}
			id, ok := videoID(c.data[idx+len(needle):], c.atEnd)
			if !ok {
				continue
			}
			hits = append(hits, models.RawHit{
				Offset:     uint64(c.base) + uint64(idx),
				MatchedID:  id,
				URL:        "https://youtube.com/watch?v=" + id,
				Confidence: 1.0,
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Offset < hits[j].Offset })
	return hits
}

// videoID validates the bytes after a needle: exactly 11 id characters not followed by
// another id character. An id that ends the data only counts at the end of the image.
func videoID(rest []byte, atEnd bool) (string, bool) {
	if len(rest) < idLength {
		return "", false
	}
	for _, c := range rest[:idLength] {
		if !isIDChar(c) {
			return "", false
		}
	}
	if len(rest) > idLength && isIDChar(rest[idLength]) {
		return "", false
	}
	if len(rest) == idLength && !atEnd {
		return "", false
	}
	return string(rest[:idLength]), true
}

func isIDChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}
