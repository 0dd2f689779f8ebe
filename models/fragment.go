// Package models defines the records that flow through the carving pipeline.
package models

import (
	"math"
	"sort"
)

// FileType is the content classification of a carved byte range.
// The string value doubles as the file extension.
type FileType string

const (
	FileTypeTXT     FileType = "txt"
	FileTypeJSON    FileType = "json"
	FileTypeCSV     FileType = "csv"
	FileTypeHTML    FileType = "html"
	FileTypeUnknown FileType = "unknown"
)

// ParseFileType maps a loose string to a FileType. Empty and unrecognized values are unknown.
func ParseFileType(s string) FileType {
	switch FileType(s) {
	case FileTypeTXT, FileTypeJSON, FileTypeCSV, FileTypeHTML:
		return FileType(s)
	}
	return FileTypeUnknown
}

// Known reports whether the type carries information (anything but unknown).
func (t FileType) Known() bool {
	return t != "" && t != FileTypeUnknown
}

// RawHit is a single pattern match emitted by the scanner.
type RawHit struct {
	Offset     uint64  `json:"offset"`
	MatchedID  string  `json:"matched_id"`
	Confidence float64 `json:"confidence"` // 0..1

	// URL is the full link the id was taken from, when the scanner kept it.
	URL string `json:"url,omitempty"`
	// Data holds bytes to extract ids from when MatchedID and URL are both empty.
	Data []byte `json:"-"`
}

// LinkSet is a set of link identifiers.
type LinkSet map[string]struct{}

// NewLinkSet builds a set from the given identifiers, skipping empty strings.
func NewLinkSet(ids ...string) LinkSet {
	s := make(LinkSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s LinkSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the identifiers in ascending order.
func (s LinkSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FragmentRecord is the raw input to fragment assembly: a byte window read from the image
// (or handed over by another collaborator) plus an optional type hint.
type FragmentRecord struct {
	Offset   uint64
	Data     []byte
	FileType FileType // optional; empty means unknown
}

// Fragment is a contiguous byte range believed to be part of a carved file.
type Fragment struct {
	Offset   uint64
	Size     uint32
	Content  []byte
	Links    LinkSet
	FileType FileType
}

// End returns the offset one past the last byte of the fragment, saturating at
// math.MaxUint64.
func (f Fragment) End() uint64 {
	return saturatingAdd(f.Offset, uint64(f.Size))
}

// Cluster is a byte range of the image with an above-threshold density of hits.
type Cluster struct {
	StartOffset uint64   `json:"start_offset" yaml:"start_offset"`
	EndOffset   uint64   `json:"end_offset" yaml:"end_offset"`
	Density     float64  `json:"density" yaml:"density"` // links per KB
	LinkCount   uint32   `json:"link_count" yaml:"link_count"`
	Links       []string `json:"links" yaml:"links"`
}

// Size returns the span of the cluster in bytes.
func (c Cluster) Size() uint64 {
	return c.EndOffset - c.StartOffset
}

// Center returns the midpoint offset.
func (c Cluster) Center() uint64 {
	return (c.StartOffset + c.EndOffset) / 2
}

// ReconstructedFile is the validation result for one byte sequence.
type ReconstructedFile struct {
	FileType      FileType `json:"file_type"`
	IsValid       bool     `json:"is_valid"`
	Confidence    float64  `json:"confidence"` // 0..100
	CleanedText   string   `json:"-"`
	Links         []string `json:"links_extracted"`
	SuggestedName string   `json:"suggested_name"`

	// Position of the validated bytes on the image, when known.
	Offset uint64 `json:"offset"`
	Size   int    `json:"size"`
}

// AssembledFile is a multi-fragment reconstruction that passed acceptance.
type AssembledFile struct {
	Fragments     []Fragment // ascending by offset, no duplicate offsets
	Content       []byte
	Confidence    float64 // 0..100
	FileType      FileType
	IsValid       bool
	SuggestedName string
	Links         []string
}

// Offset returns the offset of the first fragment.
func (a AssembledFile) Offset() uint64 {
	if len(a.Fragments) == 0 {
		return 0
	}
	return a.Fragments[0].Offset
}

// TotalSize returns the number of assembled content bytes.
func (a AssembledFile) TotalSize() int {
	return len(a.Content)
}

// MetadataCandidate is a file boundary reported by a filesystem-metadata walker.
type MetadataCandidate struct {
	Offset   uint64 `yaml:"offset" json:"offset"`
	Size     uint64 `yaml:"size" json:"size"`
	Filename string `yaml:"filename,omitempty" json:"filename,omitempty"`
}

// End returns the offset one past the candidate's last byte, saturating at
// math.MaxUint64.
func (c MetadataCandidate) End() uint64 {
	return saturatingAdd(c.Offset, c.Size)
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// CandidateMatch pairs a metadata candidate with the fragments overlapping it.
type CandidateMatch struct {
	Candidate       MetadataCandidate
	LinkedFragments []Fragment
}

// CandidateAnalysis summarizes the overlap join between metadata candidates and fragments.
type CandidateAnalysis struct {
	PotentialMatches int
	ConfidenceScore  float64 // mean heuristic confidence of matches, 0..100
	FragmentedFiles  []CandidateMatch
}
