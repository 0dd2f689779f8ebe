package models

import (
	"math"
	"testing"
)

func TestEnd_Saturates(t *testing.T) {
	tests := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"candidate", MetadataCandidate{Offset: 100, Size: 50}.End(), 150},
		{"candidate at top", MetadataCandidate{Offset: math.MaxUint64 - 10, Size: 100}.End(), math.MaxUint64},
		{"candidate exact top", MetadataCandidate{Offset: math.MaxUint64 - 10, Size: 10}.End(), math.MaxUint64},
		{"fragment", Fragment{Offset: 4096, Size: 512}.End(), 4608},
		{"fragment at top", Fragment{Offset: math.MaxUint64 - 1, Size: 512}.End(), math.MaxUint64},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s End() = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}
