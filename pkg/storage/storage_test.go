package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveFile_AvoidsCollisions(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	first, err := s.SaveFile("КУРС_notes.json", []byte("one"))
	if err != nil {
		t.Fatalf("SaveFile() failed: %v", err)
	}
	second, err := s.SaveFile("КУРС_notes.json", []byte("two"))
	if err != nil {
		t.Fatalf("SaveFile() failed: %v", err)
	}

	if filepath.Base(first) != "КУРС_notes.json" {
		t.Errorf("first = %q, want КУРС_notes.json", filepath.Base(first))
	}
	if filepath.Base(second) != "КУРС_notes_1.json" {
		t.Errorf("second = %q, want КУРС_notes_1.json", filepath.Base(second))
	}
	data, err := os.ReadFile(first)
	if err != nil || string(data) != "one" {
		t.Errorf("first content = %q, %v; want one", data, err)
	}
}

func TestGetFileStats(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, err := s.SaveFile("notes.txt", []byte("three")); err != nil {
		t.Fatalf("SaveFile() failed: %v", err)
	}

	stats, err := s.GetFileStats("notes.txt")
	if err != nil {
		t.Fatalf("GetFileStats() failed: %v", err)
	}
	if stats.SizeBytes != 5 {
		t.Errorf("SizeBytes = %d, want 5", stats.SizeBytes)
	}
	if stats.ModTime.IsZero() {
		t.Error("ModTime is zero")
	}

	if _, err := s.GetFileStats("missing.txt"); err == nil {
		t.Error("GetFileStats(missing) error = nil, want error")
	}
}

func TestSaveFile_StripsDirectories(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	path, err := s.SaveFile("../../escape.txt", []byte("x"))
	if err != nil {
		t.Fatalf("SaveFile() failed: %v", err)
	}
	if filepath.Dir(path) != s.Dir {
		t.Errorf("SaveFile() wrote to %q, want inside %q", path, s.Dir)
	}
}

func TestImage_ReadWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	content := bytes.Repeat([]byte("0123456789"), 10)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	img, err := OpenImage(path)
	if err != nil {
		t.Fatalf("OpenImage() failed: %v", err)
	}
	defer img.Close()

	if img.Size() != 100 {
		t.Errorf("Size() = %d, want 100", img.Size())
	}

	tests := []struct {
		name   string
		offset uint64
		length int
		want   []byte
	}{
		{name: "inside", offset: 10, length: 5, want: []byte("01234")},
		{name: "clipped at end", offset: 95, length: 50, want: []byte("56789")},
		{name: "past end", offset: 100, length: 5, want: nil},
		{name: "zero length", offset: 0, length: 0, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := img.ReadWindow(tt.offset, tt.length)
			if err != nil {
				t.Fatalf("ReadWindow() failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("ReadWindow() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenImage_Missing(t *testing.T) {
	if _, err := OpenImage(filepath.Join(t.TempDir(), "nope.img")); err == nil {
		t.Error("OpenImage() error = nil, want error")
	}
}
