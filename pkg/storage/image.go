// Package storage reads raw disk images and writes recovered files.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Image is a read-only raw disk image.
type Image struct {
	f    *os.File
	size int64
}

// OpenImage opens path for windowed reads.
func OpenImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	return &Image{f: f, size: info.Size()}, nil
}

// Size returns the image length in bytes.
func (img *Image) Size() int64 {
	return img.size
}

// ReadAt implements io.ReaderAt.
func (img *Image) ReadAt(p []byte, off int64) (int, error) {
	return img.f.ReadAt(p, off)
}

// ReadWindow returns up to length bytes starting at offset, clipped to the image end.
// Reading at or past the end returns an empty slice.
func (img *Image) ReadWindow(offset uint64, length int) ([]byte, error) {
	if length <= 0 || offset >= uint64(img.size) {
		return nil, nil
	}
	n := min(int64(length), img.size-int64(offset))
	buf := make([]byte, n)
	read, err := img.f.ReadAt(buf, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %d bytes at offset %d: %w", n, offset, err)
	}
	return buf[:read], nil
}

// Close releases the underlying file.
func (img *Image) Close() error {
	return img.f.Close()
}
