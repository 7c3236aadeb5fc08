// Package storage abstracts file persistence behind a small interface so
// handlers don't care whether files land on local disk or Cloudflare R2.
package storage

import (
	"context"
	"io"
)

// FileInfo describes a stored file.
type FileInfo struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

// Store is the file persistence interface.
type Store interface {
	// Save writes the file at the given path and returns its metadata.
	Save(ctx context.Context, path string, file io.Reader, contentType string) (*FileInfo, error)
	// Delete removes the file. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error
	// URL returns the address a client can fetch the file from.
	URL(path string) string
}
