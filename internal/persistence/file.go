// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package persistence

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// blobExt is the file extension for stored blobs.
const blobExt = ".blob.gz"

// BlobMetadata describes one stored value.
type BlobMetadata struct {
	// Key is the logical key the value was saved under.
	Key string `json:"key"`

	// Checksum is the hex SHA-256 of the uncompressed value.
	Checksum string `json:"checksum"`

	// SavedAt is when the value was written.
	SavedAt time.Time `json:"saved_at"`

	// SizeBytes is the uncompressed size.
	SizeBytes int `json:"size_bytes"`
}

// blobFile is the on-disk envelope.
type blobFile struct {
	Metadata BlobMetadata `json:"metadata"`
	Data     []byte       `json:"data"`
}

// FileProvider stores each key in its own gzip-compressed file.
//
// Writes go to a temporary file that is renamed over the target, so a crash
// mid-write leaves the previous value intact. Loads verify the checksum.
type FileProvider struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileProvider creates a provider rooted at baseDir, creating it if needed.
func NewFileProvider(baseDir string) (*FileProvider, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("file provider: directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for user data
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileProvider{baseDir: baseDir}, nil
}

// path maps a key to a file name. Keys are hex encoded so any byte is safe.
func (p *FileProvider) path(key string) string {
	return filepath.Join(p.baseDir, hex.EncodeToString([]byte(key))+blobExt)
}

// Save implements Provider.
func (p *FileProvider) Save(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(value); err != nil {
		return fmt.Errorf("compress value: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	hash := sha256.Sum256(value)
	envelope := blobFile{
		Metadata: BlobMetadata{
			Key:       key,
			Checksum:  hex.EncodeToString(hash[:]),
			SavedAt:   time.Now().UTC(),
			SizeBytes: len(value),
		},
		Data: compressed.Bytes(),
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tmp, err := os.CreateTemp(p.baseDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.path(key)); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("rename blob file: %w", err)
	}
	return nil
}

// Load implements Provider.
func (p *FileProvider) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, _, err := p.LoadWithMetadata(key)
	return value, err
}

// LoadWithMetadata returns the value and its envelope metadata.
func (p *FileProvider) LoadWithMetadata(key string) ([]byte, *BlobMetadata, error) {
	p.mu.RLock()
	raw, err := os.ReadFile(p.path(key))
	p.mu.RUnlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("read blob file: %w", err)
	}

	var envelope blobFile
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode envelope: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(envelope.Data))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress value: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	value, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed value: %w", err)
	}

	hash := sha256.Sum256(value)
	if checksum := hex.EncodeToString(hash[:]); checksum != envelope.Metadata.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch for %q: expected %s, got %s",
			key, envelope.Metadata.Checksum, checksum)
	}
	return value, &envelope.Metadata, nil
}
