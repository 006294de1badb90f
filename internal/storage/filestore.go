// Package storage keeps uploaded PDFs and their parse results on local disk,
// indexed by a metadata.json file in the upload directory.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/moneylens/internal/models"
)

// ErrNotFound is returned for unknown file IDs.
var ErrNotFound = errors.New("file not found")

const metadataFile = "metadata.json"

// FileInfo describes one uploaded file.
type FileInfo struct {
	ID         string                 `json:"file_id"`
	Filename   string                 `json:"filename"`
	StoredName string                 `json:"stored_filename"`
	Size       int64                  `json:"size"`
	UploadTime time.Time              `json:"upload_time"`
	Processed  bool                   `json:"processed"`
	Result     *models.DocumentResult `json:"parse_result,omitempty"`
}

// FileStore is safe for concurrent use.
type FileStore struct {
	dir string

	mu    sync.RWMutex
	files map[string]*FileInfo

	now func() time.Time
}

// NewFileStore opens (creating if needed) the store rooted at dir. A
// missing or unreadable metadata file starts an empty index.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	s := &FileStore{dir: dir, files: make(map[string]*FileInfo), now: time.Now}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	default:
		if err := json.Unmarshal(data, &s.files); err != nil || s.files == nil {
			s.files = make(map[string]*FileInfo)
		}
	}
	return s, nil
}

// Dir returns the upload directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes content under a fresh ID and records it.
func (s *FileStore) Save(content []byte, filename string) (FileInfo, error) {
	id := uuid.NewString()
	stored := id + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.dir, stored)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return FileInfo{}, fmt.Errorf("failed to save file: %w", err)
	}

	info := &FileInfo{
		ID:         id,
		Filename:   filepath.Base(filename),
		StoredName: stored,
		Size:       int64(len(content)),
		UploadTime: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info
	if err := s.persistLocked(); err != nil {
		delete(s.files, id)
		os.Remove(path)
		return FileInfo{}, err
	}
	return *info, nil
}

// Get returns the record for id.
func (s *FileStore) Get(id string) (FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.files[id]
	if !ok {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *info, nil
}

// Path returns where the file for id is stored.
func (s *FileStore) Path(id string) (string, error) {
	info, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, info.StoredName), nil
}

// SaveResult attaches a parse result to id and marks it processed.
func (s *FileStore) SaveResult(id string, res *models.DocumentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := *info
	info.Processed = true
	info.Result = res
	if err := s.persistLocked(); err != nil {
		*info = prev
		return err
	}
	return nil
}

// Result returns the stored parse result for id.
func (s *FileStore) Result(id string) (*models.DocumentResult, error) {
	info, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if info.Result == nil {
		return nil, fmt.Errorf("%w: %s has not been processed", ErrNotFound, id)
	}
	return info.Result, nil
}

// Processed lists processed files, oldest upload first.
func (s *FileStore) Processed() []FileInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FileInfo, 0, len(s.files))
	for _, info := range s.files {
		if info.Processed && info.Result != nil {
			out = append(out, *info)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].UploadTime.Equal(out[b].UploadTime) {
			return out[a].UploadTime.Before(out[b].UploadTime)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Delete removes the file for id and its record.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

// Cleanup deletes every file uploaded more than maxAge ago and returns how
// many were removed.
func (s *FileStore) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, info := range s.files {
		if info.UploadTime.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	removed := 0
	var errs []error
	for _, id := range expired {
		if err := s.deleteLocked(id); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *FileStore) deleteLocked(id string) error {
	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	path := filepath.Join(s.dir, info.StoredName)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	delete(s.files, id)
	return s.persistLocked()
}

// persistLocked writes the index to a temp file and renames it over
// metadata.json, so a crash never leaves a truncated index.
func (s *FileStore) persistLocked() error {
	path := filepath.Join(s.dir, metadataFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.files); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}
