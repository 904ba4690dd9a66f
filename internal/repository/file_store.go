package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/model"
)

// FileStore keeps every portfolio in one JSON document keyed by user id.
// Writes replace the file atomically, so a crash leaves either the old or the
// new document on disk.
type FileStore struct {
	path string
	log  zerolog.Logger

	mu sync.Mutex // guards the file
}

// NewFileStore creates a FileStore backed by path. The file is created on first Save.
func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.With().Str("store", "file").Logger(),
	}
}

// Load returns the portfolio of userID, or apperrors.ErrPortfolioNotFound.
func (s *FileStore) Load(ctx context.Context, userID string) (*model.Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	docs, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	raw, ok := docs[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPortfolioNotFound, userID)
	}

	var rec portfolioRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: user %s: %v", apperrors.ErrCorruptState, userID, err)
	}
	return rec.toModel(userID)
}

// Save replaces the stored portfolio of p.UserID. Other users' records are
// carried over untouched.
func (s *FileStore) Save(ctx context.Context, p *model.Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(newRecord(p))
	if err != nil {
		return fmt.Errorf("failed to encode portfolio: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read()
	if err != nil {
		return err
	}
	docs[p.UserID] = data

	if err := s.write(docs); err != nil {
		return err
	}

	s.log.Debug().
		Str("user_id", p.UserID).
		Int("positions", len(p.Positions)).
		Int("transactions", len(p.Transactions)).
		Msg("portfolio saved")
	return nil
}

// UserIDs lists the users with a stored portfolio, sorted.
func (s *FileStore) UserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	docs, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Ping checks that the backing file is readable and well formed.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := s.UserIDs(ctx)
	return err
}

// read loads the whole document. A missing or empty file is an empty store.
func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var docs map[string]json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrCorruptState, s.path, err)
	}
	if docs == nil {
		docs = map[string]json.RawMessage{}
	}
	return docs, nil
}

// write replaces the file via a temp file in the same directory and a rename.
func (s *FileStore) write(docs map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
