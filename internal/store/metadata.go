package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Keys used in the metadata table.
const (
	keyRoot     = "root"
	keyLastScan = "last_scan"
)

// Get retrieves a value by key. Missing keys return ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores a key-value pair, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	return err
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM metadata WHERE key = ?", key)
	return err
}

// GetRoot returns the persisted root path, or ErrNotFound.
func (s *Store) GetRoot(ctx context.Context) (string, error) {
	start := time.Now()
	path, err := s.Get(ctx, keyRoot)
	if err == nil && path == "" {
		err = ErrNotFound
	}
	observe("get_root", start, err)
	return path, err
}

// SaveRoot persists the root path, overwriting the previous one.
func (s *Store) SaveRoot(ctx context.Context, path string) error {
	start := time.Now()
	err := s.Set(ctx, keyRoot, path)
	observe("save_root", start, err)
	return err
}

// ClearRoot forgets the persisted root.
func (s *Store) ClearRoot(ctx context.Context) error {
	start := time.Now()
	err := s.Delete(ctx, keyRoot)
	observe("clear_root", start, err)
	return err
}

// GetLastScan returns when the last successful scan finished.
// Returns zero time if never recorded.
func (s *Store) GetLastScan(ctx context.Context) (time.Time, error) {
	value, err := s.Get(ctx, keyLastScan)
	if errors.Is(err, ErrNotFound) || value == "" {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastScan records when the last successful scan finished.
func (s *Store) SetLastScan(ctx context.Context, t time.Time) error {
	return s.Set(ctx, keyLastScan, t.UTC().Format(time.RFC3339))
}
