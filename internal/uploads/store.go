// Package uploads bridges the import preview→confirm handshake: the uploaded
// workbook is parked on disk under a one-time token between the two requests,
// and committed files can be archived to S3 for audit.
package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sisarm/sisarm-search/pkg/logging"
)

// ErrNotFound is returned when a token does not resolve to a parked file,
// either because it never existed or the sweep already reclaimed it.
var ErrNotFound = fmt.Errorf("uploads: token desconocido o expirado")

type pending struct {
	path     string
	filename string
	savedAt  time.Time
}

// Store parks uploaded files on local disk keyed by token.
type Store struct {
	dir    string
	ttl    time.Duration
	logger *logging.Logger

	mu      sync.Mutex
	pending map[string]pending
}

// NewStore creates the temp directory if needed. ttl bounds how long an
// unconfirmed preview survives before the sweep reclaims it.
func NewStore(dir string, ttl time.Duration, logger *logging.Logger) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "sisarm-imports")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: crear directorio temporal: %w", err)
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{dir: dir, ttl: ttl, logger: logger, pending: map[string]pending{}}, nil
}

// Save copies the upload to disk and returns the token the client must send
// back on confirm.
func (s *Store) Save(r io.Reader, filename string) (string, error) {
	token := uuid.NewString()
	path := filepath.Join(s.dir, token+".xlsx")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("uploads: crear archivo temporal: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("uploads: guardar archivo temporal: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("uploads: cerrar archivo temporal: %w", err)
	}

	s.mu.Lock()
	s.pending[token] = pending{path: path, filename: filename, savedAt: time.Now()}
	s.mu.Unlock()
	return token, nil
}

// Resolve maps a token back to the parked file path and original filename.
func (s *Store) Resolve(token string) (path, filename string, err error) {
	s.mu.Lock()
	p, ok := s.pending[token]
	s.mu.Unlock()
	if !ok {
		return "", "", ErrNotFound
	}
	return p.path, p.filename, nil
}

// Release deletes the parked file once the commit finished (or the operator
// cancelled).
func (s *Store) Release(token string) {
	s.mu.Lock()
	p, ok := s.pending[token]
	delete(s.pending, token)
	s.mu.Unlock()
	if ok {
		if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("temp upload cleanup failed", "path", p.path, "error", err)
		}
	}
}

// SweepAbandoned reclaims previews that were never confirmed. Returns how
// many files were removed.
func (s *Store) SweepAbandoned() int {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	var stale []string
	for token, p := range s.pending {
		if p.savedAt.Before(cutoff) {
			stale = append(stale, token)
		}
	}
	s.mu.Unlock()

	for _, token := range stale {
		s.Release(token)
	}
	return len(stale)
}

// RunSweeper sweeps on the given interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepAbandoned(); n > 0 {
				s.logger.Info("abandoned import previews reclaimed", "count", n)
			}
		}
	}
}
