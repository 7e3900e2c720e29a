// Package session implements the Session Store: a single JSON file
// recording operator progress, written atomically and optionally
// gzip-compressed, with strict corrupted/missing/incompatible-schema
// classification on load.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"triage/internal/models"
)

// gzipSizeThreshold is the serialized-size cutoff above which Save
// compresses the file.
const gzipSizeThreshold = 100 * 1024

var gzipMagic = []byte{0x1f, 0x8b}

// Store reads and writes exactly one SessionState file at Path.
type Store struct {
	Path string
}

// New returns a Store rooted at path.
func New(path string) *Store {
	return &Store{Path: path}
}

// Load reads and validates the session file. The three failure modes —
// missing, corrupted, incompatible schema — are distinguishable via
// errors.Is against the models.ErrSession* sentinels even though callers
// at the UX level treat them identically ("offer start fresh").
func (s *Store) Load() (*models.SessionState, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrSessionMissing
		}
		return nil, fmt.Errorf("%w: %v", models.ErrSessionCorrupted, err)
	}

	decoded, err := maybeGunzip(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSessionCorrupted, err)
	}

	var state models.SessionState
	if err := json.Unmarshal(decoded, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSessionCorrupted, err)
	}

	if state.SchemaVersion != models.SchemaVersion {
		return nil, fmt.Errorf("%w: got %q want %q", models.ErrSessionIncompatibleSchema, state.SchemaVersion, models.SchemaVersion)
	}

	if !distinct(state.CompletedPatternIDs) || !distinct(state.SkippedPatternIDs) {
		return nil, fmt.Errorf("%w: duplicate ids in pattern id sets", models.ErrSessionCorrupted)
	}
	if !state.Disjoint() {
		return nil, fmt.Errorf("%w: completed and skipped sets overlap", models.ErrSessionCorrupted)
	}

	return &state, nil
}

// Save serializes state and atomically replaces the session file:
// write to a temp file in the same directory, then rename. A crash
// mid-write leaves the previous file intact (never a torn write),
// so a reader never observes a half-written file. The caller (the
// Orchestrator) must not call Save
// concurrently with itself — this Store applies no locking of its own.
func (s *Store) Save(state *models.SessionState) error {
	body, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	if len(body) > gzipSizeThreshold {
		body, err = gzipCompress(body)
		if err != nil {
			return fmt.Errorf("compress session state: %w", err)
		}
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("rename session file into place: %w", err)
	}
	return nil
}

// Discard deletes the session file. Deleting an already-absent file is
// not an error.
func (s *Store) Discard() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discard session file: %w", err)
	}
	return nil
}

func maybeGunzip(raw []byte) ([]byte, error) {
	if len(raw) < 2 || !bytes.Equal(raw[:2], gzipMagic) {
		return raw, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipCompress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func distinct(ss []string) bool {
	seen := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			return false
		}
		seen[s] = struct{}{}
	}
	return true
}
