package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dchest/safefile"
	"github.com/stagehand-labs/stagehand/internal/failure"
)

const (
	recordExt  = ".json"
	stagingDir = "staging"
	locksDir   = "locks"
)

// Store reads and writes records under a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Key turns an application id into a file-name-safe key.
func Key(id string) string {
	return url.PathEscape(id)
}

// Path returns the record file for id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, Key(id)+recordExt)
}

// StagingDir is where a run keeps the content it displaced until commit.
func (s *Store) StagingDir(runID string) string {
	return filepath.Join(s.dir, stagingDir, runID)
}

// LockDir holds per-application install locks.
func (s *Store) LockDir() string {
	return filepath.Join(s.dir, locksDir)
}

// Save writes rec atomically, replacing any earlier record for the same id.
func (s *Store) Save(rec *Record) error {
	if rec == nil || rec.App.ID == "" {
		return fmt.Errorf("record has no application id")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating record store %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	data = append(data, '\n')

	path := s.Path(rec.App.ID)
	if err := safefile.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing record %s: %w", path, err)
	}
	return nil
}

// Load reads the record for id. Unknown ids yield failure.ErrNotFound.
func (s *Store) Load(id string) (*Record, error) {
	path := s.Path(id)
	rec, err := readRecord(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, failure.New(failure.ErrNotFound, "no install record for %q", id)
	}
	return rec, err
}

// Exists reports whether a record for id is stored.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Delete removes the record for id.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return failure.New(failure.ErrNotFound, "no install record for %q", id)
	}
	if err != nil {
		return fmt.Errorf("deleting record for %q: %w", id, err)
	}
	return nil
}

// List returns every stored record ordered by application name then id.
// Unreadable files are skipped and reported through the returned error list.
func (s *Store) List() ([]*Record, []error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, []error{fmt.Errorf("reading record store %s: %w", s.dir, err)}
	}

	var (
		records []*Record
		errs    []error
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		rec, err := readRecord(filepath.Join(s.dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].App, records[j].App
		if !strings.EqualFold(a.Name, b.Name) {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return a.ID < b.ID
	})
	return records, errs
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", path, err)
	}
	return &rec, nil
}
