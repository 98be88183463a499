// Package store persists companies to a JSON array file.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/aluiziolira/go-scrape-companies/config"
	"github.com/aluiziolira/go-scrape-companies/models"
)

var (
	// ErrNotFound is returned by Load when the file does not exist.
	ErrNotFound = errors.New("store: file not found")
	// ErrStoreConflict is returned when the output file exists and neither
	// force nor continue was requested.
	ErrStoreConflict = errors.New("store: output file already exists")
	// ErrCorruptStore is returned when an existing file cannot be parsed.
	ErrCorruptStore = errors.New("store: output file is not a valid companies JSON array")
)

// JSONStore holds companies in memory and writes the whole collection on Flush.
// It is not safe for concurrent use.
type JSONStore struct {
	path      string
	companies []models.Company
	index     map[string]int
}

// Exists reports whether path may be present on disk. Only a not-exist
// error rules it out.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// Open resolves the run mode against the state of path. A stat failure
// other than a missing file is returned.
func Open(path string, mode config.Mode) (*JSONStore, error) {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newStore(path, nil), nil
	case err != nil:
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}

	switch mode {
	case config.ModeForce:
		return Reset(path)
	case config.ModeContinue:
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("cannot write file %q: %w", path, ErrStoreConflict)
	}
}

// Load reads an existing JSON array of companies.
func Load(path string) (*JSONStore, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}

	var companies []models.Company
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&companies); err != nil {
		return nil, fmt.Errorf("cannot read file %q, only forcing is available: %w: %v", path, ErrCorruptStore, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("cannot read file %q, only forcing is available: %w: trailing data", path, ErrCorruptStore)
	}
	if companies == nil {
		companies = []models.Company{}
	}
	return newStore(path, companies), nil
}

// Reset truncates path to an empty collection and persists it immediately.
func Reset(path string) (*JSONStore, error) {
	s := newStore(path, nil)
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(path string, companies []models.Company) *JSONStore {
	if companies == nil {
		companies = []models.Company{}
	}
	s := &JSONStore{path: path, companies: companies}
	s.reindex()
	return s
}

// Path returns the backing file.
func (s *JSONStore) Path() string {
	return s.path
}

// Contains reports whether a company with url is held.
func (s *JSONStore) Contains(url string) bool {
	_, ok := s.index[url]
	return ok
}

// Get returns the company stored under url.
func (s *JSONStore) Get(url string) (models.Company, bool) {
	i, ok := s.index[url]
	if !ok {
		return models.Company{}, false
	}
	return s.companies[i], true
}

// Append adds a company in memory. It is not persisted until Flush.
func (s *JSONStore) Append(company models.Company) {
	s.companies = append(s.companies, company)
	if _, ok := s.index[company.URL]; !ok {
		s.index[company.URL] = len(s.companies) - 1
	}
}

// Len returns the number of held companies.
func (s *JSONStore) Len() int {
	return len(s.companies)
}

// All returns a copy of the held companies in order.
func (s *JSONStore) All() []models.Company {
	return slices.Clone(s.companies)
}

// Sort reorders held companies with cmp. The sort is stable.
func (s *JSONStore) Sort(cmp func(a, b models.Company) int) {
	slices.SortStableFunc(s.companies, cmp)
	s.reindex()
}

// Flush writes the whole collection, replacing the file atomically.
func (s *JSONStore) Flush() error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.companies); err != nil {
		return fmt.Errorf("encode companies: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %q: %w", tmpName, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %q: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %q: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) reindex() {
	s.index = make(map[string]int, len(s.companies))
	for i, c := range s.companies {
		if _, ok := s.index[c.URL]; !ok {
			s.index[c.URL] = i
		}
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
