package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"otc-analytics/internal/normalize"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Meta describes one cached batch.
type Meta struct {
	ID        string           `json:"id"`
	Key       string           `json:"key"`
	Source    string           `json:"source"`
	Schema    normalize.Schema `json:"schema"`
	FetchedAt time.Time        `json:"fetched_at"`
	Rows      int              `json:"rows"`
}

// Store keeps raw source batches in memory and mirrors them to JSONL files.
type Store struct {
	dir     string
	mu      sync.RWMutex
	batches map[string][]normalize.Row
	seen    map[string]map[string]bool
}

// NewStore creates an empty store backed by dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:     dir,
		batches: make(map[string][]normalize.Row),
		seen:    make(map[string]map[string]bool),
	}
}

// Key names the batch of a source for one reference date.
func Key(source string, date time.Time) string {
	return fmt.Sprintf("%s_%s", sanitize(source), date.Format("2006-01-02"))
}

// Append adds rows to a batch, skipping exact duplicates and keeping arrival order.
func (s *Store) Append(key string, rows []normalize.Row) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := s.seen[key]
	if seen == nil {
		seen = make(map[string]bool)
		s.seen[key] = seen
	}

	added := 0
	for _, row := range rows {
		id := identity(row)
		if seen[id] {
			continue
		}
		seen[id] = true
		s.batches[key] = append(s.batches[key], row)
		added++
	}
	return added
}

// Rows returns a copy of the batch.
func (s *Store) Rows(key string) []normalize.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]normalize.Row, len(s.batches[key]))
	copy(out, s.batches[key])
	return out
}

// Count returns the number of rows held for key.
func (s *Store) Count(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches[key])
}

// Load reads a batch from its JSONL file. A missing file is not an error.
func (s *Store) Load(key string) (*Meta, error) {
	meta, err := s.readMeta(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(s.path(key, ".jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	var rows []normalize.Row
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var row normalize.Row
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Skipping invalid JSON line in snapshot")
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	log.Info().Str("key", key).Int("count", len(rows)).Msg("Loaded rows from snapshot")
	s.Append(key, rows)
	return meta, nil
}

// Save persists a batch and its metadata. Files are written to a temp path
// and renamed into place.
func (s *Store) Save(key, source string, schema normalize.Schema) (*Meta, error) {
	s.mu.RLock()
	rows := s.batches[key]
	s.mu.RUnlock()

	if len(rows) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	err := writeAtomic(s.path(key, ".jsonl"), func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return fmt.Errorf("failed to encode row: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	meta := &Meta{
		ID:        uuid.NewString(),
		Key:       key,
		Source:    source,
		Schema:    schema,
		FetchedAt: time.Now().UTC(),
		Rows:      len(rows),
	}
	err = writeAtomic(s.path(key, ".meta.json"), func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("key", key).Int("count", len(rows)).Msg("Snapshot saved to cache")
	return meta, nil
}

// List returns the metadata of every cached batch, newest first.
func (s *Store) List() ([]Meta, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.meta.json"))
	if err != nil {
		return nil, err
	}
	var out []Meta
	for _, path := range matches {
		key := strings.TrimSuffix(filepath.Base(path), ".meta.json")
		meta, err := s.readMeta(key)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable snapshot metadata")
			continue
		}
		if meta != nil {
			out = append(out, *meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FetchedAt.After(out[j].FetchedAt) })
	return out, nil
}

func (s *Store) readMeta(key string) (*Meta, error) {
	data, err := os.ReadFile(s.path(key, ".meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot metadata: %w", err)
	}
	return &meta, nil
}

func (s *Store) path(key, ext string) string {
	return filepath.Join(s.dir, sanitize(key)+ext)
}

func writeAtomic(path string, write func(*bufio.Writer) error) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := write(writer); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// identity is a canonical rendering of a row used to drop exact duplicates.
func identity(row normalize.Row) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		if v := row[k]; v != nil {
			sb.WriteByte('=')
			sb.WriteString(*v)
		} else {
			sb.WriteString("!")
		}
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
