package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"otc-analytics/internal/extract"
	"otc-analytics/internal/normalize"
	"otc-analytics/internal/senior"
	"otc-analytics/internal/snapshot"

	"github.com/rs/zerolog/log"
)

// ErrNoSnapshot is returned when a cached batch is requested but none exists.
var ErrNoSnapshot = errors.New("no cached snapshot")

// WebserviceSource names webservice batches in the snapshot cache.
const WebserviceSource = "webservice"

// Part is a group of rows sharing one schema.
type Part struct {
	Schema normalize.Schema
	Rows   []normalize.Row
}

// Batch is everything one load produced.
type Batch struct {
	Name  string
	Parts []Part
}

// Rows counts the rows of every part.
func (b *Batch) Rows() int {
	n := 0
	for _, p := range b.Parts {
		n += len(p.Rows)
	}
	return n
}

// Loader produces a raw batch.
type Loader interface {
	Load(ctx context.Context) (*Batch, error)
}

// Files loads spreadsheet and XML extracts from disk.
type Files struct {
	Paths []string
	// Schema overrides the schema guessed from each file's extension.
	Schema normalize.Schema
}

// Load reads every file concurrently, one part per file.
func (f Files) Load(ctx context.Context) (*Batch, error) {
	if len(f.Paths) == 0 {
		return nil, fmt.Errorf("no extract files given")
	}

	parts, err := extract.Load(ctx, f.Paths)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Name: names(f.Paths)}
	for i, path := range f.Paths {
		schema := f.Schema
		if schema == "" {
			schema = extract.SchemaFor(path)
		}
		batch.Parts = append(batch.Parts, Part{Schema: schema, Rows: parts[i]})
	}
	return batch, nil
}

// Webservice fetches one day of the order timeline and mirrors it to the
// snapshot cache. When the request fails a cached copy of the same day is used.
type Webservice struct {
	Client senior.Client
	Store  *snapshot.Store
	Date   time.Time
}

// Load fetches the timeline of Date.
func (w Webservice) Load(ctx context.Context) (*Batch, error) {
	key := snapshot.Key(WebserviceSource, w.Date)

	rows, err := w.Client.Timeline(ctx, w.Date)
	if err != nil {
		if w.Store == nil || errors.Is(err, context.Canceled) {
			return nil, err
		}
		log.Warn().Err(err).Str("key", key).Msg("Webservice request failed, falling back to snapshot")
		batch, cerr := Snapshot{Store: w.Store, Key: key}.Load(ctx)
		if cerr != nil {
			return nil, fmt.Errorf("%w (snapshot fallback: %w)", err, cerr)
		}
		return batch, nil
	}

	if w.Store != nil {
		w.Store.Append(key, rows)
		if _, err := w.Store.Save(key, WebserviceSource, normalize.Webservice); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to save snapshot")
		}
	}
	return &Batch{Name: key, Parts: []Part{{Schema: normalize.Webservice, Rows: rows}}}, nil
}

// Snapshot replays a cached batch.
type Snapshot struct {
	Store *snapshot.Store
	Key   string
}

// Load reads the batch stored under Key.
func (s Snapshot) Load(ctx context.Context) (*Batch, error) {
	meta, err := s.Store.Load(s.Key)
	if err != nil {
		return nil, err
	}
	rows := s.Store.Rows(s.Key)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, s.Key)
	}
	schema := normalize.Webservice
	if meta != nil && meta.Schema != "" {
		schema = meta.Schema
	}
	return &Batch{Name: s.Key, Parts: []Part{{Schema: schema, Rows: rows}}}, nil
}

func names(paths []string) string {
	base := make([]string, len(paths))
	for i, p := range paths {
		base[i] = filepath.Base(p)
	}
	return strings.Join(base, ",")
}
