package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"otc-analytics/internal/normalize"
	"otc-analytics/internal/senior"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnsupportedFile is returned for extensions no reader handles.
	ErrUnsupportedFile = errors.New("unsupported extract file")
	// ErrNoRecords is returned when a file holds a header but no data rows.
	ErrNoRecords = errors.New("no records in extract")
)

// SchemaFor guesses the schema of a file from its extension: saved webservice
// responses are XML, spreadsheets default to the operational extract layout.
func SchemaFor(path string) normalize.Schema {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return normalize.Webservice
	}
	return normalize.Extract
}

// LoadFile reads one extract into source rows.
func LoadFile(path string) ([]normalize.Row, error) {
	var (
		rows []normalize.Row
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = ReadXLSX(path, "")
	case ".xml":
		rows, err = readXML(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecords, path)
	}
	log.Info().Str("path", path).Int("rows", len(rows)).Msg("Loaded extract")
	return rows, nil
}

// Load reads several extracts concurrently. The result holds one slice per
// path, in argument order.
func Load(ctx context.Context, paths []string) ([][]normalize.Row, error) {
	results := make([][]normalize.Row, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := LoadFile(path)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readXML(path string) ([]normalize.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract: %w", err)
	}
	defer file.Close()

	rows, err := senior.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
