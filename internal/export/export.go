// Package export dumps the invoices of every archive year.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pavlix/invoice/internal/archive"
)

// maxParallelYears bounds how many years are read at once.
const maxParallelYears = 4

// Years maps a year to the flattened data of its invoices, sorted by name.
type Years map[int][]map[string]any

// ReadAll reads every invoice of every year under root. Years without
// invoices are left out. Each year is read through its own Archive.
func ReadAll(ctx context.Context, root string, logger *slog.Logger) (Years, error) {
	years, err := archive.Years(root)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make(Years, len(years))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelYears)
	for _, year := range years {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data, err := readYear(root, year, logger)
			if err != nil {
				return fmt.Errorf("export %d: %w", year, err)
			}
			if len(data) == 0 {
				return nil
			}
			mu.Lock()
			out[year] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func readYear(root string, year int, logger *slog.Logger) ([]map[string]any, error) {
	a, err := archive.Open(root, year, archive.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	items, err := a.Invoices().List()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, r := range items {
		d, err := r.Data()
		if err != nil {
			return nil, err
		}
		out = append(out, d.Map())
	}
	logger.Debug("export: year read", slog.Int("year", year), slog.Int("invoices", len(out)))
	return out, nil
}

// WriteYAML writes data as a YAML document.
func WriteYAML(w io.Writer, data Years) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[int][]map[string]any(data)); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return enc.Close()
}
