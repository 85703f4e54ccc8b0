package record

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/storage"
)

// Collection is the set of records of one schema in one year's directory.
// It holds no records in memory: every call re-scans the directory.
type Collection struct {
	schema *Schema
	store  storage.Provider
	year   int
	dir    string // relative to the archive root
	logger *slog.Logger
}

// NewCollection binds schema to <year>/data/<schema.Directory> under store.
func NewCollection(schema *Schema, store storage.Provider, year int, logger *slog.Logger) (*Collection, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	dir := path.Join(strconv.Itoa(year), "data", schema.Directory)
	logger = logger.With(slog.String("collection", string(schema.Kind)))
	logger.Debug("collection opened", slog.String("dir", dir))
	return &Collection{
		schema: schema,
		store:  store,
		year:   year,
		dir:    dir,
		logger: logger,
	}, nil
}

// Schema returns the collection's schema.
func (c *Collection) Schema() *Schema { return c.schema }

// Year returns the collection's year.
func (c *Collection) Year() int { return c.year }

// Dir returns the absolute path of the backing directory.
func (c *Collection) Dir() (string, error) { return c.store.Abs(c.dir) }

// All yields one record per file whose name matches the schema grammar, in
// directory order. Other names are skipped. A missing directory is an empty
// collection. The sequence can be ranged over repeatedly; each pass
// re-reads the directory.
func (c *Collection) All() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		names, err := c.store.List(c.dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			yield(nil, err)
			return
		}
		for _, name := range names {
			sel, ok := c.schema.Captures(name)
			if !ok {
				continue
			}
			r, err := newRecord(c, sel)
			if !yield(r, err) || err != nil {
				return
			}
		}
	}
}

// List returns all records sorted by name.
func (c *Collection) List() ([]*Record, error) {
	return c.collect(func(*Record) bool { return true })
}

func (c *Collection) collect(keep func(*Record) bool) ([]*Record, error) {
	var out []*Record
	for r, err := range c.All() {
		if err != nil {
			return nil, err
		}
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, Compare)
	return out, nil
}

// Last returns the record with the greatest name.
func (c *Collection) Last() (*Record, error) {
	var last *Record
	for r, err := range c.All() {
		if err != nil {
			return nil, err
		}
		if last == nil || Compare(r, last) > 0 {
			last = r
		}
	}
	if last == nil {
		return nil, fmt.Errorf("%s collection is empty: %w", c.schema.Kind, apperr.ErrNotFound)
	}
	return last, nil
}

// Select returns the records matching q, sorted by name. A nil q selects
// the last record and fails with apperr.ErrNotFound if there is none.
func (c *Collection) Select(q Query) ([]*Record, error) {
	if q == nil {
		r, err := c.Last()
		if err != nil {
			return nil, err
		}
		return []*Record{r}, nil
	}
	m, err := c.match(q)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("selecting", slog.String("match", m.String()))
	return c.collect(m.matches)
}

// match reduces a query to attribute equality.
func (c *Collection) match(q Query) (Match, error) {
	switch q := q.(type) {
	case Name:
		if c.schema.Resolve == nil {
			return Match{"name": string(q)}, nil
		}
		resolved, err := c.schema.Resolve(string(q))
		if err != nil {
			return nil, err
		}
		if _, again := resolved.(Name); again || resolved == nil {
			return nil, fmt.Errorf("record: %s resolve returned %T", c.schema.Kind, resolved)
		}
		return c.match(resolved)
	case Number:
		return Match{"number": int(q)}, nil
	case Match:
		return q, nil
	default:
		return nil, fmt.Errorf("record: unsupported query %T", q)
	}
}

// Contains reports whether q selects at least one record.
func (c *Collection) Contains(q Query) (bool, error) {
	items, err := c.Select(q)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

// Get returns the single record selected by q. Name templates are
// collision free, so more than one match means the collection is corrupt
// and Get panics.
func (c *Collection) Get(q Query) (*Record, error) {
	items, err := c.Select(q)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, fmt.Errorf("%s %s: %w", c.schema.Kind, describe(q), apperr.ErrNotFound)
	case 1:
		c.logger.Debug("found record", slog.String("name", items[0].name))
		return items[0], nil
	default:
		panic(fmt.Sprintf("record: %s %s matched %d records", c.schema.Kind, describe(q), len(items)))
	}
}

// Lookup is Get for front ends reading user input. Two invoices created
// concurrently for different companies may share a sequence number, so
// more than one match is reported as apperr.ErrAmbiguous instead of a panic.
func (c *Collection) Lookup(q Query) (*Record, error) {
	items, err := c.Select(q)
	if err != nil {
		return nil, err
	}
	if len(items) > 1 {
		names := make([]string, len(items))
		for i, r := range items {
			names[i] = r.name
		}
		return nil, fmt.Errorf("%s %s matches %s: %w",
			c.schema.Kind, describe(q), strings.Join(names, ", "), apperr.ErrAmbiguous)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s %s: %w", c.schema.Kind, describe(q), apperr.ErrNotFound)
	}
	return items[0], nil
}

// Create writes a new record file with the schema template and returns the
// new record. The name must match the grammar and must not exist yet.
func (c *Collection) Create(name string) (*Record, error) {
	c.logger.Info("creating record", slog.String("name", name))
	if _, ok := c.schema.Captures(name); !ok {
		return nil, fmt.Errorf("%s name %q does not match %s: %w",
			c.schema.Kind, name, c.schema.Grammar, apperr.ErrNameInvalid)
	}
	exists, err := c.Contains(Name(name))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s %q: %w", c.schema.Kind, name, apperr.ErrAlreadyExists)
	}
	rel := path.Join(c.dir, name)
	c.logger.Debug("creating file", slog.String("path", rel))
	if err := c.store.Create(rel, []byte(c.schema.Template)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%s %q: %w", c.schema.Kind, name, apperr.ErrAlreadyExists)
		}
		return nil, err
	}
	return c.Get(Name(name))
}
