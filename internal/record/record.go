package record

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/pavlix/invoice/internal/apperr"
)

// DeletedSuffix is appended to a record's file name on soft delete.
const DeletedSuffix = "~"

// Record is one entry of a collection, identified by its selector.
type Record struct {
	coll     *Collection
	selector Selector
	name     string
	rel      string // path relative to the archive root
	abs      string
}

func newRecord(c *Collection, sel Selector) (*Record, error) {
	sel["year"] = c.year
	if c.schema.Coerce != nil {
		if err := c.schema.Coerce(sel); err != nil {
			return nil, err
		}
	}
	name := c.schema.Format(sel)
	rel := path.Join(c.dir, name)
	abs, err := c.store.Abs(rel)
	if err != nil {
		return nil, err
	}
	return &Record{
		coll:     c,
		selector: sel,
		name:     name,
		rel:      rel,
		abs:      abs,
	}, nil
}

// Name returns the record's file name.
func (r *Record) Name() string { return r.name }

// Kind returns the record type.
func (r *Record) Kind() Kind { return r.coll.schema.Kind }

// Year returns the year of the owning collection.
func (r *Record) Year() int { return r.coll.year }

// Path returns the absolute path of the backing file.
func (r *Record) Path() string { return r.abs }

// Selector returns a copy of the record's selector.
func (r *Record) Selector() Selector { return r.selector.Clone() }

// Attr returns a selector attribute. "name" falls back to the record name
// when the grammar has no such capture.
func (r *Record) Attr(key string) (any, bool) {
	if v, ok := r.selector[key]; ok {
		return v, true
	}
	if key == "name" {
		return r.name, true
	}
	return nil, false
}

// String implements fmt.Stringer.
func (r *Record) String() string { return r.name }

// Compare orders records by name.
func Compare(a, b *Record) int {
	return strings.Compare(a.name, b.name)
}

// Delete soft-deletes the record by renaming its file with DeletedSuffix.
// The file must exist; deleting a record twice fails.
func (r *Record) Delete() error {
	logger := r.coll.logger
	logger.Info("deleting record", slog.String("kind", string(r.Kind())), slog.String("name", r.name))

	ok, err := r.coll.store.Exists(r.rel)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %q: %w", r.Kind(), r.name, apperr.ErrNotFound)
	}
	target := r.rel + DeletedSuffix
	logger.Debug("renaming file", slog.String("from", r.rel), slog.String("to", target))
	if err := r.coll.store.Move(r.rel, target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s %q: %w", r.Kind(), r.name, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

// Data reads and parses the record file. Nothing is cached: every call
// reflects the file as it is on disk now.
func (r *Record) Data() (*Data, error) {
	content, err := r.coll.store.Read(r.rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s %q: %w", r.Kind(), r.name, apperr.ErrNotFound)
		}
		return nil, err
	}
	d := parseData(r, content)
	if pp := r.coll.schema.Postprocess; pp != nil {
		if err := pp(d); err != nil {
			return nil, fmt.Errorf("%s %q: %w", r.Kind(), r.name, err)
		}
	}
	return d, nil
}
