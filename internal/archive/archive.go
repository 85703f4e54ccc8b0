// Package archive binds the company and invoice collections of one year.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/company"
	"github.com/pavlix/invoice/internal/invoice"
	"github.com/pavlix/invoice/internal/record"
	"github.com/pavlix/invoice/internal/storage"
)

var yearRe = regexp.MustCompile(`^[0-9]{4}$`)

// Archive is the per-year view of an archive root.
type Archive struct {
	root      string
	year      int
	logger    *slog.Logger
	now       func() time.Time
	store     *storage.FS
	companies *record.Collection
	invoices  *record.Collection
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger used by the archive and its collections.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = l
	}
}

// WithClock overrides the clock used to date new invoices.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		a.now = now
	}
}

// Open opens the archive at root for year, creating root if needed.
func Open(root string, year int, opts ...Option) (*Archive, error) {
	a := &Archive{
		root:   root,
		year:   year,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create root: %w", err)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	a.store = store
	a.root = store.Root()

	if a.companies, err = record.NewCollection(company.Schema, store, year, a.logger); err != nil {
		return nil, err
	}
	if a.invoices, err = record.NewCollection(invoice.Schema, store, year, a.logger); err != nil {
		return nil, err
	}
	a.logger.Debug("archive opened", slog.String("root", a.root), slog.Int("year", year))
	return a, nil
}

// Root returns the absolute archive root.
func (a *Archive) Root() string { return a.root }

// Year returns the archive year.
func (a *Archive) Year() int { return a.year }

// Companies returns the company collection.
func (a *Archive) Companies() *record.Collection { return a.companies }

// Invoices returns the invoice collection.
func (a *Archive) Invoices() *record.Collection { return a.invoices }

// Collection returns the collection for kind.
func (a *Archive) Collection(kind record.Kind) (*record.Collection, error) {
	switch kind {
	case record.KindCompany:
		return a.companies, nil
	case record.KindInvoice:
		return a.invoices, nil
	default:
		return nil, fmt.Errorf("archive: unknown record kind %q", kind)
	}
}

// NewInvoice creates the next invoice for companyName, dated today.
//
// Reading the highest sequence number and creating the file are separate
// steps: a concurrent NewInvoice may pick the same number, in which case
// one of them fails with apperr.ErrAlreadyExists and may be retried.
func (a *Archive) NewInvoice(companyName string) (*record.Record, error) {
	ok, err := a.companies.Contains(record.Name(companyName))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("company %q: %w", companyName, apperr.ErrNotFound)
	}
	name, err := invoice.NextName(a.invoices, companyName, a.now())
	if err != nil {
		return nil, err
	}
	return a.invoices.Create(name)
}

// DependentInvoices returns the invoices referencing companyName.
func (a *Archive) DependentInvoices(companyName string) ([]*record.Record, error) {
	return a.invoices.Select(record.Match{"company_name": companyName})
}

// Company loads the company data for name.
func (a *Archive) Company(name string) (*company.Data, error) {
	r, err := a.companies.Get(record.Name(name))
	if err != nil {
		return nil, err
	}
	return company.Load(r)
}

// Years lists the year directories under root in ascending order.
// A missing root has no years.
func Years(root string) ([]int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: read root: %w", err)
	}
	var years []int
	for _, e := range entries {
		if !e.IsDir() || !yearRe.MatchString(e.Name()) {
			continue
		}
		y, _ := strconv.Atoi(e.Name())
		years = append(years, y)
	}
	slices.Sort(years)
	return years, nil
}
