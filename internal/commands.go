package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/document"
	"github.com/pavlix/invoice/internal/export"
	"github.com/pavlix/invoice/internal/invoice"
	"github.com/pavlix/invoice/internal/mcpserver"
	"github.com/pavlix/invoice/internal/record"
	"github.com/pavlix/invoice/internal/watch"
)

// newInvoiceAttempts bounds retries when a concurrent writer takes the
// same sequence number.
const newInvoiceAttempts = 3

// List prints the names of all records of kind, oldest first.
func (a *App) List(kind record.Kind) error {
	c, err := a.archive.Collection(kind)
	if err != nil {
		return err
	}
	items, err := c.List()
	if err != nil {
		return err
	}
	for _, r := range items {
		fmt.Fprintln(a.stdout, r.Name())
	}
	return nil
}

// NewInvoice creates the next invoice for companyName and opens it in the
// editor. A sequence number taken by a concurrent writer for the same
// company is retried; one taken for another company cannot be detected
// before creation and is logged as a warning afterwards.
func (a *App) NewInvoice(ctx context.Context, companyName string) error {
	var (
		r   *record.Record
		err error
	)
	for attempt := 1; attempt <= newInvoiceAttempts; attempt++ {
		r, err = a.archive.NewInvoice(companyName)
		if !errors.Is(err, apperr.ErrAlreadyExists) {
			break
		}
		a.logger.Warn("invoice number taken, retrying",
			slog.String("company", companyName),
			slog.Int("attempt", attempt))
	}
	if err != nil {
		return err
	}
	a.logger.Info("invoice created", slog.String("name", r.Name()))
	a.warnDuplicateNumber(r)
	return a.open(ctx, a.cfg.Tools.Editor, r.Path())
}

// warnDuplicateNumber reports invoices sharing r's sequence number. That
// happens when invoices for different companies are created concurrently;
// selecting such an invoice by number then fails with apperr.ErrAmbiguous
// until one of them is renamed.
func (a *App) warnDuplicateNumber(r *record.Record) {
	seq, ok := r.Attr("number")
	if !ok {
		return
	}
	n, _ := seq.(int)
	dups, err := a.archive.Invoices().Select(record.Number(n))
	if err != nil || len(dups) < 2 {
		return
	}
	for _, d := range dups {
		a.logger.Warn("duplicate invoice number", slog.Int("number", n), slog.String("name", d.Name()))
	}
}

// NewCompany creates a company record and opens it in the editor.
func (a *App) NewCompany(ctx context.Context, name string) error {
	r, err := a.archive.Companies().Create(name)
	if err != nil {
		return err
	}
	a.logger.Info("company created", slog.String("name", r.Name()))
	return a.open(ctx, a.cfg.Tools.Editor, r.Path())
}

// Edit opens the selected record in the editor.
func (a *App) Edit(ctx context.Context, kind record.Kind, selector string) error {
	r, err := a.get(kind, selector)
	if err != nil {
		return err
	}
	return a.open(ctx, a.cfg.Tools.Editor, r.Path())
}

// Show opens the selected record in the viewer.
func (a *App) Show(ctx context.Context, kind record.Kind, selector string) error {
	r, err := a.get(kind, selector)
	if err != nil {
		return err
	}
	return a.open(ctx, a.cfg.Tools.Viewer, r.Path())
}

// Delete soft-deletes the selected record. Without force, invoices are
// never deleted and companies only when no invoice of the year refers
// to them.
func (a *App) Delete(kind record.Kind, selector string, force bool) error {
	r, err := a.get(kind, selector)
	if err != nil {
		return err
	}
	if !force {
		switch kind {
		case record.KindInvoice:
			return fmt.Errorf("%w: it is not recommended to delete invoices", apperr.ErrSanityCheck)
		case record.KindCompany:
			deps, err := a.archive.DependentInvoices(r.Name())
			if err != nil {
				return err
			}
			if len(deps) > 0 {
				for _, inv := range deps {
					a.logger.Info("dependent invoice", slog.String("name", inv.Name()))
				}
				return fmt.Errorf("%w: company %s is used by %d invoice(s)", apperr.ErrSanityCheck, r.Name(), len(deps))
			}
		}
	}
	if err := r.Delete(); err != nil {
		return err
	}
	a.logger.Info("record deleted", slog.String("kind", string(kind)), slog.String("name", r.Name()))
	return nil
}

// PDF opens the PDF of the selected invoice, generating it first when
// generate is set.
func (a *App) PDF(ctx context.Context, selector string, generate bool) error {
	r, err := a.get(record.KindInvoice, selector)
	if err != nil {
		return err
	}
	p := a.pipeline()

	var out string
	if generate {
		inv, err := invoice.Load(r)
		if err != nil {
			return err
		}
		issuer, err := a.archive.Company(a.cfg.Archive.Issuer)
		if err != nil {
			return fmt.Errorf("issuer: %w", err)
		}
		customer, err := a.archive.Company(inv.CompanyName)
		if err != nil {
			return fmt.Errorf("customer: %w", err)
		}
		a.logger.Debug("generating PDF",
			slog.String("invoice", inv.Name),
			slog.String("issuer", issuer.Slug),
			slog.String("customer", customer.Slug))
		out, err = p.Generate(ctx, document.Document{Invoice: inv, Issuer: issuer, Customer: customer})
		if err != nil {
			return err
		}
	} else if out, err = p.Existing(r.Name()); err != nil {
		return err
	}

	a.logger.Debug("running PDF viewer", slog.String("path", out))
	return a.open(ctx, a.cfg.Tools.PDFViewer, out)
}

func (a *App) pipeline() *document.Pipeline {
	root := a.archive.Root()
	return &document.Pipeline{
		TemplateDir: a.cfg.Templates.Path,
		TmpDir:      filepath.Join(root, "tmp"),
		OutputDir:   filepath.Join(root, fmt.Sprint(a.archive.Year()), "output"),
		TeX:         a.cfg.Tools.TeX,
		Run:         document.RunFunc(a.run),
		Logger:      a.logger,
	}
}

// Export writes the invoices of every year as YAML to stdout.
func (a *App) Export(ctx context.Context) error {
	data, err := export.ReadAll(ctx, a.archive.Root(), a.logger)
	if err != nil {
		return err
	}
	return export.WriteYAML(a.stdout, data)
}

// Watch prints record changes of the open year until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		colls := []*record.Collection{a.archive.Companies(), a.archive.Invoices()}
		return watch.Watch(gCtx, colls, a.logger, func(ev watch.Event) {
			fmt.Fprintf(a.stdout, "%s %s %s\n", ev.Kind, ev.Record, ev.Name)
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	return g.Wait()
}

// ServeMCP serves the archive over MCP on stdin/stdout.
func (a *App) ServeMCP(version string) error {
	a.logger.Info("MCP server starting on stdio", slog.Int("year", a.archive.Year()))
	return mcpserver.New(a.archive, version).ServeStdio()
}

func (a *App) get(kind record.Kind, selector string) (*record.Record, error) {
	c, err := a.archive.Collection(kind)
	if err != nil {
		return nil, err
	}
	return c.Lookup(record.ParseQuery(selector))
}

// open runs tool with path appended. The tool may carry its own arguments,
// e.g. "code --wait".
func (a *App) open(ctx context.Context, tool, path string) error {
	argv := strings.Fields(tool)
	if len(argv) == 0 {
		return fmt.Errorf("no program configured to open %s", path)
	}
	a.logger.Debug("running tool", slog.String("tool", argv[0]), slog.String("path", path))
	return a.run(ctx, "", argv[0], append(argv[1:], path)...)
}
