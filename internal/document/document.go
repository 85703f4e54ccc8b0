// Package document renders invoices to TeX and PDF.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/company"
	"github.com/pavlix/invoice/internal/invoice"
)

// TemplateName is the file looked up in the template directory.
const TemplateName = "invoice.tex"

// Document is the data a template is rendered with.
type Document struct {
	Invoice  *invoice.Data
	Issuer   *company.Data
	Customer *company.Data
}

// RunFunc starts an external program in dir.
type RunFunc func(ctx context.Context, dir, name string, args ...string) error

// Pipeline turns a Document into a PDF file.
type Pipeline struct {
	TemplateDir string
	TmpDir      string
	OutputDir   string
	TeX         string
	Run         RunFunc
	Logger      *slog.Logger
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"join": strings.Join,
	"value": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"tex": escape,
}

var texEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// escape quotes TeX special characters.
func escape(s string) string {
	return texEscaper.Replace(s)
}

// Render executes the invoice template into w.
func (p *Pipeline) Render(w io.Writer, doc Document) error {
	path := filepath.Join(p.TemplateDir, TemplateName)
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("document: read template: %w", err)
	}
	tmpl, err := template.New(TemplateName).Funcs(funcs).Parse(string(src))
	if err != nil {
		return fmt.Errorf("document: parse template: %w", err)
	}
	if err := tmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("document: render: %w", err)
	}
	return nil
}

// PDFPath returns where the PDF for the named invoice is stored.
func (p *Pipeline) PDFPath(name string) string {
	return filepath.Join(p.OutputDir, name+".pdf")
}

// Generate renders the TeX source, runs TeX in TmpDir and moves the PDF to
// OutputDir. It returns the PDF path.
func (p *Pipeline) Generate(ctx context.Context, doc Document) (string, error) {
	name := doc.Invoice.Name
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(p.TmpDir, 0o755); err != nil {
		return "", fmt.Errorf("document: create tmp dir: %w", err)
	}
	texFile := filepath.Join(p.TmpDir, name+".tex")

	logger.Debug("creating TeX invoice", slog.String("path", texFile))
	f, err := os.Create(texFile)
	if err != nil {
		return "", fmt.Errorf("document: create tex: %w", err)
	}
	if err := p.Render(f, doc); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("document: close tex: %w", err)
	}

	logger.Debug("creating PDF invoice", slog.String("tex", p.TeX))
	if err := p.Run(ctx, p.TmpDir, p.TeX, name+".tex"); err != nil {
		return "", fmt.Errorf("document: PDF generation failed: %w", err)
	}
	tmpPDF := filepath.Join(p.TmpDir, name+".pdf")
	if _, err := os.Stat(tmpPDF); err != nil {
		return "", fmt.Errorf("document: %s produced no PDF: %w", p.TeX, err)
	}

	logger.Debug("moving PDF file to the output directory", slog.String("dir", p.OutputDir))
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("document: create output dir: %w", err)
	}
	out := p.PDFPath(name)
	if err := os.Rename(tmpPDF, out); err != nil {
		return "", fmt.Errorf("document: move PDF: %w", err)
	}
	return out, nil
}

// Existing returns the PDF path for name if it has been generated.
func (p *Pipeline) Existing(name string) (string, error) {
	out := p.PDFPath(name)
	if _, err := os.Stat(out); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("PDF for %s not generated yet: %w", name, apperr.ErrNotFound)
		}
		return "", err
	}
	return out, nil
}
