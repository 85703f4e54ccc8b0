package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/record"
	"github.com/pavlix/invoice/internal/testutil"
)

type call struct {
	dir  string
	name string
	args []string
}

type harness struct {
	app    *App
	root   string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	calls  []call
	// onRun, when set, is called for every started program.
	onRun func(c call) error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		root:   t.TempDir(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}

	cfg := NewDefaultConfig()
	cfg.Tools.Editor = "ed"
	cfg.Tools.Viewer = "more -R"
	cfg.Tools.PDFViewer = "zathura"
	cfg.Templates.Path = filepath.Join(h.root, "templates")

	run := func(_ context.Context, dir, name string, args ...string) error {
		c := call{dir: dir, name: name, args: args}
		h.calls = append(h.calls, c)
		if h.onRun != nil {
			return h.onRun(c)
		}
		return nil
	}
	now := func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }

	app, err := New(
		WithConfig(cfg),
		WithRoot(h.root),
		WithOutput(h.stdout, h.stderr),
		WithRunner(run),
		WithClock(now),
	)
	require.NoError(t, err)
	h.app = app
	return h
}

func (h *harness) write(t *testing.T, rel, content string) {
	t.Helper()
	testutil.WriteFile(t, h.root, rel, content)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
}

func TestNew_DefaultsToCurrentYear(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 2024, h.app.Archive().Year())
	assert.Equal(t, h.root, h.app.Archive().Root())
}

func TestList(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/income/20240201-002-globex", "")
	h.write(t, "2024/data/income/20240101-001-acme", "")
	h.write(t, "2024/data/income/20240101-003-acme~", "")

	require.NoError(t, h.app.List(record.KindInvoice))
	assert.Equal(t, "20240101-001-acme\n20240201-002-globex\n", h.stdout.String())
}

func TestNewInvoice_OpensEditor(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/companies/acme", "Name: Acme\n")

	require.NoError(t, h.app.NewInvoice(context.Background(), "acme"))

	require.Len(t, h.calls, 1)
	assert.Equal(t, "ed", h.calls[0].name)
	want := filepath.Join(h.root, "2024", "data", "income", "20240305-001-acme")
	assert.Equal(t, []string{want}, h.calls[0].args)
	assert.FileExists(t, want)
}

func TestNewInvoice_UnknownCompany(t *testing.T) {
	h := newHarness(t)
	err := h.app.NewInvoice(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, h.calls)
}

func TestNewCompany(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.app.NewCompany(context.Background(), "acme"))
	require.Len(t, h.calls, 1)

	err := h.app.NewCompany(context.Background(), "acme")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	err = h.app.NewCompany(context.Background(), "Bad Name")
	assert.ErrorIs(t, err, apperr.ErrNameInvalid)
}

func TestShow_SplitsToolArguments(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/companies/acme", "Name: Acme\n")

	require.NoError(t, h.app.Show(context.Background(), record.KindCompany, "acme"))
	require.Len(t, h.calls, 1)
	assert.Equal(t, "more", h.calls[0].name)
	assert.Equal(t, []string{"-R", filepath.Join(h.root, "2024", "data", "companies", "acme")}, h.calls[0].args)
}

func TestEdit_LatestInvoiceByDefault(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/income/20240101-001-acme", "")
	h.write(t, "2024/data/income/20240201-002-acme", "")

	require.NoError(t, h.app.Edit(context.Background(), record.KindInvoice, ""))
	require.Len(t, h.calls, 1)
	assert.True(t, strings.HasSuffix(h.calls[0].args[0], "20240201-002-acme"))
}

func TestDeleteInvoice(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/income/20240101-001-acme", "")

	err := h.app.Delete(record.KindInvoice, "1", false)
	assert.ErrorIs(t, err, apperr.ErrSanityCheck)
	assert.FileExists(t, filepath.Join(h.root, "2024/data/income/20240101-001-acme"))

	require.NoError(t, h.app.Delete(record.KindInvoice, "1", true))
	assert.FileExists(t, filepath.Join(h.root, "2024/data/income/20240101-001-acme~"))

	err = h.app.Delete(record.KindInvoice, "1", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteCompany_WithDependents(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/companies/acme", "")
	h.write(t, "2024/data/income/20240101-001-acme", "")

	err := h.app.Delete(record.KindCompany, "acme", false)
	assert.ErrorIs(t, err, apperr.ErrSanityCheck)
	assert.Contains(t, h.stderr.String(), "20240101-001-acme")

	require.NoError(t, h.app.Delete(record.KindCompany, "acme", true))
	assert.NoFileExists(t, filepath.Join(h.root, "2024/data/companies/acme"))
}

func TestDeleteCompany_Unused(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/companies/acme", "")
	h.write(t, "2024/data/income/20240101-001-globex", "")

	require.NoError(t, h.app.Delete(record.KindCompany, "acme", false))
}

func TestPDF_RequiresGeneratedFile(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/income/20240101-001-acme", "Item: 1: a\n")

	err := h.app.PDF(context.Background(), "", false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, h.calls)
}

func TestPDF_Generate(t *testing.T) {
	h := newHarness(t)
	h.write(t, "templates/invoice.tex", "{{ .Invoice.Number }} {{ tex .Issuer.DisplayName }} {{ .Customer.DisplayName }} {{ .Invoice.Sum }}\n")
	h.write(t, "2024/data/companies/my-company", "Name: Me & Co\n")
	h.write(t, "2024/data/companies/acme", "Name: Acme\n")
	h.write(t, "2024/data/income/20240101-001-acme", "Item: 100: a\nItem: 20: b\n")

	var tex []byte
	h.onRun = func(c call) error {
		if c.name != "pdflatex" {
			return nil
		}
		var err error
		if tex, err = os.ReadFile(filepath.Join(c.dir, c.args[0])); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(c.dir, "20240101-001-acme.pdf"), []byte("%PDF"), 0o644)
	}

	require.NoError(t, h.app.PDF(context.Background(), "1", true))

	assert.Equal(t, "2024001 Me \\& Co Acme 120\n", string(tex))
	require.Len(t, h.calls, 2)
	assert.Equal(t, filepath.Join(h.root, "tmp"), h.calls[0].dir)
	assert.Equal(t, "zathura", h.calls[1].name)
	out := filepath.Join(h.root, "2024", "output", "20240101-001-acme.pdf")
	assert.Equal(t, []string{out}, h.calls[1].args)
	assert.FileExists(t, out)

	// The generated file is reused without --generate.
	require.NoError(t, h.app.PDF(context.Background(), "1", false))
	assert.Len(t, h.calls, 3)
}

func TestPDF_MissingIssuer(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/companies/acme", "")
	h.write(t, "2024/data/income/20240101-001-acme", "")

	err := h.app.PDF(context.Background(), "", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "issuer")
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2023/data/income/20230101-001-acme", "Item: 7: a\n")

	require.NoError(t, h.app.Export(context.Background()))
	assert.Contains(t, h.stdout.String(), "2023:")
	assert.Contains(t, h.stdout.String(), "sum: 7")
}

func TestWatch_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.app.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestShow_AmbiguousNumber(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/income/20240101-001-acme", "")
	h.write(t, "2024/data/income/20240102-001-globex", "")

	err := h.app.Show(context.Background(), record.KindInvoice, "1")
	assert.ErrorIs(t, err, apperr.ErrAmbiguous)
	assert.Empty(t, h.calls)

	require.NoError(t, h.app.Show(context.Background(), record.KindInvoice, "20240102-001-globex"))
	assert.Len(t, h.calls, 1)
}

func TestWarnDuplicateNumber(t *testing.T) {
	h := newHarness(t)
	h.write(t, "2024/data/income/20240101-001-acme", "")
	h.write(t, "2024/data/income/20240101-001-globex", "")
	h.write(t, "2024/data/income/20240101-002-acme", "")

	r, err := h.app.Archive().Invoices().Get(record.Name("20240101-002-acme"))
	require.NoError(t, err)
	h.app.warnDuplicateNumber(r)
	assert.NotContains(t, h.stderr.String(), "duplicate invoice number")

	r, err = h.app.Archive().Invoices().Get(record.Name("20240101-001-globex"))
	require.NoError(t, err)
	h.app.warnDuplicateNumber(r)
	assert.Contains(t, h.stderr.String(), "duplicate invoice number")
	assert.Contains(t, h.stderr.String(), "20240101-001-acme")
}
