package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/testutil"
)

func TestReadAll(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "2023/data/income/20230105-001-acme", "Item: 10: a\nItem: 20: b\n")
	testutil.WriteFile(t, root, "2024/data/income/20240110-002-globex", "Item: 5: c\n")
	testutil.WriteFile(t, root, "2024/data/income/20240102-001-acme", "Item: 1: d\nNote: hi\n")
	testutil.WriteFile(t, root, "2024/data/companies/acme", "Name: Acme\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2022", "data"), 0o755))

	years, err := ReadAll(context.Background(), root, testutil.Logger())
	require.NoError(t, err)

	require.Len(t, years, 2, "2022 has no invoices")
	require.Len(t, years[2023], 1)
	assert.Equal(t, 30, years[2023][0]["sum"])
	assert.Equal(t, "2023001", years[2023][0]["number"])
	assert.Equal(t, 1, years[2023][0]["sequence"])

	require.Len(t, years[2024], 2)
	assert.Equal(t, "acme", years[2024][0]["company_name"], "sorted by name")
	assert.Equal(t, []string{"hi"}, years[2024][0]["notes"])
	assert.Equal(t, "globex", years[2024][1]["company_name"])
}

func TestReadAll_PropagatesParseErrors(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "2024/data/income/20240102-001-acme", "Item: bogus\n")

	_, err := ReadAll(context.Background(), root, testutil.Logger())
	assert.ErrorIs(t, err, apperr.ErrParse)
}

func TestWriteYAML(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "2024/data/income/20240102-001-acme", "Item: 100: widget\nDue: 2024-02-01\n")
	years, err := ReadAll(context.Background(), root, testutil.Logger())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, years))

	var decoded map[int][]map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded[2024], 1)
	inv := decoded[2024][0]
	assert.Equal(t, 100, inv["sum"])
	assert.Equal(t, "2024001", inv["number"])
	assert.Equal(t, 1, inv["sequence"])
	assert.Equal(t, []any{map[string]any{"description": "widget", "price": 100}}, inv["items"])
}
