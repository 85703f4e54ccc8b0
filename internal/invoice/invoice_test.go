package invoice

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/record"
	"github.com/pavlix/invoice/internal/testutil"
)

func invoices(t *testing.T, files map[string]string) *record.Collection {
	t.Helper()
	root, store := testutil.TestStore(t)
	for name, content := range files {
		testutil.WriteFile(t, root, "2024/data/income/"+name, content)
	}
	c, err := record.NewCollection(Schema, store, 2024, testutil.Logger())
	require.NoError(t, err)
	return c
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNameRoundTrip(t *testing.T) {
	for _, name := range []string{"20240101-001-acme", "20241231-042-foo-bar", "20240615-999-x1"} {
		sel, ok := Schema.Captures(name)
		require.True(t, ok, name)
		require.NoError(t, coerce(sel))
		assert.Equal(t, name, format(sel))
	}
}

func TestGrammarRejects(t *testing.T) {
	for _, name := range []string{"2024011-001-acme", "20240101-1-acme", "20240101-001-Acme", "20240101-001-acme~"} {
		_, ok := Schema.Captures(name)
		assert.False(t, ok, name)
	}
}

func TestParseItems(t *testing.T) {
	items, sum, err := ParseItems([]string{"100: widget", "-25:refund", "7; semicolon"})
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{Description: "widget", Price: 100},
		{Description: "refund", Price: -25},
		{Description: "semicolon", Price: 7},
	}, items)
	assert.Equal(t, 82, sum)

	_, sum, err = ParseItems([]string{"10: a", "20: b"})
	require.NoError(t, err)
	assert.Equal(t, 30, sum)
}

func TestParseItems_BadLine(t *testing.T) {
	_, _, err := ParseItems([]string{"10: a", "ten: b"})
	assert.ErrorIs(t, err, apperr.ErrParse)

	_, _, err = ParseItems([]string{""})
	assert.ErrorIs(t, err, apperr.ErrParse)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("20240131")
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.January, 31), d)

	d, err = ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.February, 29), d)

	for _, bad := range []string{"2023-02-29", "20241301", "2024/01/01", "tomorrow"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, apperr.ErrParse, bad)
	}
}

func TestResolveDue(t *testing.T) {
	date := day(2024, time.January, 1)
	cases := []struct {
		raw  string
		set  bool
		want time.Time
	}{
		{"", false, day(2024, time.January, 15)},
		{"2024-02-01", true, day(2024, time.February, 1)},
		{"20240201", true, day(2024, time.February, 1)},
		{"7", true, day(2024, time.January, 8)},
		{"+30", true, day(2024, time.January, 31)},
		{"-1", true, day(2023, time.December, 31)},
	}
	for _, tc := range cases {
		got, err := ResolveDue(date, tc.raw, tc.set)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, raw := range []string{"next week", "20240230", "2024-02-30", "20241301"} {
		_, err := ResolveDue(date, raw, true)
		assert.ErrorIs(t, err, apperr.ErrParse, raw)
	}
}

func TestLoad_Pipeline(t *testing.T) {
	c := invoices(t, map[string]string{
		"20240101-007-acme": "Item: 100: widget\n" +
			"Item: -25: refund\n" +
			"Due: +7\n" +
			"Paid: 2024-01-05\n" +
			"Address: Main Street 1\n" +
			"Note: thanks\n" +
			"Note: again\n",
	})
	r, err := c.Get(record.Name("20240101-007-acme"))
	require.NoError(t, err)
	d, err := Load(r)
	require.NoError(t, err)

	assert.Equal(t, "2024007", d.Number)
	assert.Equal(t, 7, d.Sequence)
	assert.Equal(t, 2024, d.Year)
	assert.Equal(t, "acme", d.CompanyName)
	assert.Equal(t, day(2024, time.January, 1), d.Date)
	assert.Equal(t, day(2024, time.January, 8), d.Due)
	assert.Equal(t, 75, d.Sum)
	assert.Len(t, d.Items, 2)
	require.NotNil(t, d.Paid)
	assert.Equal(t, "2024-01-05", *d.Paid)
	assert.Nil(t, d.Payment)
	assert.Equal(t, []string{"Main Street 1"}, d.Address)
	assert.Equal(t, []string{"thanks", "again"}, d.Notes)

	raw, err := r.Data()
	require.NoError(t, err)
	m := raw.Map()
	assert.NotContains(t, m, "item")
	assert.NotContains(t, m, "note")
	assert.Equal(t, 75, m["sum"])
	assert.Equal(t, "2024007", m["number"])
	assert.Equal(t, 7, m["sequence"])

	seq, ok := raw.Get("sequence")
	require.True(t, ok)
	assert.Equal(t, 7, seq)
}

func TestLoad_DefaultDue(t *testing.T) {
	c := invoices(t, map[string]string{"20240101-001-acme": "Item: 10: a\n"})
	r, err := c.Get(record.Number(1))
	require.NoError(t, err)
	d, err := Load(r)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.January, 15), d.Due)
}

func TestLoad_ParseErrors(t *testing.T) {
	c := invoices(t, map[string]string{
		"20240101-001-acme": "Item: free: a\n",
		"20240101-002-acme": "Item: 1: a\nDue: someday\n",
		"20240101-004-acme": "Item: 1: a\nDue: 20240230\n",
		"20241301-003-acme": "Item: 1: a\n",
	})
	for _, n := range []int{1, 2, 3, 4} {
		r, err := c.Get(record.Number(n))
		require.NoError(t, err)
		_, err = Load(r)
		assert.ErrorIs(t, err, apperr.ErrParse, "invoice %d", n)
	}
}

func TestLoad_FreshTemplate(t *testing.T) {
	c := invoices(t, nil)
	r, err := c.Create("20240301-001-acme")
	require.NoError(t, err)

	content, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Equal(t, Template, string(content))

	d, err := Load(r)
	require.NoError(t, err)
	assert.Empty(t, d.Items)
	assert.Equal(t, 0, d.Sum)
}

func TestSelect_StringSelector(t *testing.T) {
	c := invoices(t, map[string]string{
		"20240101-001-acme":   "",
		"20240102-007-globex": "",
	})

	r, err := c.Get(record.Name("20240102-007-globex"))
	require.NoError(t, err)
	assert.Equal(t, "20240102-007-globex", r.Name())

	r, err = c.Get(record.Name("7"))
	require.NoError(t, err)
	assert.Equal(t, "20240102-007-globex", r.Name())

	r, err = c.Get(record.Number(7))
	require.NoError(t, err)
	assert.Equal(t, "20240102-007-globex", r.Name())

	_, err = c.Get(record.Number(8))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = c.Select(record.Name("globex"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	items, err := c.Select(record.Match{"company_name": "acme"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "20240101-001-acme", items[0].Name())
}

func TestNextName(t *testing.T) {
	now := day(2024, time.March, 5)

	c := invoices(t, nil)
	name, err := NextName(c, "acme", now)
	require.NoError(t, err)
	assert.Equal(t, "20240305-001-acme", name)

	c = invoices(t, map[string]string{
		"20240101-003-acme":   "",
		"20240102-011-globex": "",
		"20240103-005-acme":   "",
	})
	name, err = NextName(c, "initech", now)
	require.NoError(t, err)
	assert.Equal(t, "20240305-012-initech", name)
}

func TestNextName_Exhausted(t *testing.T) {
	c := invoices(t, map[string]string{"20241231-999-acme": ""})
	_, err := NextName(c, "acme", day(2024, time.December, 31))
	assert.ErrorIs(t, err, apperr.ErrNameInvalid)
}
