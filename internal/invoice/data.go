package invoice

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/record"
)

var (
	itemRe     = regexp.MustCompile(`^(-?\d+)[:;]\s*(.*)$`)
	dateRe     = regexp.MustCompile(`^(\d{4})-?(\d{2})-?(\d{2})$`)
	relativeRe = regexp.MustCompile(`^[+-]?\d+$`)
)

// Item is one invoice line. Negative prices are credits or discounts.
type Item struct {
	Description string `yaml:"description" json:"description"`
	Price       int    `yaml:"price" json:"price"`
}

// Data is the typed view of an invoice file.
type Data struct {
	Name        string
	CompanyName string
	Year        int
	Sequence    int
	// Number is the display number: year followed by the zero-padded sequence.
	Number  string
	Date    time.Time
	Due     time.Time
	Paid    *string
	Payment *string
	Items   []Item
	Sum     int
	Address []string
	Notes   []string
}

// Load reads and postprocesses an invoice record.
func Load(r *record.Record) (*Data, error) {
	d, err := r.Data()
	if err != nil {
		return nil, err
	}
	return FromData(d), nil
}

// FromData builds the typed view from postprocessed record data.
func FromData(d *record.Data) *Data {
	sel := d.Selector()
	out := &Data{
		Name:        d.Record().Name(),
		CompanyName: sel["company_name"].(string),
		Year:        sel["year"].(int),
		Sequence:    sel["number"].(int),
		Address:     d.Values("address"),
		Notes:       d.Values("notes"),
	}
	if v, ok := d.Derived("number"); ok {
		out.Number = v.(string)
	}
	if v, ok := d.Derived("date"); ok {
		out.Date = v.(time.Time)
	}
	if v, ok := d.Derived("due"); ok {
		out.Due = v.(time.Time)
	}
	if v, ok := d.Derived("items"); ok {
		out.Items = v.([]Item)
	}
	if v, ok := d.Derived("sum"); ok {
		out.Sum = v.(int)
	}
	if v, ok := d.Value("paid"); ok {
		out.Paid = &v
	}
	if v, ok := d.Value("payment"); ok {
		out.Payment = &v
	}
	return out
}

// postprocess runs in a fixed order: display number, items, dates, notes.
// The display number replaces number; the integer stays as sequence.
func postprocess(d *record.Data) error {
	sel := d.Selector()
	year, _ := sel["year"].(int)
	seq, _ := sel["number"].(int)
	d.Derive("number", DisplayNumber(year, seq))
	d.Derive("sequence", seq)

	items, sum, err := ParseItems(d.Values("item"))
	if err != nil {
		return err
	}
	d.Drop("item")
	d.Derive("items", items)
	d.Derive("sum", sum)

	raw, _ := sel["date"].(string)
	date, err := ParseDate(raw)
	if err != nil {
		return err
	}
	dueRaw, dueSet := d.Value("due")
	due, err := ResolveDue(date, dueRaw, dueSet)
	if err != nil {
		return err
	}
	d.Derive("date", date)
	d.Derive("due", due)

	d.RenameKey("note", "notes")
	return nil
}

// DisplayNumber composes the printed invoice number, e.g. 2024007.
func DisplayNumber(year, sequence int) string {
	return fmt.Sprintf("%d%03d", year, sequence)
}

// ParseItems parses Item directives and totals their prices.
// Any malformed line fails the whole invoice.
func ParseItems(lines []string) ([]Item, int, error) {
	items := make([]Item, 0, len(lines))
	sum := 0
	for _, line := range lines {
		m := itemRe.FindStringSubmatch(line)
		if m == nil {
			return nil, 0, fmt.Errorf("bad item format %q: %w", line, apperr.ErrParse)
		}
		price, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, 0, fmt.Errorf("bad item price %q: %w", line, apperr.ErrParse)
		}
		items = append(items, Item{Description: m[2], Price: price})
		sum += price
	}
	return items, sum, nil
}

// ParseDate accepts YYYYMMDD and YYYY-MM-DD calendar dates.
func ParseDate(s string) (time.Time, error) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("bad date format %q: %w", s, apperr.ErrParse)
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	t := time.Date(y, time.Month(mo), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != day {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, apperr.ErrParse)
	}
	return t, nil
}

// ResolveDue computes the due date from the raw Due directive. An absolute
// date is used as is, a signed day count is added to date, and an unset
// directive means DefaultDueDays after date. A date-shaped value that is
// not a calendar date is an error, never a day count.
func ResolveDue(date time.Time, raw string, set bool) (time.Time, error) {
	if !set {
		return date.AddDate(0, 0, DefaultDueDays), nil
	}
	if dateRe.MatchString(raw) {
		due, err := ParseDate(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad due date: %w", err)
		}
		return due, nil
	}
	if relativeRe.MatchString(raw) {
		days, err := strconv.Atoi(raw)
		if err == nil {
			return date.AddDate(0, 0, days), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad due format %q: %w", raw, apperr.ErrParse)
}
