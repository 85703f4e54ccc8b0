// Package invoice defines the invoice record type.
//
// Invoice files accept these directives:
//
//	Item     price, ':' or ';', optional whitespace and a description
//	Due      due date YYYY-MM-DD, or a day offset from the invoice date (+30)
//	Paid     payment note
//	Payment  payment method
//	Address  delivery address line, repeatable
//	Note     a note printed at the end of the invoice, repeatable
package invoice

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/record"
)

// Template is the content of a newly created invoice file.
const Template = "Item: \n"

// MaxSequence is the largest sequence number the three-digit name field holds.
const MaxSequence = 999

// DefaultDueDays is the payment term used when an invoice has no Due directive.
const DefaultDueDays = 14

var grammar = regexp.MustCompile(`^(?P<date>[0-9]{8})-(?P<number>[0-9]{3})-(?P<company_name>[a-z0-9-]+)$`)

// Schema is the invoice record type.
var Schema = &record.Schema{
	Kind:        record.KindInvoice,
	Directory:   "income",
	Grammar:     grammar,
	Format:      format,
	Fields:      []string{"due", "paid", "payment"},
	MultiFields: []string{"item", "address", "note"},
	Template:    Template,
	Coerce:      coerce,
	Resolve:     resolve,
	Postprocess: postprocess,
}

func format(s record.Selector) string {
	return fmt.Sprintf("%s-%03d-%s", s["date"], s["number"], s["company_name"])
}

func coerce(s record.Selector) error {
	raw, ok := s["number"].(string)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invoice number %q: %w", raw, apperr.ErrNameInvalid)
	}
	s["number"] = n
	return nil
}

// resolve tries the full invoice name first, then a bare sequence number.
func resolve(s string) (record.Query, error) {
	if m := grammar.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[grammar.SubexpIndex("number")])
		return record.Match{
			"date":         m[grammar.SubexpIndex("date")],
			"number":       n,
			"company_name": m[grammar.SubexpIndex("company_name")],
		}, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return record.Number(n), nil
	}
	return nil, fmt.Errorf("invoice %q: %w", s, apperr.ErrNotFound)
}

// NextName returns the name for the next invoice of companyName dated now.
// The sequence number is one more than the highest in the collection.
func NextName(c *record.Collection, companyName string, now time.Time) (string, error) {
	next := 1
	for r, err := range c.All() {
		if err != nil {
			return "", err
		}
		if n, ok := r.Attr("number"); ok && n.(int) >= next {
			next = n.(int) + 1
		}
	}
	if next > MaxSequence {
		return "", fmt.Errorf("invoice sequence exhausted for %d: %w", c.Year(), apperr.ErrNameInvalid)
	}
	return format(record.Selector{
		"date":         now.Format("20060102"),
		"number":       next,
		"company_name": companyName,
	}), nil
}
