// Package company defines the company record type.
//
// Company files accept these directives:
//
//	Name         full company name
//	Address      one mailing address line, repeat for more lines
//	Number       identification number (legacy: IC)
//	Bank-Account bank account number
//	Comments     additional text shown on invoices, repeatable (legacy: Comment)
package company

import (
	"regexp"
	"strings"

	"github.com/pavlix/invoice/internal/record"
)

// Template is the content of a newly created company file.
const Template = `Name:
Address:
Address:
Number:
`

// Schema is the company record type.
var Schema = &record.Schema{
	Kind:        record.KindCompany,
	Directory:   "companies",
	Grammar:     regexp.MustCompile(`^(?P<name>[a-z0-9-]+)$`),
	Format:      func(s record.Selector) string { return s["name"].(string) },
	Fields:      []string{"name", "number", "ic", "bank_account"},
	MultiFields: []string{"address", "comments", "comment"},
	Template:    Template,
	Postprocess: postprocess,
}

func postprocess(d *record.Data) error {
	d.RenameKey("ic", "number")
	d.RenameKey("comment", "comments")
	return nil
}

// Data is the typed view of a company file.
type Data struct {
	// Slug is the file name, used to reference the company from invoices.
	Slug        string
	Name        *string
	Number      *string
	BankAccount *string
	Address     []string
	Comments    []string
}

// Load reads a company record.
func Load(r *record.Record) (*Data, error) {
	d, err := r.Data()
	if err != nil {
		return nil, err
	}
	return FromData(d), nil
}

// FromData builds the typed view from postprocessed record data.
func FromData(d *record.Data) *Data {
	return &Data{
		Slug:        d.Record().Name(),
		Name:        optional(d, "name"),
		Number:      optional(d, "number"),
		BankAccount: optional(d, "bank_account"),
		Address:     d.Values("address"),
		Comments:    d.Values("comments"),
	}
}

// DisplayName returns the full name, falling back to the slug.
func (c *Data) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.Slug
}

// MailingAddress joins the address lines with sep.
func (c *Data) MailingAddress(sep string) string {
	return strings.Join(c.Address, sep)
}

func optional(d *record.Data, key string) *string {
	v, ok := d.Value(key)
	if !ok {
		return nil
	}
	return &v
}
