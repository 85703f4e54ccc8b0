// Package record turns a directory of directive files into a queryable,
// creatable and deletable collection of typed records.
package record

import (
	"fmt"
	"regexp"
	"slices"
)

// Kind tags the record types the archive knows about.
type Kind string

const (
	KindCompany Kind = "company"
	KindInvoice Kind = "invoice"
)

// Schema describes one record type. Schemas are constant values built by the
// company and invoice packages.
type Schema struct {
	Kind Kind
	// Directory is the collection's subpath under <root>/<year>/data.
	Directory string
	// Grammar matches valid file names; its named groups become the
	// record's selector.
	Grammar *regexp.Regexp
	// Format builds a file name from a selector. Format(Captures(n)) == n
	// for every name n accepted by Grammar.
	Format func(Selector) string
	// Fields and MultiFields are the declared single- and multi-value
	// directive names. They are disjoint.
	Fields      []string
	MultiFields []string
	// Template is written to newly created files.
	Template string

	// Coerce adjusts captures before the name is fixed. Optional.
	Coerce func(Selector) error
	// Resolve interprets a string selector. Optional; the default is an
	// exact match on the record name.
	Resolve func(s string) (Query, error)
	// Postprocess derives typed values from parsed directives. Optional.
	Postprocess func(*Data) error
}

// Validate checks the schema for internal consistency.
func (s *Schema) Validate() error {
	if s.Kind == "" || s.Directory == "" || s.Grammar == nil || s.Format == nil {
		return fmt.Errorf("record: incomplete schema %q", s.Kind)
	}
	for _, f := range s.Fields {
		if slices.Contains(s.MultiFields, f) {
			return fmt.Errorf("record: schema %q declares %q as both single and multi-value", s.Kind, f)
		}
	}
	return nil
}

// Captures matches name against the grammar and returns its named groups.
func (s *Schema) Captures(name string) (Selector, bool) {
	m := s.Grammar.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	sel := make(Selector, len(m))
	for i, group := range s.Grammar.SubexpNames() {
		if group == "" {
			continue
		}
		sel[group] = m[i]
	}
	return sel, true
}

func (s *Schema) isField(key string) bool {
	return slices.Contains(s.Fields, key)
}

func (s *Schema) isMultiField(key string) bool {
	return slices.Contains(s.MultiFields, key)
}
