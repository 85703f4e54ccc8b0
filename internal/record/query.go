package record

import (
	"fmt"
	"maps"
)

// Selector maps grammar capture names (plus "year") to values. Values are
// strings, or ints once a schema's Coerce hook has converted them.
type Selector map[string]any

// Clone returns a shallow copy of s.
func (s Selector) Clone() Selector {
	return maps.Clone(s)
}

// Query selects records from a collection. A nil Query selects the last
// record by name.
type Query interface {
	query()
}

// Name selects by a string, interpreted by the schema's Resolve hook.
type Name string

// Number selects records whose "number" capture equals it.
type Number int

// Match selects records where every listed attribute equals the given value.
type Match map[string]any

func (Name) query()   {}
func (Number) query() {}
func (Match) query()  {}

func (n Name) String() string   { return string(n) }
func (n Number) String() string { return fmt.Sprintf("%d", int(n)) }
func (m Match) String() string  { return fmt.Sprintf("%v", map[string]any(m)) }

// ParseQuery turns a command-line selector into a Query. An empty string
// selects the last record.
func ParseQuery(s string) Query {
	if s == "" {
		return nil
	}
	return Name(s)
}

// matches reports whether every attribute in m equals r's.
func (m Match) matches(r *Record) bool {
	for key, want := range m {
		got, ok := r.Attr(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func describe(q Query) string {
	if q == nil {
		return "last"
	}
	return fmt.Sprintf("%q", fmt.Sprint(q))
}
