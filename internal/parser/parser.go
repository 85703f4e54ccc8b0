// Package parser tokenizes record files into "Key: value" directives.
package parser

import (
	"regexp"
	"strings"
)

var (
	directiveRe = regexp.MustCompile(`^([A-Z][A-Za-z-]*):\s*(.*)$`)
	commentRe   = regexp.MustCompile(`^\s*#`)
)

// Directive is one "Key: value" line with its key canonicalised.
type Directive struct {
	Line  int // 1-based
	Key   string
	Value string
}

// Line is a non-directive line kept for diagnostics.
type Line struct {
	Number int // 1-based
	Text   string
}

// Result holds the output of parsing a record file.
type Result struct {
	Directives []Directive
	// Placeholders are directives with an empty value, such as the
	// "Name:" lines of a freshly created template.
	Placeholders []Directive
	// Noise holds lines that are neither comments, blank nor directives.
	Noise []Line
}

// Parse splits data into directives, placeholders and noise. It never fails:
// malformed lines end up in Noise for the caller to report.
func Parse(data []byte) *Result {
	res := &Result{}
	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		n := i + 1
		line := strings.TrimRight(raw, " \t\r")
		if line == "" || commentRe.MatchString(line) {
			continue
		}
		m := directiveRe.FindStringSubmatch(line)
		if m == nil {
			res.Noise = append(res.Noise, Line{Number: n, Text: line})
			continue
		}
		d := Directive{Line: n, Key: CanonicalKey(m[1]), Value: m[2]}
		if d.Value == "" {
			res.Placeholders = append(res.Placeholders, d)
			continue
		}
		res.Directives = append(res.Directives, d)
	}
	return res
}

// CanonicalKey folds a directive key to its field name: "Bank-Account"
// becomes "bank_account".
func CanonicalKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}
