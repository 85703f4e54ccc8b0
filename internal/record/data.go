package record

import (
	"log/slog"
	"maps"

	"github.com/pavlix/invoice/internal/parser"
)

// Data is a read-only view of one record file: declared single-value fields
// (unset or a string), declared multi-value fields (possibly empty
// sequences), the owning record's selector, and values derived by the
// schema's Postprocess hook.
type Data struct {
	record   *Record
	selector Selector
	single   map[string]*string
	multi    map[string][]string
	derived  map[string]any
}

func parseData(r *Record, content []byte) *Data {
	schema := r.coll.schema
	logger := r.coll.logger

	d := &Data{
		record:   r,
		selector: r.Selector(),
		single:   make(map[string]*string, len(schema.Fields)),
		multi:    make(map[string][]string, len(schema.MultiFields)),
		derived:  make(map[string]any),
	}
	for _, f := range schema.Fields {
		d.single[f] = nil
	}
	for _, f := range schema.MultiFields {
		d.multi[f] = []string{}
	}

	res := parser.Parse(content)
	for _, l := range res.Noise {
		logger.Warn("ignoring line",
			slog.String("record", r.name),
			slog.Int("line", l.Number),
			slog.String("text", l.Text))
	}
	for _, p := range res.Placeholders {
		logger.Debug("empty directive",
			slog.String("record", r.name),
			slog.Int("line", p.Line),
			slog.String("key", p.Key))
	}
	for _, dir := range res.Directives {
		switch {
		case schema.isField(dir.Key):
			v := dir.Value
			d.single[dir.Key] = &v
		case schema.isMultiField(dir.Key):
			d.multi[dir.Key] = append(d.multi[dir.Key], dir.Value)
		default:
			logger.Warn("key ignored",
				slog.String("record", r.name),
				slog.Int("line", dir.Line),
				slog.String("key", dir.Key))
		}
	}
	return d
}

// Record returns the record the data was read from.
func (d *Data) Record() *Record { return d.record }

// Selector returns the owning record's selector.
func (d *Data) Selector() Selector { return d.selector }

// Value returns a single-value field. ok is false when the field is unset
// or not a single-value field.
func (d *Data) Value(key string) (value string, ok bool) {
	v := d.single[key]
	if v == nil {
		return "", false
	}
	return *v, true
}

// Values returns a multi-value field in file order. Declared fields without
// directives yield an empty, non-nil slice; unknown keys yield nil.
func (d *Data) Values(key string) []string {
	return d.multi[key]
}

// Derived returns a value set by postprocessing.
func (d *Data) Derived(key string) (any, bool) {
	v, ok := d.derived[key]
	return v, ok
}

// Derive stores a postprocessed value. Derived values shadow fields of the
// same name in Get and Map.
func (d *Data) Derive(key string, value any) {
	d.derived[key] = value
}

// Drop removes a field or derived value.
func (d *Data) Drop(key string) {
	delete(d.single, key)
	delete(d.multi, key)
	delete(d.derived, key)
}

// Get returns any field by name, looking at derived values, declared
// fields and finally the selector. A declared but unset single-value field
// is reported as (nil, true).
func (d *Data) Get(key string) (any, bool) {
	if v, ok := d.derived[key]; ok {
		return v, true
	}
	if v, ok := d.single[key]; ok {
		if v == nil {
			return nil, true
		}
		return *v, true
	}
	if v, ok := d.multi[key]; ok {
		return v, true
	}
	v, ok := d.selector[key]
	return v, ok
}

// Has reports whether key holds a non-empty value.
func (d *Data) Has(key string) bool {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return false
	}
	switch v := v.(type) {
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	}
	return true
}

// RenameKey moves oldKey's value to newKey unless newKey already has a
// value. It lets files written with a retired directive name keep working.
func (d *Data) RenameKey(oldKey, newKey string) {
	if d.Has(newKey) {
		return
	}
	if v, ok := d.single[oldKey]; ok {
		delete(d.multi, newKey)
		d.single[newKey] = v
		delete(d.single, oldKey)
		return
	}
	if v, ok := d.multi[oldKey]; ok {
		delete(d.single, newKey)
		d.multi[newKey] = v
		delete(d.multi, oldKey)
	}
}

// Map flattens the data into a plain map. Unset single-value fields map
// to nil.
func (d *Data) Map() map[string]any {
	out := make(map[string]any, len(d.selector)+len(d.single)+len(d.multi)+len(d.derived))
	maps.Copy(out, d.selector)
	for k, v := range d.single {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = *v
	}
	for k, v := range d.multi {
		out[k] = v
	}
	maps.Copy(out, d.derived)
	return out
}
