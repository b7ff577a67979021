package render

import (
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"
	"time"
)

const (
	noResults    = "(no results)"
	inlineMaxLen = 8
)

var timeType = reflect.TypeFor[time.Time]()

// writeTable renders a slice as a columned table and anything else as
// "key: value" lines. Struct fields holding a non-empty slice of structs
// follow the key/value block as their own tables.
func writeTable(out io.Writer, data any) error {
	v := indirect(reflect.ValueOf(data))
	if v.Kind() == reflect.Slice {
		return writeRows(out, v)
	}
	return writeRecord(out, v)
}

func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

// column is one exported struct field or one map key.
type column struct {
	name  string
	field int // struct field index, -1 for map keys
}

func columnsOf(v reflect.Value) []column {
	var cols []column
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() {
				cols = append(cols, column{name: fieldName(f), field: i})
			}
		}
	case reflect.Map:
		for _, k := range mapKeys(v) {
			cols = append(cols, column{name: k, field: -1})
		}
	}
	return cols
}

func (c column) cell(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Struct:
		return formatValue(v.Field(c.field))
	case reflect.Map:
		return formatValue(v.MapIndex(reflect.ValueOf(c.name)))
	}
	return formatValue(v)
}

func writeRows(out io.Writer, v reflect.Value) error {
	if v.Len() == 0 {
		_, err := fmt.Fprintln(out, noResults)
		return err
	}

	cols := columnsOf(indirect(v.Index(0)))
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}

	w := newTabWriter(out)
	if len(names) > 0 {
		fmt.Fprintln(w, strings.Join(names, "\t"))
	}
	for i := range v.Len() {
		row := indirect(v.Index(i))
		cells := make([]string, 0, max(len(cols), 1))
		for _, c := range cols {
			cells = append(cells, c.cell(row))
		}
		if len(cols) == 0 {
			cells = append(cells, formatValue(row))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func writeRecord(out io.Writer, v reflect.Value) error {
	w := newTabWriter(out)
	var nested []column

	switch v.Kind() {
	case reflect.Struct, reflect.Map:
		for _, c := range columnsOf(v) {
			if c.field >= 0 {
				if fv := v.Field(c.field); isStructSlice(fv) && fv.Len() > 0 {
					nested = append(nested, c)
					continue
				}
			}
			fmt.Fprintf(w, "%s:\t%s\n", c.name, c.cell(v))
		}
	case reflect.Invalid:
		fmt.Fprintln(w, noResults)
	default:
		fmt.Fprintf(w, "%v\n", v.Interface())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, c := range nested {
		if _, err := fmt.Fprintf(out, "\n%s:\n", c.name); err != nil {
			return err
		}
		if err := writeRows(out, v.Field(c.field)); err != nil {
			return err
		}
	}
	return nil
}

// fieldName prefers the json tag name and falls back to the lowercased
// Go field name.
func fieldName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return strings.ToLower(f.Name)
}

func formatValue(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return ""
	}
	if v.Type() == timeType {
		return v.Interface().(time.Time).Format(time.RFC3339)
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		n := v.Len()
		switch {
		case n == 0:
			return "[]"
		case n > inlineMaxLen || isStructSlice(v):
			return fmt.Sprintf("[%d items]", n)
		}
		parts := make([]string, n)
		for i := range n {
			parts[i] = formatValue(v.Index(i))
		}
		return "[" + strings.Join(parts, " ") + "]"
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	}
	return fmt.Sprint(v.Interface())
}

// indirect follows pointers and interfaces; nil yields the zero Value.
func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isStructSlice(v reflect.Value) bool {
	if v.Kind() != reflect.Slice {
		return false
	}
	elem := v.Type().Elem()
	for elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	return elem.Kind() == reflect.Struct && elem != timeType
}

func mapKeys(v reflect.Value) []string {
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, fmt.Sprint(k.Interface()))
	}
	slices.Sort(keys)
	return keys
}
