package postgres

import (
	"reflect"
	"sync"
)

// columnCache maps a struct type to the indices and names of its db-tagged fields.
var columnCache sync.Map // map[reflect.Type][]dbField

type dbField struct {
	index  []int
	column string
}

// ExtractDBColumns returns the "db" tag names of T in field order,
// descending into embedded structs.
//
//	columns := ExtractDBColumns[invoice.Invoice]()
//	// ["id", "user_id", "invoice_number", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	fields := fieldsOf(reflect.TypeOf(zero))
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.column
	}
	return cols
}

// StructToMap converts a struct (or pointer to struct) to column -> value
// using its "db" tags. Untagged fields and fields tagged "-" are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	fields := fieldsOf(rv.Type())
	res := make(map[string]any, len(fields))
	for _, f := range fields {
		res[f.column] = rv.FieldByIndex(f.index).Interface()
	}
	return res
}

func fieldsOf(t reflect.Type) []dbField {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]dbField)
	}

	var fields []dbField
	if t.Kind() == reflect.Struct {
		fields = collectFields(t, nil)
	}
	columnCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, parent []int) []dbField {
	var fields []dbField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			fields = append(fields, collectFields(sf.Type, index)...)
			continue
		}

		tag := sf.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		fields = append(fields, dbField{index: index, column: tag})
	}
	return fields
}
