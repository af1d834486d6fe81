package audit

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Change is one scalar field whose text representation differs between two
// snapshots of the same entity.
type Change struct {
	Property string
	Old      *string
	New      *string
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	skipped     = map[string]bool{"ID": true, "CreatedAt": true, "UpdatedAt": true}
)

// Diff compares two values of the same struct type (or pointers to it) field
// by field. Only scalar fields are compared; associations, slices, the
// primary key, timestamps and fields tagged audit:"-" are ignored. Embedded
// structs are flattened.
func Diff(before, after any) []Change {
	b := reflect.Indirect(reflect.ValueOf(before))
	a := reflect.Indirect(reflect.ValueOf(after))
	if b.Kind() != reflect.Struct || b.Type() != a.Type() {
		return nil
	}
	var changes []Change
	diffStruct(b, a, &changes)
	return changes
}

func diffStruct(before, after reflect.Value, changes *[]Change) {
	t := before.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			diffStruct(before.Field(i), after.Field(i), changes)
			continue
		}
		if skipped[field.Name] || field.Tag.Get("audit") == "-" || !isScalar(field.Type) {
			continue
		}
		oldText := text(before.Field(i))
		newText := text(after.Field(i))
		if equalText(oldText, newText) {
			continue
		}
		*changes = append(*changes, Change{Property: field.Name, Old: oldText, New: newText})
	}
}

func isScalar(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return false
	case reflect.Struct:
		return t == timeType || t == decimalType
	default:
		return true
	}
}

func text(v reflect.Value) *string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	var s string
	switch v.Type() {
	case timeType:
		s = v.Interface().(time.Time).UTC().Format(time.RFC3339)
	case decimalType:
		s = v.Interface().(decimal.Decimal).String()
	default:
		s = fmt.Sprint(v.Interface())
	}
	return &s
}

func equalText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.Compare(*a, *b) == 0
}
