package confrec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Record is implemented by every struct that embeds Base. It marks a type
// as a config record for the recursive field walk.
type Record interface {
	configRecord() *Base
}

// Base carries the per-instance state shared by all config records. Embed
// it (by value) in a struct to make that struct a record:
//
//	type TrainerConfig struct {
//	    confrec.Base
//	    Epochs int `conf:"epochs" default:"100"`
//	}
//
// Records are always handled through pointers (*TrainerConfig above).
type Base struct {
	// extras holds values merged from a source record whose fields the
	// target never declared. They behave like dynamically added fields:
	// visible through Get, FieldNames, Equal and tree serialization.
	extras map[string]any
}

func (b *Base) configRecord() *Base { return b }

func (b *Base) setExtra(name string, value any) {
	if b.extras == nil {
		b.extras = make(map[string]any)
	}
	b.extras[name] = value
}

func (b *Base) extra(name string) (any, bool) {
	v, ok := b.extras[name]
	return v, ok
}

var (
	recordType = reflect.TypeOf((*Record)(nil)).Elem()
	baseType   = reflect.TypeOf(Base{})
)

// isRecordType reports whether t is a struct type embedding Base.
func isRecordType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == baseType {
		return false
	}
	return reflect.PointerTo(t).Implements(recordType)
}

// recordValue unwraps rec into the addressable struct value behind it.
func recordValue(rec any) (reflect.Value, error) {
	if rec == nil {
		return reflect.Value{}, fmt.Errorf("%w: nil", ErrNotAConfig)
	}
	if _, ok := rec.(Record); !ok {
		return reflect.Value{}, fmt.Errorf("%w: %T does not embed confrec.Base", ErrNotAConfig, rec)
	}
	rv := reflect.ValueOf(rec)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: %T must be a non-nil pointer to a record struct", ErrNotAConfig, rec)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %T must point to a struct", ErrNotAConfig, rec)
	}
	return rv, nil
}

// Get retrieves a field value by name, mapping-style. Reading a mandatory
// field that has never been assigned fails with ErrMissingValue. Names
// added by Merge as dynamic extras are also resolved.
func Get(rec any, name string) (any, error) {
	fds, err := Fields(rec)
	if err != nil {
		return nil, err
	}
	for _, fd := range fds {
		if fd.Name != name {
			continue
		}
		if fd.Mandatory && isUnset(fd.Value) {
			return nil, fmt.Errorf("%w: %s", ErrMissingValue, name)
		}
		return fd.Value.Interface(), nil
	}
	if v, ok := rec.(Record).configRecord().extra(name); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
}

// Set assigns a value to a declared field by name, applying the same type
// coercion rules as tree deserialization.
func Set(rec any, name string, value any) error {
	fds, err := Fields(rec)
	if err != nil {
		return err
	}
	for _, fd := range fds {
		if fd.Name == name {
			if err := assignValue(fd.Value, value); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, name)
}

// FieldNames returns the record's field names in declaration order,
// followed by any merged extras in sorted order.
func FieldNames(rec any) ([]string, error) {
	fds, err := Fields(rec)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(fds))
	for _, fd := range fds {
		names = append(names, fd.Name)
	}
	base := rec.(Record).configRecord()
	if len(base.extras) > 0 {
		extras := make([]string, 0, len(base.extras))
		for k := range base.extras {
			extras = append(extras, k)
		}
		sort.Strings(extras)
		names = append(names, extras...)
	}
	return names, nil
}

// Equal reports whether two records hold equal values for every declared
// field, compared recursively through nested records and lists, independent
// of object identity. Records that fail to serialize are never equal.
func Equal(a, b any) bool {
	ta, err := ToTree(a)
	if err != nil {
		return false
	}
	tb, err := ToTree(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(ta, tb)
}

// Dump renders the record's value tree as indented JSON for debugging.
func Dump(rec any) string {
	tree, err := ToTree(rec)
	if err != nil {
		return fmt.Sprintf("<unserializable record: %v>", err)
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unserializable record: %v>", err)
	}
	return string(data)
}

// isUnset reports whether a nilable field value is in the unset state.
// Mandatory fields use nil as their "not yet provided" sentinel.
func isUnset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return v.IsNil()
	}
	return false
}
