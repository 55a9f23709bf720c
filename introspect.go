package confrec

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Constraints holds the numeric/choice bounds a field declares through its
// min, max and enum tags. Nil pointers mean "not declared".
type Constraints struct {
	Min  *float64
	Max  *float64
	Enum []string
}

func (c Constraints) empty() bool {
	return c.Min == nil && c.Max == nil && len(c.Enum) == 0
}

// FieldDescriptor describes one declared field of a record. Descriptors
// are produced fresh on every Fields call and reflect the record's current
// state; they are never cached across mutations.
type FieldDescriptor struct {
	// Name is the serialized field name: the first element of the conf
	// tag, or the Go field name when no tag is present.
	Name string
	// Type is the declared Go type of the field.
	Type reflect.Type
	// Class is the resolved TypeClass of Type.
	Class TypeClass
	// Value is the addressable current value of the field.
	Value reflect.Value
	// Mandatory marks fields carrying the ",mandatory" tag option. Such
	// fields must be nilable; nil is their unset sentinel.
	Mandatory bool
	// Help is the flag/usage text from the help tag.
	Help string
	// Default is the textual default from the default tag, applied by
	// ApplyDefaults. HasDefault distinguishes "" from "not declared".
	Default    string
	HasDefault bool
	// Constraints are the declared value bounds, enforced by CheckRecord.
	Constraints Constraints
}

// Fields introspects a record and returns one descriptor per exported
// field, in declaration order. Declaration order is semantically
// meaningful: it fixes the mapping between list positions and indexed
// argument paths. Fields never mutates rec. Anything that is not a record
// fails with ErrNotAConfig.
func Fields(rec any) ([]FieldDescriptor, error) {
	rv, err := recordValue(rec)
	if err != nil {
		return nil, err
	}

	rt := rv.Type()
	fds := make([]FieldDescriptor, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		ft := rt.Field(i)
		if !ft.IsExported() {
			continue
		}
		if ft.Anonymous && ft.Type == baseType {
			continue
		}

		tag := ft.Tag.Get("conf")
		if tag == "-" {
			continue
		}
		name := ft.Name
		mandatory := false
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "mandatory" {
					mandatory = true
				}
			}
		}

		fd := FieldDescriptor{
			Name:      name,
			Type:      ft.Type,
			Class:     Classify(ft.Type),
			Value:     rv.Field(i),
			Mandatory: mandatory,
			Help:      ft.Tag.Get("help"),
		}
		if mandatory && !isNilable(ft.Type) {
			return nil, fmt.Errorf("%w: mandatory field %s must have a nilable type, got %s", ErrTypeMismatch, name, ft.Type)
		}
		if def, ok := ft.Tag.Lookup("default"); ok {
			fd.Default = def
			fd.HasDefault = true
		}
		if err := parseConstraints(ft, name, &fd.Constraints); err != nil {
			return nil, err
		}
		fds = append(fds, fd)
	}
	return fds, nil
}

func parseConstraints(ft reflect.StructField, name string, c *Constraints) error {
	if raw, ok := ft.Tag.Lookup("min"); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("field %s: invalid min tag %q: %w", name, raw, err)
		}
		c.Min = &v
	}
	if raw, ok := ft.Tag.Lookup("max"); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("field %s: invalid max tag %q: %w", name, raw, err)
		}
		c.Max = &v
	}
	if raw, ok := ft.Tag.Lookup("enum"); ok && raw != "" {
		c.Enum = strings.Split(raw, ",")
	}
	return nil
}

func isNilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}
