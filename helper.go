package confrec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var jsonNumberType = reflect.TypeOf(json.Number(""))

// normalizeValue converts a field value into its tree form: nil, bool,
// int64, float64, string, []any or map[string]any. Nested record structs
// are not handled here; the tree walk recurses into them before leaves are
// normalized.
func normalizeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == jsonNumberType {
		n := v.Interface().(json.Number)
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrUnserializableValue, n.String())
		}
		return f, nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return normalizeValue(v.Elem())
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: unsigned value %d overflows the tree number range", ErrUnserializableValue, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			ev, err := normalizeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s is not a string", ErrUnserializableValue, v.Type().Key())
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			ev, err := normalizeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = ev
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: type %s", ErrUnserializableValue, v.Type())
}

// copyTreeValue deep-copies an already-normalized tree value.
func copyTreeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyTreeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyTreeValue(e)
		}
		return out
	}
	return v
}

// deepCopy returns an independent copy of v. Used by Merge so the target
// never aliases the source's values.
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		p := reflect.New(v.Type().Elem())
		p.Elem().Set(deepCopy(v.Elem()))
		return p
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(deepCopy(v.Elem()))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Struct:
		if v.Type() == baseType {
			b := v.Interface().(Base)
			nb := Base{}
			for k, e := range b.extras {
				nb.setExtra(k, copyTreeValue(e))
			}
			return reflect.ValueOf(nb)
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			f := out.Field(i)
			if !f.CanSet() {
				continue
			}
			switch f.Kind() {
			case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Struct:
				f.Set(deepCopy(f))
			}
		}
		return out
	}
	return v
}

// resolveLeaf walks rec along a dotted/indexed path ("a.b.0.c") and returns
// the addressable leaf value together with its classification. Integer
// segments index into list-of-record fields.
func resolveLeaf(rec any, path string) (reflect.Value, TypeClass, error) {
	segments := strings.Split(path, ".")
	cur := rec
	for len(segments) > 0 {
		name := segments[0]
		segments = segments[1:]

		fds, err := Fields(cur)
		if err != nil {
			return reflect.Value{}, ClassUnknown, err
		}
		var fd *FieldDescriptor
		for i := range fds {
			if fds[i].Name == name {
				fd = &fds[i]
				break
			}
		}
		if fd == nil {
			return reflect.Value{}, ClassUnknown, fmt.Errorf("%w: %s has no field %q", ErrUnknownPath, path, name)
		}
		if len(segments) == 0 {
			return fd.Value, fd.Class, nil
		}

		switch fd.Class {
		case ClassNestedConfig:
			cur = fd.Value.Addr().Interface()
		case ClassOptionalNestedConfig:
			if fd.Value.IsNil() {
				return reflect.Value{}, ClassUnknown, fmt.Errorf("%w: %s is nil along path %s", ErrCannotInstantiate, name, path)
			}
			cur = fd.Value.Interface()
		case ClassListOfNestedConfig:
			idx, err := strconv.Atoi(segments[0])
			if err != nil || idx < 0 {
				return reflect.Value{}, ClassUnknown, fmt.Errorf("%w: %s requires a list index after %q", ErrUnknownPath, path, name)
			}
			segments = segments[1:]
			if len(segments) == 0 {
				return reflect.Value{}, ClassUnknown, fmt.Errorf("%w: %s stops at a list element", ErrUnknownPath, path)
			}
			if fd.Value.IsNil() || idx >= fd.Value.Len() {
				return reflect.Value{}, ClassUnknown, fmt.Errorf("%w: index %d out of range for %s", ErrUnknownPath, idx, name)
			}
			elem := fd.Value.Index(idx)
			if elem.Kind() == reflect.Pointer {
				if elem.IsNil() {
					return reflect.Value{}, ClassUnknown, fmt.Errorf("%w: %s[%d] is nil", ErrCannotInstantiate, name, idx)
				}
				cur = elem.Interface()
			} else {
				cur = elem.Addr().Interface()
			}
		default:
			return reflect.Value{}, ClassUnknown, fmt.Errorf("%w: %s is not a nested config along path %s", ErrUnknownPath, name, path)
		}
	}
	return reflect.Value{}, ClassUnknown, fmt.Errorf("%w: empty path", ErrUnknownPath)
}

// getPath resolves a dotted/indexed path and returns the leaf value.
func getPath(rec any, path string) (any, error) {
	fv, _, err := resolveLeaf(rec, path)
	if err != nil {
		return nil, err
	}
	return fv.Interface(), nil
}
