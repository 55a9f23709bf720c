package confrec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// ToTree serializes a record into a JSON-compatible value tree. Nested
// records and lists of records recurse; primitive collections and mappings
// are deep-copied; union fields serialize whichever concrete record they
// hold, without a type tag (the reader must know the expected variant from
// context). Fields whose type cannot be represented fail with
// ErrUnserializableValue.
func ToTree(rec any) (map[string]any, error) {
	return toTree(rec, nil)
}

func toTree(rec any, stack []reflect.Type) (map[string]any, error) {
	rv, err := recordValue(rec)
	if err != nil {
		return nil, err
	}
	for _, t := range stack {
		if t == rv.Type() {
			return nil, fmt.Errorf("%w: %s nests itself", ErrCyclicSchema, rv.Type())
		}
	}
	stack = append(stack, rv.Type())

	fds, err := Fields(rec)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]any, len(fds))
	for _, fd := range fds {
		switch fd.Class {
		case ClassNestedConfig:
			sub, err := toTree(fd.Value.Addr().Interface(), stack)
			if err != nil {
				return nil, err
			}
			tree[fd.Name] = sub

		case ClassOptionalNestedConfig, ClassUnionOfConfigs:
			if fd.Value.IsNil() {
				tree[fd.Name] = nil
				break
			}
			sub, err := toTree(fd.Value.Interface(), stack)
			if err != nil {
				return nil, err
			}
			tree[fd.Name] = sub

		case ClassListOfNestedConfig:
			if fd.Value.IsNil() {
				tree[fd.Name] = nil
				break
			}
			// A collection boundary resets the cycle check: self-nesting
			// through a list is value-bounded.
			items := make([]any, fd.Value.Len())
			for i := 0; i < fd.Value.Len(); i++ {
				elem := fd.Value.Index(i)
				if elem.Kind() == reflect.Pointer {
					if elem.IsNil() {
						items[i] = nil
						continue
					}
					sub, err := toTree(elem.Interface(), nil)
					if err != nil {
						return nil, err
					}
					items[i] = sub
					continue
				}
				sub, err := toTree(elem.Addr().Interface(), nil)
				if err != nil {
					return nil, err
				}
				items[i] = sub
			}
			tree[fd.Name] = items

		case ClassPrimitive, ClassOptionalPrimitive, ClassListOfPrimitive, ClassMapping:
			v, err := normalizeValue(fd.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fd.Name, err)
			}
			tree[fd.Name] = v

		default:
			return nil, fmt.Errorf("%w: field %s has unsupported type %s", ErrUnserializableValue, fd.Name, fd.Type)
		}
	}

	for k, v := range rec.(Record).configRecord().extras {
		tree[k] = copyTreeValue(v)
	}
	return tree, nil
}

// FromTree updates a record in place from a value tree. Keys without a
// matching field are ignored (forward-compatible loading); fields without
// a matching key keep their current values (partial update). A failure
// partway through may leave earlier fields updated; callers needing
// atomicity should update a disposable copy and swap on success. The
// record's CheckValues hook, if any, runs once after the walk completes.
func FromTree(rec any, tree map[string]any) error {
	if err := fromTree(rec, tree); err != nil {
		return err
	}
	return runCheck(rec)
}

func fromTree(rec any, tree map[string]any) error {
	fds, err := Fields(rec)
	if err != nil {
		return err
	}
	for i := range fds {
		fd := &fds[i]
		v, present := tree[fd.Name]
		if !present {
			continue
		}
		if err := updateField(fd, v); err != nil {
			return err
		}
	}
	return nil
}

func updateField(fd *FieldDescriptor, v any) error {
	switch fd.Class {
	case ClassNestedConfig:
		sub, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: field %s expects an object, got %T", ErrTypeMismatch, fd.Name, v)
		}
		return fromTree(fd.Value.Addr().Interface(), sub)

	case ClassOptionalNestedConfig, ClassUnionOfConfigs:
		if v == nil {
			fd.Value.Set(reflect.Zero(fd.Type))
			return nil
		}
		sub, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: field %s expects an object, got %T", ErrTypeMismatch, fd.Name, v)
		}
		if fd.Value.IsNil() {
			return fmt.Errorf("%w: field %s holds nil; populate it with the expected record before loading", ErrCannotInstantiate, fd.Name)
		}
		return fromTree(fd.Value.Interface(), sub)

	case ClassListOfNestedConfig:
		return updateRecordList(fd, v)

	case ClassPrimitive, ClassOptionalPrimitive, ClassListOfPrimitive, ClassMapping:
		if err := assignValue(fd.Value, v); err != nil {
			return fmt.Errorf("field %s: %w", fd.Name, err)
		}
		return nil
	}
	return fmt.Errorf("%w: field %s has unsupported type %s", ErrTypeMismatch, fd.Name, fd.Type)
}

// updateRecordList resizes the list to match the incoming tree exactly:
// existing items act as prototypes and are updated in place, missing items
// are synthesized fresh, excess items are discarded.
func updateRecordList(fd *FieldDescriptor, v any) error {
	if v == nil {
		fd.Value.Set(reflect.Zero(fd.Type))
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("%w: field %s expects a list, got %T", ErrTypeMismatch, fd.Name, v)
	}

	sliceType := fd.Type
	elemType := sliceType.Elem()
	ptrElem := elemType.Kind() == reflect.Pointer
	out := reflect.MakeSlice(sliceType, 0, len(items))

	for i, item := range items {
		sub, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: field %s[%d] expects an object, got %T", ErrTypeMismatch, fd.Name, i, item)
		}
		if ptrElem {
			var p reflect.Value
			if !fd.Value.IsNil() && i < fd.Value.Len() && !fd.Value.Index(i).IsNil() {
				p = fd.Value.Index(i)
			} else {
				p = reflect.New(elemType.Elem())
			}
			if err := fromTree(p.Interface(), sub); err != nil {
				return err
			}
			out = reflect.Append(out, p)
			continue
		}
		p := reflect.New(elemType)
		if !fd.Value.IsNil() && i < fd.Value.Len() {
			p.Elem().Set(fd.Value.Index(i))
		}
		if err := fromTree(p.Interface(), sub); err != nil {
			return err
		}
		out = reflect.Append(out, p.Elem())
	}
	fd.Value.Set(out)
	return nil
}

// assignValue writes a tree value into a leaf field after a
// type-compatibility check. Numbers cross int/float boundaries only when
// no precision is lost; typed collections decode through mapstructure so
// the field never aliases the tree.
func assignValue(fv reflect.Value, v any) error {
	t := fv.Type()
	if v == nil {
		if isNilable(t) {
			fv.Set(reflect.Zero(t))
			return nil
		}
		return fmt.Errorf("%w: null is not assignable to %s", ErrTypeMismatch, t)
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if f, err := n.Float64(); err == nil {
			v = f
		} else {
			return fmt.Errorf("%w: number %q", ErrTypeMismatch, n.String())
		}
	}
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t.Elem())
		if err := assignValue(p.Elem(), v); err != nil {
			return err
		}
		fv.Set(p)
		return nil
	}

	rv := reflect.ValueOf(v)
	switch t.Kind() {
	case reflect.Bool:
		if rv.Kind() != reflect.Bool {
			return mismatch(t, v)
		}
		fv.SetBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := toInt64(rv)
		if err != nil {
			return mismatch(t, v)
		}
		if fv.OverflowInt(i) {
			return fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, i, t)
		}
		fv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := toInt64(rv)
		if err != nil || i < 0 {
			return mismatch(t, v)
		}
		if fv.OverflowUint(uint64(i)) {
			return fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, i, t)
		}
		fv.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			fv.SetFloat(rv.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetFloat(float64(rv.Int()))
		default:
			return mismatch(t, v)
		}
	case reflect.String:
		if rv.Kind() != reflect.String {
			return mismatch(t, v)
		}
		fv.SetString(rv.String())
	case reflect.Slice, reflect.Map:
		target := reflect.New(t)
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           target.Interface(),
			WeaklyTypedInput: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create decoder for %s: %w", t, err)
		}
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		fv.Set(target.Elem())
	case reflect.Interface:
		if !rv.Type().Implements(t) {
			return mismatch(t, v)
		}
		fv.Set(rv)
	case reflect.Struct:
		if rv.Type() != t {
			return mismatch(t, v)
		}
		fv.Set(rv)
	default:
		return mismatch(t, v)
	}
	return nil
}

func toInt64(rv reflect.Value) (int64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("unsigned overflow")
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("not numeric")
}

func mismatch(t reflect.Type, v any) error {
	return fmt.Errorf("%w: cannot assign %T to %s", ErrTypeMismatch, v, t)
}

// ToJSON encodes the record's value tree as JSON text.
func ToJSON(rec any) ([]byte, error) {
	tree, err := ToTree(rec)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// FromJSON decodes JSON text and updates the record from the resulting
// tree, with FromTree's partial-update semantics.
func FromJSON(rec any, data []byte) error {
	tree, err := decodeJSONTree(data)
	if err != nil {
		return err
	}
	return FromTree(rec, tree)
}

func decodeJSONTree(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber() // preserve number precision
	tree := make(map[string]any)
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return tree, nil
}
