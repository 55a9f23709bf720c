package confrec

import (
	"fmt"
	"reflect"
)

// Merge copies field values from src into dst, recursively. Nested records
// merge structurally; lists of records merge pairwise by index, with
// excess source items appended as independent copies. Primitive, mapping
// and union values are overwritten wholesale. Fields declared on src but
// not on dst become dynamic extras of dst, visible through Get, FieldNames
// and serialization. dst never aliases src's values: everything copied is
// an independent deep copy. Merge never runs validation; call CheckRecord
// or the record's CheckValues hook afterward if desired.
func Merge(dst, src any) error {
	dstFds, err := Fields(dst)
	if err != nil {
		return err
	}
	srcFds, err := Fields(src)
	if err != nil {
		return err
	}
	byName := make(map[string]*FieldDescriptor, len(dstFds))
	for i := range dstFds {
		byName[dstFds[i].Name] = &dstFds[i]
	}
	base := dst.(Record).configRecord()

	for i := range srcFds {
		sf := &srcFds[i]
		df, declared := byName[sf.Name]
		if !declared {
			v, err := extensionValue(sf)
			if err != nil {
				return err
			}
			base.setExtra(sf.Name, v)
			continue
		}
		if df.Type != sf.Type {
			return fmt.Errorf("%w: field %s is %s in target but %s in source", ErrTypeMismatch, sf.Name, df.Type, sf.Type)
		}
		if err := mergeField(df, sf); err != nil {
			return err
		}
	}

	for k, v := range src.(Record).configRecord().extras {
		if _, declared := byName[k]; declared {
			if err := Set(dst, k, copyTreeValue(v)); err != nil {
				return err
			}
			continue
		}
		base.setExtra(k, copyTreeValue(v))
	}
	return nil
}

func mergeField(df, sf *FieldDescriptor) error {
	switch sf.Class {
	case ClassNestedConfig:
		return Merge(df.Value.Addr().Interface(), sf.Value.Addr().Interface())

	case ClassOptionalNestedConfig:
		if sf.Value.IsNil() {
			return nil
		}
		if df.Value.IsNil() {
			df.Value.Set(deepCopy(sf.Value))
			return nil
		}
		return Merge(df.Value.Interface(), sf.Value.Interface())

	case ClassListOfNestedConfig:
		return mergeRecordLists(df, sf)

	default:
		// Primitive, mapping and union values overwrite wholesale.
		df.Value.Set(deepCopy(sf.Value))
		return nil
	}
}

func mergeRecordLists(df, sf *FieldDescriptor) error {
	if sf.Value.IsNil() {
		return nil
	}
	if df.Value.IsNil() {
		df.Value.Set(deepCopy(sf.Value))
		return nil
	}
	ptrElem := sf.Type.Elem().Kind() == reflect.Pointer
	for i := 0; i < sf.Value.Len(); i++ {
		se := sf.Value.Index(i)
		if i >= df.Value.Len() {
			// Length mismatch: excess source items are appended, not merged.
			df.Value.Set(reflect.Append(df.Value, deepCopy(se)))
			continue
		}
		de := df.Value.Index(i)
		var dr, sr any
		if ptrElem {
			if se.IsNil() {
				continue
			}
			if de.IsNil() {
				de.Set(deepCopy(se))
				continue
			}
			dr, sr = de.Interface(), se.Interface()
		} else {
			dr, sr = de.Addr().Interface(), se.Addr().Interface()
		}
		if err := Merge(dr, sr); err != nil {
			return err
		}
	}
	return nil
}

// extensionValue renders a source field as a tree value suitable for
// storage as a dynamic extra on the target.
func extensionValue(fd *FieldDescriptor) (any, error) {
	switch fd.Class {
	case ClassNestedConfig:
		return toTree(fd.Value.Addr().Interface(), nil)
	case ClassOptionalNestedConfig, ClassUnionOfConfigs:
		if fd.Value.IsNil() {
			return nil, nil
		}
		return toTree(fd.Value.Interface(), nil)
	case ClassListOfNestedConfig:
		if fd.Value.IsNil() {
			return nil, nil
		}
		items := make([]any, fd.Value.Len())
		for i := 0; i < fd.Value.Len(); i++ {
			elem := fd.Value.Index(i)
			if elem.Kind() == reflect.Pointer {
				if elem.IsNil() {
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
		return items, nil
	}
	v, err := normalizeValue(fd.Value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", fd.Name, err)
	}
	return v, nil
}
