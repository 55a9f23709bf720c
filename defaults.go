package confrec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// ApplyDefaults fills zero-valued leaf fields from their default tags,
// recursing through nested records and lists of records. Fields that
// already hold a non-zero value are left alone, so defaults layer under
// every other source. Primitive lists and mappings take their default as
// JSON text, e.g. `default:"[1,2,3]"`.
func ApplyDefaults(rec any) error {
	fds, err := Fields(rec)
	if err != nil {
		return err
	}
	for i := range fds {
		fd := &fds[i]
		switch fd.Class {
		case ClassNestedConfig:
			if err := ApplyDefaults(fd.Value.Addr().Interface()); err != nil {
				return err
			}
		case ClassOptionalNestedConfig:
			if fd.Value.IsNil() {
				continue
			}
			if err := ApplyDefaults(fd.Value.Interface()); err != nil {
				return err
			}
		case ClassListOfNestedConfig:
			if fd.Value.IsNil() {
				continue
			}
			for j := 0; j < fd.Value.Len(); j++ {
				elem := fd.Value.Index(j)
				if elem.Kind() == reflect.Pointer {
					if elem.IsNil() {
						continue
					}
					if err := ApplyDefaults(elem.Interface()); err != nil {
						return err
					}
					continue
				}
				if err := ApplyDefaults(elem.Addr().Interface()); err != nil {
					return err
				}
			}
		default:
			if !fd.HasDefault || !fd.Value.IsZero() {
				continue
			}
			if err := setFromText(fd.Value, fd.Default); err != nil {
				return fmt.Errorf("field %s: default tag %q: %w", fd.Name, fd.Default, err)
			}
		}
	}
	return nil
}

// setFromText parses a textual default into a leaf field.
func setFromText(fv reflect.Value, raw string) error {
	t := fv.Type()
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t.Elem())
		if err := setFromText(p.Elem(), raw); err != nil {
			return err
		}
		fv.Set(p)
		return nil
	}
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 0, 64)
		if err != nil {
			return err
		}
		fv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 0, 64)
		if err != nil {
			return err
		}
		fv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.String:
		fv.SetString(raw)
	case reflect.Slice, reflect.Map:
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return err
		}
		return assignValue(fv, decoded)
	default:
		return fmt.Errorf("%w: type %s has no textual default form", ErrTypeMismatch, t)
	}
	return nil
}
