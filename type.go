package confrec

import (
	"fmt"
	"reflect"
	"strconv"
)

// GetString retrieves a string value by dotted/indexed path, converting
// from common leaf types when the value isn't already a string.
func GetString(rec any, path string) (string, error) {
	val, err := getPath(rec, path)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil // treat nil as empty string for convenience
	}
	if s, ok := val.(string); ok {
		return s, nil
	}

	switch v := val.(type) {
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	rv := indirect(reflect.ValueOf(val))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.String:
		return rv.String(), nil
	}
	return "", fmt.Errorf("%w: cannot convert type %T to string for path %s", ErrTypeMismatch, val, path)
}

// GetInt64 retrieves an int64 value by path, converting from numeric
// types, parsable strings and booleans.
func GetInt64(rec any, path string) (int64, error) {
	val, err := getPath(rec, path)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, fmt.Errorf("%w: value for path %s is nil", ErrTypeMismatch, path)
	}

	rv := indirect(reflect.ValueOf(val))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > uint64(^uint64(0)>>1) {
			return 0, fmt.Errorf("%w: unsigned value %d overflows int64 for path %s", ErrTypeMismatch, u, path)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil // truncate
	case reflect.String:
		s := rv.String()
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("%w: cannot convert string %q to int64 for path %s", ErrTypeMismatch, s, path)
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: cannot convert type %T to int64 for path %s", ErrTypeMismatch, val, path)
}

// GetBool retrieves a boolean value by path, converting from numeric types
// (zero is false) and parsable strings.
func GetBool(rec any, path string) (bool, error) {
	val, err := getPath(rec, path)
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, fmt.Errorf("%w: value for path %s is nil", ErrTypeMismatch, path)
	}

	rv := indirect(reflect.ValueOf(val))
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		b, err := strconv.ParseBool(rv.String())
		if err != nil {
			return false, fmt.Errorf("%w: cannot convert string %q to bool for path %s", ErrTypeMismatch, rv.String(), path)
		}
		return b, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, nil
	}
	return false, fmt.Errorf("%w: cannot convert type %T to bool for path %s", ErrTypeMismatch, val, path)
}

// GetFloat64 retrieves a float64 value by path, converting from numeric
// types, parsable strings and booleans.
func GetFloat64(rec any, path string) (float64, error) {
	val, err := getPath(rec, path)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, fmt.Errorf("%w: value for path %s is nil", ErrTypeMismatch, path)
	}

	rv := indirect(reflect.ValueOf(val))
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.String:
		f, err := strconv.ParseFloat(rv.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot convert string %q to float64 for path %s", ErrTypeMismatch, rv.String(), path)
		}
		return f, nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: cannot convert type %T to float64 for path %s", ErrTypeMismatch, val, path)
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}
