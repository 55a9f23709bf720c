package confrec

import (
	"fmt"
	"reflect"
	"strings"
)

// Checker is implemented by records that validate themselves. The hook
// runs exactly once after each load or update operation completes; it is
// never interleaved mid-walk. Implementations typically serialize the
// record and call CheckArgument per field:
//
//	func (c *TrainerConfig) CheckValues() error {
//	    tree, err := confrec.ToTree(c)
//	    if err != nil {
//	        return err
//	    }
//	    return confrec.CheckArgument("epochs", tree,
//	        confrec.Restricted(), confrec.MinVal(1), confrec.MaxVal(10000))
//	}
type Checker interface {
	CheckValues() error
}

func runCheck(rec any) error {
	if c, ok := rec.(Checker); ok {
		return c.CheckValues()
	}
	return nil
}

type checkOptions struct {
	minVal      *float64
	maxVal      *float64
	enum        []string
	allowNone   bool
	restricted  bool
	alternative string
	prereq      []string
	isValid     func(any) bool
}

// CheckOption configures one constraint for CheckArgument.
type CheckOption func(*checkOptions)

// MinVal requires a numeric value of at least v (inclusive).
func MinVal(v float64) CheckOption {
	return func(o *checkOptions) { o.minVal = &v }
}

// MaxVal requires a numeric value of at most v (inclusive).
func MaxVal(v float64) CheckOption {
	return func(o *checkOptions) { o.maxVal = &v }
}

// EnumList requires a string value to be one of vals, case-insensitively.
func EnumList(vals ...string) CheckOption {
	return func(o *checkOptions) { o.enum = vals }
}

// AllowNone permits a null value; without it a null value fails regardless
// of the other constraints.
func AllowNone() CheckOption {
	return func(o *checkOptions) { o.allowNone = true }
}

// Restricted requires the field to be present in the tree at all.
func Restricted() CheckOption {
	return func(o *checkOptions) { o.restricted = true }
}

// Alternative names a field that may stand in for this one. At most one of
// the pair may be non-null; when the alternative is set, the remaining
// constraints on this field are skipped.
func Alternative(name string) CheckOption {
	return func(o *checkOptions) { o.alternative = name }
}

// Prerequisite names fields that must be present whenever this field is
// checked.
func Prerequisite(names ...string) CheckOption {
	return func(o *checkOptions) { o.prereq = append(o.prereq, names...) }
}

// IsValid attaches an arbitrary predicate on the field's value.
func IsValid(fn func(any) bool) CheckOption {
	return func(o *checkOptions) { o.isValid = fn }
}

// CheckArgument validates one field of a serialized value tree against the
// given constraints. It is meant to be called from a record's CheckValues
// hook. Violations fail with ErrConstraintViolation; an absent restricted
// field fails with ErrMissingField.
func CheckArgument(name string, tree map[string]any, opts ...CheckOption) error {
	var o checkOptions
	for _, opt := range opts {
		opt(&o)
	}

	v, present := tree[name]
	if o.restricted && !present {
		return fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	for _, p := range o.prereq {
		if _, ok := tree[p]; !ok {
			return fmt.Errorf("%w: %s requires %s", ErrMissingField, name, p)
		}
	}
	if o.alternative != "" {
		if alt, ok := tree[o.alternative]; ok && alt != nil {
			if present && v != nil {
				return fmt.Errorf("%w: %s and %s must not both be set", ErrConstraintViolation, name, o.alternative)
			}
			return nil
		}
	}
	if !present {
		return nil
	}
	if v == nil {
		if o.allowNone {
			return nil
		}
		return fmt.Errorf("%w: %s must not be null", ErrConstraintViolation, name)
	}

	if o.isValid != nil && !o.isValid(v) {
		return fmt.Errorf("%w: %s rejected by predicate", ErrConstraintViolation, name)
	}
	if o.minVal != nil || o.maxVal != nil {
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("%w: %s is not numeric", ErrConstraintViolation, name)
		}
		if o.minVal != nil && f < *o.minVal {
			return fmt.Errorf("%w: %s is smaller than min value %v", ErrConstraintViolation, name, *o.minVal)
		}
		if o.maxVal != nil && f > *o.maxVal {
			return fmt.Errorf("%w: %s is larger than max value %v", ErrConstraintViolation, name, *o.maxVal)
		}
	}
	if len(o.enum) > 0 {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s is not a string", ErrConstraintViolation, name)
		}
		found := false
		for _, e := range o.enum {
			if strings.EqualFold(s, e) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s is not one of %v", ErrConstraintViolation, name, o.enum)
		}
	}
	return nil
}

// CheckRecord enforces the constraints a record declares through its tags:
// min, max and enum bounds, plus presence for mandatory fields. Nested
// records and lists of records are checked recursively.
func CheckRecord(rec any) error {
	tree, err := ToTree(rec)
	if err != nil {
		return err
	}
	return checkRecordTree(rec, tree)
}

func checkRecordTree(rec any, tree map[string]any) error {
	fds, err := Fields(rec)
	if err != nil {
		return err
	}
	for i := range fds {
		fd := &fds[i]

		switch fd.Class {
		case ClassNestedConfig:
			if sub, ok := tree[fd.Name].(map[string]any); ok {
				if err := checkRecordTree(fd.Value.Addr().Interface(), sub); err != nil {
					return err
				}
			}
		case ClassOptionalNestedConfig:
			if fd.Value.IsNil() {
				break
			}
			if sub, ok := tree[fd.Name].(map[string]any); ok {
				if err := checkRecordTree(fd.Value.Interface(), sub); err != nil {
					return err
				}
			}
		case ClassListOfNestedConfig:
			items, _ := tree[fd.Name].([]any)
			for j := 0; j < fd.Value.Len() && j < len(items); j++ {
				sub, ok := items[j].(map[string]any)
				if !ok {
					continue
				}
				elem := fd.Value.Index(j)
				var er any
				if elem.Kind() == reflect.Pointer {
					if elem.IsNil() {
						continue
					}
					er = elem.Interface()
				} else {
					er = elem.Addr().Interface()
				}
				if err := checkRecordTree(er, sub); err != nil {
					return err
				}
			}
		}

		if !fd.Mandatory && fd.Constraints.empty() {
			continue
		}
		opts := make([]CheckOption, 0, 4)
		if fd.Mandatory {
			opts = append(opts, Restricted())
		} else {
			opts = append(opts, AllowNone())
		}
		if fd.Constraints.Min != nil {
			opts = append(opts, MinVal(*fd.Constraints.Min))
		}
		if fd.Constraints.Max != nil {
			opts = append(opts, MaxVal(*fd.Constraints.Max))
		}
		if len(fd.Constraints.Enum) > 0 {
			opts = append(opts, EnumList(fd.Constraints.Enum...))
		}
		if err := CheckArgument(fd.Name, tree, opts...); err != nil {
			return err
		}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
