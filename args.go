package confrec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

// FlagKind is the primitive shape of one command-line flag.
type FlagKind int

const (
	FlagBool FlagKind = iota
	FlagInt
	FlagFloat
	FlagString
	// FlagJSON accepts a raw JSON string, decoded wholesale at apply time
	// with no per-element validation. Used for primitive lists and
	// mappings.
	FlagJSON
)

// FlagSpec describes one command-line flag derived from one leaf-reachable
// field. Specs are produced transiently per flag-set build and are not
// persisted.
type FlagSpec struct {
	// Path is the dotted/indexed flag name, e.g. "train.layers.0.width".
	Path      string
	Kind      FlagKind
	Default   any
	Help      string
	Mandatory bool
}

// BuildSpecs walks a record and emits one FlagSpec per leaf-reachable
// field, in declaration order. Nested records extend the path prefix with
// their field name; lists of records emit one indexed prefix per element
// of the list's current value, so the list length at build time determines
// exactly which flags exist. Union and unclassifiable fields are excluded.
func BuildSpecs(rec any, prefix string) ([]FlagSpec, error) {
	return buildSpecs(rec, prefix, nil)
}

func buildSpecs(rec any, prefix string, stack []reflect.Type) ([]FlagSpec, error) {
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
	var specs []FlagSpec
	for i := range fds {
		fd := &fds[i]
		path := fd.Name
		if prefix != "" {
			path = prefix + "." + fd.Name
		}

		switch fd.Class {
		case ClassPrimitive, ClassOptionalPrimitive:
			def, err := normalizeValue(fd.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", path, err)
			}
			specs = append(specs, FlagSpec{
				Path:      path,
				Kind:      flagKindOf(fd.Type),
				Default:   def,
				Help:      fd.Help,
				Mandatory: fd.Mandatory,
			})

		case ClassListOfPrimitive, ClassMapping:
			def, err := normalizeValue(fd.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", path, err)
			}
			specs = append(specs, FlagSpec{
				Path:      path,
				Kind:      FlagJSON,
				Default:   def,
				Help:      fd.Help,
				Mandatory: fd.Mandatory,
			})

		case ClassNestedConfig:
			sub, err := buildSpecs(fd.Value.Addr().Interface(), path, stack)
			if err != nil {
				return nil, err
			}
			specs = append(specs, sub...)

		case ClassOptionalNestedConfig:
			if fd.Value.IsNil() {
				continue // no instance to mirror
			}
			sub, err := buildSpecs(fd.Value.Interface(), path, stack)
			if err != nil {
				return nil, err
			}
			specs = append(specs, sub...)

		case ClassListOfNestedConfig:
			if fd.Value.IsNil() {
				continue
			}
			for j := 0; j < fd.Value.Len(); j++ {
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
				sub, err := buildSpecs(er, fmt.Sprintf("%s.%d", path, j), nil)
				if err != nil {
					return nil, err
				}
				specs = append(specs, sub...)
			}

		case ClassUnionOfConfigs, ClassUnknown:
			continue // excluded from the flag surface
		}
	}
	return specs, nil
}

// SpecFor builds the FlagSpec for a single named field. Unlike BuildSpecs,
// which silently skips them, requesting a union or unclassifiable field by
// name fails explicitly.
func SpecFor(rec any, name string) (FlagSpec, error) {
	fds, err := Fields(rec)
	if err != nil {
		return FlagSpec{}, err
	}
	for i := range fds {
		fd := &fds[i]
		if fd.Name != name {
			continue
		}
		switch fd.Class {
		case ClassUnionOfConfigs, ClassUnknown:
			return FlagSpec{}, fmt.Errorf("%w: field %s (%s) cannot be expressed as a single flag", ErrTypeMismatch, name, fd.Class)
		case ClassNestedConfig, ClassOptionalNestedConfig, ClassListOfNestedConfig:
			return FlagSpec{}, fmt.Errorf("%w: field %s is not leaf-reachable; build its sub-fields instead", ErrTypeMismatch, name)
		case ClassListOfPrimitive, ClassMapping:
			def, err := normalizeValue(fd.Value)
			if err != nil {
				return FlagSpec{}, err
			}
			return FlagSpec{Path: name, Kind: FlagJSON, Default: def, Help: fd.Help, Mandatory: fd.Mandatory}, nil
		default:
			def, err := normalizeValue(fd.Value)
			if err != nil {
				return FlagSpec{}, err
			}
			return FlagSpec{Path: name, Kind: flagKindOf(fd.Type), Default: def, Help: fd.Help, Mandatory: fd.Mandatory}, nil
		}
	}
	return FlagSpec{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
}

func flagKindOf(t reflect.Type) FlagKind {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return FlagBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FlagInt
	case reflect.Float32, reflect.Float64:
		return FlagFloat
	}
	return FlagString
}

// AddFlags registers the given specs on a pflag flag set.
func AddFlags(fs *pflag.FlagSet, specs []FlagSpec) {
	for _, s := range specs {
		switch s.Kind {
		case FlagBool:
			d, _ := s.Default.(bool)
			fs.Bool(s.Path, d, s.Help)
		case FlagInt:
			d, _ := s.Default.(int64)
			fs.Int64(s.Path, d, s.Help)
		case FlagFloat:
			d, _ := s.Default.(float64)
			fs.Float64(s.Path, d, s.Help)
		case FlagString:
			d, _ := s.Default.(string)
			fs.String(s.Path, d, s.Help)
		case FlagJSON:
			enc, err := json.Marshal(s.Default)
			if err != nil {
				enc = []byte("null")
			}
			fs.String(s.Path, string(enc), s.Help)
		}
	}
}

// NewFlagSet builds a pflag flag set mirroring the record's leaf-reachable
// fields, each flag name prefixed by namespace when non-empty.
func NewFlagSet(name string, rec any, namespace string) (*pflag.FlagSet, error) {
	specs, err := BuildSpecs(rec, namespace)
	if err != nil {
		return nil, err
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	AddFlags(fs, specs)
	return fs, nil
}

// Apply writes parsed flag values, keyed by the same dotted/indexed paths
// BuildSpecs produced (including the namespace prefix), back into the
// record. Raw-JSON leaves receive their value as a JSON string and fail
// with ErrFlagDecode when malformed. Paths are applied in sorted order so
// a partial failure is deterministic. The record's CheckValues hook runs
// once after all values are applied.
func Apply(rec any, values map[string]any, namespace string) error {
	if err := applyValues(rec, values, namespace); err != nil {
		return err
	}
	return runCheck(rec)
}

func applyValues(rec any, values map[string]any, namespace string) error {
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rel := p
		if namespace != "" {
			var ok bool
			rel, ok = strings.CutPrefix(p, namespace+".")
			if !ok {
				return fmt.Errorf("%w: %s is outside namespace %q", ErrUnknownPath, p, namespace)
			}
		}
		leaf, class, err := resolveLeaf(rec, rel)
		if err != nil {
			return err
		}
		v := values[p]
		if class == ClassListOfPrimitive || class == ClassMapping {
			raw, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s expects a JSON string, got %T", ErrFlagDecode, p, v)
			}
			var decoded any
			if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrFlagDecode, p, err)
			}
			v = decoded
		}
		if err := assignValue(leaf, v); err != nil {
			return fmt.Errorf("flag %s: %w", p, err)
		}
	}
	return nil
}

// ApplyFlagSet writes back every flag of fs that was changed on the
// command line. fs must have been built by NewFlagSet (or AddFlags) from
// the same record and namespace.
func ApplyFlagSet(rec any, fs *pflag.FlagSet, namespace string) error {
	specs, err := BuildSpecs(rec, namespace)
	if err != nil {
		return err
	}
	values := make(map[string]any)
	for _, s := range specs {
		if !fs.Changed(s.Path) {
			continue
		}
		var v any
		switch s.Kind {
		case FlagBool:
			v, err = fs.GetBool(s.Path)
		case FlagInt:
			v, err = fs.GetInt64(s.Path)
		case FlagFloat:
			v, err = fs.GetFloat64(s.Path)
		default:
			v, err = fs.GetString(s.Path)
		}
		if err != nil {
			return err
		}
		values[s.Path] = v
	}
	return Apply(rec, values, namespace)
}

// ParseArgs builds the record's flag surface, parses args against it and
// writes the results back into the record. namespace, when non-empty,
// prefixes every flag name ("--train.epochs 10").
func ParseArgs(rec any, args []string, namespace string) error {
	fs, err := NewFlagSet("config", rec, namespace)
	if err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrFlagDecode, err)
	}
	return ApplyFlagSet(rec, fs, namespace)
}
