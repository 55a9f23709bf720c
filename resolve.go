package confrec

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeClass is the classification of a field's declared type. It drives
// every branch of tree conversion, merging and flag generation.
type TypeClass int

const (
	ClassUnknown TypeClass = iota
	ClassPrimitive
	ClassOptionalPrimitive
	ClassNestedConfig
	ClassOptionalNestedConfig
	ClassListOfPrimitive
	ClassListOfNestedConfig
	ClassUnionOfConfigs
	ClassMapping
)

func (tc TypeClass) String() string {
	switch tc {
	case ClassPrimitive:
		return "primitive"
	case ClassOptionalPrimitive:
		return "optional primitive"
	case ClassNestedConfig:
		return "nested config"
	case ClassOptionalNestedConfig:
		return "optional nested config"
	case ClassListOfPrimitive:
		return "list of primitive"
	case ClassListOfNestedConfig:
		return "list of nested config"
	case ClassUnionOfConfigs:
		return "union of configs"
	case ClassMapping:
		return "mapping"
	}
	return "unknown"
}

// Classify resolves a declared field type into its TypeClass. A single
// pointer level marks a type optional; deeper pointer nesting is unknown.
// The same type always yields the same classification within a process.
func Classify(t reflect.Type) TypeClass {
	optional := false
	if t.Kind() == reflect.Pointer {
		optional = true
		t = t.Elem()
		if t.Kind() == reflect.Pointer {
			return ClassUnknown
		}
	}

	switch {
	case isRecordType(t):
		if optional {
			return ClassOptionalNestedConfig
		}
		return ClassNestedConfig
	case t.Kind() == reflect.Slice:
		elem := t.Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if isRecordType(elem) {
			return ClassListOfNestedConfig
		}
		if isPrimitiveType(elem) {
			return ClassListOfPrimitive
		}
		return ClassUnknown
	case t.Kind() == reflect.Map:
		if t.Key().Kind() == reflect.String {
			return ClassMapping
		}
		return ClassUnknown
	case t.Kind() == reflect.Interface:
		if len(unionVariants(t)) >= 2 {
			return ClassUnionOfConfigs
		}
		return ClassUnknown
	case isPrimitiveType(t):
		if optional {
			return ClassOptionalPrimitive
		}
		return ClassPrimitive
	}
	return ClassUnknown
}

func isPrimitiveType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

var (
	unionMu       sync.RWMutex
	unionRegistry = make(map[reflect.Type][]reflect.Type)
)

// RegisterUnion declares the concrete record types a field of interface
// type may hold, making the interface a union-of-configs. iface must be a
// nil pointer to the interface type:
//
//	confrec.RegisterUnion((*StorageConfig)(nil), &DiskConfig{}, &S3Config{})
//
// Registration is expected to happen at init time, before records are
// walked. A union needs at least two variants; interfaces with fewer stay
// unknown and are excluded from every operation.
func RegisterUnion(iface any, variants ...Record) error {
	pt := reflect.TypeOf(iface)
	if pt == nil || pt.Kind() != reflect.Pointer || pt.Elem().Kind() != reflect.Interface {
		return fmt.Errorf("%w: union target must be a nil pointer to an interface type, got %T", ErrTypeMismatch, iface)
	}
	it := pt.Elem()

	ts := make([]reflect.Type, 0, len(variants))
	for _, v := range variants {
		vt := reflect.TypeOf(v)
		if vt == nil || !vt.Implements(it) {
			return fmt.Errorf("%w: %T does not implement %s", ErrTypeMismatch, v, it)
		}
		if vt.Kind() != reflect.Pointer || !isRecordType(vt.Elem()) {
			return fmt.Errorf("%w: union variant %T is not a pointer to a record struct", ErrNotAConfig, v)
		}
		ts = append(ts, vt)
	}

	unionMu.Lock()
	defer unionMu.Unlock()
	unionRegistry[it] = ts
	return nil
}

func unionVariants(it reflect.Type) []reflect.Type {
	unionMu.RLock()
	defer unionMu.RUnlock()
	return unionRegistry[it]
}
