package compiler

import (
	"fmt"
	"reflect"
	"sort"
)

// asIterable returns the elements of an iterable value. Mappings iterate as
// their keys. Strings are not iterable here: spreading a string into
// positional args is never what a template means.
func asIterable(v any) ([]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []any:
		return val, true
	case *OrderedMap:
		return val.Keys(), true
	case string:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	case reflect.Map:
		keys := sortedMapKeys(rv)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k.Interface()
		}
		return out, true
	default:
		return nil, false
	}
}

// mappingEntries returns the entries of a mapping value. An *OrderedMap
// yields insertion order; plain Go maps have no insertion order, so their
// keys are sorted for determinism.
func mappingEntries(v any) ([]MapEntry, bool) {
	if om, ok := v.(*OrderedMap); ok {
		return om.Items(), true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, false
	}

	keys := sortedMapKeys(rv)
	entries := make([]MapEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, MapEntry{
			Key:   k.Interface(),
			Value: rv.MapIndex(k).Interface(),
		})
	}
	return entries, true
}

func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}

// stringifyKey renders a mapping key as a keyword name
func stringifyKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

// hashable reports whether a value can be used as a dict key
func hashable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// typeName names a value's type for error messages
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
