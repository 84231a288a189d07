package graph

import "reflect"

// State is the mutable data record passed between nodes during a run.
// It is the only channel through which nodes communicate: a tool receives
// the current state and returns the state for the next node.
//
// Values are untyped. Numeric values read back from a JSON round trip (for
// example a run record loaded from a store) arrive as float64, so the typed
// accessors coerce across the common numeric kinds.
type State map[string]any

// Clone returns a deep copy of the state. Nested maps and slices of any
// kind are copied recursively; pointers inside other values (struct
// fields, channel or function values) remain shared with the original.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case State:
		return map[string]any(val.Clone())
	case []any:
		sl := make([]any, len(val))
		for i, inner := range val {
			sl[i] = cloneValue(inner)
		}
		return sl
	default:
		return cloneReflect(v)
	}
}

// cloneReflect deep-copies map and slice values of kinds the fast paths in
// cloneValue do not cover, such as []map[string]any or map[string]int.
func cloneReflect(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflectValue(rv.Type().Elem(), iter.Value()))
		}
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneReflectValue(rv.Type().Elem(), rv.Index(i)))
		}
		return out.Interface()
	default:
		return v
	}
}

func cloneReflectValue(elemType reflect.Type, rv reflect.Value) reflect.Value {
	cloned := cloneValue(rv.Interface())
	if cloned == nil {
		return reflect.Zero(elemType)
	}
	return reflect.ValueOf(cloned)
}

// GetString returns the string stored under key, or "" if the key is absent
// or holds a non-string value.
func (s State) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// GetInt returns the integer stored under key, coercing from the numeric
// kinds that JSON decoding produces. Missing or non-numeric values yield 0.
func (s State) GetInt(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// GetFloat returns the float stored under key, coercing from integer kinds.
// Missing or non-numeric values yield 0.
func (s State) GetFloat(key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
