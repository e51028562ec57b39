package evaluator

import (
	"bytes"
	"encoding/json"
	"math"
)

// ValueToJSON marshals a Value to JSON bytes.
// Integers and integral floats keep their own representation; arrays become
// JSON arrays.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func valueToRaw(v Value) any {
	switch val := v.(type) {
	case Integer:
		return val.Value
	case Float:
		// NaN and infinities have no JSON form.
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return Format(val)
		}
		return val.Value
	case String:
		return val.Value
	case Boolean:
		return val.Value
	case *Array:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = valueToRaw(item)
		}
		return items
	}
	return nil
}

// EnvToJSON renders every binding of env as a JSON object with sorted keys.
func EnvToJSON(env *Env) ([]byte, error) {
	return json.Marshal(EnvToMap(env))
}

// EnvToMap returns the bindings of env as plain Go values, suitable for
// encoding or embedding in trace events.
func EnvToMap(env *Env) map[string]any {
	out := make(map[string]any, env.Len())
	for _, name := range env.Names() {
		val, _ := env.Get(name)
		out[name] = valueToRaw(val)
	}
	return out
}

// ValueFromJSON converts decoded JSON into a Value. Whole numbers become
// Integers; objects and null are rejected.
func ValueFromJSON(data json.RawMessage) (Value, bool) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	return anyToValue(raw)
}

func anyToValue(v any) (Value, bool) {
	switch val := v.(type) {
	case bool:
		return NewBoolean(val), true
	case string:
		return NewString(val), true
	case json.Number:
		if n, ok := ParseNumber(val.String()); ok {
			return n, true
		}
		f, err := val.Float64()
		if err != nil {
			return nil, false
		}
		return NewFloat(f), true
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			conv, ok := anyToValue(item)
			if !ok {
				return nil, false
			}
			items[i] = conv
		}
		return NewArray(items), true
	}
	return nil, false
}
