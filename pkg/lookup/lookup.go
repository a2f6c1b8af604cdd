// Package lookup reads values out of decoded JSON documents without failing on missing data.
//
// GraphQL responses routinely omit fields that a vehicle does not report, and lists such as
// outdoorTemperatures may be empty. Rather than checking each level by hand, callers describe the
// location of a value as a [Path] and use [Get]:
//
//	celsius, ok := lookup.Get(vehicle, lookup.Path{"outdoorTemperatures", 0, "celsius"})
//
// Get reports false whenever any step of the path cannot be followed. It never returns a partial
// result.
package lookup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Path is a sequence of map keys (string) and slice indices (int).
type Path []any

// Get walks root along path and returns the value found at the end.
//
// The second return value is false if a key is missing, an index is out of range, a step expects
// a map or slice but finds something else, or the resolved value is JSON null.
func Get(root any, path Path) (any, bool) {
	current := root
	for _, step := range path {
		if current == nil {
			return nil, false
		}
		switch key := step.(type) {
		case string:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = obj[key]; !ok {
				return nil, false
			}
		case int:
			list, ok := current.([]any)
			if !ok || key < 0 || key >= len(list) {
				return nil, false
			}
			current = list[key]
		default:
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// Float converts numeric JSON representations to a float64. Strings are parsed; booleans, maps,
// and slices are not numbers.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// GetFloat combines [Get] and [Float].
func GetFloat(root any, path Path) (float64, bool) {
	v, ok := Get(root, path)
	if !ok {
		return 0, false
	}
	return Float(v)
}

// GetString returns the string at path. Non-string values are absent.
func GetString(root any, path Path) (string, bool) {
	v, ok := Get(root, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetBool returns the boolean at path. Non-boolean values are absent.
func GetBool(root any, path Path) (bool, bool) {
	v, ok := Get(root, path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// String renders p in dotted notation, e.g. "outdoorTemperatures[0].celsius".
func (p Path) String() string {
	var b strings.Builder
	for _, step := range p {
		switch s := step.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", s)
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, s)
		}
	}
	return b.String()
}

// ParsePath parses the notation produced by [Path.String]. Bare numeric segments such as
// "outdoorTemperatures.0.celsius" are also treated as indices.
func ParsePath(s string) (Path, error) {
	var path Path
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty path")
	}
	for _, segment := range strings.Split(s, ".") {
		name, rest, _ := strings.Cut(segment, "[")
		if name == "" && rest == "" {
			return nil, fmt.Errorf("empty segment in path '%s'", s)
		}
		if name != "" {
			if index, err := strconv.Atoi(name); err == nil {
				path = append(path, index)
			} else {
				path = append(path, name)
			}
		}
		for rest != "" {
			digits, tail, ok := strings.Cut(rest, "]")
			if !ok {
				return nil, fmt.Errorf("unterminated index in path '%s'", s)
			}
			index, err := strconv.Atoi(digits)
			if err != nil {
				return nil, fmt.Errorf("invalid index '%s' in path '%s'", digits, s)
			}
			path = append(path, index)
			rest = strings.TrimPrefix(tail, "[")
			if tail != "" && !strings.HasPrefix(tail, "[") {
				return nil, fmt.Errorf("unexpected '%s' after index in path '%s'", tail, s)
			}
		}
	}
	return path, nil
}
