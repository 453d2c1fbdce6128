// Package fieldpath resolves dotted field references against nested maps.
package fieldpath

import "strings"

type missing struct{}

func (missing) String() string { return "<missing>" }

// Missing is returned by Get when any segment of the path does not exist. It
// never compares equal to a value found in the data.
var Missing any = missing{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missing)

	return ok
}

// Get walks data following the dot separated path. An empty path, a missing
// key or a non-map intermediate value yields Missing.
func Get(data map[string]any, path string) any {
	if path == "" {
		return Missing
	}

	var current any = data

	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return Missing
		}

		current, ok = m[key]
		if !ok {
			return Missing
		}
	}

	return current
}
