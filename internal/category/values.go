package category

import (
	"encoding/json"
	"sort"
	"strconv"
)

// orderedKeys returns the keys of obj in the order a JavaScript consumer would
// enumerate them: array-index keys ascending by value, then the rest. The rest
// are sorted lexically since Go maps do not keep insertion order.
func orderedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, aIndex := indexKey(keys[i])
		b, bIndex := indexKey(keys[j])
		switch {
		case aIndex && bIndex:
			return a < b
		case aIndex != bIndex:
			return aIndex
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func indexKey(k string) (uint64, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(k, 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}

// scalar renders a decoded JSON string or number as a string. Anything else is "".
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func nullable(v any) *string {
	if v == nil {
		return nil
	}
	s := scalar(v)
	return &s
}

func toInt(v any) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
