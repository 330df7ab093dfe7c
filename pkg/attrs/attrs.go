// Package attrs reads typed values back out of slog-style key/value slices.
package attrs

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string.
func ExtractString(attrs []any, key string) string {
	if v, ok := find(attrs, key).(string); ok {
		return v
	}
	return ""
}

// ExtractUint64 returns the uint64 stored under key, or zero.
func ExtractUint64(attrs []any, key string) uint64 {
	if v, ok := find(attrs, key).(uint64); ok {
		return v
	}
	return 0
}

// ExtractInt64 returns the int64 stored under key, or zero.
func ExtractInt64(attrs []any, key string) int64 {
	if v, ok := find(attrs, key).(int64); ok {
		return v
	}
	return 0
}

func find(attrs []any, key string) any {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			return attrs[i+1]
		}
	}
	return nil
}
