package tree

// MetaLastModified is the metadata key holding the item's last mutation
// time as a Unix-epoch-millisecond integer. It is maintained by the store
// on every successful mutation; caller-supplied values are overwritten.
const MetaLastModified = "lastModified"

// LastModified extracts the lastModified timestamp from a metadata map.
// JSON decoding produces float64 for numbers, so both integer and float
// encodings are accepted. Returns 0, false when the key is absent or not
// a number.
func LastModified(md map[string]any) (int64, bool) {
	if md == nil {
		return 0, false
	}
	switch v := md[MetaLastModified].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// Touch sets lastModified to the given epoch-millisecond timestamp,
// allocating the map if needed, and returns it.
func Touch(md map[string]any, millis int64) map[string]any {
	if md == nil {
		md = make(map[string]any, 1)
	}
	md[MetaLastModified] = millis
	return md
}

// MergeMetadata shallow-merges src into dst key-by-key: new keys are
// added, existing keys overwritten, keys absent from src preserved.
// dst is allocated when nil and src has entries.
func MergeMetadata(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// CloneMetadata returns a copy of the metadata map. Values are copied
// shallowly except for nested []any and map[string]any produced by JSON
// decoding, which are copied recursively.
func CloneMetadata(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
