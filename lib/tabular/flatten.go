package tabular

// FlattenMap converts a tree of nested maps into a single-level map whose
// keys are the paths to each leaf joined by sep. Scalars and sequences are
// kept as leaf values, nil leaves stay nil.
func FlattenMap(m map[string]any, sep string) map[string]any {
	out := make(map[string]any, len(m))
	flattenInto(out, "", m, sep)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any, sep string) {
	for key, value := range m {
		path := key
		if prefix != "" {
			path = prefix + sep + key
		}

		nested, ok := value.(map[string]any)
		if !ok {
			out[path] = value
			continue
		}
		if len(nested) == 0 {
			// an empty map has no leaves to contribute
			continue
		}
		flattenInto(out, path, nested, sep)
	}
}
