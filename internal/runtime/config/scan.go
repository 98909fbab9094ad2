package config

import "sort"

// ComponentsByKey walks a decoded configuration tree and collects every name attached to key,
// at any depth. Values may be a single name or a list of names. Non-string values are skipped;
// the binding parser rejects them. The result is deduplicated and keeps first-seen order;
// mapping keys are visited in sorted order so the result is stable.
func ComponentsByKey(tree any, key string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(v any) {
		name, ok := v.(string)
		if !ok {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	var walk func(node any)
	walk = func(node any) {
		switch n := node.(type) {
		case map[string]any:
			keys := make([]string, 0, len(n))
			for k := range n {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				v := n[k]
				if k == key {
					if list, ok := v.([]any); ok {
						for _, item := range list {
							add(item)
						}
					} else if _, nested := v.(map[string]any); !nested {
						add(v)
					}
				}
				walk(v)
			}
		case []any:
			for _, item := range n {
				walk(item)
			}
		}
	}
	walk(tree)
	return out
}
