// Package merge flattens and merges string-keyed maps under a named policy.
//
// All functions are pure: inputs are never mutated and a new map is always
// returned. Nil maps behave as empty maps.
package merge

import (
	"reflect"
	"sort"
	"strconv"
)

// Policy selects how colliding keys are resolved.
type Policy int

const (
	// EncapsulateFlatten flattens the incoming map and keeps every value,
	// renaming colliding keys with a numeric prefix.
	EncapsulateFlatten Policy = iota
	// Override replaces existing values with incoming ones.
	Override
)

func (p Policy) String() string {
	switch p {
	case EncapsulateFlatten:
		return "encapsulate_flatten"
	case Override:
		return "override"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// Separator joins nested key paths in flattened maps.
const Separator = "."

// Flatten turns nested maps into a single-level map whose keys are the
// dot-joined paths of the original nesting. Slices and scalars pass through
// unchanged; an empty nested map is kept as a value under its own path, and
// so is a map that contains itself.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	flattenInto(out, "", m, map[uintptr]struct{}{})
	return out
}

// flattenInto walks m depth first. ancestors holds the maps on the current
// path.
func flattenInto(dst map[string]any, prefix string, m map[string]any, ancestors map[uintptr]struct{}) {
	id := reflect.ValueOf(m).Pointer()
	ancestors[id] = struct{}{}
	defer delete(ancestors, id)

	for _, k := range sortedKeys(m) {
		path := k
		if prefix != "" {
			path = prefix + Separator + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			if _, cycle := ancestors[reflect.ValueOf(v).Pointer()]; cycle || len(v) == 0 {
				insert(dst, path, v)
				continue
			}
			flattenInto(dst, path, v, ancestors)
		case map[string]string:
			if len(v) == 0 {
				insert(dst, path, v)
				continue
			}
			flattenInto(dst, path, widen(v), ancestors)
		default:
			insert(dst, path, v)
		}
	}
}

// Merge combines incoming into a copy of base according to policy.
func Merge(base, incoming map[string]any, policy Policy) map[string]any {
	out := make(map[string]any, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}

	switch policy {
	case Override:
		for k, v := range incoming {
			out[k] = v
		}
	default:
		flat := Flatten(incoming)
		for _, k := range sortedKeys(flat) {
			insert(out, k, flat[k])
		}
	}
	return out
}

// insert stores v under key, or under the first free "<n>.key" when key is
// already taken.
func insert(dst map[string]any, key string, v any) {
	if _, taken := dst[key]; !taken {
		dst[key] = v
		return
	}
	for n := 1; ; n++ {
		candidate := strconv.Itoa(n) + Separator + key
		if _, taken := dst[candidate]; !taken {
			dst[candidate] = v
			return
		}
	}
}

func widen(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
