// Package merge deep-merges JSON-shaped configuration trees.
//
// Objects merge key by key, arrays union, and everything else is replaced by
// the source value. Inputs are never modified; the result shares no mutable
// state with either input.
package merge

import (
	"encoding/json"
	"fmt"
)

// Tree is a decoded JSON object.
type Tree = map[string]any

// Merge returns source merged over target.
//
// For each key of source: arrays on both sides union (primitive elements are
// deduplicated by value, object and array elements are appended as-is),
// objects on both sides merge recursively, and any other source value
// overrides. Keys present only in target are kept. A nil source yields a copy
// of target.
func Merge(target, source Tree) Tree {
	out := make(Tree, len(target)+len(source))
	for k, v := range target {
		out[k] = clone(v)
	}
	for k, sv := range source {
		tv, ok := out[k]
		if !ok {
			out[k] = clone(sv)
			continue
		}
		out[k] = mergeValue(tv, sv)
	}
	return out
}

// All folds Merge left to right: All(a, b, c) == Merge(Merge(a, b), c).
func All(trees ...Tree) Tree {
	out := Tree{}
	for _, t := range trees {
		out = Merge(out, t)
	}
	return out
}

func mergeValue(target, source any) any {
	switch sv := source.(type) {
	case []any:
		if tv, ok := target.([]any); ok {
			return union(tv, sv)
		}
	case map[string]any:
		if tv, ok := target.(map[string]any); ok {
			return Merge(tv, sv)
		}
	}
	return clone(source)
}

// union appends source to target, skipping primitives already present.
func union(target, source []any) []any {
	out := make([]any, 0, len(target)+len(source))
	seen := make(map[any]struct{}, len(target)+len(source))
	add := func(v any) {
		if isPrimitive(v) {
			if _, dup := seen[v]; dup {
				return
			}
			seen[v] = struct{}{}
		}
		out = append(out, clone(v))
	}
	for _, v := range target {
		add(v)
	}
	for _, v := range source {
		add(v)
	}
	return out
}

// isPrimitive reports whether v is a comparable JSON scalar.
func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int64, int32, uint, uint64, uint32, json.Number:
		return true
	}
	return false
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	}
	return v
}

// Clone deep-copies a tree.
func Clone(t Tree) Tree {
	if t == nil {
		return nil
	}
	return clone(t).(Tree)
}

// ToTree converts any JSON-encodable value into a Tree.
func ToTree(v any) (Tree, error) {
	if t, ok := v.(Tree); ok {
		return Clone(t), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode %T as object: %w", v, err)
	}
	return t, nil
}

// Decode converts a Tree into a typed value.
func Decode(t Tree, out any) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode tree into %T: %w", out, err)
	}
	return nil
}

// Values merges two typed values through their tree form and decodes the
// result into a fresh T.
func Values[T any](target, source *T) (*T, error) {
	var tt, st Tree
	var err error
	if target != nil {
		if tt, err = ToTree(target); err != nil {
			return nil, err
		}
	}
	if source != nil {
		if st, err = ToTree(source); err != nil {
			return nil, err
		}
	}
	out := new(T)
	if err := Decode(Merge(tt, st), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Normalize rewrites a tree produced by a non-JSON decoder (such as YAML,
// which yields map[string]interface{} and []interface{} of varying shapes)
// into the canonical JSON shape used by Merge.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(Tree, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(Tree, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	}
	return v
}
