package merge

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

var propertyKeys = []string{"general", "report", "impression", "rules", "style", "enabled"}

func scalarGen() *rapid.Generator[any] {
	return rapid.Custom(func(t *rapid.T) any {
		switch rapid.IntRange(0, 2).Draw(t, "scalarKind") {
		case 0:
			return rapid.SampledFrom([]string{"a", "b", "c", "d"}).Draw(t, "str")
		case 1:
			return rapid.Bool().Draw(t, "bool")
		default:
			return float64(rapid.IntRange(0, 3).Draw(t, "num"))
		}
	})
}

func distinctListGen() *rapid.Generator[[]any] {
	return rapid.Custom(func(t *rapid.T) []any {
		items := rapid.SliceOfNDistinct(rapid.SampledFrom([]string{"x", "y", "z", "w"}), 0, 4, rapid.ID[string]).Draw(t, "items")
		out := make([]any, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out
	})
}

func treeGen(depth int) *rapid.Generator[Tree] {
	return rapid.Custom(func(t *rapid.T) Tree {
		out := Tree{}
		n := rapid.IntRange(0, 4).Draw(t, "size")
		for i := 0; i < n; i++ {
			key := rapid.SampledFrom(propertyKeys).Draw(t, "key")
			kind := rapid.IntRange(0, 2).Draw(t, "kind")
			switch {
			case kind == 2 && depth > 0:
				out[key] = treeGen(depth-1).Draw(t, "child")
			case kind == 1:
				out[key] = distinctListGen().Draw(t, "list")
			default:
				out[key] = scalarGen().Draw(t, "scalar")
			}
		}
		return out
	})
}

func TestMergeNeverMutatesInputs(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := treeGen(2).Draw(t, "a")
		b := treeGen(2).Draw(t, "b")
		aCopy, bCopy := Clone(a), Clone(b)

		_ = Merge(a, b)

		if !reflect.DeepEqual(a, aCopy) || !reflect.DeepEqual(b, bCopy) {
			t.Fatalf("inputs changed")
		}
	})
}

func TestMergeKeepsTargetOnlyKeys(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := treeGen(2).Draw(t, "a")
		b := treeGen(2).Draw(t, "b")
		out := Merge(a, b)

		for k, v := range a {
			if _, inSource := b[k]; inSource {
				continue
			}
			if !reflect.DeepEqual(out[k], v) {
				t.Fatalf("key %q: got %v, want %v", k, out[k], v)
			}
		}
	})
}

func TestMergeSourceScalarsWin(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := treeGen(2).Draw(t, "a")
		b := treeGen(2).Draw(t, "b")
		out := Merge(a, b)

		for k, v := range b {
			if isPrimitive(v) && out[k] != v {
				t.Fatalf("key %q: got %v, want %v", k, out[k], v)
			}
		}
	})
}

func TestMergeArrayUnion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := distinctListGen().Draw(t, "x")
		y := distinctListGen().Draw(t, "y")
		out := Merge(Tree{"k": x}, Tree{"k": y})["k"].([]any)

		seen := map[any]bool{}
		for _, v := range out {
			if seen[v] {
				t.Fatalf("duplicate %v in %v", v, out)
			}
			seen[v] = true
		}
		for _, v := range append(append([]any{}, x...), y...) {
			if !seen[v] {
				t.Fatalf("missing %v in %v", v, out)
			}
		}
		if len(x) > 0 && !reflect.DeepEqual(out[:len(x)], x) {
			t.Fatalf("target order lost: %v", out)
		}
	})
}

func TestMergeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := treeGen(3).Draw(t, "a")
		if out := Merge(a, a); !reflect.DeepEqual(out, a) {
			t.Fatalf("Merge(a, a) = %v, want %v", out, a)
		}
	})
}

// shapedTreeGen draws trees where each key always holds the same kind of
// value: objects under the category keys, lists under "rules", scalars
// elsewhere. Merge only promises associativity when the layers agree on shape.
func shapedTreeGen(depth int) *rapid.Generator[Tree] {
	return rapid.Custom(func(t *rapid.T) Tree {
		out := Tree{}
		n := rapid.IntRange(0, 4).Draw(t, "size")
		for i := 0; i < n; i++ {
			key := rapid.SampledFrom(propertyKeys).Draw(t, "key")
			switch key {
			case "general", "report", "impression":
				if depth > 0 {
					out[key] = shapedTreeGen(depth-1).Draw(t, "child")
				}
			case "rules":
				out[key] = distinctListGen().Draw(t, "list")
			default:
				out[key] = scalarGen().Draw(t, "scalar")
			}
		}
		return out
	})
}

func scalarLeaves(t Tree, prefix string, out map[string]any) map[string]any {
	for k, v := range t {
		switch tv := v.(type) {
		case map[string]any:
			scalarLeaves(tv, prefix+k+".", out)
		default:
			if isPrimitive(v) {
				out[prefix+k] = v
			}
		}
	}
	return out
}

func TestMergeAssociativeOnScalars(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := shapedTreeGen(2).Draw(t, "a")
		b := shapedTreeGen(2).Draw(t, "b")
		c := shapedTreeGen(2).Draw(t, "c")

		left := scalarLeaves(Merge(Merge(a, b), c), "", map[string]any{})
		right := scalarLeaves(Merge(a, Merge(b, c)), "", map[string]any{})

		if !reflect.DeepEqual(left, right) {
			t.Fatalf("(a+b)+c = %v, a+(b+c) = %v", left, right)
		}
	})
}
