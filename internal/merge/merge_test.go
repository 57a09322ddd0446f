package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		target Tree
		source Tree
		want   Tree
	}{
		{
			name:   "nested objects merge recursively",
			target: Tree{"a": 1.0, "b": Tree{"c": 2.0}},
			source: Tree{"b": Tree{"d": 3.0}},
			want:   Tree{"a": 1.0, "b": Tree{"c": 2.0, "d": 3.0}},
		},
		{
			name:   "primitive arrays union in order",
			target: Tree{"tags": []any{"x", "y"}},
			source: Tree{"tags": []any{"y", "z"}},
			want:   Tree{"tags": []any{"x", "y", "z"}},
		},
		{
			name:   "type mismatch takes source",
			target: Tree{"k": []any{1.0}},
			source: Tree{"k": "s"},
			want:   Tree{"k": "s"},
		},
		{
			name:   "object arrays concatenate",
			target: Tree{"rules": []any{Tree{"find": "a", "replace": "b"}}},
			source: Tree{"rules": []any{Tree{"find": "a", "replace": "b"}}},
			want: Tree{"rules": []any{
				Tree{"find": "a", "replace": "b"},
				Tree{"find": "a", "replace": "b"},
			}},
		},
		{
			name:   "source primitive overrides",
			target: Tree{"enabled": true, "style": "cautious"},
			source: Tree{"enabled": false},
			want:   Tree{"enabled": false, "style": "cautious"},
		},
		{
			name:   "source object replaces target primitive",
			target: Tree{"tone": "definitive"},
			source: Tree{"tone": Tree{"style": "balanced"}},
			want:   Tree{"tone": Tree{"style": "balanced"}},
		},
		{
			name:   "nil source copies target",
			target: Tree{"a": "b"},
			source: nil,
			want:   Tree{"a": "b"},
		},
		{
			name:   "nil target takes source",
			target: nil,
			source: Tree{"a": []any{"b"}},
			want:   Tree{"a": []any{"b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.target, tt.source))
		})
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	target := Tree{"report": Tree{"custom_rules": []any{"a"}}}
	source := Tree{"report": Tree{"custom_rules": []any{"b"}}}

	out := Merge(target, source)
	out["report"].(Tree)["custom_rules"] = append(out["report"].(Tree)["custom_rules"].([]any), "c")
	out["report"].(Tree)["extra"] = true

	assert.Equal(t, Tree{"report": Tree{"custom_rules": []any{"a"}}}, target)
	assert.Equal(t, Tree{"report": Tree{"custom_rules": []any{"b"}}}, source)
}

func TestAll(t *testing.T) {
	out := All(Tree{"a": 1.0}, Tree{"b": 2.0}, Tree{"a": 3.0})
	assert.Equal(t, Tree{"a": 3.0, "b": 2.0}, out)
	assert.Equal(t, Tree{}, All())
}

type sample struct {
	Name  string   `json:"name,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	Inner *struct {
		On bool `json:"on"`
	} `json:"inner,omitempty"`
}

func TestValues(t *testing.T) {
	a := &sample{Name: "base", Tags: []string{"x"}}
	b := &sample{Tags: []string{"x", "y"}}

	out, err := Values(a, b)
	require.NoError(t, err)
	assert.Equal(t, "base", out.Name)
	assert.Equal(t, []string{"x", "y"}, out.Tags)

	out, err = Values[sample](nil, nil)
	require.NoError(t, err)
	assert.Equal(t, &sample{}, out)
}

func TestToTreeAndDecode(t *testing.T) {
	tree, err := ToTree(sample{Name: "n", Tags: []string{"t"}})
	require.NoError(t, err)
	assert.Equal(t, Tree{"name": "n", "tags": []any{"t"}}, tree)

	var s sample
	require.NoError(t, Decode(tree, &s))
	assert.Equal(t, "n", s.Name)

	_, err = ToTree([]string{"not", "an", "object"})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	in := map[string]any{
		"count": 2,
		"list":  []any{map[any]any{"k": 1}},
	}
	assert.Equal(t, Tree{
		"count": 2.0,
		"list":  []any{Tree{"k": 1.0}},
	}, Normalize(in))
}
