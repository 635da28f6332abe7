/*
   Copyright The Soci Snapshotter Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package variable

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	for _, test := range []struct {
		name     string
		base     any
		overlay  any
		expected any
	}{
		{
			name:     "mapping+mapping",
			base:     map[string]any{"a": true},
			overlay:  map[string]any{"b": "123"},
			expected: map[string]any{"a": true, "b": "123"},
		},
		{
			name:     "mapping+mapping(overlay wins)",
			base:     map[string]any{"a": true},
			overlay:  map[string]any{"a": false},
			expected: map[string]any{"a": false},
		},
		{
			name:     "mapping+mapping(shallow)",
			base:     map[string]any{"a": map[string]any{"x": 1}},
			overlay:  map[string]any{"a": map[string]any{"y": 2}},
			expected: map[string]any{"a": map[string]any{"y": 2}},
		},
		{
			name:     "list+list",
			base:     []any{"subnet-1"},
			overlay:  []any{"subnet-2", "subnet-1"},
			expected: []any{"subnet-1", "subnet-2", "subnet-1"},
		},
		{
			name:     "scalar+scalar",
			base:     10,
			overlay:  30,
			expected: 30,
		},
		{
			name:     "list+mapping",
			base:     []any{"a"},
			overlay:  map[string]any{"b": 1},
			expected: map[string]any{"b": 1},
		},
		{
			name:     "mapping+scalar",
			base:     map[string]any{"b": 1},
			overlay:  "replaced",
			expected: "replaced",
		},
		{
			name:     "mapping+nil",
			base:     map[string]any{"b": 1},
			overlay:  nil,
			expected: map[string]any{"b": 1},
		},
		{
			name:     "nil+mapping",
			base:     nil,
			overlay:  map[string]any{"b": 1},
			expected: map[string]any{"b": 1},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			actual := Merge(FromAny(test.base), FromAny(test.overlay))
			if diff := cmp.Diff(test.expected, actual.Interface()); diff != "" {
				t.Fatalf("unexpected merge result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeDoesNotAlias(t *testing.T) {
	base := FromAny(map[string]any{"a": []any{"x"}})
	overlay := FromAny(map[string]any{"b": "y"})

	merged := Merge(base, overlay)
	merged.mapping["a"].list[0] = Scalar("changed")
	merged.mapping["c"] = Scalar(true)

	if diff := cmp.Diff(map[string]any{"a": []any{"x"}}, base.Interface()); diff != "" {
		t.Fatalf("base was modified (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"b": "y"}, overlay.Interface()); diff != "" {
		t.Fatalf("overlay was modified (-want +got):\n%s", diff)
	}
}

func TestFromAny(t *testing.T) {
	for _, test := range []struct {
		name     string
		input    any
		kind     Kind
		expected any
	}{
		{name: "nil", input: nil, kind: KindScalar, expected: nil},
		{name: "string", input: "s", kind: KindScalar, expected: "s"},
		{name: "int64", input: int64(4), kind: KindScalar, expected: int64(4)},
		{name: "list", input: []any{1, "a"}, kind: KindList, expected: []any{1, "a"}},
		{name: "typed slice", input: []string{"a", "b"}, kind: KindList, expected: []any{"a", "b"}},
		{name: "bytes", input: []byte("ab"), kind: KindScalar, expected: []byte("ab")},
		{
			name:     "mapping",
			input:    map[string]any{"a": []any{map[string]any{"b": 1}}},
			kind:     KindMapping,
			expected: map[string]any{"a": []any{map[string]any{"b": 1}}},
		},
		{
			name:     "any keys",
			input:    map[any]any{1: "one", "two": 2},
			kind:     KindMapping,
			expected: map[string]any{"1": "one", "two": 2},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			v := FromAny(test.input)
			if v.Kind() != test.kind {
				t.Fatalf("expected kind %s, got %s", test.kind, v.Kind())
			}
			if diff := cmp.Diff(test.expected, v.Interface()); diff != "" {
				t.Fatalf("unexpected value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	for _, test := range []struct {
		input    any
		expected bool
	}{
		{input: nil, expected: false},
		{input: false, expected: false},
		{input: "", expected: false},
		{input: 0, expected: false},
		{input: 0.0, expected: false},
		{input: true, expected: true},
		{input: "foo", expected: true},
		{input: int64(3), expected: true},
		{input: []any{}, expected: true},
		{input: map[string]any{}, expected: true},
	} {
		if actual := FromAny(test.input).Truthy(); actual != test.expected {
			t.Errorf("Truthy(%#v) = %v, expected %v", test.input, actual, test.expected)
		}
	}
}

func TestEqual(t *testing.T) {
	tree := func() Value {
		return FromAny(map[string]any{
			"env":    map[string]any{"A": "1"},
			"layers": []any{"x", "y"},
			"memory": 512,
		})
	}
	tests := []struct {
		name     string
		a        Value
		b        Value
		expected bool
	}{
		{name: "same tree", a: tree(), b: tree(), expected: true},
		{name: "clone", a: tree(), b: tree().Clone(), expected: true},
		{name: "nil", a: Value{}, b: FromAny(nil), expected: true},
		{name: "list order", a: FromAny([]any{"x", "y"}), b: FromAny([]any{"y", "x"}), expected: false},
		{name: "extra key", a: tree(), b: Merge(tree(), FromAny(map[string]any{"timeout": 3})), expected: false},
		{name: "scalar type", a: Scalar(1), b: Scalar(int64(1)), expected: false},
		{name: "kind", a: FromAny([]any{}), b: FromAny(map[string]any{}), expected: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if actual := Equal(tc.a, tc.b); actual != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, actual)
			}
		})
	}
}
