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
	"fmt"
	"math"
	"reflect"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a single variable value. The zero Value is a nil scalar.
type Value struct {
	kind    Kind
	scalar  any
	list    []Value
	mapping map[string]Value
}

// Bag holds named variables, keyed by field name (e.g. "environment", "vpc").
type Bag map[string]Value

// Scalar returns a scalar Value wrapping v.
func Scalar(v any) Value {
	return Value{kind: KindScalar, scalar: v}
}

// List returns a list Value holding items in order.
func List(items ...Value) Value {
	l := make([]Value, len(items))
	copy(l, items)
	return Value{kind: KindList, list: l}
}

// Mapping returns a mapping Value holding a copy of m.
func Mapping(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMapping, mapping: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsScalar() bool { return v.kind == KindScalar }

func (v Value) IsList() bool { return v.kind == KindList }

func (v Value) IsMapping() bool { return v.kind == KindMapping }

// IsNil reports whether v is a nil scalar.
func (v Value) IsNil() bool {
	return v.kind == KindScalar && v.scalar == nil
}

// Scalar returns the wrapped scalar, or nil for lists and mappings.
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Items returns a copy of the list items. It is nil unless v is a list.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	items := make([]Value, len(v.list))
	copy(items, v.list)
	return items
}

// Get returns the value stored under key when v is a mapping.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	e, ok := v.mapping[key]
	return e, ok
}

// Keys returns the keys of a mapping in no particular order.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.mapping))
	for k := range v.mapping {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of list items or mapping entries, and 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMapping:
		return len(v.mapping)
	}
	return 0
}

// Truthy reports whether a host would consider v as set. Lists and mappings
// are always set, even when empty. Scalars are unset when nil, false, empty or
// a numeric zero.
func (v Value) Truthy() bool {
	if v.kind != KindScalar {
		return true
	}
	if v.scalar == nil {
		return false
	}
	rv := reflect.ValueOf(v.scalar)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// Clone returns a deep copy of v. Scalars are copied by value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return Value{kind: KindList, list: items}
	case KindMapping:
		m := make(map[string]Value, len(v.mapping))
		for k, e := range v.mapping {
			m[k] = e.Clone()
		}
		return Value{kind: KindMapping, mapping: m}
	}
	return v
}

// Equal reports whether a and b hold the same tree. Scalars are compared
// with reflect.DeepEqual, so 1 and int64(1) differ.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(a.mapping) != len(b.mapping) {
			return false
		}
		for k, av := range a.mapping {
			bv, ok := b.mapping[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a.scalar, b.scalar)
}

func (v Value) String() string {
	return fmt.Sprint(v.Interface())
}
