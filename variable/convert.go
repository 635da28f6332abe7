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
	"reflect"
)

// FromAny converts a generically decoded tree (as produced by YAML or TOML
// decoders into `any`) into a Value. Slices become lists, maps become mappings
// and everything else is kept as a scalar. Map keys that are not strings are
// formatted with fmt.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{}
	case Value:
		return t.Clone()
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return Value{kind: KindList, list: items}
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return Value{kind: KindMapping, mapping: m}
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = FromAny(e)
		}
		return Value{kind: KindMapping, mapping: m}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = FromAny(rv.Index(i).Interface())
		}
		return Value{kind: KindList, list: items}
	case reflect.Map:
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = FromAny(iter.Value().Interface())
		}
		return Value{kind: KindMapping, mapping: m}
	}
	return Scalar(v)
}

// BagFromMap converts every entry of m with FromAny.
func BagFromMap(m map[string]any) Bag {
	b := make(Bag, len(m))
	for k, v := range m {
		b[k] = FromAny(v)
	}
	return b
}

// Interface converts v back into a generic tree of []any, map[string]any and
// scalars.
func (v Value) Interface() any {
	switch v.kind {
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.Interface()
		}
		return items
	case KindMapping:
		m := make(map[string]any, len(v.mapping))
		for k, e := range v.mapping {
			m[k] = e.Interface()
		}
		return m
	}
	return v.scalar
}
