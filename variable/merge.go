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

// Merge combines base with overlay and returns the result as a new Value.
// Neither argument is modified.
//
//   - list + list concatenates, base items first.
//   - mapping + mapping is a shallow key union; overlay keys win.
//   - any other pairing yields overlay, except that a nil overlay keeps base.
func Merge(base, overlay Value) Value {
	switch {
	case base.kind == KindList && overlay.kind == KindList:
		items := make([]Value, 0, len(base.list)+len(overlay.list))
		for _, item := range base.list {
			items = append(items, item.Clone())
		}
		for _, item := range overlay.list {
			items = append(items, item.Clone())
		}
		return Value{kind: KindList, list: items}
	case base.kind == KindMapping && overlay.kind == KindMapping:
		m := make(map[string]Value, len(base.mapping)+len(overlay.mapping))
		for k, e := range base.mapping {
			m[k] = e.Clone()
		}
		for k, e := range overlay.mapping {
			m[k] = e.Clone()
		}
		return Value{kind: KindMapping, mapping: m}
	case overlay.IsNil():
		return base.Clone()
	default:
		return overlay.Clone()
	}
}

// Clone returns a deep copy of the bag.
func (b Bag) Clone() Bag {
	if b == nil {
		return nil
	}
	cp := make(Bag, len(b))
	for k, v := range b {
		cp[k] = v.Clone()
	}
	return cp
}

// Interface converts the bag into a generic map.
func (b Bag) Interface() map[string]any {
	m := make(map[string]any, len(b))
	for k, v := range b {
		m[k] = v.Interface()
	}
	return m
}
