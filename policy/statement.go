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

package policy

import (
	"fmt"

	"github.com/awslabs/provider-groups/internal/decode"
	"github.com/awslabs/provider-groups/variable"
)

// Statement is a single access-policy statement.
//
// Only Effect, Action and Resource take part in coverage. Every other field
// the host wrote (Sid, Condition, Principal, NotAction, ...) is carried
// through unchanged by Interface.
type Statement struct {
	Effect   string   `toml:"Effect"`
	Action   Action   `toml:"Action"`
	Resource Resource `toml:"Resource"`

	extra map[string]any
}

// statementFields are the keys decoded into the typed fields of Statement.
var statementFields = map[string]struct{}{
	"Effect":   {},
	"Action":   {},
	"Resource": {},
}

// Action is the list of actions a statement applies to. It decodes from a
// single string or a list of strings.
type Action []string

// DecodeValue implements decode.Decoder.
func (a *Action) DecodeValue(src any) error {
	values, _, err := stringOrList(src)
	if err != nil {
		return err
	}
	*a = values
	return nil
}

// Resource is the resource field of a statement. Hosts may write it as a
// single string or a list of strings; the shape is remembered until the
// statement is normalized.
type Resource struct {
	values []string
	single bool
}

// SingleResource returns a Resource written as a single string.
func SingleResource(r string) Resource {
	return Resource{values: []string{r}, single: true}
}

// Resources returns a Resource written as a list.
func Resources(r ...string) Resource {
	values := make([]string, len(r))
	copy(values, r)
	return Resource{values: values}
}

// IsList reports whether the resource is in list form.
func (r Resource) IsList() bool { return !r.single }

// Values returns a copy of the resources.
func (r Resource) Values() []string {
	values := make([]string, len(r.values))
	copy(values, r.values)
	return values
}

// Normalize turns a single-string resource into a one-element list.
func (r *Resource) Normalize() {
	r.single = false
}

// DecodeValue implements decode.Decoder.
func (r *Resource) DecodeValue(src any) error {
	values, single, err := stringOrList(src)
	if err != nil {
		return err
	}
	*r = Resource{values: values, single: single}
	return nil
}

// Interface returns the resource as a string when it is in single form, and
// as a list otherwise.
func (r Resource) Interface() any {
	if r.single && len(r.values) == 1 {
		return r.values[0]
	}
	items := make([]any, len(r.values))
	for i, v := range r.values {
		items[i] = v
	}
	return items
}

// Normalize puts s into the form used for comparisons.
func (s *Statement) Normalize() {
	s.Resource.Normalize()
}

// Covers reports whether s grants everything other grants: both have the
// same effect and other's actions and resources are subsets of s's. Both
// statements are normalized.
func (s *Statement) Covers(other *Statement) bool {
	s.Normalize()
	other.Normalize()
	return s.Effect == other.Effect &&
		isSubset(s.Action, other.Action) &&
		isSubset(s.Resource.values, other.Resource.values)
}

// Clone returns a deep copy of s.
func (s *Statement) Clone() *Statement {
	cp := &Statement{
		Effect:   s.Effect,
		Resource: Resource{values: s.Resource.Values(), single: s.Resource.single},
	}
	if s.Action != nil {
		cp.Action = make(Action, len(s.Action))
		copy(cp.Action, s.Action)
	}
	if s.extra != nil {
		cp.extra = make(map[string]any, len(s.extra))
		for k, v := range s.extra {
			cp.extra[k] = variable.FromAny(v).Interface()
		}
	}
	return cp
}

// Field returns a field of s that is not one of Effect, Action or Resource.
func (s *Statement) Field(key string) (any, bool) {
	v, ok := s.extra[key]
	return v, ok
}

// SetField stores a field that is carried alongside Effect, Action and
// Resource. The typed fields can not be set this way.
func (s *Statement) SetField(key string, value any) error {
	if _, ok := statementFields[key]; ok {
		return fmt.Errorf("%w: %s is a typed field", decode.ErrCannotCast, key)
	}
	if s.extra == nil {
		s.extra = make(map[string]any)
	}
	s.extra[key] = value
	return nil
}

// Interface converts s into a generic map keyed like the host writes it.
func (s *Statement) Interface() map[string]any {
	actions := make([]any, len(s.Action))
	for i, a := range s.Action {
		actions[i] = a
	}
	m := make(map[string]any, len(s.extra)+len(statementFields))
	for k, v := range s.extra {
		m[k] = v
	}
	m["Effect"] = s.Effect
	m["Action"] = actions
	m["Resource"] = s.Resource.Interface()
	return m
}

func (s *Statement) String() string {
	return fmt.Sprintf("%s %v on %v", s.Effect, []string(s.Action), s.Resource.values)
}

// DecodeStatements decodes a generic list of statement maps.
func DecodeStatements(src any) ([]*Statement, error) {
	items, ok := src.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: statements must be a list, got %T", decode.ErrCannotCast, src)
	}
	statements := make([]*Statement, 0, len(items))
	for i, item := range items {
		s, err := DecodeStatement(item)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		statements = append(statements, s)
	}
	return statements, nil
}

// DecodeStatement decodes a single generic statement map. Keys other than
// Effect, Action and Resource are kept as they are.
func DecodeStatement(src any) (*Statement, error) {
	m, ok := src.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping, got %T", decode.ErrCannotCast, src)
	}
	s := &Statement{}
	if err := decode.Decode(s, m); err != nil {
		return nil, err
	}
	for k, v := range m {
		if _, ok := statementFields[k]; ok {
			continue
		}
		if s.extra == nil {
			s.extra = make(map[string]any)
		}
		s.extra[k] = v
	}
	return s, nil
}

// isSubset reports whether every element of subset is present in set.
// Order and multiplicity are ignored.
func isSubset(set, subset []string) bool {
	members := make(map[string]struct{}, len(set))
	for _, v := range set {
		members[v] = struct{}{}
	}
	for _, v := range subset {
		if _, ok := members[v]; !ok {
			return false
		}
	}
	return true
}

func stringOrList(src any) ([]string, bool, error) {
	switch v := src.(type) {
	case nil:
		return nil, false, nil
	case string:
		return []string{v}, true, nil
	case []string:
		values := make([]string, len(v))
		copy(values, v)
		return values, false, nil
	case []any:
		values := make([]string, 0, len(v))
		for i, e := range v {
			str, ok := e.(string)
			if !ok {
				return nil, false, fmt.Errorf("%w: item %d is %T, expected string", decode.ErrCannotCast, i, e)
			}
			values = append(values, str)
		}
		return values, false, nil
	}
	return nil, false, fmt.Errorf("%w: %T is neither a string nor a list of strings", decode.ErrCannotCast, src)
}
