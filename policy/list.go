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

// List is the policy statement list shared by a whole deployment. Statements
// are only ever appended, and an append is suppressed when an existing
// statement already covers the candidate.
type List struct {
	statements []*Statement
}

// NewList returns a List holding statements in order. They are kept as is,
// even when some cover others.
func NewList(statements ...*Statement) *List {
	l := &List{statements: make([]*Statement, 0, len(statements))}
	l.statements = append(l.statements, statements...)
	return l
}

// Merge appends each incoming statement, in order, unless a statement already
// in the list covers it. Incoming statements are normalized in place.
// Candidates are compared against everything appended so far, including
// earlier statements of the same batch.
//
// Coverage is only checked in one direction: a broader statement merged after
// a narrower one is appended and the narrower one is kept.
func (l *List) Merge(incoming []*Statement) (added, skipped int) {
	for _, s := range incoming {
		s.Normalize()
		if l.covered(s) {
			skipped++
			continue
		}
		// TODO: extend an existing statement when it overlaps s instead of appending.
		l.statements = append(l.statements, s)
		added++
	}
	return added, skipped
}

func (l *List) covered(s *Statement) bool {
	for _, e := range l.statements {
		if e.Covers(s) {
			return true
		}
	}
	return false
}

// Statements returns the statements in order. The slice is a copy; the
// statements are shared with the list.
func (l *List) Statements() []*Statement {
	out := make([]*Statement, len(l.statements))
	copy(out, l.statements)
	return out
}

func (l *List) Len() int { return len(l.statements) }

// Interface converts the list into a generic list of statement maps.
func (l *List) Interface() []any {
	out := make([]any, len(l.statements))
	for i, s := range l.statements {
		out[i] = s.Interface()
	}
	return out
}
