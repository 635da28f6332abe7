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

package groups

import (
	"fmt"

	"github.com/awslabs/provider-groups/policy"
	"github.com/awslabs/provider-groups/variable"
)

const (
	msgNoGroups       = "No provider groups found!"
	msgNoGroupsHint   = "Are you sure you have configured the provider groups plug-in correctly?"
	msgMissingGroup   = "Could not find group %s"
	msgMissingHint    = "Are you sure you added it to custom.providerGroups?"
	msgRefsNotAnArray = "%s: providerGroups must be an array."
)

// Summary counts what a single Resolve did.
type Summary struct {
	TargetsResolved   int
	GroupsMissing     int
	StatementsAdded   int
	StatementsSkipped int
	Warnings          int
}

// Resolver merges groups into targets.
type Resolver struct {
	logger Logger
}

type Option func(*Resolver)

// WithLogger sets where warnings go. They are discarded by default.
func WithLogger(l Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: discardLogger{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// statementBatch is the statement list of one group, queued for merging.
type statementBatch struct {
	group      string
	statements []*policy.Statement
}

type resolution struct {
	logger  Logger
	summary Summary
}

func (r *resolution) warn(message string) {
	r.summary.Warnings++
	r.logger.Log(message)
}

// Resolve merges the referenced groups into every target of d, then merges
// the statements of every referenced group into d.Statements.
//
// Targets are modified in place. A variable the target sets itself is never
// replaced by a group value: mappings are merged with the target's keys
// winning and lists are concatenated after the group items. Malformed input
// is reported through the Logger and skipped.
func (r *Resolver) Resolve(d *Deployment) Summary {
	res := &resolution{logger: r.logger}

	if d.Groups == nil {
		res.warn(msgNoGroups)
		res.warn(msgNoGroupsHint)
		return res.summary
	}
	if d.Statements == nil {
		d.Statements = policy.NewList()
	}

	var batches []statementBatch
	queued := make(map[string]bool)

	for _, target := range d.Targets {
		if target.GroupRefs == nil || !target.GroupRefs.Truthy() {
			continue
		}
		if !target.GroupRefs.IsList() {
			res.warn(fmt.Sprintf(msgRefsNotAnArray, target.Name))
			continue
		}

		pending := make(variable.Bag)
		for _, ref := range target.GroupRefs.Items() {
			name := groupName(ref)
			group, ok := d.Groups[name]
			if !ok || group == nil {
				res.summary.GroupsMissing++
				res.warn(fmt.Sprintf(msgMissingGroup, name))
				res.warn(msgMissingHint)
				continue
			}

			for field, v := range group.Vars {
				if cur, ok := pending[field]; ok {
					pending[field] = variable.Merge(cur, v)
				} else {
					pending[field] = v.Clone()
				}
			}

			if group.Statements != nil && !queued[name] {
				queued[name] = true
				batches = append(batches, statementBatch{group: name, statements: group.Statements})
			}
		}

		if len(pending) > 0 && target.Vars == nil {
			target.Vars = make(variable.Bag, len(pending))
		}
		for field, v := range pending {
			if own, ok := target.Vars[field]; ok {
				target.Vars[field] = variable.Merge(v, own)
			} else {
				target.Vars[field] = v
			}
		}
		res.summary.TargetsResolved++
	}

	for _, b := range batches {
		added, skipped := d.Statements.Merge(b.statements)
		res.summary.StatementsAdded += added
		res.summary.StatementsSkipped += skipped
	}

	return res.summary
}

func groupName(ref variable.Value) string {
	if s, ok := ref.Scalar().(string); ok {
		return s
	}
	return ref.String()
}
