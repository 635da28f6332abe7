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
	"github.com/awslabs/provider-groups/policy"
	"github.com/awslabs/provider-groups/variable"
)

// Group is a named bundle of variables and policy statements.
type Group struct {
	// Vars holds every variable of the group except its statements.
	Vars variable.Bag

	// Statements is nil when the group has no statements field.
	Statements []*policy.Statement
}

// Groups maps group names to their definitions. A nil Groups means that no
// groups are configured at all.
type Groups map[string]*Group

// Target is a deployable unit that may reference groups.
type Target struct {
	Name string

	// GroupRefs is the raw value of the target's group references, nil when
	// the target declares none. It is expected to be a list of group names.
	GroupRefs *variable.Value

	// Vars holds the target's own variables.
	Vars variable.Bag
}

// Deployment is the part of a service description the resolver reads and
// writes.
type Deployment struct {
	// Targets are resolved in order.
	Targets []*Target

	Groups Groups

	// Statements is the shared policy list. Resolve creates it when groups
	// are configured and it is nil.
	Statements *policy.List
}

// Target returns the target with the given name.
func (d *Deployment) Target(name string) (*Target, bool) {
	for _, t := range d.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
