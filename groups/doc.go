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

// Package groups merges provider groups into the functions that reference
// them.
//
// A provider group bundles variables (environment, vpc, tags, ...) and policy
// statements under a name. Each Target lists the groups it wants; Resolve
// folds the referenced groups into the target's own variables and merges the
// groups' statements into the deployment's shared policy list.
package groups
