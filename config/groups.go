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

package config

// GroupsConfig names the service description fields the resolver reads.
type GroupsConfig struct {
	// Key is the field holding the groups under `custom` and the group
	// references of each function.
	Key string `toml:"key"`

	// StatementsKey is the field holding policy statements, both inside a
	// group and under `provider`.
	StatementsKey string `toml:"statements_key"`
}

func parseGroupsConfig(cfg *Config) error {
	if cfg.Groups.Key == "" {
		cfg.Groups.Key = DefaultGroupsKey
	}
	if cfg.Groups.StatementsKey == "" {
		cfg.Groups.StatementsKey = DefaultStatementsKey
	}
	return nil
}
