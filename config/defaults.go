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

// Config (root) defaults
const (
	defaultLogLevel  = "info"
	defaultLogFormat = LogFormatText
)

// Accepted formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"

	OutputFormatYAML = "yaml"
	OutputFormatTOML = "toml"
)

// GroupsConfig defaults
const (
	// DefaultGroupsKey is the field used by the serverless provider groups plugin.
	DefaultGroupsKey = "providerGroups"

	// DefaultStatementsKey is the AWS provider's execution role statements field.
	DefaultStatementsKey = "iamRoleStatements"
)
