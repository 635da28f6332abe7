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

// Logger receives the resolver's warnings. Hosts supply it; the resolver
// never fails a run, it only reports through Logger.
type Logger interface {
	Log(message string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(message string)

func (f LoggerFunc) Log(message string) { f(message) }

type discardLogger struct{}

func (discardLogger) Log(string) {}
