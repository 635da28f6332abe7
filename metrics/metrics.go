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

package metrics

import (
	"time"

	"github.com/awslabs/provider-groups/groups"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// RunCountKey is the key for the number of hook runs.
	RunCountKey = "run_count"

	// RunLatencyKeyMilliseconds is the key for hook run latency in milliseconds.
	RunLatencyKeyMilliseconds = "run_duration_milliseconds"

	// TargetsResolvedKey is the key for the number of targets that had groups merged in.
	TargetsResolvedKey = "targets_resolved_count"

	// GroupsMissingKey is the key for the number of group references that did not resolve.
	GroupsMissingKey = "groups_missing_count"

	// StatementsKey is the key for policy statements merged into the shared list.
	StatementsKey = "statements_count"

	// WarningsKey is the key for warnings emitted to the host.
	WarningsKey = "warnings_count"

	namespace = "provider_groups"
	subsystem = "resolver"
)

// Statement results.
const (
	StatementAdded   = "added"
	StatementSkipped = "skipped"
)

// Buckets for RunLatency metrics, in milliseconds.
var latencyBucketsMilliseconds = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32, 64, 128, 256}

// Recorder collects metrics of hook runs into its own registry.
type Recorder struct {
	registry *prometheus.Registry

	runCount        *prometheus.CounterVec
	runLatency      *prometheus.HistogramVec
	targetsResolved prometheus.Counter
	groupsMissing   prometheus.Counter
	statements      *prometheus.CounterVec
	warnings        prometheus.Counter
}

// NewRecorder returns a Recorder with every metric registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      RunCountKey,
				Help:      "The count of provider group resolutions. Broken down by host event.",
			},
			[]string{"event"},
		),
		runLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      RunLatencyKeyMilliseconds,
				Help:      "Latency in milliseconds of provider group resolutions. Broken down by host event.",
				Buckets:   latencyBucketsMilliseconds,
			},
			[]string{"event"},
		),
		targetsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      TargetsResolvedKey,
			Help:      "The count of functions that had provider groups merged in.",
		}),
		groupsMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      GroupsMissingKey,
			Help:      "The count of provider group references that could not be found.",
		}),
		statements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      StatementsKey,
				Help:      "The count of policy statements merged into the shared list. Broken down by result.",
			},
			[]string{"result"},
		),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      WarningsKey,
			Help:      "The count of warnings reported to the host.",
		}),
	}
	r.registry.MustRegister(
		r.runCount,
		r.runLatency,
		r.targetsResolved,
		r.groupsMissing,
		r.statements,
		r.warnings,
	)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records a finished run for the given host event.
func (r *Recorder) Observe(event string, start time.Time, s groups.Summary) {
	r.runCount.WithLabelValues(event).Inc()
	r.runLatency.WithLabelValues(event).Observe(sinceInMilliseconds(start))
	r.targetsResolved.Add(float64(s.TargetsResolved))
	r.groupsMissing.Add(float64(s.GroupsMissing))
	r.statements.WithLabelValues(StatementAdded).Add(float64(s.StatementsAdded))
	r.statements.WithLabelValues(StatementSkipped).Add(float64(s.StatementsSkipped))
	r.warnings.Add(float64(s.Warnings))
}

// WriteTextfile writes the metrics in the text exposition format to path,
// suitable for the node exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// sinceInMilliseconds gets the time since the specified start in milliseconds.
// The division keeps sub-millisecond precision, .Milliseconds() would truncate it.
func sinceInMilliseconds(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond/time.Nanosecond)
}
