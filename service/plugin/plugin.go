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

// Package plugin exposes the resolver at the host's extension points.
//
// The host calls the hook registered for an event before it packages or
// starts the service locally. Both events run the same resolution and the
// hook runs to completion before returning.
package plugin

import (
	"context"
	"time"

	"github.com/awslabs/provider-groups/groups"
	"github.com/awslabs/provider-groups/metrics"
	"github.com/awslabs/provider-groups/tracing"
	"github.com/containerd/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Host events the plugin registers for.
const (
	BeforePackageInitialize = "before:package:initialize"
	BeforeOfflineStartInit  = "before:offline:start:init"
)

// Name is the plugin name used in logs.
const Name = "provider-groups"

// hookEvent labels runs started through a Hook, which is shared by both
// events.
const hookEvent = "hook"

// Hook is the callback registered for a host event.
type Hook struct {
	run func()
}

// Run executes the hook.
func (h *Hook) Run() {
	h.run()
}

// Plugin resolves provider groups of a deployment when one of its hooks runs.
type Plugin struct {
	deployment *groups.Deployment
	hooks      map[string]*Hook

	logger   groups.Logger
	recorder *metrics.Recorder
}

type Option func(*Plugin)

// WithLogger sets where resolution warnings go. By default they are logged
// at warn level through the context logger.
func WithLogger(l groups.Logger) Option {
	return func(p *Plugin) {
		p.logger = l
	}
}

// WithMetrics records every hook run in r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Plugin) {
		p.recorder = r
	}
}

// New returns a plugin bound to d. ctx is kept for logging and tracing of
// hook runs.
func New(ctx context.Context, d *groups.Deployment, opts ...Option) *Plugin {
	p := &Plugin{deployment: d}
	for _, o := range opts {
		o(p)
	}

	hook := &Hook{}
	hook.run = func() { p.inject(ctx) }
	p.hooks = map[string]*Hook{
		BeforePackageInitialize: hook,
		BeforeOfflineStartInit:  hook,
	}
	return p
}

// Hooks returns the hook registered for every event. The returned map must
// not be modified.
func (p *Plugin) Hooks() map[string]*Hook {
	return p.hooks
}

// Hook returns the hook registered for event.
func (p *Plugin) Hook(event string) (*Hook, bool) {
	h, ok := p.hooks[event]
	return h, ok
}

// BeforePackageInitialize runs the hook of the packaging event.
func (p *Plugin) BeforePackageInitialize() {
	p.hooks[BeforePackageInitialize].Run()
}

// BeforeOfflineStart runs the hook of the local start event.
func (p *Plugin) BeforeOfflineStart() {
	p.hooks[BeforeOfflineStartInit].Run()
}

// Run runs the hook of event and returns the summary of the resolution.
func (p *Plugin) Run(ctx context.Context, event string) (groups.Summary, bool) {
	if _, ok := p.hooks[event]; !ok {
		return groups.Summary{}, false
	}
	return p.resolve(ctx, event), true
}

func (p *Plugin) inject(ctx context.Context) {
	p.resolve(ctx, hookEvent)
}

func (p *Plugin) resolve(ctx context.Context, event string) groups.Summary {
	start := time.Now()
	runID := uuid.New().String()

	ctx, span := tracing.Tracer().Start(ctx, "provider-groups.resolve",
		trace.WithAttributes(
			attribute.String("run", runID),
			attribute.String("event", event),
		))
	defer span.End()

	ctx = log.WithLogger(ctx, log.G(ctx).WithField("run", runID).WithField("plugin", Name))
	log.G(ctx).Info("Attempting to inject provider groups...")

	logger := p.logger
	if logger == nil {
		logger = ContextLogger(ctx)
	}
	resolver := groups.NewResolver(groups.WithLogger(logger))
	summary := resolver.Resolve(p.deployment)

	span.SetAttributes(
		attribute.Int("targets_resolved", summary.TargetsResolved),
		attribute.Int("statements_added", summary.StatementsAdded),
		attribute.Int("warnings", summary.Warnings),
	)
	log.G(ctx).WithField("targets", summary.TargetsResolved).
		WithField("statements_added", summary.StatementsAdded).
		WithField("statements_skipped", summary.StatementsSkipped).
		Debug("provider groups injected")

	if p.recorder != nil {
		p.recorder.Observe(event, start, summary)
	}
	return summary
}

// ContextLogger reports resolution warnings through the logger of ctx.
func ContextLogger(ctx context.Context) groups.Logger {
	entry := log.G(ctx)
	return groups.LoggerFunc(func(message string) {
		entry.Warn(message)
	})
}
