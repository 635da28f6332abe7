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

package plugin

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/awslabs/provider-groups/groups"
	"github.com/awslabs/provider-groups/metrics"
	"github.com/awslabs/provider-groups/policy"
	"github.com/awslabs/provider-groups/variable"
	"github.com/containerd/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Log(message string) {
	l.messages = append(l.messages, message)
}

func deployment() *groups.Deployment {
	refs := variable.FromAny([]any{"vpc", "table"})
	return &groups.Deployment{
		Groups: groups.Groups{
			"vpc": {
				Vars: variable.BagFromMap(map[string]any{
					"vpc": map[string]any{"securityGroupIds": []any{"sg-1"}},
				}),
			},
			"table": {
				Vars: variable.BagFromMap(map[string]any{
					"environment": map[string]any{"TABLE": "orders"},
				}),
				Statements: []*policy.Statement{{
					Effect:   "Allow",
					Action:   policy.Action{"dynamodb:Query"},
					Resource: policy.SingleResource("*"),
				}},
			},
		},
		Targets: []*groups.Target{{
			Name:      "api",
			GroupRefs: &refs,
			Vars:      variable.BagFromMap(map[string]any{"environment": map[string]any{"STAGE": "dev"}}),
		}},
	}
}

func TestHooksShareCallback(t *testing.T) {
	p := New(context.Background(), deployment(), WithLogger(&recordingLogger{}))

	pkg, ok := p.Hook(BeforePackageInitialize)
	require.True(t, ok)
	offline, ok := p.Hook(BeforeOfflineStartInit)
	require.True(t, ok)
	assert.Same(t, pkg, offline)
	assert.Len(t, p.Hooks(), 2)

	_, ok = p.Hook("after:deploy:deploy")
	assert.False(t, ok)
}

func TestHookResolvesSynchronously(t *testing.T) {
	d := deployment()
	logger := &recordingLogger{}
	p := New(context.Background(), d, WithLogger(logger))

	p.BeforePackageInitialize()

	target := d.Targets[0]
	env, ok := target.Vars["environment"].Get("TABLE")
	require.True(t, ok)
	assert.Equal(t, "orders", env.Scalar())
	stage, ok := target.Vars["environment"].Get("STAGE")
	require.True(t, ok)
	assert.Equal(t, "dev", stage.Scalar())
	assert.True(t, target.Vars["vpc"].IsMapping())
	require.NotNil(t, d.Statements)
	assert.Equal(t, 1, d.Statements.Len())
	assert.Empty(t, logger.messages)

	// Running the other event again adds nothing new.
	p.BeforeOfflineStart()
	assert.Equal(t, 1, d.Statements.Len())
}

func TestHookWarnsWithoutGroups(t *testing.T) {
	logger := &recordingLogger{}
	p := New(context.Background(), &groups.Deployment{}, WithLogger(logger))

	p.BeforeOfflineStart()

	assert.Equal(t, []string{
		"No provider groups found!",
		"Are you sure you have configured the provider groups plug-in correctly?",
	}, logger.messages)
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	ctx := log.WithLogger(context.Background(), logrus.NewEntry(l))

	p := New(ctx, &groups.Deployment{Groups: groups.Groups{}, Targets: []*groups.Target{{
		Name:      "api",
		GroupRefs: func() *variable.Value { v := variable.FromAny([]any{"missing"}); return &v }(),
	}}})
	p.BeforePackageInitialize()

	out := buf.String()
	assert.Contains(t, out, "Attempting to inject provider groups...")
	assert.Contains(t, out, "Could not find group missing")
	assert.Contains(t, out, "plugin=provider-groups")
	assert.Equal(t, 2, strings.Count(out, "level=warning"))
}

func TestRunRecordsMetrics(t *testing.T) {
	r := metrics.NewRecorder()
	p := New(context.Background(), deployment(), WithLogger(&recordingLogger{}), WithMetrics(r))

	summary, ok := p.Run(context.Background(), BeforePackageInitialize)
	require.True(t, ok)
	assert.Equal(t, 1, summary.TargetsResolved)
	assert.Equal(t, 1, summary.StatementsAdded)

	p.BeforeOfflineStart()

	_, ok = p.Run(context.Background(), "unknown")
	assert.False(t, ok)

	count, err := testutil.GatherAndCount(r.Registry(), "provider_groups_resolver_run_count")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
