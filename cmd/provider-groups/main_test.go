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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/provider-groups/config"
	"github.com/containerd/errdefs"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const testService = `service: orders
custom:
  providerGroups:
    network:
      vpc:
        subnetIds: [subnet-1]
      iamRoleStatements:
        - Effect: Allow
          Action: [ec2:CreateNetworkInterface]
          Resource: "*"
functions:
  api:
    handler: api.handler
    providerGroups: [network]
`

func TestResolveCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestFile(t, dir, "config.toml", "")
	servicePath := writeTestFile(t, dir, "serverless.yml", testService)

	var out bytes.Buffer
	app := buildApp()
	app.Writer = &out
	args := []string{"provider-groups", "--config", configPath, "resolve", servicePath}
	if err := app.Run(context.Background(), args); err != nil {
		t.Fatalf("failed to run resolve: %v", err)
	}

	var doc struct {
		Functions map[string]map[string]any `yaml:"functions"`
		Provider  struct {
			Statements []map[string]any `yaml:"iamRoleStatements"`
		} `yaml:"provider"`
	}
	if err := yaml.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if _, ok := doc.Functions["api"]["vpc"]; !ok {
		t.Fatalf("expected vpc to be merged into api, got %v", doc.Functions["api"])
	}
	if len(doc.Provider.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(doc.Provider.Statements))
	}
}

func TestResolveCommandToFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestFile(t, dir, "config.toml", "")
	servicePath := writeTestFile(t, dir, "serverless.yml", testService)
	outputPath := filepath.Join(dir, "out.toml")
	metricsPath := filepath.Join(dir, "metrics.prom")

	app := buildApp()
	args := []string{
		"provider-groups", "--config", configPath,
		"resolve", "--format", "toml", "-o", outputPath, "--metrics-textfile", metricsPath,
		"--event", "before:offline:start:init", servicePath,
	}
	if err := app.Run(context.Background(), args); err != nil {
		t.Fatalf("failed to run resolve: %v", err)
	}

	b, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("output is not toml: %v", err)
	}
	if doc["service"] != "orders" {
		t.Fatalf("expected service orders, got %v", doc["service"])
	}

	m, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	if !strings.Contains(string(m), `provider_groups_resolver_run_count{event="before:offline:start:init"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", m)
	}
}

func TestResolveCommandErrors(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestFile(t, dir, "config.toml", "")
	servicePath := writeTestFile(t, dir, "serverless.yml", testService)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing path", args: []string{"resolve"}},
		{name: "unknown event", args: []string{"resolve", "--event", "deploy", servicePath}},
		{name: "unknown format", args: []string{"resolve", "--format", "json", servicePath}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := buildApp()
			app.Writer = &bytes.Buffer{}
			args := append([]string{"provider-groups", "--config", configPath}, tc.args...)
			err := app.Run(context.Background(), args)
			if !errdefs.IsInvalidArgument(err) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestEnvVarOverridesDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestFile(t, dir, "config.toml", `
[groups]
  key = "bundles"
`)
	t.Setenv(envConfig, configPath)

	var out bytes.Buffer
	app := buildApp()
	app.Writer = &out
	if err := app.Run(context.Background(), []string{"provider-groups", "config", "dump"}); err != nil {
		t.Fatalf("failed to run config dump: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("failed to decode dumped config: %v", err)
	}
	if cfg.Groups.Key != "bundles" {
		t.Errorf("expected groups key %q, got %q", "bundles", cfg.Groups.Key)
	}
	if cfg.Groups.StatementsKey != config.DefaultStatementsKey {
		t.Errorf("expected statements key %q, got %q", config.DefaultStatementsKey, cfg.Groups.StatementsKey)
	}
}

func TestEnvFileSetsLogLevel(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestFile(t, dir, "config.toml", "")
	envPath := writeTestFile(t, dir, ".env", envLogLevel+"=debug\n")

	// Restored after the test, unset so the env file can supply it.
	t.Setenv(envLogLevel, "")
	os.Unsetenv(envLogLevel)

	originalLevel := logrus.GetLevel()
	defer logrus.SetLevel(originalLevel)

	app := buildApp()
	app.Writer = &bytes.Buffer{}
	args := []string{"provider-groups", "--config", configPath, "--env-file", envPath, "config", "dump"}
	if err := app.Run(context.Background(), args); err != nil {
		t.Fatalf("failed to run config dump: %v", err)
	}
	if actual := logrus.GetLevel(); actual != logrus.DebugLevel {
		t.Errorf("expected log level: %s, got: %s", logrus.DebugLevel, actual)
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
