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

package tracing

import (
	"context"
	"testing"
)

func TestIsDisabled(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		expected  bool
		expectErr bool
	}{
		{
			name:     "no endpoint",
			env:      map[string]string{},
			expected: true,
		},
		{
			name:     "endpoint",
			env:      map[string]string{otlpEndpointEnv: "http://localhost:4318"},
			expected: false,
		},
		{
			name:     "traces endpoint",
			env:      map[string]string{otlpTracesEndpointEnv: "http://localhost:4318/v1/traces"},
			expected: false,
		},
		{
			name:     "sdk disabled",
			env:      map[string]string{sdkDisabledEnv: "true", otlpEndpointEnv: "http://localhost:4318"},
			expected: true,
		},
		{
			name:      "invalid sdk disabled",
			env:       map[string]string{sdkDisabledEnv: "maybe"},
			expected:  true,
			expectErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{sdkDisabledEnv, otlpEndpointEnv, otlpTracesEndpointEnv} {
				t.Setenv(k, tc.env[k])
			}
			disabled, err := IsDisabled()
			if (err != nil) != tc.expectErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if disabled != tc.expected {
				t.Fatalf("expected disabled=%v, got %v", tc.expected, disabled)
			}
		})
	}
}

func TestLoadSettingsProtocol(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{name: "default", env: map[string]string{}, expected: protocolHTTP},
		{name: "general", env: map[string]string{otlpProtocolEnv: protocolGRPC}, expected: protocolGRPC},
		{
			name:     "traces wins",
			env:      map[string]string{otlpProtocolEnv: protocolGRPC, otlpTracesProtocolEnv: protocolHTTP},
			expected: protocolHTTP,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{otlpProtocolEnv, otlpTracesProtocolEnv} {
				t.Setenv(k, tc.env[k])
			}
			s, err := loadSettings()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.protocol != tc.expected {
				t.Fatalf("expected protocol %q, got %q", tc.expected, s.protocol)
			}
		})
	}
}

func TestNewExporterUnsupported(t *testing.T) {
	for _, s := range []settings{
		{exporter: "zipkin", protocol: protocolHTTP},
		{exporter: "otlp", protocol: "http/json"},
	} {
		if _, err := s.newExporter(context.Background()); err == nil {
			t.Fatalf("expected an error for %+v", s)
		}
	}
}
