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

// Package tracing sets up OpenTelemetry tracing from the standard OTEL_*
// environment variables.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	sdkDisabledEnv        = "OTEL_SDK_DISABLED"
	otlpEndpointEnv       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	otlpTracesEndpointEnv = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	otlpProtocolEnv       = "OTEL_EXPORTER_OTLP_PROTOCOL"
	otlpTracesProtocolEnv = "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"
	otelTracesExporterEnv = "OTEL_TRACES_EXPORTER"
	otelServiceNameEnv    = "OTEL_SERVICE_NAME"
	defaultServiceName    = "provider-groups"

	protocolHTTP = "http/protobuf"
	protocolGRPC = "grpc"

	// TracerName names the tracer used for hook runs.
	TracerName = "github.com/awslabs/provider-groups"
)

// Timeouts for creating the exporter and for flushing spans on shutdown.
var (
	exporterTimeout = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// settings are the OTEL_* variables read by this package.
type settings struct {
	disabled bool
	exporter string
	protocol string
}

func loadSettings() (settings, error) {
	s := settings{
		exporter: os.Getenv(otelTracesExporterEnv),
		protocol: os.Getenv(otlpTracesProtocolEnv),
	}
	if s.protocol == "" {
		s.protocol = os.Getenv(otlpProtocolEnv)
	}
	if s.protocol == "" {
		s.protocol = protocolHTTP
	}

	if v := os.Getenv(sdkDisabledEnv); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return settings{disabled: true}, fmt.Errorf("invalid value for env %s: %w", sdkDisabledEnv, err)
		}
		s.disabled = disabled
	}
	if os.Getenv(otlpEndpointEnv) == "" && os.Getenv(otlpTracesEndpointEnv) == "" {
		s.disabled = true
	}
	return s, nil
}

// IsDisabled reports whether tracing is off. It is off unless an OTLP
// endpoint is configured and the SDK is not disabled.
func IsDisabled() (bool, error) {
	s, err := loadSettings()
	return s.disabled, err
}

// Init installs a global tracer provider exporting over OTLP and returns the
// function that flushes and stops it.
func Init(ctx context.Context) (func(context.Context) error, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	exp, err := s.newExporter(ctx)
	if err != nil {
		return nil, err
	}
	return install(exp), nil
}

// Tracer returns the tracer for hook runs. Spans are dropped until Init has
// installed a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

func (s settings) newExporter(ctx context.Context) (*otlptrace.Exporter, error) {
	if s.exporter != "" && s.exporter != "otlp" {
		return nil, fmt.Errorf("unsupported traces exporter %q", s.exporter)
	}

	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	switch s.protocol {
	case protocolHTTP:
		return otlptracehttp.New(ctx)
	case protocolGRPC:
		return otlptracegrpc.New(ctx)
	}
	return nil, fmt.Errorf("unsupported OpenTelemetry protocol %q", s.protocol)
}

func install(exp *otlptrace.Exporter) func(context.Context) error {
	// The SDK's default resource takes the service name from the environment.
	if _, ok := os.LookupEnv(otelServiceNameEnv); !ok {
		os.Setenv(otelServiceNameEnv, defaultServiceName)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down tracer provider: %w", err)
		}
		return nil
	}
}
