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
	"context"
	"fmt"
	"os"

	cmdctx "github.com/awslabs/provider-groups/cmd/internal/context"
	"github.com/awslabs/provider-groups/config"
	"github.com/awslabs/provider-groups/tracing"
	"github.com/awslabs/provider-groups/version"
	"github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// Global flags
const (
	configFlag    = "config"
	logLevelFlag  = "log-level"
	logFormatFlag = "log-format"
	envFileFlag   = "env-file"
)

const (
	envConfig    = "PROVIDER_GROUPS_CONFIG"
	envLogLevel  = "PROVIDER_GROUPS_LOG_LEVEL"
	envLogFormat = "PROVIDER_GROUPS_LOG_FORMAT"
)

// setup loads the env file and the configuration, configures logging and
// starts tracing. The returned function, when not nil, shuts tracing down.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, func(context.Context) error, error) {
	if p := cmd.String(envFileFlag); p != "" {
		// Variables already present in the environment are kept.
		if err := godotenv.Load(p); err != nil {
			return ctx, nil, fmt.Errorf("failed to load env file %q: %w", p, err)
		}
	}

	cfg, err := config.NewConfigFromToml(setting(cmd, configFlag, envConfig))
	if err != nil {
		return ctx, nil, err
	}
	if v := setting(cmd, logLevelFlag, envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := setting(cmd, logFormatFlag, envLogFormat); v != "" {
		cfg.LogFormat = v
	}
	if err := setupLogger(cfg); err != nil {
		return ctx, nil, err
	}

	ctx = log.WithLogger(ctx, log.L)
	ctx = cmdctx.WithValue(ctx, cmdctx.ConfigKey, cfg)
	log.G(ctx).WithFields(logrus.Fields{
		"version":  version.Version,
		"revision": version.Revision,
	}).Debug("starting provider-groups")

	disabled, err := tracing.IsDisabled()
	if err != nil {
		log.G(ctx).WithError(err).Warn("tracing disabled")
		return ctx, nil, nil
	}
	if disabled {
		return ctx, nil, nil
	}
	shutdown, err := tracing.Init(ctx)
	if err != nil {
		log.G(ctx).WithError(err).Warn("failed to initialize tracing")
		return ctx, nil, nil
	}
	log.G(ctx).Debug("tracing initialized")
	return ctx, shutdown, nil
}

// setting returns the value of a flag, preferring an environment variable
// set by the env file over the flag default.
func setting(cmd *cli.Command, name, env string) string {
	if cmd.IsSet(name) {
		return cmd.String(name)
	}
	if v, ok := os.LookupEnv(env); ok {
		return v
	}
	return cmd.String(name)
}

func setupLogger(cfg *config.Config) error {
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to prepare logger: %w: %w", errdefs.ErrInvalidArgument, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)

	switch cfg.LogFormat {
	case config.LogFormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: log.RFC3339NanoFixed,
		})
	case config.LogFormatText:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: log.RFC3339NanoFixed,
		})
	default:
		return fmt.Errorf("unknown log format %q: %w", cfg.LogFormat, errdefs.ErrInvalidArgument)
	}
	return nil
}
