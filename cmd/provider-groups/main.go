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

	"github.com/awslabs/provider-groups/config"
	"github.com/awslabs/provider-groups/version"
	"github.com/urfave/cli/v3"
)

func main() {
	app := buildApp()

	ctx, cancel := context.WithCancel(context.Background())
	if err := app.Run(ctx, os.Args); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "provider-groups: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

func buildApp() *cli.Command {
	var shutdown func(context.Context) error

	return &cli.Command{
		Name:    "provider-groups",
		Usage:   "merge provider groups into the functions of a service description",
		Version: fmt.Sprintf("%s %s", version.Version, version.Revision),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Usage:   "path to the configuration file",
				Value:   config.DefaultConfigPath,
				Sources: cli.EnvVars(envConfig),
			},
			&cli.StringFlag{
				Name:    logLevelFlag,
				Usage:   "set the logging level [trace, debug, info, warn, error, fatal, panic]",
				Sources: cli.EnvVars(envLogLevel),
			},
			&cli.StringFlag{
				Name:    logFormatFlag,
				Usage:   "set the logging format [text, json]",
				Sources: cli.EnvVars(envLogFormat),
			},
			&cli.StringFlag{
				Name:  envFileFlag,
				Usage: "load environment variables from a dotenv file before anything else",
			},
		},
		Commands: []*cli.Command{
			ResolveCommand,
			ConfigCommand,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			ctx, stop, err := setup(ctx, cmd)
			if err != nil {
				return ctx, err
			}
			shutdown = stop
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	}
}
