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
	"errors"
	"fmt"
	"io"
	"os"

	cmdctx "github.com/awslabs/provider-groups/cmd/internal/context"
	"github.com/awslabs/provider-groups/config"
	"github.com/awslabs/provider-groups/metrics"
	"github.com/awslabs/provider-groups/service"
	"github.com/awslabs/provider-groups/service/plugin"
	"github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const (
	eventFlag           = "event"
	outputFlag          = "output"
	formatFlag          = "format"
	metricsTextfileFlag = "metrics-textfile"
)

var ResolveCommand = &cli.Command{
	Name:      "resolve",
	Usage:     "merge provider groups into the functions of a service description",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  eventFlag,
			Usage: fmt.Sprintf("host event to run [%s, %s]", plugin.BeforePackageInitialize, plugin.BeforeOfflineStartInit),
			Value: plugin.BeforePackageInitialize,
		},
		&cli.StringFlag{
			Name:    outputFlag,
			Aliases: []string{"o"},
			Usage:   "write the merged description to this file instead of stdout",
		},
		&cli.StringFlag{
			Name:  formatFlag,
			Usage: "output format [yaml, toml], defaults to the input format",
		},
		&cli.StringFlag{
			Name:  metricsTextfileFlag,
			Usage: "write run metrics in the prometheus text format to this file",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.Args().First()
		if path == "" {
			return fmt.Errorf("service description path is required: %w", errdefs.ErrInvalidArgument)
		}
		cfg, err := cmdctx.GetValue[*config.Config](ctx, cmdctx.ConfigKey)
		if err != nil {
			return err
		}

		keys := service.Keys{Groups: cfg.Groups.Key, Statements: cfg.Groups.StatementsKey}
		desc, err := service.Load(ctx, path, keys)
		if err != nil {
			return err
		}
		log.G(ctx).WithFields(logrus.Fields{
			"service": desc.Service(),
			"targets": len(desc.Deployment.Targets),
			"groups":  len(desc.Deployment.Groups),
		}).Debug("service description loaded")

		recorder := metrics.NewRecorder()
		p := plugin.New(ctx, &desc.Deployment, plugin.WithMetrics(recorder))
		event := cmd.String(eventFlag)
		if _, ok := p.Run(ctx, event); !ok {
			return fmt.Errorf("unknown event %q: %w", event, errdefs.ErrInvalidArgument)
		}

		format, err := outputFormat(cmd, cfg, desc.Format)
		if err != nil {
			return err
		}
		if err := writeDescription(cmd.Root().Writer, cmd.String(outputFlag), desc, format); err != nil {
			return err
		}

		textfile := cmd.String(metricsTextfileFlag)
		if textfile == "" {
			textfile = cfg.MetricsTextfile
		}
		if textfile != "" {
			if err := recorder.WriteTextfile(textfile); err != nil {
				return fmt.Errorf("failed to write metrics to %q: %w", textfile, err)
			}
		}
		return nil
	},
}

func outputFormat(cmd *cli.Command, cfg *config.Config, input service.Format) (service.Format, error) {
	name := cmd.String(formatFlag)
	if name == "" {
		name = cfg.OutputFormat
	}
	if name == "" {
		return input, nil
	}
	return service.ParseFormat(name)
}

func writeDescription(stdout io.Writer, path string, desc *service.Description, format service.Format) (retErr error) {
	if path == "" || path == "-" {
		return desc.Encode(stdout, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer func() {
		retErr = errors.Join(retErr, f.Close())
	}()
	return desc.Encode(f, format)
}
