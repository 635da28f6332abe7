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

	cmdctx "github.com/awslabs/provider-groups/cmd/internal/context"
	"github.com/awslabs/provider-groups/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

var ConfigCommand = &cli.Command{
	Name:  "config",
	Usage: "Manage configuration",
	Commands: []*cli.Command{
		{
			Name:  "dump",
			Usage: "Dump configuration",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := cmdctx.GetValue[*config.Config](ctx, cmdctx.ConfigKey)
				if err != nil {
					return err
				}
				return toml.NewEncoder(cmd.Root().Writer).SetIndentTables(true).Encode(cfg)
			},
		},
	},
}
