// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/packetd/serialacq/confengine"
	"github.com/packetd/serialacq/controller"
	"github.com/packetd/serialacq/internal/sigs"
	"github.com/packetd/serialacq/logger"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run serialacq as a long-running acquisition agent",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := confengine.LoadConfigPath(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		ctr, err := controller.New(cfg, buildInfo())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create controller: %v\n", err)
			os.Exit(1)
		}
		if err := ctr.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start controller: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := sigs.WithTerminate(context.Background())
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer cancel()
			return ctr.Run(ctx)
		})
		g.Go(func() error {
			reload := sigs.Reload()
			for {
				select {
				case <-ctx.Done():
					return nil

				case <-reload:
					newCfg, err := confengine.LoadConfigPath(configPath)
					if err != nil {
						logger.Errorf("failed to load config: %v", err)
						continue
					}
					if err := ctr.Reload(newCfg); err != nil {
						logger.Errorf("failed to reload controller: %v", err)
						continue
					}
					logger.Infof("config reloaded from %s", configPath)
				}
			}
		})

		runErr := g.Wait()
		if err := ctr.Stop(); err != nil {
			logger.Errorf("failed to stop controller: %v", err)
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "acquisition failed: %v\n", runErr)
			os.Exit(1)
		}
	},
}

var configPath string

func init() {
	agentCmd.Flags().StringVar(&configPath, "config", "serialacq.yaml", "Configuration file path")
	rootCmd.AddCommand(agentCmd)
}
