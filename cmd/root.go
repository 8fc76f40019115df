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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/serialacq/common"
)

var (
	version   string
	gitHash   string
	buildTime string
)

func buildInfo() common.BuildInfo {
	info := common.GetBuildInfo()
	if version != "" {
		info.Version = version
	}
	if gitHash != "" {
		info.GitHash = gitHash
	}
	if buildTime != "" {
		info.Time = buildTime
	}
	return info
}

var rootCmd = &cobra.Command{
	Use:   common.App,
	Short: "Serial port sample acquisition and dropped sample detection",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
