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
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type watchCmdConfig struct {
	Address    string
	MaxMessage int
	Timeout    time.Duration
}

func (c *watchCmdConfig) URL() string {
	q := url.Values{}
	q.Set("max_message", fmt.Sprint(c.MaxMessage))
	q.Set("timeout", c.Timeout.String())
	u := url.URL{
		Scheme:   "http",
		Host:     c.Address,
		Path:     "/watch",
		RawQuery: q.Encode(),
	}
	return u.String()
}

var watchConfig watchCmdConfig

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream samples decoded by a running agent",
	Run: func(cmd *cobra.Command, args []string) {
		rsp, err := http.Get(watchConfig.URL())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect agent: %v\n", err)
			os.Exit(1)
		}
		defer rsp.Body.Close()

		if rsp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "unexpected status: %s\n", rsp.Status)
			os.Exit(1)
		}

		scanner := bufio.NewScanner(rsp.Body)
		for scanner.Scan() {
			fmt.Println(scanner.Text())
		}
	},
	Example: "# serialacq watch --address localhost:9091 --max-message 100",
}

func init() {
	watchCmd.Flags().StringVar(&watchConfig.Address, "address", "localhost:9091", "Agent server address")
	watchCmd.Flags().IntVar(&watchConfig.MaxMessage, "max-message", 100, "Maximum samples to receive")
	watchCmd.Flags().DurationVar(&watchConfig.Timeout, "timeout", 5*time.Second, "Stop after receiving no samples for this long")
	rootCmd.AddCommand(watchCmd)
}
