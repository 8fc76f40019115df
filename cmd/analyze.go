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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/packetd/serialacq/exporter"
	"github.com/packetd/serialacq/gapdetect"
	"github.com/packetd/serialacq/internal/json"
	"github.com/packetd/serialacq/internal/splitio"
)

// sessionSamples 样本文件中某个会话的样本
type sessionSamples struct {
	id      string
	seqs    []int64
	first   exporter.SampleLine
	last    exporter.SampleLine
	summary *exporter.SummaryLine
}

func (s *sessionSamples) view(expected int) reportView {
	if expected <= 0 {
		expected = len(s.seqs)
	}
	v := reportView{
		Session: s.id,
		Samples: len(s.seqs),
		Elapsed: s.last.ArrivedAt.Sub(s.first.ArrivedAt),
		Report:  gapdetect.FindDroppedSeqs(s.seqs, expected),
	}
	if s.summary != nil {
		v.Source = s.summary.Source
		v.SamplesPerSecond = s.summary.SamplesPerSecond
		v.Err = s.summary.Error
	} else if v.Elapsed > 0 {
		v.SamplesPerSecond = float64(len(s.seqs)) / v.Elapsed.Seconds()
	}
	return v
}

type kindProbe struct {
	Kind string `json:"kind"`
}

// loadSessions 解析样本文件 按会话首次出现的顺序返回
func loadSessions(b []byte) ([]*sessionSamples, error) {
	index := make(map[string]*sessionSamples)
	var sessions []*sessionSamples
	get := func(id string) *sessionSamples {
		s, ok := index[id]
		if !ok {
			s = &sessionSamples{id: id}
			index[id] = s
			sessions = append(sessions, s)
		}
		return s
	}

	lr := splitio.NewReader(b)
	for n := 1; ; n++ {
		line, eof := lr.ReadLine()
		if eof {
			break
		}

		var probe kindProbe
		if err := json.Unmarshal(line, &probe); err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}

		switch probe.Kind {
		case exporter.KindSample:
			var sl exporter.SampleLine
			if err := json.Unmarshal(line, &sl); err != nil {
				return nil, errors.Wrapf(err, "line %d", n)
			}
			s := get(sl.Session)
			if len(s.seqs) == 0 {
				s.first = sl
			}
			s.last = sl
			s.seqs = append(s.seqs, sl.Seq)

		case exporter.KindSummary:
			var sl exporter.SummaryLine
			if err := json.Unmarshal(line, &sl); err != nil {
				return nil, errors.Wrapf(err, "line %d", n)
			}
			get(sl.Session).summary = &sl
		}
	}
	return sessions, nil
}

var analyzeConfig struct {
	Session  string
	Expected int
	Missing  bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <samples-file>",
	Short: "Detect dropped samples in a recorded samples file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read samples: %v\n", err)
			os.Exit(1)
		}

		sessions, err := loadSessions(b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse samples: %v\n", err)
			os.Exit(1)
		}

		var found bool
		for _, s := range sessions {
			if analyzeConfig.Session != "" && s.id != analyzeConfig.Session {
				continue
			}
			if found {
				fmt.Println()
			}
			found = true
			writeReport(os.Stdout, s.view(analyzeConfig.Expected), analyzeConfig.Missing)
		}
		if !found {
			fmt.Fprintln(os.Stderr, "no samples found")
			os.Exit(1)
		}
	},
	Example: "# serialacq analyze samples.jsonl --missing",
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfig.Session, "session", "", "Only analyze the given session")
	analyzeCmd.Flags().IntVar(&analyzeConfig.Expected, "expected", 0, "Expected sample count, 0 to use the recorded count")
	analyzeCmd.Flags().BoolVar(&analyzeConfig.Missing, "missing", false, "Print missing sequence numbers")
	rootCmd.AddCommand(analyzeCmd)
}
