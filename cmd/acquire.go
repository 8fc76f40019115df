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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/confengine"
	"github.com/packetd/serialacq/controller"
	"github.com/packetd/serialacq/framestream"
	"github.com/packetd/serialacq/gapdetect"
	"github.com/packetd/serialacq/internal/sigs"
	"github.com/packetd/serialacq/protocol/pjsonlines"
)

type acquireCmdConfig struct {
	Port        string
	BaudRate    int
	File        string
	ChunkSize   int
	Mode        string
	FrameSize   int
	IdleTimeout time.Duration
	Protocol    string
	Device      bool

	MaxSamples    int
	Duration      time.Duration
	Speed         int
	SetMaxSamples bool
	SetDuration   bool
	SetSpeed      bool
	DecodePolicy  string
	WarmUp        bool

	Expected int
	Annotate bool

	Console     bool
	SamplesFile string
	LogLevel    string
}

func (c *acquireCmdConfig) engine() string {
	if c.File != "" {
		return "file"
	}
	return "serial"
}

func (c *acquireCmdConfig) protocol() string {
	if c.Protocol == "" && c.Mode == framestream.ModeLines {
		return pjsonlines.Name
	}
	return c.Protocol
}

func (c *acquireCmdConfig) Yaml() []byte {
	text := `
logger:
  stdout: true
  level: {{ .LogLevel }}

source:
  engine: {{ .Engine }}
  port: {{ .Port }}
  baudRate: {{ .BaudRate }}
  file: {{ .File }}
  chunkSize: {{ .ChunkSize }}

framestream:
  mode: {{ .Mode }}
  frameSize: {{ .FrameSize }}
  idleTimeout: {{ .IdleTimeout }}

protocol:
  name: {{ .Protocol }}

device:
  enabled: {{ .Device }}

acquisition:
{{- if .SetMaxSamples }}
  maxSamples: {{ .MaxSamples }}
{{- end }}
{{- if .SetDuration }}
  duration: {{ .Duration }}
{{- end }}
{{- if .SetSpeed }}
  speed: {{ .Speed }}
{{- end }}
  decodePolicy: {{ .DecodePolicy }}
  warmUp: {{ .WarmUp }}

gapdetect:
  expected: {{ .Expected }}
  annotate: {{ .Annotate }}

exporter:
  samples:
    enabled: {{ .SamplesEnabled }}
    console: {{ .Console }}
    summary: true
    filename: {{ .SamplesFile }}
`
	tpl, err := template.New("Config").Parse(text)
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, map[string]any{
		"LogLevel":       c.LogLevel,
		"Engine":         c.engine(),
		"Port":           c.Port,
		"BaudRate":       c.BaudRate,
		"File":           c.File,
		"ChunkSize":      c.ChunkSize,
		"Mode":           c.Mode,
		"FrameSize":      c.FrameSize,
		"IdleTimeout":    c.IdleTimeout,
		"Protocol":       c.protocol(),
		"Device":         c.Device,
		"SetMaxSamples":  c.SetMaxSamples,
		"MaxSamples":     c.MaxSamples,
		"SetDuration":    c.SetDuration,
		"Duration":       c.Duration,
		"SetSpeed":       c.SetSpeed,
		"Speed":          c.Speed,
		"DecodePolicy":   c.DecodePolicy,
		"WarmUp":         c.WarmUp,
		"Expected":       c.Expected,
		"Annotate":       c.Annotate,
		"SamplesEnabled": c.Console || c.SamplesFile != "",
		"Console":        c.Console,
		"SamplesFile":    c.SamplesFile,
	})
	if err != nil {
		return nil
	}
	return buf.Bytes()
}

// reportView 终端输出的会话报告
type reportView struct {
	Session          string
	Source           string
	Samples          int
	Elapsed          time.Duration
	SamplesPerSecond float64
	Report           gapdetect.Report
	Err              string
}

func writeReport(w io.Writer, v reportView, verbose bool) {
	if v.Session != "" {
		fmt.Fprintf(w, "Session: %s\n", v.Session)
	}
	if v.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", v.Source)
	}
	fmt.Fprintf(w, "Duration: %.3fs\n", v.Elapsed.Seconds())
	fmt.Fprintf(w, "Samples: %d\n", v.Samples)
	fmt.Fprintf(w, "Samples/sec: %.2f\n", v.SamplesPerSecond)
	fmt.Fprintf(w, "Expected: %d\n", v.Report.Expected)
	fmt.Fprintf(w, "Dropped: %d\n", v.Report.Dropped)
	if v.Report.Duplicates > 0 {
		fmt.Fprintf(w, "Duplicates: %d\n", v.Report.Duplicates)
	}
	if v.Report.Unsequenced > 0 {
		fmt.Fprintf(w, "Unsequenced: %d\n", v.Report.Unsequenced)
	}
	if verbose && len(v.Report.Missing) > 0 {
		missing := make([]string, 0, len(v.Report.Missing))
		for _, seq := range v.Report.Missing {
			missing = append(missing, fmt.Sprint(seq))
		}
		fmt.Fprintf(w, "Missing: %s\n", strings.Join(missing, ","))
	}
	if v.Err != "" {
		fmt.Fprintf(w, "Error: %s\n", v.Err)
	}
}

var acquireConfig acquireCmdConfig

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Run a single acquisition session and report dropped samples",
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		acquireConfig.SetMaxSamples = flags.Changed("max-samples")
		acquireConfig.SetDuration = flags.Changed("duration")
		acquireConfig.SetSpeed = flags.Changed("speed")

		cfg, err := confengine.LoadContent(acquireConfig.Yaml())
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
		res, runErr := ctr.RunSession(ctx)
		cancel()
		if err := ctr.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to stop controller: %v\n", err)
		}

		if res != nil {
			writeReport(os.Stderr, reportView{
				Session:          res.Summary.Session,
				Source:           res.Summary.Source,
				Samples:          res.Summary.Samples,
				Elapsed:          res.Summary.Elapsed,
				SamplesPerSecond: res.Summary.SamplesPerSecond,
				Report:           res.Report,
				Err:              res.Summary.Err,
			}, acquireConfig.Annotate)
		}
		if runErr != nil {
			os.Exit(1)
		}
	},
	Example: "# serialacq acquire --port /dev/ttyUSB0 --max-samples 16000 --samples.file samples.jsonl",
}

func init() {
	flags := acquireCmd.Flags()
	flags.StringVar(&acquireConfig.Port, "port", "/dev/ttyUSB0", "Serial port to read from")
	flags.IntVar(&acquireConfig.BaudRate, "baud", common.DefaultBaudRate, "Serial port baud rate")
	flags.StringVar(&acquireConfig.File, "file", "", "Replay a recorded capture file instead of the serial port")
	flags.IntVar(&acquireConfig.ChunkSize, "file.chunk", 0, "Maximum bytes returned by a single replay read, 0 for unlimited")
	flags.StringVar(&acquireConfig.Mode, "mode", framestream.ModeFixed, "Framing mode [fixed|lines]")
	flags.IntVar(&acquireConfig.FrameSize, "frame-size", common.FrameSize, "Frame size in bytes for fixed mode")
	flags.DurationVar(&acquireConfig.IdleTimeout, "idle-timeout", 0, "Abort the session after receiving no bytes for this long, 0 to disable")
	flags.StringVar(&acquireConfig.Protocol, "protocol", "", "Frame decoder [msgpack|jsonlines], chosen by mode if empty")
	flags.BoolVar(&acquireConfig.Device, "device", true, "Send start and stop commands to the device")
	flags.IntVar(&acquireConfig.MaxSamples, "max-samples", common.DefaultMaxSamples, "Maximum samples to acquire")
	flags.DurationVar(&acquireConfig.Duration, "duration", common.DefaultDuration, "Acquisition duration at the nominal speed")
	flags.IntVar(&acquireConfig.Speed, "speed", common.DefaultSpeed, "Nominal device speed in samples per second")
	flags.StringVar(&acquireConfig.DecodePolicy, "decode-policy", "skip", "Action on undecodable frames [skip|abort]")
	flags.BoolVar(&acquireConfig.WarmUp, "warm-up", true, "Discard one frame before timing starts")
	flags.IntVar(&acquireConfig.Expected, "expected", 0, "Expected sample count for gap analysis, 0 to use the acquired count")
	flags.BoolVar(&acquireConfig.Annotate, "missing", false, "Print missing sequence numbers")
	flags.BoolVar(&acquireConfig.Console, "console", false, "Print samples to stdout")
	flags.StringVar(&acquireConfig.SamplesFile, "samples.file", "", "Path to samples file")
	flags.StringVar(&acquireConfig.LogLevel, "log-level", "info", "Logger level")
	rootCmd.AddCommand(acquireCmd)
}
