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

package controller

import (
	_ "github.com/packetd/serialacq/exporter/sinker/metrics"
	_ "github.com/packetd/serialacq/exporter/sinker/samples"
	_ "github.com/packetd/serialacq/protocol/pjsonlines"
	_ "github.com/packetd/serialacq/protocol/pmsgpack"
	_ "github.com/packetd/serialacq/source/file"
	_ "github.com/packetd/serialacq/source/serial"
)
