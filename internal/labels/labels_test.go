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

package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels(t *testing.T) {
	ls := New("source", "serial:/dev/ttyACM0", "app", "serialacq", "dangling")
	assert.Equal(t, Labels{
		{Name: "app", Value: "serialacq"},
		{Name: "source", Value: "serial:/dev/ttyACM0"},
	}, ls)

	with := ls.With("le", "0.5")
	assert.Len(t, ls, 2)
	assert.Equal(t, "le", with[1].Name)

	assert.Equal(t, ls.Hash(), New("app", "serialacq", "source", "serial:/dev/ttyACM0").Hash())
	assert.NotEqual(t, ls.Hash(), with.Hash())
}
