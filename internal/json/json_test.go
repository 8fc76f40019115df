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

package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	type record struct {
		Seq  int64  `json:"seq"`
		Text string `json:"text"`
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(record{Seq: 1, Text: "OK"}))
	require.NoError(t, enc.Encode(record{Seq: 2, Text: "OK"}))
	assert.Equal(t, "{\"seq\":1,\"text\":\"OK\"}\n{\"seq\":2,\"text\":\"OK\"}\n", buf.String())

	dec := NewDecoder(&buf)
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	assert.Equal(t, Number("1"), m["seq"])
}

func TestUnmarshal(t *testing.T) {
	var v struct {
		Code int `json:"STATUS_CODE"`
	}
	require.NoError(t, Unmarshal([]byte(`{"STATUS_CODE":200}`), &v))
	assert.Equal(t, 200, v.Code)

	assert.Error(t, Unmarshal([]byte(`{"STATUS_CODE":`), &v))
}
