// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_StampsServiceIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "1.2.3", "json", &buf)

	logger.Info("hello", "key", "value")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "gatehouse", record["service"])
	assert.Equal(t, "1.2.3", record["version"])
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "dev", "text", &buf)

	logger.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "service=gatehouse")
	assert.Contains(t, out, "version=dev")
	assert.NotContains(t, out, "{")
}

func TestSetup_DefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "dev", "", &buf)

	logger.Info("hello")

	var record map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &record))
}

func TestSetup_GroupsAndAttrsPreserveIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "dev", "json", &buf)

	logger.With("request_id", "abc").WithGroup("db").Info("query", "rows", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "gatehouse", record["service"])
	assert.Equal(t, "abc", record["request_id"])
}
