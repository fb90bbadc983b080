/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_PopulatesSpecNamedDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 10, cfg.Threshold.RepeatOpenThreshold)
	assert.Equal(t, 500, cfg.Threshold.TotalOrderThreshold)
	assert.True(t, cfg.Alert.EnablePopup)
	assert.Equal(t, 587, cfg.Alert.SMTPPort)
	assert.Equal(t, "0 0 * * *", cfg.Log.RotationCron)
	assert.Equal(t, 30, cfg.Log.RetentionDays)
}

func TestLoad_FileValuesOverrideDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
connection:
  broker_id: "9999"
  investor_id: "123456"
  trade_front: "tcp://127.0.0.1:20000"
threshold:
  max_order_volume: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Connection.BrokerID)
	assert.Equal(t, 50, cfg.Threshold.MaxOrderVolume)
	// fields absent from the file keep their applied defaults
	assert.Equal(t, 10, cfg.Threshold.RepeatOpenThreshold)
}

func TestLoad_EnvironmentOverridesFileValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
connection:
  broker_id: "9999"
  investor_id: "123456"
  trade_front: "tcp://127.0.0.1:20000"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("TRADING_CONNECTION_BROKER_ID", "8888")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8888", cfg.Connection.BrokerID)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Defaults()
	assert.Error(t, cfg.Validate(), "broker_id/investor_id/trade_front are unset")

	cfg.Connection.BrokerID = "9999"
	cfg.Connection.InvestorID = "123456"
	cfg.Connection.TradeFront = "tcp://127.0.0.1:20000"
	assert.NoError(t, cfg.Validate())

	cfg.Threshold.MaxOrderVolume = 0
	assert.Error(t, cfg.Validate())
}
