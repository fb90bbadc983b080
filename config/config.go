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

// Package config defines the trading system's configuration: a single
// structured YAML file with nested connection/threshold/alert/log
// sections, every field defaulted via viper.SetDefault before Unmarshal so
// a missing file or missing key never silently zero-values a limit.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	Threshold  ThresholdConfig  `mapstructure:"threshold"`
	Alert      AlertConfig      `mapstructure:"alert"`
	Log        LogConfig        `mapstructure:"log"`
}

// ConnectionConfig carries the brokerage credentials and endpoints the
// exchange session needs to connect/authenticate/login.
type ConnectionConfig struct {
	BrokerID   string `mapstructure:"broker_id"`
	InvestorID string `mapstructure:"investor_id"`
	Password   string `mapstructure:"password"`
	AppID      string `mapstructure:"app_id"`
	AuthCode   string `mapstructure:"auth_code"`
	TradeFront string `mapstructure:"trade_front"`
	MdFront    string `mapstructure:"md_front"`
	FlowPath   string `mapstructure:"flow_path"`
}

// ThresholdConfig tunes the Order Monitor / Threshold Manager's alert
// triggers.
type ThresholdConfig struct {
	RepeatOpenThreshold   int `mapstructure:"repeat_open_threshold"`
	RepeatCloseThreshold  int `mapstructure:"repeat_close_threshold"`
	RepeatCancelThreshold int `mapstructure:"repeat_cancel_threshold"`
	TotalOrderThreshold   int `mapstructure:"total_order_threshold"`
	TotalCancelThreshold  int `mapstructure:"total_cancel_threshold"`
	MaxOrderVolume        int `mapstructure:"max_order_volume"`
}

// AlertConfig toggles sinks and carries SMTP parameters for the email
// sink.
type AlertConfig struct {
	EnablePopup bool   `mapstructure:"enable_popup"`
	EnableSound bool   `mapstructure:"enable_sound"`
	EnableEmail bool   `mapstructure:"enable_email"`
	SMTPHost    string `mapstructure:"smtp_host"`
	SMTPPort    int    `mapstructure:"smtp_port"`
	SMTPUser    string `mapstructure:"smtp_user"`
	SMTPPass    string `mapstructure:"smtp_pass"`
	Recipient   string `mapstructure:"recipient"`
}

// LogConfig drives the audit log's per-category file names and the
// robfig/cron rotation/retention schedule.
type LogConfig struct {
	LogDir        string `mapstructure:"log_dir"`
	TradeFile     string `mapstructure:"trade_file"`
	SystemFile    string `mapstructure:"system_file"`
	MonitorFile   string `mapstructure:"monitor_file"`
	ErrorFile     string `mapstructure:"error_file"`
	AllFile       string `mapstructure:"all_file"`
	RotationCron  string `mapstructure:"rotation_cron"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// applyDefaults seeds every field spec §6 names onto v before Unmarshal,
// so a missing file or missing key never produces a silent zero value.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("threshold.repeat_open_threshold", 10)
	v.SetDefault("threshold.repeat_close_threshold", 10)
	v.SetDefault("threshold.repeat_cancel_threshold", 10)
	v.SetDefault("threshold.total_order_threshold", 500)
	v.SetDefault("threshold.total_cancel_threshold", 500)
	v.SetDefault("threshold.max_order_volume", 1000)

	v.SetDefault("alert.enable_popup", true)
	v.SetDefault("alert.enable_sound", false)
	v.SetDefault("alert.enable_email", false)
	v.SetDefault("alert.smtp_port", 587)

	v.SetDefault("log.log_dir", "./logs")
	v.SetDefault("log.trade_file", "trade.log")
	v.SetDefault("log.system_file", "system.log")
	v.SetDefault("log.monitor_file", "monitor.log")
	v.SetDefault("log.error_file", "error.log")
	v.SetDefault("log.all_file", "all.log")
	v.SetDefault("log.rotation_cron", "0 0 * * *")
	v.SetDefault("log.retention_days", 30)
}

// Defaults returns a Config populated with every spec-named default,
// useful for tests that don't need a file on disk.
func Defaults() *Config {
	v := viper.New()
	applyDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads config from a YAML file, with TRADING_*-prefixed environment
// variables able to override any field (dots become underscores, matching
// the teacher's env-override convention).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TRADING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields the session needs to connect at all.
func (c *Config) Validate() error {
	if c.Connection.BrokerID == "" {
		return fmt.Errorf("connection.broker_id is required")
	}
	if c.Connection.InvestorID == "" {
		return fmt.Errorf("connection.investor_id is required")
	}
	if c.Connection.TradeFront == "" {
		return fmt.Errorf("connection.trade_front is required")
	}
	if c.Threshold.MaxOrderVolume <= 0 {
		return fmt.Errorf("threshold.max_order_volume must be > 0")
	}
	return nil
}
