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

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertLevel ranks an alert's severity.
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// AlertType groups alerts by the subsystem that raised them.
type AlertType string

const (
	AlertTypeConnection AlertType = "connection"
	AlertTypeOrder      AlertType = "order"
	AlertTypeThreshold  AlertType = "threshold"
	AlertTypeStrategy   AlertType = "strategy"
	AlertTypeSystem     AlertType = "system"
)

// Alert is a single notifiable event, delivered to whichever sinks the
// alert service has enabled.
type Alert struct {
	ID        uuid.UUID
	Timestamp time.Time
	Level     AlertLevel
	Type      AlertType
	Message   string
	Details   map[string]any
}

// ThresholdAlert is the specialization the Threshold Manager raises when a
// monitored counter crosses its configured limit.
type ThresholdAlert struct {
	Alert
	InstrumentID string // empty for account-wide thresholds
	CounterName  string
	Count        int
	Limit        int
}
