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

package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// ThresholdKind is which counter a threshold breach concerns.
type ThresholdKind string

const (
	ThresholdRepeatOpen   ThresholdKind = "repeat_open"
	ThresholdRepeatClose  ThresholdKind = "repeat_close"
	ThresholdRepeatCancel ThresholdKind = "repeat_cancel"
	ThresholdTotalOrder   ThresholdKind = "total_order"
	ThresholdTotalCancel  ThresholdKind = "total_cancel"
)

// Thresholds is the configured limit for each monitored counter.
type Thresholds struct {
	RepeatOpen   int
	RepeatClose  int
	RepeatCancel int
	TotalOrder   int
	TotalCancel  int
}

// DefaultThresholds matches the original's dataclass defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RepeatOpen:   10,
		RepeatClose:  10,
		RepeatCancel: 10,
		TotalOrder:   500,
		TotalCancel:  500,
	}
}

// ThresholdBreach is one firing of a configured limit.
type ThresholdBreach struct {
	Kind         ThresholdKind
	Level        domain.AlertLevel
	CurrentValue int
	Limit        int
	InstrumentID string // empty for account-wide breaches
	Message      string
	Timestamp    time.Time
}

// ThresholdCallback is notified on every breach that survives cooldown
// suppression.
type ThresholdCallback func(ThresholdBreach)

// ThresholdManager watches OrderMonitor's counters and raises a breach the
// first time each (kind, instrument) pair crosses its configured limit,
// then suppresses repeats of the same pair for the cooldown window.
type ThresholdManager struct {
	mu  sync.Mutex
	log zerolog.Logger

	thresholds Thresholds
	cooldown   time.Duration

	monitor       *OrderMonitor
	history       []ThresholdBreach
	maxHistory    int
	lastTriggered map[string]time.Time
	callbacks     []ThresholdCallback
}

func NewThresholdManager(log zerolog.Logger, monitor *OrderMonitor, thresholds Thresholds) *ThresholdManager {
	tm := &ThresholdManager{
		log:           log.With().Str("component", "threshold_manager").Logger(),
		thresholds:    thresholds,
		cooldown:      60 * time.Second,
		monitor:       monitor,
		maxHistory:    1000,
		lastTriggered: make(map[string]time.Time),
	}
	monitor.RegisterCallback(tm.onOrderEvent)
	return tm
}

func (tm *ThresholdManager) onOrderEvent(action OrderAction, instrumentID string, _ Snapshot) {
	switch action {
	case ActionOpen:
		tm.checkRepeat(ThresholdRepeatOpen, instrumentID, tm.monitor.InstrumentOpenCount(instrumentID), tm.thresholds.RepeatOpen)
		tm.checkTotalOrder()
	case ActionClose:
		tm.checkRepeat(ThresholdRepeatClose, instrumentID, tm.monitor.InstrumentCloseCount(instrumentID), tm.thresholds.RepeatClose)
		tm.checkTotalOrder()
	case ActionCancel:
		tm.checkRepeat(ThresholdRepeatCancel, instrumentID, tm.monitor.InstrumentCancelCount(instrumentID), tm.thresholds.RepeatCancel)
		tm.checkTotalCancel()
	}
}

func (tm *ThresholdManager) checkRepeat(kind ThresholdKind, instrumentID string, current, limit int) {
	if current < limit {
		return
	}
	tm.trigger(ThresholdBreach{
		Kind:         kind,
		Level:        domain.AlertLevelWarning,
		CurrentValue: current,
		Limit:        limit,
		InstrumentID: instrumentID,
		Message:      fmt.Sprintf("instrument %s %s count (%d) reached threshold (%d)", instrumentID, kind, current, limit),
	})
}

func (tm *ThresholdManager) checkTotalOrder() {
	current := tm.monitor.TotalOrderCount()
	if current < tm.thresholds.TotalOrder {
		return
	}
	tm.trigger(ThresholdBreach{
		Kind:         ThresholdTotalOrder,
		Level:        domain.AlertLevelCritical,
		CurrentValue: current,
		Limit:        tm.thresholds.TotalOrder,
		Message:      fmt.Sprintf("total order count (%d) reached threshold (%d)", current, tm.thresholds.TotalOrder),
	})
}

func (tm *ThresholdManager) checkTotalCancel() {
	current := tm.monitor.TotalCancelCount()
	if current < tm.thresholds.TotalCancel {
		return
	}
	tm.trigger(ThresholdBreach{
		Kind:         ThresholdTotalCancel,
		Level:        domain.AlertLevelCritical,
		CurrentValue: current,
		Limit:        tm.thresholds.TotalCancel,
		Message:      fmt.Sprintf("total cancel count (%d) reached threshold (%d)", current, tm.thresholds.TotalCancel),
	})
}

func (tm *ThresholdManager) trigger(breach ThresholdBreach) {
	key := string(breach.Kind) + "_" + breach.InstrumentID
	breach.Timestamp = time.Now()

	tm.mu.Lock()
	if last, ok := tm.lastTriggered[key]; ok && breach.Timestamp.Sub(last) < tm.cooldown {
		tm.mu.Unlock()
		return
	}
	tm.lastTriggered[key] = breach.Timestamp
	tm.history = append(tm.history, breach)
	if len(tm.history) > tm.maxHistory {
		tm.history = tm.history[len(tm.history)-tm.maxHistory:]
	}
	callbacks := append([]ThresholdCallback(nil), tm.callbacks...)
	tm.mu.Unlock()

	tm.log.Warn().Str("kind", string(breach.Kind)).Str("instrument_id", breach.InstrumentID).
		Int("current", breach.CurrentValue).Int("limit", breach.Limit).Msg(breach.Message)

	for _, cb := range callbacks {
		tm.invoke(cb, breach)
	}
}

func (tm *ThresholdManager) invoke(cb ThresholdCallback, breach ThresholdBreach) {
	defer func() {
		if r := recover(); r != nil {
			tm.log.Error().Interface("panic", r).Msg("threshold callback panicked")
		}
	}()
	cb(breach)
}

// RegisterCallback subscribes to every breach that survives cooldown
// suppression.
func (tm *ThresholdManager) RegisterCallback(cb ThresholdCallback) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.callbacks = append(tm.callbacks, cb)
}

// SetCooldown overrides the default 60s suppression window.
func (tm *ThresholdManager) SetCooldown(d time.Duration) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.cooldown = d
}

// SetThresholds replaces the configured limits wholesale.
func (tm *ThresholdManager) SetThresholds(t Thresholds) {
	tm.mu.Lock()
	old := tm.thresholds
	tm.thresholds = t
	tm.mu.Unlock()

	tm.log.Info().
		Interface("old", old).
		Interface("new", t).
		Msg("thresholds updated")
}

func (tm *ThresholdManager) Thresholds() Thresholds {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.thresholds
}

// History returns the most recent breaches, oldest first, capped at limit.
func (tm *ThresholdManager) History(limit int) []ThresholdBreach {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if limit <= 0 || limit > len(tm.history) {
		limit = len(tm.history)
	}
	return append([]ThresholdBreach(nil), tm.history[len(tm.history)-limit:]...)
}

// ClearTriggered resets cooldown bookkeeping, letting every threshold fire
// again immediately regardless of how recently it last breached.
func (tm *ThresholdManager) ClearTriggered() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.lastTriggered = make(map[string]time.Time)
}
