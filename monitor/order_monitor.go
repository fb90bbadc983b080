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

// Package monitor counts orders, cancels, and trades per instrument and for
// the account as a whole, and raises threshold alerts when those counters
// cross configured limits. Grounded on order_monitor.py and
// threshold_manager.py.
package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ByteBard/prime-ctp-go/clock"
)

// OrderAction identifies which counter an order event bumped.
type OrderAction string

const (
	ActionOpen   OrderAction = "open"
	ActionClose  OrderAction = "close"
	ActionCancel OrderAction = "cancel"
)

// OrderCallback is notified after every counted event. Panics inside a
// callback are recovered and logged, never propagated to the caller that
// triggered the count.
type OrderCallback func(action OrderAction, instrumentID string, snapshot Snapshot)

// InstrumentStats is one instrument's running counters for the trading day.
type InstrumentStats struct {
	InstrumentID  string
	OpenCount     int
	CloseCount    int
	CancelCount   int
	TradeCount    int
	LastOrderTime time.Time
}

// Snapshot is the counter state returned after a counting call, matching
// the original's per-call stats dict.
type Snapshot struct {
	InstrumentID          string
	Action                OrderAction
	InstrumentOpenCount   int
	InstrumentCloseCount  int
	InstrumentCancelCount int
	TotalOrderCount       int
	TotalOpenCount        int
	TotalCloseCount       int
	TotalCancelCount      int
}

// OrderMonitor tracks per-instrument and account-wide order/cancel/trade
// counters, resetting them whenever the trading day rolls over.
type OrderMonitor struct {
	mu       sync.Mutex
	log      zerolog.Logger
	boundary *clock.Boundary

	instruments map[string]*InstrumentStats

	totalOrderCount  int
	totalCancelCount int
	totalOpenCount   int
	totalCloseCount  int
	totalTradeCount  int
	totalTradeVolume int64

	callbacks []OrderCallback
}

func NewOrderMonitor(log zerolog.Logger, boundary *clock.Boundary) *OrderMonitor {
	return &OrderMonitor{
		log:         log.With().Str("component", "order_monitor").Logger(),
		boundary:    boundary,
		instruments: make(map[string]*InstrumentStats),
	}
}

func (m *OrderMonitor) resetLocked() {
	m.instruments = make(map[string]*InstrumentStats)
	m.totalOrderCount = 0
	m.totalCancelCount = 0
	m.totalOpenCount = 0
	m.totalCloseCount = 0
	m.totalTradeCount = 0
	m.totalTradeVolume = 0
}

func (m *OrderMonitor) checkRolloverLocked() {
	if rolled, day := m.boundary.Check(); rolled {
		m.log.Info().Str("trading_day", day).Msg("trading day rollover, resetting order statistics")
		m.resetLocked()
	}
}

func (m *OrderMonitor) instrumentStatsLocked(instrumentID string) *InstrumentStats {
	s, ok := m.instruments[instrumentID]
	if !ok {
		s = &InstrumentStats{InstrumentID: instrumentID}
		m.instruments[instrumentID] = s
	}
	return s
}

// CountOpen records an opening order for instrumentID, satisfying the
// repeat-open and total-order-count monitoring requirements.
func (m *OrderMonitor) CountOpen(instrumentID string) Snapshot {
	m.mu.Lock()
	m.checkRolloverLocked()

	s := m.instrumentStatsLocked(instrumentID)
	s.OpenCount++
	s.LastOrderTime = time.Now()
	m.totalOrderCount++
	m.totalOpenCount++

	snap := Snapshot{
		InstrumentID:        instrumentID,
		Action:              ActionOpen,
		InstrumentOpenCount: s.OpenCount,
		TotalOrderCount:     m.totalOrderCount,
		TotalOpenCount:      m.totalOpenCount,
	}
	m.mu.Unlock()

	m.log.Debug().Str("instrument_id", instrumentID).Int("instrument_open_count", snap.InstrumentOpenCount).
		Int("total_order_count", snap.TotalOrderCount).Msg("open order counted")
	m.notify(ActionOpen, instrumentID, snap)
	return snap
}

// CountClose records a closing order for instrumentID.
func (m *OrderMonitor) CountClose(instrumentID string) Snapshot {
	m.mu.Lock()
	m.checkRolloverLocked()

	s := m.instrumentStatsLocked(instrumentID)
	s.CloseCount++
	s.LastOrderTime = time.Now()
	m.totalOrderCount++
	m.totalCloseCount++

	snap := Snapshot{
		InstrumentID:         instrumentID,
		Action:               ActionClose,
		InstrumentCloseCount: s.CloseCount,
		TotalOrderCount:      m.totalOrderCount,
		TotalCloseCount:      m.totalCloseCount,
	}
	m.mu.Unlock()

	m.log.Debug().Str("instrument_id", instrumentID).Int("instrument_close_count", snap.InstrumentCloseCount).
		Int("total_order_count", snap.TotalOrderCount).Msg("close order counted")
	m.notify(ActionClose, instrumentID, snap)
	return snap
}

// CountCancel records a cancel request for instrumentID.
func (m *OrderMonitor) CountCancel(instrumentID string) Snapshot {
	m.mu.Lock()
	m.checkRolloverLocked()

	s := m.instrumentStatsLocked(instrumentID)
	s.CancelCount++
	s.LastOrderTime = time.Now()
	m.totalCancelCount++

	snap := Snapshot{
		InstrumentID:          instrumentID,
		Action:                ActionCancel,
		InstrumentCancelCount: s.CancelCount,
		TotalCancelCount:      m.totalCancelCount,
	}
	m.mu.Unlock()

	m.log.Debug().Str("instrument_id", instrumentID).Int("instrument_cancel_count", snap.InstrumentCancelCount).
		Int("total_cancel_count", snap.TotalCancelCount).Msg("cancel counted")
	m.notify(ActionCancel, instrumentID, snap)
	return snap
}

// CountTrade records a fill against instrumentID, accumulating trade count
// and volume. Trade counts do not raise threshold alerts in their own
// right — they feed reporting only.
func (m *OrderMonitor) CountTrade(instrumentID string, volume int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkRolloverLocked()

	s := m.instrumentStatsLocked(instrumentID)
	s.TradeCount++
	m.totalTradeCount++
	m.totalTradeVolume += volume
}

func (m *OrderMonitor) notify(action OrderAction, instrumentID string, snap Snapshot) {
	m.mu.Lock()
	callbacks := append([]OrderCallback(nil), m.callbacks...)
	m.mu.Unlock()

	for _, cb := range callbacks {
		m.invoke(cb, action, instrumentID, snap)
	}
}

func (m *OrderMonitor) invoke(cb OrderCallback, action OrderAction, instrumentID string, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("order callback panicked")
		}
	}()
	cb(action, instrumentID, snap)
}

// RegisterCallback subscribes to every counted event.
func (m *OrderMonitor) RegisterCallback(cb OrderCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

func (m *OrderMonitor) TotalOrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalOrderCount
}

func (m *OrderMonitor) TotalCancelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalCancelCount
}

func (m *OrderMonitor) InstrumentOpenCount(instrumentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.instruments[instrumentID]; ok {
		return s.OpenCount
	}
	return 0
}

func (m *OrderMonitor) InstrumentCloseCount(instrumentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.instruments[instrumentID]; ok {
		return s.CloseCount
	}
	return 0
}

func (m *OrderMonitor) InstrumentCancelCount(instrumentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.instruments[instrumentID]; ok {
		return s.CancelCount
	}
	return 0
}

// AllInstrumentStats returns a snapshot copy of every tracked instrument's
// counters, safe for the caller to range over without holding the lock.
func (m *OrderMonitor) AllInstrumentStats() map[string]InstrumentStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]InstrumentStats, len(m.instruments))
	for id, s := range m.instruments {
		out[id] = *s
	}
	return out
}

// SummaryReport mirrors get_summary_report: account totals plus the five
// busiest instruments by combined open+close+cancel count.
type SummaryReport struct {
	TradingDay       string
	TotalOrderCount  int
	TotalCancelCount int
	TotalOpenCount   int
	TotalCloseCount  int
	TotalTradeCount  int
	TotalTradeVolume int64
	InstrumentCount  int
	TopInstruments   []InstrumentStats
}

func (m *OrderMonitor) SummaryReport() SummaryReport {
	m.mu.Lock()
	m.checkRolloverLocked()

	report := SummaryReport{
		TradingDay:       m.boundary.Day(),
		TotalOrderCount:  m.totalOrderCount,
		TotalCancelCount: m.totalCancelCount,
		TotalOpenCount:   m.totalOpenCount,
		TotalCloseCount:  m.totalCloseCount,
		TotalTradeCount:  m.totalTradeCount,
		TotalTradeVolume: m.totalTradeVolume,
		InstrumentCount:  len(m.instruments),
	}
	all := make([]InstrumentStats, 0, len(m.instruments))
	for _, s := range m.instruments {
		all = append(all, *s)
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		ti := all[i].OpenCount + all[i].CloseCount + all[i].CancelCount
		tj := all[j].OpenCount + all[j].CloseCount + all[j].CancelCount
		return ti > tj
	})
	if len(all) > 5 {
		all = all[:5]
	}
	report.TopInstruments = all
	return report
}

// ResetStatistics clears every counter, used both by the daily boundary
// check and by an operator-initiated manual reset.
func (m *OrderMonitor) ResetStatistics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}
