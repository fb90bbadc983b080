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

package strategy

import "time"

// StagedState is the four-state position ladder the staged-position bar
// strategy rides: flat -> probe -> full -> trail.
type StagedState string

const (
	StagedFlat  StagedState = "flat"
	StagedProbe StagedState = "probe"
	StagedFull  StagedState = "full"
	StagedTrail StagedState = "trail"
)

// PositionConfig carries the staged strategy's stop/target/sizing
// parameters and their derived thresholds, matching the source's
// DEFAULT_PARAMS/BEST_PARAMS and its computed properties (probe_sl,
// probe_to_full, full_sl, full_to_trail, trail_max all derive from sl/tp).
type PositionConfig struct {
	StopLoss      float64 // sl, default 0.004 (0.4%)
	TakeProfit    float64 // tp, default 0.012 (1.2%)
	RSIUpper      float64 // default 55
	RSILower      float64 // default 45
	Threshold     float64 // LSTM probability threshold, default 0.5
	ProbeSize     float64 // default 0.3
	FullSize      float64 // default 1.0
	TrailDrawdown float64 // default 0.30
}

func DefaultPositionConfig() PositionConfig {
	return PositionConfig{
		StopLoss:      0.004,
		TakeProfit:    0.012,
		RSIUpper:      55,
		RSILower:      45,
		Threshold:     0.5,
		ProbeSize:     0.3,
		FullSize:      1.0,
		TrailDrawdown: 0.30,
	}
}

func (c PositionConfig) probeSL() float64     { return c.StopLoss }
func (c PositionConfig) probeToFull() float64 { return c.StopLoss }
func (c PositionConfig) fullSL() float64      { return c.StopLoss + 0.001 }
func (c PositionConfig) fullToTrail() float64 { return c.StopLoss + 0.002 }
func (c PositionConfig) trailMax() float64    { return c.TakeProfit }

// StagedPosition is the open position the ladder tracks.
type StagedPosition struct {
	Direction    int // 1 long, -1 short
	EntryPrice   float64
	CurrentSize  float64
	EntryTime    time.Time
	EntryBarSeq  int
	HoldBars     int
	PeakProfit   float64
	HighestPrice float64
	LowestPrice  float64
	EntryProb    float64
	EntryRSI     float64
}

// PositionManager runs the flat/probe/full/trail state machine. Grounded
// on strategy/lstm_l2/position_manager.py.
type PositionManager struct {
	cfg      PositionConfig
	state    StagedState
	position *StagedPosition
}

func NewPositionManager(cfg PositionConfig) *PositionManager {
	return &PositionManager{cfg: cfg, state: StagedFlat}
}

func (m *PositionManager) State() StagedState { return m.state }

func (m *PositionManager) Position() *StagedPosition { return m.position }

func (m *PositionManager) IsFlat() bool { return m.state == StagedFlat }

func (m *PositionManager) HasPosition() bool { return m.state != StagedFlat }

// CheckEntrySignal applies the LSTM-probability + RSI filter and returns
// the signal direction (1/-1/0). Only meaningful while flat.
func (m *PositionManager) CheckEntrySignal(prob, rsi float64) int {
	if !m.IsFlat() {
		return 0
	}

	var signal int
	switch {
	case prob > m.cfg.Threshold:
		signal = 1
	case prob < 1-m.cfg.Threshold:
		signal = -1
	default:
		return 0
	}

	if signal == 1 && rsi > m.cfg.RSIUpper {
		return 0
	}
	if signal == -1 && rsi < m.cfg.RSILower {
		return 0
	}
	return signal
}

// EnterPosition opens a probe-sized position. Returns false if already
// holding.
func (m *PositionManager) EnterPosition(direction int, price, prob, rsi float64, barSeq int) bool {
	if !m.IsFlat() {
		return false
	}
	m.position = &StagedPosition{
		Direction:    direction,
		EntryPrice:   price,
		CurrentSize:  m.cfg.ProbeSize,
		EntryTime:    time.Now(),
		EntryBarSeq:  barSeq,
		HighestPrice: price,
		LowestPrice:  price,
		EntryProb:    prob,
		EntryRSI:     rsi,
	}
	m.state = StagedProbe
	return true
}

// Update advances the position one bar and reports whether it should
// exit, why, and the current pnl percentage. pendingSignal carries a
// freshly recomputed entry signal so a reversal can force an early exit.
func (m *PositionManager) Update(currentPrice float64, pendingSignal int) (exit bool, reason string, pnlPct float64) {
	if m.IsFlat() || m.position == nil {
		return false, "", 0
	}

	m.position.HoldBars++
	if currentPrice > m.position.HighestPrice {
		m.position.HighestPrice = currentPrice
	}
	if currentPrice < m.position.LowestPrice {
		m.position.LowestPrice = currentPrice
	}

	pnlPct = m.calculatePnL(currentPrice)
	if pnlPct > m.position.PeakProfit {
		m.position.PeakProfit = pnlPct
	}

	switch m.state {
	case StagedProbe:
		return m.handleProbe(pnlPct, pendingSignal)
	case StagedFull:
		return m.handleFull(pnlPct, pendingSignal)
	case StagedTrail:
		return m.handleTrail(pnlPct, pendingSignal)
	}
	return false, "", pnlPct
}

func (m *PositionManager) calculatePnL(currentPrice float64) float64 {
	if m.position == nil || m.position.EntryPrice == 0 {
		return 0
	}
	if m.position.Direction == 1 {
		return (currentPrice - m.position.EntryPrice) / m.position.EntryPrice
	}
	return (m.position.EntryPrice - currentPrice) / m.position.EntryPrice
}

func (m *PositionManager) handleProbe(pnlPct float64, pendingSignal int) (bool, string, float64) {
	if pnlPct >= m.cfg.probeToFull() {
		m.position.CurrentSize = m.cfg.FullSize
		m.state = StagedFull
		return false, "", pnlPct
	}
	if pnlPct <= -m.cfg.probeSL() {
		return true, "probe_sl", pnlPct
	}
	if pendingSignal != 0 && pendingSignal != m.position.Direction {
		return true, "reverse_signal", pnlPct
	}
	return false, "", pnlPct
}

func (m *PositionManager) handleFull(pnlPct float64, pendingSignal int) (bool, string, float64) {
	if pnlPct >= m.cfg.fullToTrail() {
		m.state = StagedTrail
		return false, "", pnlPct
	}
	if pnlPct <= -m.cfg.fullSL() {
		return true, "full_sl", pnlPct
	}
	if pendingSignal != 0 && pendingSignal != m.position.Direction {
		return true, "reverse_signal", pnlPct
	}
	return false, "", pnlPct
}

func (m *PositionManager) handleTrail(pnlPct float64, pendingSignal int) (bool, string, float64) {
	if pnlPct >= m.cfg.trailMax() {
		return true, "trail_tp", pnlPct
	}
	if m.position.PeakProfit > 0 {
		drawdown := (m.position.PeakProfit - pnlPct) / m.position.PeakProfit
		if drawdown >= m.cfg.TrailDrawdown {
			return true, "trail_dd", pnlPct
		}
	}
	if pendingSignal != 0 && pendingSignal != m.position.Direction {
		return true, "reverse_signal", pnlPct
	}
	return false, "", pnlPct
}

// ExitPosition clears the held position and returns it as it stood just
// before exit.
func (m *PositionManager) ExitPosition() *StagedPosition {
	position := m.position
	m.position = nil
	m.state = StagedFlat
	return position
}

func (m *PositionManager) Reset() {
	m.state = StagedFlat
	m.position = nil
}
