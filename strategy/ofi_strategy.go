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

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ByteBard/prime-ctp-go/cache"
	"github.com/ByteBard/prime-ctp-go/domain"
)

// OFIPositionState is the OFI strategy's own position state machine, kept
// separate from the richer flat/probe/full/trail ladder StagedStrategy
// uses (see position_manager.go) since a tick-scalp strategy only ever
// holds one clip at a time.
type OFIPositionState string

const (
	OFIStateFlat    OFIPositionState = "flat"
	OFIStateHolding OFIPositionState = "holding"
)

// OFIConfig mirrors the source's H1eConfig: entry thresholds come from
// IMBConfig, exit uses a staggered take-profit ladder plus a hard stop and
// a hold-time cap, and a single daily-loss breaker halts entries for the
// rest of the trading day.
type OFIConfig struct {
	InstrumentID string
	TickSize     decimal.Decimal

	IMB IMBConfig

	SignalCooldownTicks int
	StaggeredTP         []TPLevel // (max hold ticks, target profit in ticks), checked in order
	StopLossTicks       float64
	MaxHoldTicks        int

	DailyStopLossPct float64 // e.g. -0.007 for -0.7%
	MaxDailyTrades   int

	PositionSize   int
	CommissionRate float64
}

type TPLevel struct {
	MaxHoldTicks int
	TargetProfit float64
}

func DefaultOFIConfig(instrumentID string, tickSize decimal.Decimal) OFIConfig {
	return OFIConfig{
		InstrumentID:        instrumentID,
		TickSize:            tickSize,
		IMB:                 DefaultIMBConfig(),
		SignalCooldownTicks: 10,
		StaggeredTP: []TPLevel{
			{MaxHoldTicks: 15, TargetProfit: 2.0},
			{MaxHoldTicks: 30, TargetProfit: 1.0},
		},
		StopLossTicks:    2.0,
		MaxHoldTicks:     30,
		DailyStopLossPct: -0.007,
		MaxDailyTrades:   500,
		PositionSize:     1,
		CommissionRate:   0.00011 * 2,
	}
}

type ofiPosition struct {
	direction  int
	entryPrice float64
	entryTime  time.Time
	entryTick  int
	holdTicks  int
	entryIMB   float64
	entryDepth int64
	clOrdID    string
}

// TradeRecord is one completed round-trip, kept for the strategy's daily
// statistics and the operator console's trade blotter.
type TradeRecord struct {
	Direction  int
	EntryPrice float64
	ExitPrice  float64
	EntryIMB   float64
	EntryDepth int64
	HoldTicks  int
	PnLTicks   float64
	NetPnLPct  float64
	ExitReason string
	EntryTime  time.Time
	ExitTime   time.Time
}

// OFIStrategy is the order-flow-imbalance tick strategy: it holds at most
// one position at a time, enters on a valid IMBSignal, and exits on a
// staggered take-profit ladder, a fixed stop, or a hold-time timeout.
// Grounded on strategy/h1e_tick/h1e_strategy.py.
type OFIStrategy struct {
	Base

	cfg   OFIConfig
	imb   *IMBCalculator
	ticks *cache.TickCache

	mu             sync.Mutex
	state          OFIPositionState
	position       *ofiPosition
	tickCount      int
	lastSignalTick int
	dailyPnL       float64
	dailyTrades    int
	dailyStopHit   bool
	lastTradeDay   string
	trades         []TradeRecord
}

func NewOFIStrategy(base Base, cfg OFIConfig) *OFIStrategy {
	return &OFIStrategy{
		Base:  base,
		cfg:   cfg,
		imb:   NewIMBCalculator(cfg.IMB),
		ticks: cache.NewTickCache(cache.DefaultTickCapacity),
		state: OFIStateFlat,
	}
}

// OnTick is the strategy's entire decision loop: update counters, roll
// the daily breaker on a new trading day, feed the tick into the IMB
// calculator, then dispatch on the current position state.
func (s *OFIStrategy) OnTick(ctx context.Context, t domain.Tick) {
	if !s.IsRunning() {
		return
	}

	s.mu.Lock()
	s.tickCount++
	s.checkNewDayLocked(t.TradingDay)
	stopped := s.dailyStopHit
	s.mu.Unlock()

	if stopped {
		return
	}

	s.ticks.Push(t)
	signal := s.imb.ProcessTick(t)

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case OFIStateFlat:
		s.handleFlat(ctx, signal, t)
	case OFIStateHolding:
		s.handleHolding(ctx, t)
	}
}

func (s *OFIStrategy) checkNewDayLocked(tradingDay string) {
	if tradingDay == "" {
		return
	}
	if s.lastTradeDay == "" {
		s.lastTradeDay = tradingDay
		return
	}
	if s.lastTradeDay != tradingDay {
		s.dailyPnL = 0
		s.dailyTrades = 0
		s.dailyStopHit = false
		s.lastTradeDay = tradingDay
	}
}

func (s *OFIStrategy) handleFlat(ctx context.Context, signal IMBSignal, t domain.Tick) {
	s.mu.Lock()
	if s.dailyPnL <= s.cfg.DailyStopLossPct {
		s.dailyStopHit = true
		s.mu.Unlock()
		s.Log.Warn().Float64("daily_pnl_pct", s.dailyPnL*100).Msg("daily stop loss hit, trading halted for the session")
		return
	}
	if s.dailyTrades >= s.cfg.MaxDailyTrades {
		s.mu.Unlock()
		return
	}
	if s.tickCount-s.lastSignalTick < s.cfg.SignalCooldownTicks {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if !signal.Valid || signal.MidPrice <= 0 {
		return
	}

	s.enterPosition(ctx, signal)
}

func (s *OFIStrategy) enterPosition(ctx context.Context, signal IMBSignal) {
	price := decimal.NewFromFloat(signal.MidPrice)

	var clOrdID string
	var ok bool
	if signal.Direction == 1 {
		clOrdID, ok = s.BuyOpen(ctx, s.cfg.InstrumentID, price, s.cfg.PositionSize)
	} else {
		clOrdID, ok = s.SellOpen(ctx, s.cfg.InstrumentID, price, s.cfg.PositionSize)
	}
	if !ok {
		return
	}

	s.mu.Lock()
	s.position = &ofiPosition{
		direction:  signal.Direction,
		entryPrice: signal.MidPrice,
		entryTime:  time.Now(),
		entryTick:  s.tickCount,
		entryIMB:   signal.Value,
		entryDepth: signal.TotalDepth,
		clOrdID:    clOrdID,
	}
	s.state = OFIStateHolding
	s.lastSignalTick = s.tickCount
	s.mu.Unlock()

	s.Log.Info().
		Int("direction", signal.Direction).
		Float64("entry_price", signal.MidPrice).
		Float64("imb", signal.Value).
		Int64("depth", signal.TotalDepth).
		Msg("position entered")
}

func (s *OFIStrategy) handleHolding(ctx context.Context, t domain.Tick) {
	s.mu.Lock()
	pos := s.position
	if pos == nil {
		s.state = OFIStateFlat
		s.mu.Unlock()
		return
	}
	pos.holdTicks++
	holdTicks := pos.holdTicks
	lastPrice := t.LastPrice
	direction := pos.direction
	entryPrice := pos.entryPrice
	s.mu.Unlock()

	if lastPrice <= 0 {
		return
	}

	pnlTicks := s.pnlTicks(direction, entryPrice, lastPrice)
	reason := s.checkExitConditions(pnlTicks, holdTicks)
	if reason != "" {
		s.exitPosition(ctx, lastPrice, reason)
	}
}

func (s *OFIStrategy) pnlTicks(direction int, entryPrice, currentPrice float64) float64 {
	tickSize, _ := s.cfg.TickSize.Float64()
	if tickSize == 0 {
		tickSize = 1
	}
	if direction == 1 {
		return (currentPrice - entryPrice) / tickSize
	}
	return (entryPrice - currentPrice) / tickSize
}

func (s *OFIStrategy) checkExitConditions(pnlTicks float64, holdTicks int) string {
	if pnlTicks <= -s.cfg.StopLossTicks {
		return "stop_loss"
	}
	for _, level := range s.cfg.StaggeredTP {
		if holdTicks <= level.MaxHoldTicks && pnlTicks >= level.TargetProfit {
			return "take_profit"
		}
	}
	if holdTicks >= s.cfg.MaxHoldTicks {
		return "timeout_discard"
	}
	return ""
}

func (s *OFIStrategy) exitPosition(ctx context.Context, exitPrice float64, reason string) {
	s.mu.Lock()
	pos := s.position
	if pos == nil {
		s.mu.Unlock()
		return
	}

	if reason == "timeout_discard" {
		s.position = nil
		s.state = OFIStateFlat
		s.mu.Unlock()
		s.Log.Info().Int("hold_ticks", pos.holdTicks).Msg("position discarded on timeout")
		return
	}
	s.mu.Unlock()

	price := decimal.NewFromFloat(exitPrice)
	var ok bool
	if pos.direction == 1 {
		_, ok = s.SellClose(ctx, s.cfg.InstrumentID, price, s.cfg.PositionSize, true)
	} else {
		_, ok = s.BuyClose(ctx, s.cfg.InstrumentID, price, s.cfg.PositionSize, true)
	}
	if !ok {
		s.Log.Error().Str("reason", reason).Msg("exit order failed, position remains open")
		return
	}

	pnlTicks := s.pnlTicks(pos.direction, pos.entryPrice, exitPrice)
	tickSize, _ := s.cfg.TickSize.Float64()
	if tickSize == 0 {
		tickSize = 1
	}
	pnlPct := 0.0
	if pos.entryPrice != 0 {
		pnlPct = pnlTicks * tickSize / pos.entryPrice
	}
	netPnLPct := pnlPct - s.cfg.CommissionRate

	s.mu.Lock()
	s.dailyPnL += netPnLPct
	s.dailyTrades++
	s.trades = append(s.trades, TradeRecord{
		Direction:  pos.direction,
		EntryPrice: pos.entryPrice,
		ExitPrice:  exitPrice,
		EntryIMB:   pos.entryIMB,
		EntryDepth: pos.entryDepth,
		HoldTicks:  pos.holdTicks,
		PnLTicks:   pnlTicks,
		NetPnLPct:  netPnLPct,
		ExitReason: reason,
		EntryTime:  pos.entryTime,
		ExitTime:   time.Now(),
	})
	s.position = nil
	s.state = OFIStateFlat
	s.mu.Unlock()

	s.Log.Info().
		Str("reason", reason).
		Float64("pnl_ticks", pnlTicks).
		Float64("net_pnl_pct", netPnLPct*100).
		Int("daily_trades", s.dailyTrades).
		Msg("position exited")
}

func (s *OFIStrategy) DailyStats() (trades int, pnlPct float64, stopHit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyTrades, s.dailyPnL, s.dailyStopHit
}

func (s *OFIStrategy) Trades() []TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TradeRecord(nil), s.trades...)
}
