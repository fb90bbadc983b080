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

// Predictor is the injected model call: given the scaled feature
// sequence matrix, return a probability in [0, 1] that price rises over
// the next bar. The strategy does not care whether this is backed by a
// trained model or a stand-in heuristic.
type Predictor func(matrix [][]float64) float64

// StagedConfig is the staged-position bar strategy's tunables. Grounded
// on strategy/lstm_l2/lstm_strategy.py's LSTMConfig.
type StagedConfig struct {
	InstrumentID   string
	OrderSize      int
	Position       PositionConfig
	SequenceLength int
	MinBarsReady   int
	CommissionRate float64
}

func DefaultStagedConfig(instrumentID string) StagedConfig {
	return StagedConfig{
		InstrumentID:   instrumentID,
		OrderSize:      1,
		Position:       DefaultPositionConfig(),
		SequenceLength: cache.DefaultSequenceLength,
		MinBarsReady:   15,
		CommissionRate: 0.00005,
	}
}

// StagedTrade is one completed staged-position round trip, richer than
// the OFI strategy's TradeRecord since it carries the entry model
// signal and RSI alongside pnl.
type StagedTrade struct {
	Direction  int
	EntryPrice float64
	ExitPrice  float64
	EntryProb  float64
	EntryRSI   float64
	HoldBars   int
	PeakProfit float64
	PnLPct     float64
	NetPnLPct  float64
	ExitReason string
	EntryTime  time.Time
	ExitTime   time.Time
}

// StagedStrategy is the bar-tier strategy: on every completed one-minute
// bar it recomputes the 28-feature vector, pushes it into a rolling
// sequence, and once the sequence fills calls the injected Predictor to
// get a probability used to drive the probe/full/trail position ladder.
// Grounded on strategy/lstm_l2/lstm_strategy.py.
type StagedStrategy struct {
	Base

	cfg       StagedConfig
	predict   Predictor
	barAgg    *cache.BarAggregator
	bars      *cache.BarBuffer
	depth     *cache.DepthBuffer
	features  *FeatureEngine
	seqCache  *cache.FeatureSequenceCache
	positions *PositionManager

	mu           sync.Mutex
	barCount     int
	lastProb     float64
	lastRSI      float64
	dailyPnL     float64
	dailyTrades  int
	lastTradeDay string
	trades       []StagedTrade
}

func NewStagedStrategy(base Base, cfg StagedConfig, predict Predictor) *StagedStrategy {
	s := &StagedStrategy{
		Base:      base,
		cfg:       cfg,
		predict:   predict,
		bars:      cache.NewBarBuffer(cache.DefaultBarCapacity),
		depth:     cache.NewDepthBuffer(cache.DefaultDepthHistory),
		seqCache:  cache.NewFeatureSequenceCache(FeatureNames, cfg.SequenceLength),
		positions: NewPositionManager(cfg.Position),
		lastRSI:   50.0,
		lastProb:  0.5,
	}
	s.features = NewFeatureEngine(s.bars, s.depth)
	s.barAgg = cache.NewBarAggregator(s.onBarCompleted)
	return s
}

// OnTick feeds the raw tick into the depth buffer (for the iceberg/
// large-order features) and the bar aggregator; bar completion drives
// the rest of the decision loop via onBarCompleted. Between bars, an
// open position is marked to market on every tick so stops/targets can
// fire intra-bar rather than only at the close.
func (s *StagedStrategy) OnTick(ctx context.Context, t domain.Tick) {
	if !s.IsRunning() {
		return
	}

	s.checkNewTradingDay(t.TradingDay)

	s.depth.Push(domain.DepthSnapshot{
		Timestamp:  t.ExchangeTime,
		BidPrices:  []float64{t.BidPrice1},
		BidVolumes: []int64{t.BidVolume1},
		AskPrices:  []float64{t.AskPrice1},
		AskVolumes: []int64{t.AskVolume1},
	})

	s.barAgg.OnTick(t)

	s.mu.Lock()
	holding := s.positions.HasPosition()
	s.mu.Unlock()

	if holding && t.LastPrice > 0 {
		s.checkPositionUpdate(ctx, t.LastPrice)
	}
}

func (s *StagedStrategy) checkNewTradingDay(tradingDay string) {
	if tradingDay == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastTradeDay == "" {
		s.lastTradeDay = tradingDay
		return
	}
	if s.lastTradeDay != tradingDay {
		s.dailyPnL = 0
		s.dailyTrades = 0
		s.lastTradeDay = tradingDay
	}
}

func (s *StagedStrategy) onBarCompleted(bar domain.Bar) {
	if !s.IsRunning() {
		return
	}

	s.mu.Lock()
	s.barCount++
	s.bars.Push(bar)
	s.mu.Unlock()

	if !s.features.Ready(s.cfg.MinBarsReady) {
		return
	}

	featureMap := s.features.Calculate()
	s.seqCache.Push(featureMap)

	s.mu.Lock()
	s.lastRSI = featureMap["rsi_14"]
	ready := s.seqCache.Ready()
	s.mu.Unlock()

	if ready {
		s.runPrediction(bar)
	}
}

func (s *StagedStrategy) runPrediction(bar domain.Bar) {
	matrix := s.seqCache.GetScaledMatrix()
	prob := 0.5
	if s.predict != nil {
		prob = s.predict(matrix)
	}

	s.mu.Lock()
	s.lastProb = prob
	rsi := s.lastRSI
	signal := s.positions.CheckEntrySignal(prob, rsi)
	flat := s.positions.IsFlat()
	barCount := s.barCount
	s.mu.Unlock()

	if signal != 0 && flat {
		s.enterPosition(signal, bar.Close, prob, rsi, barCount)
	}
}

func (s *StagedStrategy) enterPosition(direction int, price, prob, rsi float64, barSeq int) {
	s.mu.Lock()
	ok := s.positions.EnterPosition(direction, price, prob, rsi, barSeq)
	s.mu.Unlock()
	if !ok {
		return
	}

	s.sendEntryOrder(direction, price)

	s.Log.Info().
		Int("direction", direction).
		Float64("entry_price", price).
		Float64("prob", prob).
		Float64("rsi", rsi).
		Msg("staged position entered")
}

func (s *StagedStrategy) sendEntryOrder(direction int, price float64) {
	volume := s.scaledVolume(s.cfg.Position.ProbeSize)
	priceD := decimal.NewFromFloat(price)
	ctx := context.Background()
	if direction == 1 {
		s.BuyOpen(ctx, s.cfg.InstrumentID, priceD, volume)
	} else {
		s.SellOpen(ctx, s.cfg.InstrumentID, priceD, volume)
	}
}

func (s *StagedStrategy) scaledVolume(fraction float64) int {
	volume := int(float64(s.cfg.OrderSize) * fraction)
	if volume < 1 {
		volume = 1
	}
	return volume
}

func (s *StagedStrategy) checkPositionUpdate(ctx context.Context, currentPrice float64) {
	s.mu.Lock()
	pendingSignal := 0
	if s.seqCache.Ready() {
		pendingSignal = s.positions.CheckEntrySignal(s.lastProb, s.lastRSI)
		if pos := s.positions.Position(); pos != nil && pendingSignal == pos.Direction {
			pendingSignal = 0
		}
	}
	shouldExit, reason, pnlPct := s.positions.Update(currentPrice, pendingSignal)
	state := s.positions.State()
	s.mu.Unlock()

	switch state {
	case StagedFull:
		s.Log.Debug().Float64("pnl_pct", pnlPct*100).Msg("probe upgraded to full")
	case StagedTrail:
		s.Log.Debug().Float64("pnl_pct", pnlPct*100).Msg("full upgraded to trail")
	}

	if shouldExit {
		s.exitPosition(ctx, currentPrice, reason, pnlPct)
	}
}

func (s *StagedStrategy) exitPosition(ctx context.Context, exitPrice float64, reason string, pnlPct float64) {
	s.mu.Lock()
	position := s.positions.ExitPosition()
	s.mu.Unlock()
	if position == nil {
		return
	}

	netPnLPct := pnlPct - s.cfg.CommissionRate*2

	volume := s.scaledVolume(position.CurrentSize)
	priceD := decimal.NewFromFloat(exitPrice)
	if position.Direction == 1 {
		s.SellClose(ctx, s.cfg.InstrumentID, priceD, volume, true)
	} else {
		s.BuyClose(ctx, s.cfg.InstrumentID, priceD, volume, true)
	}

	s.mu.Lock()
	s.dailyPnL += netPnLPct
	s.dailyTrades++
	s.trades = append(s.trades, StagedTrade{
		Direction:  position.Direction,
		EntryPrice: position.EntryPrice,
		ExitPrice:  exitPrice,
		EntryProb:  position.EntryProb,
		EntryRSI:   position.EntryRSI,
		HoldBars:   position.HoldBars,
		PeakProfit: position.PeakProfit,
		PnLPct:     pnlPct,
		NetPnLPct:  netPnLPct,
		ExitReason: reason,
		EntryTime:  position.EntryTime,
		ExitTime:   time.Now(),
	})
	s.mu.Unlock()

	s.Log.Info().
		Str("reason", reason).
		Float64("pnl_pct", pnlPct*100).
		Float64("net_pnl_pct", netPnLPct*100).
		Msg("staged position exited")
}

func (s *StagedStrategy) DailyStats() (trades int, pnlPct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyTrades, s.dailyPnL
}

func (s *StagedStrategy) Trades() []StagedTrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StagedTrade(nil), s.trades...)
}

func (s *StagedStrategy) Status() (StagedState, *StagedPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions.State(), s.positions.Position()
}
