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
	"math"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// IMBSignal is one tick's order-flow-imbalance reading.
type IMBSignal struct {
	Value      float64
	TotalDepth int64
	Volatility float64
	Direction  int // 1 long, -1 short, 0 none
	Valid      bool
	MidPrice   float64
	BidPrice   float64
	AskPrice   float64
}

// IMBConfig tunes the signal thresholds. Defaults match the source
// strategy's production configuration.
type IMBConfig struct {
	Threshold        float64
	MinDepth         int64
	MaxVolatility    float64
	VolatilityWindow int
}

func DefaultIMBConfig() IMBConfig {
	return IMBConfig{
		Threshold:        0.8,
		MinDepth:         1500,
		MaxVolatility:    0.00015,
		VolatilityWindow: 20,
	}
}

// IMBCalculator computes the order-flow-imbalance signal
// (BidVolume-AskVolume)/(BidVolume+AskVolume+1) per tick, and tracks a
// rolling price-return volatility and a short IMB moving average.
// Grounded on strategy/h1e_tick/imb_calculator.py.
type IMBCalculator struct {
	cfg IMBConfig

	priceBuf []float64 // ring, cap VolatilityWindow
	imbBuf   []float64 // ring, cap 10
}

func NewIMBCalculator(cfg IMBConfig) *IMBCalculator {
	return &IMBCalculator{cfg: cfg}
}

func (c *IMBCalculator) pushPrice(price float64) {
	c.priceBuf = append(c.priceBuf, price)
	if len(c.priceBuf) > c.cfg.VolatilityWindow {
		c.priceBuf = c.priceBuf[len(c.priceBuf)-c.cfg.VolatilityWindow:]
	}
}

func (c *IMBCalculator) pushIMB(v float64) {
	c.imbBuf = append(c.imbBuf, v)
	if len(c.imbBuf) > 10 {
		c.imbBuf = c.imbBuf[len(c.imbBuf)-10:]
	}
}

// Volatility returns the standard deviation of single-step returns over
// the rolling price window.
func (c *IMBCalculator) Volatility() float64 {
	if len(c.priceBuf) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(c.priceBuf)-1)
	for i := 1; i < len(c.priceBuf); i++ {
		prev := c.priceBuf[i-1]
		if prev == 0 {
			continue
		}
		returns = append(returns, (c.priceBuf[i]-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// ProcessTick computes this tick's IMB signal and updates internal
// rolling state.
func (c *IMBCalculator) ProcessTick(t domain.Tick) IMBSignal {
	if t.LastPrice > 0 {
		c.pushPrice(t.LastPrice)
	}

	bidVol := float64(t.BidVolume1)
	askVol := float64(t.AskVolume1)
	imbValue := (bidVol - askVol) / (bidVol + askVol + 1)
	c.pushIMB(imbValue)

	totalDepth := t.BidVolume1 + t.AskVolume1
	volatility := c.Volatility()

	midPrice := t.LastPrice
	if t.BidPrice1 > 0 && t.AskPrice1 > 0 {
		midPrice = (t.BidPrice1 + t.AskPrice1) / 2
	}

	valid := c.signalValid(imbValue, totalDepth, volatility)
	direction := 0
	if valid {
		if imbValue > 0 {
			direction = 1
		} else {
			direction = -1
		}
	}

	return IMBSignal{
		Value:      imbValue,
		TotalDepth: totalDepth,
		Volatility: volatility,
		Direction:  direction,
		Valid:      valid,
		MidPrice:   midPrice,
		BidPrice:   t.BidPrice1,
		AskPrice:   t.AskPrice1,
	}
}

func (c *IMBCalculator) signalValid(imb float64, depth int64, volatility float64) bool {
	if math.Abs(imb) <= c.cfg.Threshold {
		return false
	}
	if depth < c.cfg.MinDepth {
		return false
	}
	if volatility >= c.cfg.MaxVolatility {
		return false
	}
	return true
}

// MovingAverage returns the mean IMB value over the last `period` ticks
// (0 until that many readings have accumulated).
func (c *IMBCalculator) MovingAverage(period int) float64 {
	if len(c.imbBuf) < period {
		return 0
	}
	window := c.imbBuf[len(c.imbBuf)-period:]
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(period)
}

// SignalStrength labels |imb| into the strong/medium/weak bands the
// source uses for trade-context logging.
func SignalStrength(imb float64) string {
	abs := math.Abs(imb)
	switch {
	case abs >= 0.95:
		return "strong"
	case abs >= 0.9:
		return "medium"
	default:
		return "weak"
	}
}

func (c *IMBCalculator) Reset() {
	c.priceBuf = nil
	c.imbBuf = nil
}
