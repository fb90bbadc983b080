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

	"github.com/ByteBard/prime-ctp-go/cache"
)

// FeatureNames is the fixed column ordering the staged-position strategy's
// feature sequence cache is keyed on: 10 base OHLCV/return/RSI/volume-ratio
// features, 7 iceberg features, 4 large-order features, and 7 volatility
// features, for 28 columns total.
var FeatureNames = []string{
	"open", "high", "low", "close", "volume",
	"return_1", "return_5", "return_10",
	"rsi_14", "volume_ratio",

	"bid_iceberg_events", "ask_iceberg_events",
	"bid_iceberg", "ask_iceberg",
	"iceberg_imbalance",
	"bid_iceberg_strength", "ask_iceberg_strength",

	"large_buy_count", "large_sell_count",
	"large_order_ratio", "large_order_imbalance",

	"volatility_5", "volatility_15", "volatility_30",
	"volatility_ratio", "price_range_5", "price_range_15", "return_abs",
}

// FeatureEngine computes the staged-position strategy's per-bar feature
// vector from a bar buffer and depth buffer: 10 base OHLCV/return/RSI/
// volume-ratio features, 7 iceberg features, 4 large-order features, and
// 7 volatility features derived from the bar close series. Grounded on
// strategy/lstm_l2/feature_engine.py.
type FeatureEngine struct {
	bars  *cache.BarBuffer
	depth *cache.DepthBuffer
}

func NewFeatureEngine(bars *cache.BarBuffer, depth *cache.DepthBuffer) *FeatureEngine {
	return &FeatureEngine{bars: bars, depth: depth}
}

// Ready reports whether enough bars have accumulated to compute a
// meaningful feature vector (the strategy still computes one below this
// threshold, with short-window features defaulted per spec).
func (e *FeatureEngine) Ready(minBars int) bool {
	return e.bars.Ready(minBars)
}

// Calculate produces the full named feature map for the most recently
// completed bar.
func (e *FeatureEngine) Calculate() map[string]float64 {
	closes := e.bars.Closes()
	highs := e.bars.Highs()
	lows := e.bars.Lows()
	volumes := e.bars.Volumes()

	features := e.emptyDefaults()
	if len(closes) == 0 {
		return e.emptyDefaults()
	}

	last := len(closes) - 1
	features["open"] = e.bars.Bars()[last].Open
	features["high"] = highs[last]
	features["low"] = lows[last]
	features["close"] = closes[last]
	features["volume"] = volumes[last]

	features["return_1"] = ret(closes, 1)
	features["return_5"] = ret(closes, 5)
	features["return_10"] = ret(closes, 10)
	features["rsi_14"] = rsi(closes, 14)

	if len(volumes) >= 20 {
		avg := mean(volumes[len(volumes)-20:])
		if avg > 0 {
			features["volume_ratio"] = volumes[last] / avg
		} else {
			features["volume_ratio"] = 1.0
		}
	} else {
		features["volume_ratio"] = 1.0
	}

	depthFeatures := e.depth.Features()
	features["bid_iceberg_events"] = float64(depthFeatures.BidIcebergEvents)
	features["ask_iceberg_events"] = float64(depthFeatures.AskIcebergEvents)
	features["bid_iceberg"] = boolToFloat(depthFeatures.BidIceberg)
	features["ask_iceberg"] = boolToFloat(depthFeatures.AskIceberg)
	features["iceberg_imbalance"] = depthFeatures.Imbalance
	features["bid_iceberg_strength"] = depthFeatures.BidIcebergStrength
	features["ask_iceberg_strength"] = depthFeatures.AskIcebergStrength

	largeBuy := boolToFloat(depthFeatures.BidLargeOrder)
	largeSell := boolToFloat(depthFeatures.AskLargeOrder)
	features["large_buy_count"] = largeBuy
	features["large_sell_count"] = largeSell
	if total := largeBuy + largeSell; total > 0 {
		features["large_order_ratio"] = total / 2
		features["large_order_imbalance"] = (largeBuy - largeSell) / total
	}

	vol5 := windowedVolatility(closes, 5)
	vol15 := windowedVolatility(closes, 15)
	features["volatility_5"] = vol5
	features["volatility_15"] = vol15
	features["volatility_30"] = windowedVolatility(closes, 30)
	if vol15 > 0 {
		features["volatility_ratio"] = vol5 / vol15
	} else {
		features["volatility_ratio"] = 1.0
	}
	features["price_range_5"] = priceRange(highs, lows, closes[last], 5)
	features["price_range_15"] = priceRange(highs, lows, closes[last], 15)
	features["return_abs"] = math.Abs(features["return_1"])

	return features
}

func (e *FeatureEngine) emptyDefaults() map[string]float64 {
	defaults := make(map[string]float64, len(FeatureNames))
	for _, name := range FeatureNames {
		defaults[name] = 0
	}
	defaults["rsi_14"] = 50.0
	defaults["volume_ratio"] = 1.0
	defaults["volatility_ratio"] = 1.0
	return defaults
}

func ret(closes []float64, lag int) float64 {
	if len(closes) <= lag {
		return 0
	}
	prev := closes[len(closes)-1-lag]
	if prev == 0 {
		return 0
	}
	return (closes[len(closes)-1] - prev) / prev
}

func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50.0
	}
	window := closes[len(closes)-period-1:]
	var gainSum, lossSum float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func windowedVolatility(closes []float64, window int) float64 {
	if len(closes) < window+1 {
		return 0
	}
	tail := closes[len(closes)-window-1:]
	returns := make([]float64, 0, window)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			continue
		}
		returns = append(returns, (tail[i]-tail[i-1])/tail[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	m := mean(returns)
	return math.Sqrt(variance(returns, m))
}

// priceRange is the high-low range over the last window bars, normalized
// by the latest close.
func priceRange(highs, lows []float64, lastClose float64, window int) float64 {
	if len(highs) < window || lastClose <= 0 {
		return 0
	}
	h := highs[len(highs)-window:]
	l := lows[len(lows)-window:]
	return (maxOf(h) - minOf(l)) / lastClose
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
