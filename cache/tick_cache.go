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

// Package cache holds the fixed-capacity, per-instrument ring buffers that
// make up the data plane: a tick cache with feature extraction, a minute
// bar aggregator plus bar buffer, a depth buffer with iceberg/large-order
// heuristics, and a feature sequence cache. Grounded on
// data/tick_cache.py, data/bar_aggregator.py, data/l2_depth_buffer.py and
// data/feature_sequence_cache.py, reusing the ring-buffer idiom from
// fixclient/tradestore.go (fixed-size slice, head index, count, O(1)
// insert, no per-tick allocation).
package cache

import (
	"math"
	"sync"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// DefaultTickCapacity matches the original's deque(maxlen=120), roughly
// sixty seconds of market data at a 500ms tick cadence.
const DefaultTickCapacity = 120

// TickCache is a per-instrument ring buffer of recent ticks with a pure
// feature-extraction method over the current window.
type TickCache struct {
	mu       sync.RWMutex
	capacity int
	buf      []domain.Tick
	head     int
	count    int
}

func NewTickCache(capacity int) *TickCache {
	if capacity <= 0 {
		capacity = DefaultTickCapacity
	}
	return &TickCache{capacity: capacity, buf: make([]domain.Tick, capacity)}
}

// Push appends a tick, evicting the oldest once the buffer is full.
func (c *TickCache) Push(t domain.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := (c.head + c.count) % c.capacity
	c.buf[idx] = t
	if c.count < c.capacity {
		c.count++
	} else {
		c.head = (c.head + 1) % c.capacity
	}
}

func (c *TickCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Ready reports whether the cache holds a full window.
func (c *TickCache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count >= c.capacity
}

// Ticks returns the buffered ticks in chronological order.
func (c *TickCache) Ticks() []domain.Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Tick, c.count)
	for i := 0; i < c.count; i++ {
		out[i] = c.buf[(c.head+i)%c.capacity]
	}
	return out
}

func (c *TickCache) Latest() (domain.Tick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.count == 0 {
		return domain.Tick{}, false
	}
	return c.buf[(c.head+c.count-1)%c.capacity], true
}

func (c *TickCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head, c.count = 0, 0
}

// FeatureNames is the fixed, ordered list of scalar features
// ExtractFeatures produces — the same order Feature Sequence Cache uses to
// map a named feature map into a dense vector.
var FeatureNames = []string{
	"price_open", "price_high", "price_low", "price_close", "price_mean", "price_std",
	"price_range", "price_range_pct", "return_total", "return_mean", "return_std",
	"return_skew", "return_kurt", "volume_sum", "volume_mean", "volume_std", "volume_max",
	"vwap", "vwap_distance", "volume_trend", "volume_acceleration", "imb_mean", "imb_last",
	"imb_std", "imb_max", "imb_min", "imb_range", "depth_total", "depth_bid", "depth_ask",
	"depth_ratio", "bid_pressure", "ask_pressure", "pressure_ratio", "spread_mean",
	"spread_std", "spread_max", "spread_min", "mid_price", "mid_price_std", "price_vs_mid",
	"liquidity_bid", "liquidity_ask", "liquidity_total", "tick_direction_ratio",
	"net_tick_direction", "buy_volume_est", "sell_volume_est", "net_volume",
	"order_flow_intensity", "order_flow_imbalance", "large_order_count", "large_order_volume",
	"price_autocorr_1", "price_autocorr_5", "volume_autocorr_1", "price_trend",
	"volume_trend_slope", "momentum_5", "momentum_10", "momentum_20", "mean_reversion_signal",
	"tick_count", "zero_return_ratio", "positive_return_ratio",
}

// ExtractFeatures computes the full named feature set over the current
// window. Returns zero-filled features when the cache is not yet full;
// every computation tolerates a short or degenerate window rather than
// raising.
func (c *TickCache) ExtractFeatures() map[string]float64 {
	if !c.Ready() {
		return emptyFeatures()
	}
	ticks := c.Ticks()

	n := len(ticks)
	prices := make([]float64, n)
	volumes := make([]float64, n)
	bidVols := make([]float64, n)
	askVols := make([]float64, n)
	bidPrices := make([]float64, n)
	askPrices := make([]float64, n)
	for i, t := range ticks {
		prices[i] = t.LastPrice
		volumes[i] = float64(t.Volume)
		bidVols[i] = float64(t.BidVolume1)
		askVols[i] = float64(t.AskVolume1)
		bidPrices[i] = t.BidPrice1
		askPrices[i] = t.AskPrice1
	}

	f := emptyFeatures()

	// A. price features
	f["price_open"] = prices[0]
	f["price_high"] = maxOf(prices)
	f["price_low"] = minOf(prices)
	f["price_close"] = prices[n-1]
	f["price_mean"] = mean(prices)
	f["price_std"] = stddev(prices, f["price_mean"])
	f["price_range"] = f["price_high"] - f["price_low"]
	if f["price_mean"] > 0 {
		f["price_range_pct"] = f["price_range"] / f["price_mean"]
	}

	returns := pctChanges(prices)
	if prices[0] > 0 {
		f["return_total"] = (prices[n-1] - prices[0]) / prices[0]
	}
	retMean := mean(returns)
	f["return_mean"] = retMean
	retStd := stddev(returns, retMean)
	f["return_std"] = retStd
	if len(returns) > 2 {
		f["return_skew"] = skewness(returns, retMean, retStd)
	}
	if len(returns) > 3 {
		f["return_kurt"] = kurtosis(returns, retMean, retStd)
	}

	// B. volume features (diffs of cumulative session volume)
	volDiffs := diffs(volumes)
	f["volume_sum"] = sum(volDiffs)
	volMean := mean(volDiffs)
	f["volume_mean"] = volMean
	f["volume_std"] = stddev(volDiffs, volMean)
	f["volume_max"] = maxOf(volDiffs)

	if f["volume_sum"] > 0 && len(volDiffs) == n-1 {
		weighted := 0.0
		for i, v := range volDiffs {
			weighted += prices[i] * v
		}
		f["vwap"] = weighted / f["volume_sum"]
	} else {
		f["vwap"] = prices[n-1]
	}
	if f["vwap"] > 0 {
		f["vwap_distance"] = (f["price_close"] - f["vwap"]) / f["vwap"]
	}
	if len(volDiffs) >= 20 {
		f["volume_trend"] = mean(volDiffs[len(volDiffs)-10:]) - mean(volDiffs[:10])
	}
	if len(volDiffs) >= 11 {
		tail := volDiffs[len(volDiffs)-10:]
		f["volume_acceleration"] = mean(diffs(tail))
	}

	// C. L2-ish depth features derived from best bid/ask on the tick
	totalBid := sum(bidVols)
	totalAsk := sum(askVols)
	f["imb_mean"] = (totalBid - totalAsk) / (totalBid + totalAsk + 1)
	f["imb_last"] = (bidVols[n-1] - askVols[n-1]) / (bidVols[n-1] + askVols[n-1] + 1)

	imbSeries := make([]float64, n)
	for i := range imbSeries {
		imbSeries[i] = (bidVols[i] - askVols[i]) / (bidVols[i] + askVols[i] + 1)
	}
	imbMean := mean(imbSeries)
	f["imb_std"] = stddev(imbSeries, imbMean)
	f["imb_max"] = maxOf(imbSeries)
	f["imb_min"] = minOf(imbSeries)
	f["imb_range"] = f["imb_max"] - f["imb_min"]

	f["depth_total"] = totalBid + totalAsk
	f["depth_bid"] = totalBid
	f["depth_ask"] = totalAsk
	f["depth_ratio"] = totalBid / (totalAsk + 1)

	tailN := 10
	if tailN > n {
		tailN = n
	}
	f["bid_pressure"] = mean(bidVols[n-tailN:])
	f["ask_pressure"] = mean(askVols[n-tailN:])
	f["pressure_ratio"] = f["bid_pressure"] / (f["ask_pressure"] + 1)

	spreads := make([]float64, n)
	mids := make([]float64, n)
	for i := range spreads {
		spreads[i] = askPrices[i] - bidPrices[i]
		mids[i] = (bidPrices[i] + askPrices[i]) / 2
	}
	f["spread_mean"] = mean(spreads)
	f["spread_std"] = stddev(spreads, f["spread_mean"])
	f["spread_max"] = maxOf(spreads)
	f["spread_min"] = minOf(spreads)

	f["mid_price"] = mids[n-1]
	f["mid_price_std"] = stddev(mids, mean(mids))
	if mids[n-1] > 0 {
		f["price_vs_mid"] = (prices[n-1] - mids[n-1]) / mids[n-1]
	}

	liqBid := 0.0
	liqAsk := 0.0
	for i := range bidVols {
		liqBid += bidVols[i] * bidPrices[i]
		liqAsk += askVols[i] * askPrices[i]
	}
	f["liquidity_bid"] = liqBid / float64(n)
	f["liquidity_ask"] = liqAsk / float64(n)
	f["liquidity_total"] = f["liquidity_bid"] + f["liquidity_ask"]

	// D. order-flow features via the tick rule
	priceChanges := make([]float64, n-1)
	for i := 1; i < n; i++ {
		priceChanges[i-1] = prices[i] - prices[i-1]
	}
	upTicks, downTicks := 0.0, 0.0
	for _, d := range priceChanges {
		if d > 0 {
			upTicks++
		} else if d < 0 {
			downTicks++
		}
	}
	f["tick_direction_ratio"] = upTicks / (downTicks + 1)
	f["net_tick_direction"] = upTicks - downTicks

	if len(volDiffs) == len(priceChanges) {
		buyVol, sellVol := 0.0, 0.0
		for i, d := range priceChanges {
			if d > 0 {
				buyVol += volDiffs[i]
			} else if d < 0 {
				sellVol += volDiffs[i]
			}
		}
		f["buy_volume_est"] = buyVol
		f["sell_volume_est"] = sellVol
		f["net_volume"] = buyVol - sellVol
	}
	f["order_flow_intensity"] = f["volume_sum"] / float64(c.capacity+1)
	f["order_flow_imbalance"] = f["net_volume"] / (f["volume_sum"] + 1)

	volThreshold := volMean * 3
	if volMean <= 0 {
		volThreshold = 100
	}
	largeCount, largeVol := 0.0, 0.0
	for _, v := range volDiffs {
		if v > volThreshold {
			largeCount++
			largeVol += v
		}
	}
	f["large_order_count"] = largeCount
	f["large_order_volume"] = largeVol

	// E. time-series features
	f["price_autocorr_1"] = autocorr(prices, 1)
	f["price_autocorr_5"] = autocorr(prices, 5)
	if len(volDiffs) > 1 {
		f["volume_autocorr_1"] = autocorr(volDiffs, 1)
	}

	if n > 1 {
		f["price_trend"] = slope(prices)
	}
	if len(volDiffs) > 1 {
		f["volume_trend_slope"] = slope(volDiffs)
	}

	if n >= 5 {
		f["momentum_5"] = prices[n-1] - prices[n-5]
	}
	if n >= 10 {
		f["momentum_10"] = prices[n-1] - prices[n-10]
	}
	if n >= 20 {
		f["momentum_20"] = prices[n-1] - prices[n-20]
	}

	f["mean_reversion_signal"] = (f["price_close"] - f["price_mean"]) / (f["price_std"] + 0.0001)

	f["tick_count"] = float64(n)
	if len(returns) > 0 {
		zero, positive := 0.0, 0.0
		for _, r := range returns {
			if r == 0 {
				zero++
			} else if r > 0 {
				positive++
			}
		}
		f["zero_return_ratio"] = zero / float64(len(returns))
		f["positive_return_ratio"] = positive / float64(len(returns))
	}

	return f
}

func emptyFeatures() map[string]float64 {
	f := make(map[string]float64, len(FeatureNames))
	for _, name := range FeatureNames {
		f[name] = 0.0
	}
	return f
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var acc float64
	for _, x := range xs {
		acc += (x - m) * (x - m)
	}
	return math.Sqrt(acc / float64(len(xs)))
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func diffs(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		d := xs[i] - xs[i-1]
		if d < 0 {
			d = 0 // mirrors max(0, cumulative-last) semantics for volume-style series
		}
		out[i-1] = d
	}
	return out
}

func pctChanges(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return out
}

func skewness(xs []float64, m, std float64) float64 {
	if len(xs) < 3 || std == 0 {
		return 0
	}
	var acc float64
	for _, x := range xs {
		z := (x - m) / std
		acc += z * z * z
	}
	return acc / float64(len(xs))
}

func kurtosis(xs []float64, m, std float64) float64 {
	if len(xs) < 4 || std == 0 {
		return 0
	}
	var acc float64
	for _, x := range xs {
		z := (x - m) / std
		acc += z * z * z * z
	}
	return acc/float64(len(xs)) - 3
}

func autocorr(xs []float64, lag int) float64 {
	if len(xs) <= lag {
		return 0
	}
	a := xs[:len(xs)-lag]
	b := xs[lag:]
	ma, mb := mean(a), mean(b)
	var cov, va, vb float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}

// slope is the least-squares linear regression slope against index 0..n-1,
// equivalent to numpy.polyfit(range(n), xs, 1)[0].
func slope(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	var sx, sy, sxy, sxx float64
	for i, x := range xs {
		idx := float64(i)
		sx += idx
		sy += x
		sxy += idx * x
		sxx += idx * idx
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / denom
}
