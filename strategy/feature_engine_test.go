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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/cache"
	"github.com/ByteBard/prime-ctp-go/domain"
)

func TestFeatureEngine_EmptyDefaultsBeforeAnyBar(t *testing.T) {
	bars := cache.NewBarBuffer(50)
	depth := cache.NewDepthBuffer(0)
	e := NewFeatureEngine(bars, depth)

	features := e.Calculate()
	assert.Equal(t, 50.0, features["rsi_14"])
	assert.Equal(t, 1.0, features["volume_ratio"])
	assert.Equal(t, 0.0, features["return_1"])
}

func TestFeatureEngine_ReadyReflectsBarBufferThreshold(t *testing.T) {
	bars := cache.NewBarBuffer(50)
	depth := cache.NewDepthBuffer(0)
	e := NewFeatureEngine(bars, depth)

	assert.False(t, e.Ready(5))
	for i := 0; i < 5; i++ {
		bars.Push(domain.Bar{Close: 100 + float64(i)})
	}
	assert.True(t, e.Ready(5))
}

func TestFeatureEngine_Calculate_PopulatesOHLCVAndReturns(t *testing.T) {
	bars := cache.NewBarBuffer(50)
	depth := cache.NewDepthBuffer(0)
	e := NewFeatureEngine(bars, depth)

	now := time.Unix(0, 0)
	for i := 0; i < 12; i++ {
		close := 100.0 + float64(i)
		bars.Push(domain.Bar{
			Datetime: now.Add(time.Duration(i) * time.Minute),
			Open:     close - 0.5,
			High:     close + 0.5,
			Low:      close - 1,
			Close:    close,
			Volume:   int64(1000 + i*10),
		})
	}

	features := e.Calculate()
	assert.Equal(t, 111.0, features["close"])
	assert.InDelta(t, (111.0-110.0)/110.0, features["return_1"], 1e-9)
	assert.Greater(t, features["rsi_14"], 0.0)
}

func TestFeatureEngine_Calculate_IncludesIcebergFeatures(t *testing.T) {
	bars := cache.NewBarBuffer(50)
	depth := cache.NewDepthBuffer(0)
	e := NewFeatureEngine(bars, depth)
	bars.Push(domain.Bar{Close: 100})

	depth.Push(domain.DepthSnapshot{
		BidPrices: []float64{99.8}, BidVolumes: []int64{50000},
		AskPrices: []float64{100.2}, AskVolumes: []int64{10},
	})

	features := e.Calculate()
	require.Contains(t, features, "iceberg_imbalance")
	assert.NotEqual(t, 0.0, features["iceberg_imbalance"])
}

func TestFeatureEngine_Calculate_CoversEveryNamedFeature(t *testing.T) {
	bars := cache.NewBarBuffer(50)
	depth := cache.NewDepthBuffer(0)
	e := NewFeatureEngine(bars, depth)
	bars.Push(domain.Bar{Close: 100})
	depth.Push(domain.DepthSnapshot{
		BidPrices: []float64{99.8}, BidVolumes: []int64{100},
		AskPrices: []float64{100.2}, AskVolumes: []int64{100},
	})

	features := e.Calculate()
	assert.Len(t, features, len(FeatureNames))
	for _, name := range FeatureNames {
		_, ok := features[name]
		assert.True(t, ok, "missing feature %s", name)
	}
}

func TestFeatureEngine_Calculate_WiresLargeOrderHeuristicIntoFeatureColumns(t *testing.T) {
	bars := cache.NewBarBuffer(50)
	depth := cache.NewDepthBuffer(25)
	e := NewFeatureEngine(bars, depth)
	bars.Push(domain.Bar{Close: 100})

	for i := 0; i < 20; i++ {
		depth.Push(domain.DepthSnapshot{
			BidPrices: []float64{99.8}, BidVolumes: []int64{100},
			AskPrices: []float64{100.2}, AskVolumes: []int64{100},
		})
	}
	depth.Push(domain.DepthSnapshot{
		BidPrices: []float64{99.8}, BidVolumes: []int64{500},
		AskPrices: []float64{100.2}, AskVolumes: []int64{100},
	})

	features := e.Calculate()
	assert.Equal(t, 1.0, features["large_buy_count"], "bid-side large-order spike should count as a large buy")
	assert.Equal(t, 0.0, features["large_sell_count"])
	assert.Equal(t, 0.5, features["large_order_ratio"])
	assert.Equal(t, 1.0, features["large_order_imbalance"])
}

func TestFeatureEngine_Calculate_VolatilityAndPriceRangeFeatures(t *testing.T) {
	bars := cache.NewBarBuffer(50)
	depth := cache.NewDepthBuffer(0)
	e := NewFeatureEngine(bars, depth)

	now := time.Unix(0, 0)
	close := 100.0
	for i := 0; i < 31; i++ {
		close += float64(i%3) - 1
		bars.Push(domain.Bar{
			Datetime: now.Add(time.Duration(i) * time.Minute),
			Open:     close - 0.5,
			High:     close + 1,
			Low:      close - 1,
			Close:    close,
			Volume:   int64(1000 + i*10),
		})
	}

	features := e.Calculate()
	assert.NotEqual(t, 0.0, features["volatility_30"])
	assert.NotEqual(t, 0.0, features["price_range_5"])
	assert.NotEqual(t, 0.0, features["price_range_15"])
	assert.Equal(t, math.Abs(features["return_1"]), features["return_abs"])
}
