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

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/domain"
)

func tickAt(minute, second int, price float64, volume int64) domain.Tick {
	return domain.Tick{
		ExchangeTime: time.Date(2026, 7, 31, 9, minute, second, 0, time.UTC),
		InstrumentID: "IF2501",
		LastPrice:    price,
		Volume:       volume,
	}
}

func TestBarAggregator_FoldsTicksWithinTheSameMinute(t *testing.T) {
	a := NewBarAggregator(nil)
	_, completed := a.OnTick(tickAt(30, 0, 100, 10))
	assert.False(t, completed)
	_, completed = a.OnTick(tickAt(30, 10, 102, 15))
	assert.False(t, completed)
	_, completed = a.OnTick(tickAt(30, 20, 99, 22))
	assert.False(t, completed)

	bar, ok := a.CurrentBar()
	require.True(t, ok)
	assert.Equal(t, 100.0, bar.Open)
	assert.Equal(t, 102.0, bar.High)
	assert.Equal(t, 99.0, bar.Low)
	assert.Equal(t, 99.0, bar.Close)
	assert.Equal(t, int64(12), bar.Volume, "volume deltas accumulate from the session-cumulative ticks")
}

func TestBarAggregator_RolloverDeliversCompletedBar(t *testing.T) {
	var delivered domain.Bar
	var gotCallback bool
	a := NewBarAggregator(func(b domain.Bar) {
		delivered = b
		gotCallback = true
	})

	a.OnTick(tickAt(30, 0, 100, 10))
	a.OnTick(tickAt(30, 30, 105, 20))
	bar, completed := a.OnTick(tickAt(31, 0, 106, 25))

	require.True(t, completed)
	assert.Equal(t, 105.0, bar.Close, "the completed bar should be the prior minute's bar")
	assert.True(t, gotCallback)
	assert.Equal(t, bar, delivered)

	current, ok := a.CurrentBar()
	require.True(t, ok)
	assert.Equal(t, 106.0, current.Open, "a new in-progress bar should start with the rollover tick")
}

func TestBarAggregator_PanickingCallbackDoesNotPropagate(t *testing.T) {
	a := NewBarAggregator(func(domain.Bar) { panic("boom") })
	a.OnTick(tickAt(30, 0, 100, 10))
	assert.NotPanics(t, func() {
		a.OnTick(tickAt(31, 0, 101, 20))
	})
}

func TestBarAggregator_Reset(t *testing.T) {
	a := NewBarAggregator(nil)
	a.OnTick(tickAt(30, 0, 100, 10))
	a.Reset()

	_, ok := a.CurrentBar()
	assert.False(t, ok)
}

func TestBarBuffer_PushEvictsOldestOnceFull(t *testing.T) {
	b := NewBarBuffer(2)
	b.Push(domain.Bar{Close: 100})
	b.Push(domain.Bar{Close: 101})
	assert.False(t, b.Ready(3))

	b.Push(domain.Bar{Close: 102})
	bars := b.Bars()
	require.Len(t, bars, 2)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Equal(t, 102.0, bars[1].Close)
}

func TestBarBuffer_SeriesExtractors(t *testing.T) {
	b := NewBarBuffer(3)
	b.Push(domain.Bar{Open: 100, High: 105, Low: 98, Close: 103, Volume: 10})
	b.Push(domain.Bar{Open: 103, High: 107, Low: 101, Close: 104, Volume: 20})

	assert.Equal(t, []float64{103, 104}, b.Closes())
	assert.Equal(t, []float64{105, 107}, b.Highs())
	assert.Equal(t, []float64{98, 101}, b.Lows())
	assert.Equal(t, []float64{10, 20}, b.Volumes())
}
