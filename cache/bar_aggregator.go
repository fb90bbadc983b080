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
	"sync"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// BarAggregator folds ticks into a single in-progress one-minute bar per
// instrument, finalizing and delivering it via callback whenever the wall
// minute advances. Grounded on data/bar_aggregator.py.
type BarAggregator struct {
	mu sync.Mutex

	current      *domain.Bar
	currentMin   int
	haveMinute   bool
	lastVolume   int64
	lastTurnover float64

	onComplete func(domain.Bar)
}

func NewBarAggregator(onComplete func(domain.Bar)) *BarAggregator {
	return &BarAggregator{onComplete: onComplete}
}

// OnTick folds one tick into the in-progress bar, returning the just
// completed bar (and true) if the wall minute rolled over.
func (a *BarAggregator) OnTick(t domain.Tick) (domain.Bar, bool) {
	a.mu.Lock()

	minute := t.ExchangeTime.Minute()
	barTime := t.ExchangeTime.Truncate(60_000_000_000) // floor to the minute

	var completed domain.Bar
	var hasCompleted bool

	if a.haveMinute && minute != a.currentMin {
		if a.current != nil {
			completed = *a.current
			hasCompleted = true
		}
		a.current = nil
	}

	volumeDelta := int64(0)
	if a.lastVolume > 0 {
		volumeDelta = t.Volume - a.lastVolume
		if volumeDelta < 0 {
			volumeDelta = 0
		}
	}
	turnoverDelta := 0.0
	if a.lastTurnover > 0 {
		turnoverDelta = t.Turnover - a.lastTurnover
		if turnoverDelta < 0 {
			turnoverDelta = 0
		}
	}

	if a.current == nil {
		a.current = &domain.Bar{
			Datetime:     barTime,
			InstrumentID: t.InstrumentID,
			Open:         t.LastPrice,
			High:         t.LastPrice,
			Low:          t.LastPrice,
			Close:        t.LastPrice,
			OpenInterest: t.OpenInterest,
		}
	} else {
		if t.LastPrice > a.current.High {
			a.current.High = t.LastPrice
		}
		if t.LastPrice < a.current.Low {
			a.current.Low = t.LastPrice
		}
		a.current.Close = t.LastPrice
		a.current.Volume += volumeDelta
		a.current.Turnover += turnoverDelta
		a.current.OpenInterest = t.OpenInterest
	}

	a.currentMin = minute
	a.haveMinute = true
	a.lastVolume = t.Volume
	a.lastTurnover = t.Turnover

	cb := a.onComplete
	a.mu.Unlock()

	if hasCompleted && cb != nil {
		a.invoke(cb, completed)
	}
	return completed, hasCompleted
}

func (a *BarAggregator) invoke(cb func(domain.Bar), bar domain.Bar) {
	defer func() { recover() }()
	cb(bar)
}

// CurrentBar returns the in-progress bar, if any.
func (a *BarAggregator) CurrentBar() (domain.Bar, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return domain.Bar{}, false
	}
	return *a.current, true
}

func (a *BarAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = nil
	a.haveMinute = false
	a.lastVolume = 0
	a.lastTurnover = 0
}

// DefaultBarCapacity matches spec's default 60-bar history.
const DefaultBarCapacity = 60

// BarBuffer is a bounded, ordered history of completed bars used by the
// bar-tier strategy, with the series extractors it needs.
type BarBuffer struct {
	mu       sync.RWMutex
	capacity int
	buf      []domain.Bar
	head     int
	count    int
}

func NewBarBuffer(capacity int) *BarBuffer {
	if capacity <= 0 {
		capacity = DefaultBarCapacity
	}
	return &BarBuffer{capacity: capacity, buf: make([]domain.Bar, capacity)}
}

func (b *BarBuffer) Push(bar domain.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := (b.head + b.count) % b.capacity
	b.buf[idx] = bar
	if b.count < b.capacity {
		b.count++
	} else {
		b.head = (b.head + 1) % b.capacity
	}
}

func (b *BarBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Ready reports whether the buffer holds at least threshold bars.
func (b *BarBuffer) Ready(threshold int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count >= threshold
}

func (b *BarBuffer) Bars() []domain.Bar {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Bar, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.buf[(b.head+i)%b.capacity]
	}
	return out
}

func (b *BarBuffer) Closes() []float64 { return b.series(func(bar domain.Bar) float64 { return bar.Close }) }
func (b *BarBuffer) Highs() []float64  { return b.series(func(bar domain.Bar) float64 { return bar.High }) }
func (b *BarBuffer) Lows() []float64   { return b.series(func(bar domain.Bar) float64 { return bar.Low }) }
func (b *BarBuffer) Volumes() []float64 {
	return b.series(func(bar domain.Bar) float64 { return float64(bar.Volume) })
}

func (b *BarBuffer) series(extract func(domain.Bar) float64) []float64 {
	bars := b.Bars()
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = extract(bar)
	}
	return out
}
