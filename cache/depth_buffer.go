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

// DefaultDepthHistory matches the original's 100-snapshot history.
const DefaultDepthHistory = 100

// DepthFeatures bundles the derived statistics and iceberg/large-order
// heuristics computed over the buffered history.
type DepthFeatures struct {
	Imbalance          float64
	Spread             float64
	Mid                float64
	BidDepth           float64
	AskDepth           float64
	BidIceberg         bool
	AskIceberg         bool
	BidIcebergEvents   int
	AskIcebergEvents   int
	BidIcebergStrength float64
	AskIcebergStrength float64
	BidLargeOrder      bool
	AskLargeOrder      bool
}

// DepthBuffer stores the most recent L2 snapshot plus a bounded history,
// and derives order-book imbalance, iceberg, and large-order signals from
// it. Grounded on data/l2_depth_buffer.py.
type DepthBuffer struct {
	mu       sync.RWMutex
	capacity int
	buf      []domain.DepthSnapshot
	head     int
	count    int
}

func NewDepthBuffer(capacity int) *DepthBuffer {
	if capacity <= 0 {
		capacity = DefaultDepthHistory
	}
	return &DepthBuffer{capacity: capacity, buf: make([]domain.DepthSnapshot, capacity)}
}

func (d *DepthBuffer) Push(snap domain.DepthSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := (d.head + d.count) % d.capacity
	d.buf[idx] = snap
	if d.count < d.capacity {
		d.count++
	} else {
		d.head = (d.head + 1) % d.capacity
	}
}

func (d *DepthBuffer) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.count
}

func (d *DepthBuffer) history() []domain.DepthSnapshot {
	out := make([]domain.DepthSnapshot, d.count)
	for i := 0; i < d.count; i++ {
		out[i] = d.buf[(d.head+i)%d.capacity]
	}
	return out
}

func (d *DepthBuffer) Latest() (domain.DepthSnapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.count == 0 {
		return domain.DepthSnapshot{}, false
	}
	return d.buf[(d.head+d.count-1)%d.capacity], true
}

// Imbalance returns the order-book imbalance of the latest snapshot: zero
// when both sides sum to zero.
func (d *DepthBuffer) Imbalance() float64 {
	latest, ok := d.Latest()
	if !ok {
		return 0
	}
	bid := float64(latest.BidVolumeTotal())
	ask := float64(latest.AskVolumeTotal())
	if bid+ask == 0 {
		return 0
	}
	return (bid - ask) / (bid + ask)
}

func (d *DepthBuffer) Spread() float64 {
	latest, ok := d.Latest()
	if !ok || len(latest.AskPrices) == 0 || len(latest.BidPrices) == 0 {
		return 0
	}
	return latest.AskPrices[0] - latest.BidPrices[0]
}

func (d *DepthBuffer) Mid() float64 {
	latest, ok := d.Latest()
	if !ok || len(latest.AskPrices) == 0 || len(latest.BidPrices) == 0 {
		return 0
	}
	return (latest.AskPrices[0] + latest.BidPrices[0]) / 2
}

// detectIceberg implements the rebound heuristic: over the last ten
// snapshots, mark iceberg activity if per-snapshot volume standard
// deviation exceeds half its mean, and count rebound events where a
// snapshot's volume drops below half the previous one then rebounds past
// 1.5x the trough. strength is std/(mean+1), a continuous companion to the
// present/events booleans that the feature engine feeds to its model as
// the bid_iceberg_strength and ask_iceberg_strength columns.
func detectIceberg(volumes []float64) (present bool, events int, strength float64) {
	if len(volumes) < 10 {
		return false, 0, 0
	}
	window := volumes[len(volumes)-10:]
	m := mean(window)
	std := stddev(window, m)
	if m > 0 && std > m*0.5 {
		present = true
	}
	strength = std / (m + 1)
	for i := 1; i < len(window)-1; i++ {
		if window[i] < window[i-1]*0.5 && window[i+1] > window[i]*1.5 {
			events++
		}
	}
	return present, events, strength
}

// detectLargeOrder implements the 3x-of-prior-19-snapshots heuristic.
func detectLargeOrder(volumes []float64) bool {
	if len(volumes) < 20 {
		return false
	}
	current := volumes[len(volumes)-1]
	prior := volumes[len(volumes)-20 : len(volumes)-1]
	m := mean(prior)
	return m > 0 && current > m*3.0
}

// Features aggregates every derived statistic and heuristic into one call,
// mirroring get_features().
func (d *DepthBuffer) Features() DepthFeatures {
	d.mu.RLock()
	history := d.history()
	d.mu.RUnlock()

	f := DepthFeatures{
		Imbalance: d.Imbalance(),
		Spread:    d.Spread(),
		Mid:       d.Mid(),
	}
	if len(history) == 0 {
		return f
	}
	latest := history[len(history)-1]
	f.BidDepth = float64(latest.BidVolumeTotal())
	f.AskDepth = float64(latest.AskVolumeTotal())

	bidVols := make([]float64, len(history))
	askVols := make([]float64, len(history))
	for i, snap := range history {
		bidVols[i] = float64(snap.BidVolumeTotal())
		askVols[i] = float64(snap.AskVolumeTotal())
	}

	f.BidIceberg, f.BidIcebergEvents, f.BidIcebergStrength = detectIceberg(bidVols)
	f.AskIceberg, f.AskIcebergEvents, f.AskIcebergStrength = detectIceberg(askVols)
	f.BidLargeOrder = detectLargeOrder(bidVols)
	f.AskLargeOrder = detectLargeOrder(askVols)
	return f
}
