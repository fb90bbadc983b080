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

package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/clock"
)

// fakeClock lets tests force a trading-day rollover deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestOrderMonitor_CountOpenAndClose(t *testing.T) {
	m := NewOrderMonitor(zerolog.Nop(), clock.NewBoundary(nil))

	snap := m.CountOpen("IF2501")
	assert.Equal(t, 1, snap.InstrumentOpenCount)
	assert.Equal(t, 1, snap.TotalOrderCount)

	m.CountOpen("IF2501")
	snap = m.CountClose("IF2501")
	assert.Equal(t, 1, snap.InstrumentCloseCount)
	assert.Equal(t, 3, snap.TotalOrderCount)

	assert.Equal(t, 2, m.InstrumentOpenCount("IF2501"))
	assert.Equal(t, 1, m.InstrumentCloseCount("IF2501"))
	assert.Equal(t, 3, m.TotalOrderCount())
}

func TestOrderMonitor_CountCancel(t *testing.T) {
	m := NewOrderMonitor(zerolog.Nop(), clock.NewBoundary(nil))
	snap := m.CountCancel("IF2501")
	assert.Equal(t, 1, snap.InstrumentCancelCount)
	assert.Equal(t, 1, m.TotalCancelCount())
}

func TestOrderMonitor_CallbackInvokedAndPanicRecovered(t *testing.T) {
	m := NewOrderMonitor(zerolog.Nop(), clock.NewBoundary(nil))

	var calls int
	m.RegisterCallback(func(action OrderAction, instrumentID string, snap Snapshot) {
		calls++
	})
	m.RegisterCallback(func(action OrderAction, instrumentID string, snap Snapshot) {
		panic("boom")
	})

	require.NotPanics(t, func() {
		m.CountOpen("IF2501")
	})
	assert.Equal(t, 1, calls)
}

func TestOrderMonitor_RolloverResetsCounters(t *testing.T) {
	fc := &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	m := NewOrderMonitor(zerolog.Nop(), clock.NewBoundary(fc))

	m.CountOpen("IF2501")
	m.CountOpen("IF2501")
	require.Equal(t, 2, m.TotalOrderCount())

	fc.advance(24 * time.Hour)
	snap := m.CountOpen("IF2501")

	assert.Equal(t, 1, snap.TotalOrderCount)
	assert.Equal(t, 1, m.InstrumentOpenCount("IF2501"))
}

func TestOrderMonitor_SummaryReport_TopFiveByActivity(t *testing.T) {
	m := NewOrderMonitor(zerolog.Nop(), clock.NewBoundary(nil))

	for i := 0; i < 6; i++ {
		id := string(rune('A' + i))
		for j := 0; j <= i; j++ {
			m.CountOpen(id)
		}
	}

	report := m.SummaryReport()
	require.Len(t, report.TopInstruments, 5)
	assert.Equal(t, "F", report.TopInstruments[0].InstrumentID) // busiest: 6 opens
	assert.Equal(t, 6, report.InstrumentCount)
}

func TestOrderMonitor_ResetStatistics(t *testing.T) {
	m := NewOrderMonitor(zerolog.Nop(), clock.NewBoundary(nil))
	m.CountOpen("IF2501")
	m.ResetStatistics()
	assert.Equal(t, 0, m.TotalOrderCount())
	assert.Equal(t, 0, m.InstrumentOpenCount("IF2501"))
}
