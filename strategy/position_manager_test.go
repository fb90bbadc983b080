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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionManager_CheckEntrySignal(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())

	assert.Equal(t, 1, m.CheckEntrySignal(0.6, 50))
	assert.Equal(t, 0, m.CheckEntrySignal(0.6, 60)) // RSI overbought blocks long
	assert.Equal(t, -1, m.CheckEntrySignal(0.4, 50))
	assert.Equal(t, 0, m.CheckEntrySignal(0.4, 40)) // RSI oversold blocks short
	assert.Equal(t, 0, m.CheckEntrySignal(0.5, 50))
}

func TestPositionManager_EnterPosition_OnlyWhileFlat(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())
	require.True(t, m.EnterPosition(1, 100, 0.6, 50, 1))
	assert.Equal(t, StagedProbe, m.State())
	assert.False(t, m.EnterPosition(-1, 101, 0.3, 50, 2))
}

func TestPositionManager_ProbeToFullToTrailToTakeProfit(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())
	m.EnterPosition(1, 100, 0.6, 50, 1)

	exit, reason, _ := m.Update(100.5, 0) // +0.5% >= probeToFull 0.4%
	assert.False(t, exit)
	assert.Equal(t, StagedFull, m.State())

	exit, reason, _ = m.Update(100.7, 0) // +0.7% >= fullToTrail 0.6%
	assert.False(t, exit)
	assert.Equal(t, StagedTrail, m.State())

	exit, reason, pnl := m.Update(101.3, 0) // +1.3% >= trailMax 1.2%
	assert.True(t, exit)
	assert.Equal(t, "trail_tp", reason)
	assert.Greater(t, pnl, 0.0)
}

func TestPositionManager_ProbeStopLoss(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())
	m.EnterPosition(1, 100, 0.6, 50, 1)

	exit, reason, pnl := m.Update(99.5, 0) // -0.5% <= -probeSL 0.4%
	assert.True(t, exit)
	assert.Equal(t, "probe_sl", reason)
	assert.Less(t, pnl, 0.0)
}

func TestPositionManager_TrailDrawdownExit(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())
	m.EnterPosition(1, 100, 0.6, 50, 1)
	m.Update(100.5, 0) // -> full
	m.Update(100.7, 0) // -> trail
	m.Update(101.1, 0) // peak profit ~1.1%, below trail_tp 1.2%

	// pull back more than 30% of peak profit without breaching take-profit
	exit, reason, _ := m.Update(100.7, 0)
	assert.True(t, exit)
	assert.Equal(t, "trail_dd", reason)
}

func TestPositionManager_ReverseSignalForcesExit(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())
	m.EnterPosition(1, 100, 0.6, 50, 1)

	exit, reason, _ := m.Update(100.1, -1)
	assert.True(t, exit)
	assert.Equal(t, "reverse_signal", reason)
}

func TestPositionManager_ExitPositionClearsState(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())
	m.EnterPosition(1, 100, 0.6, 50, 1)

	pos := m.ExitPosition()
	require.NotNil(t, pos)
	assert.Equal(t, 100.0, pos.EntryPrice)
	assert.True(t, m.IsFlat())
	assert.Nil(t, m.Position())
}

func TestPositionManager_Update_NoopWhileFlat(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())
	exit, reason, pnl := m.Update(100, 0)
	assert.False(t, exit)
	assert.Empty(t, reason)
	assert.Equal(t, 0.0, pnl)
}

func TestPositionManager_Reset(t *testing.T) {
	m := NewPositionManager(DefaultPositionConfig())
	m.EnterPosition(1, 100, 0.6, 50, 1)
	m.Reset()
	assert.True(t, m.IsFlat())
	assert.Nil(t, m.Position())
}
