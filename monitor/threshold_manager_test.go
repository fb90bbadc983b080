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
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/clock"
	"github.com/ByteBard/prime-ctp-go/domain"
)

func newTestThresholdManager(t *testing.T, th Thresholds) (*OrderMonitor, *ThresholdManager) {
	t.Helper()
	om := NewOrderMonitor(zerolog.Nop(), clock.NewBoundary(nil))
	tm := NewThresholdManager(zerolog.Nop(), om, th)
	return om, tm
}

func TestThresholdManager_RepeatOpenBreach(t *testing.T) {
	om, tm := newTestThresholdManager(t, Thresholds{RepeatOpen: 3, TotalOrder: 1000})

	var breaches []ThresholdBreach
	tm.RegisterCallback(func(b ThresholdBreach) { breaches = append(breaches, b) })

	for i := 0; i < 2; i++ {
		om.CountOpen("IF2501")
	}
	assert.Empty(t, breaches)

	om.CountOpen("IF2501")
	require.Len(t, breaches, 1)
	assert.Equal(t, ThresholdRepeatOpen, breaches[0].Kind)
	assert.Equal(t, domain.AlertLevelWarning, breaches[0].Level)
	assert.Equal(t, "IF2501", breaches[0].InstrumentID)
}

func TestThresholdManager_TotalOrderBreachIsCritical(t *testing.T) {
	om, tm := newTestThresholdManager(t, Thresholds{RepeatOpen: 100, TotalOrder: 2})

	var breaches []ThresholdBreach
	tm.RegisterCallback(func(b ThresholdBreach) { breaches = append(breaches, b) })

	om.CountOpen("A")
	om.CountOpen("B")

	require.Len(t, breaches, 1)
	assert.Equal(t, ThresholdTotalOrder, breaches[0].Kind)
	assert.Equal(t, domain.AlertLevelCritical, breaches[0].Level)
}

func TestThresholdManager_CooldownSuppressesRepeatBreach(t *testing.T) {
	om, tm := newTestThresholdManager(t, Thresholds{RepeatOpen: 1, TotalOrder: 1000})
	tm.SetCooldown(time.Hour) // effectively infinite for the duration of this test

	var breaches []ThresholdBreach
	tm.RegisterCallback(func(b ThresholdBreach) { breaches = append(breaches, b) })

	om.CountOpen("IF2501")
	om.CountOpen("IF2501")
	om.CountOpen("IF2501")

	assert.Len(t, breaches, 1, "cooldown should suppress every repeat of the same breach key")
}

func TestThresholdManager_ClearTriggeredAllowsImmediateRefire(t *testing.T) {
	om, tm := newTestThresholdManager(t, Thresholds{RepeatOpen: 1, TotalOrder: 1000})

	var breaches []ThresholdBreach
	tm.RegisterCallback(func(b ThresholdBreach) { breaches = append(breaches, b) })

	om.CountOpen("IF2501")
	tm.ClearTriggered()
	om.CountOpen("IF2501")

	assert.Len(t, breaches, 2)
}

func TestThresholdManager_History_CapsAtLimit(t *testing.T) {
	om, tm := newTestThresholdManager(t, Thresholds{RepeatOpen: 1, TotalOrder: 1000})
	tm.ClearTriggered()
	om.CountOpen("A")
	tm.ClearTriggered()
	om.CountOpen("B")
	tm.ClearTriggered()
	om.CountOpen("C")

	history := tm.History(2)
	require.Len(t, history, 2)
	assert.Equal(t, "B", history[0].InstrumentID)
	assert.Equal(t, "C", history[1].InstrumentID)
}

func TestThresholdManager_SetAndGetThresholds(t *testing.T) {
	_, tm := newTestThresholdManager(t, DefaultThresholds())
	tm.SetThresholds(Thresholds{RepeatOpen: 5})
	assert.Equal(t, 5, tm.Thresholds().RepeatOpen)
}
