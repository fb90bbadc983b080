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

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func TestBoundary_CheckReportsNoRolloverWithinSameDay(t *testing.T) {
	fc := &fakeClock{now: time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)}
	b := NewBoundary(fc)

	fc.now = fc.now.Add(2 * time.Hour)
	rolled, day := b.Check()
	assert.False(t, rolled)
	assert.Equal(t, "2026-07-31", day)
}

func TestBoundary_CheckDetectsRolloverAndUpdatesDay(t *testing.T) {
	fc := &fakeClock{now: time.Date(2026, 7, 31, 23, 0, 0, 0, time.UTC)}
	b := NewBoundary(fc)

	fc.now = fc.now.Add(2 * time.Hour)
	rolled, day := b.Check()
	assert.True(t, rolled)
	assert.Equal(t, "2026-08-01", day)

	rolled, day = b.Check()
	assert.False(t, rolled)
	assert.Equal(t, "2026-08-01", day)
}

func TestBoundary_DayReturnsTrackedDayWithoutChecking(t *testing.T) {
	fc := &fakeClock{now: time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)}
	b := NewBoundary(fc)
	assert.Equal(t, "2026-07-31", b.Day())

	fc.now = fc.now.Add(48 * time.Hour)
	assert.Equal(t, "2026-07-31", b.Day(), "Day must not itself trigger a rollover")
}

func TestNewBoundary_NilClockDefaultsToSystem(t *testing.T) {
	b := NewBoundary(nil)
	assert.Equal(t, System{}.Now().Format("2006-01-02"), b.Day())
}

func TestSystem_NowReturnsWallClockTime(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	after := time.Now()
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}
