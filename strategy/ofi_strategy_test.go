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
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/clock"
	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/monitor"
	"github.com/ByteBard/prime-ctp-go/session"
	"github.com/ByteBard/prime-ctp-go/validator"
)

func newTestOFI(t *testing.T) (*OFIStrategy, *session.FakeGateway) {
	t.Helper()
	catalog := domain.NewInstrumentCatalogue()
	catalog.Load([]domain.Instrument{
		{ID: "IF2501", Multiplier: decimal.NewFromInt(300), PriceTick: decimal.NewFromFloat(0.2),
			MaxOrderVolume: 10, MinOrderVolume: 1},
	})
	gw := session.NewFakeGateway()
	require.NoError(t, gw.Login(context.Background()))
	v := validator.New(zerolog.Nop(), catalog, nil)
	mon := monitor.NewOrderMonitor(zerolog.Nop(), clock.NewBoundary(nil))
	base := NewBase("ofi", gw, v, mon, nil, zerolog.Nop())

	cfg := DefaultOFIConfig("IF2501", decimal.NewFromFloat(0.2))
	cfg.SignalCooldownTicks = 0
	s := NewOFIStrategy(base, cfg)
	s.Start()
	return s, gw
}

func flatTick(bidVol, askVol int64, price float64) domain.Tick {
	return domain.Tick{
		InstrumentID: "IF2501",
		LastPrice:    price,
		BidPrice1:    price - 0.2,
		AskPrice1:    price + 0.2,
		BidVolume1:   bidVol,
		AskVolume1:   askVol,
	}
}

func TestOFIStrategy_IgnoresTicksWhenNotRunning(t *testing.T) {
	s, gw := newTestOFI(t)
	s.Stop()

	s.OnTick(context.Background(), flatTick(5000, 100, 100))
	assert.Empty(t, gw.SubmittedRequests())
}

func TestOFIStrategy_EntersPositionOnValidSignal(t *testing.T) {
	s, gw := newTestOFI(t)

	for i := 0; i < 5; i++ {
		s.OnTick(context.Background(), flatTick(1000, 1000, 100))
	}
	s.OnTick(context.Background(), flatTick(5000, 100, 100))

	require.Len(t, gw.SubmittedRequests(), 1)
	assert.Equal(t, domain.OffsetOpen, gw.SubmittedRequests()[0].Offset)
	assert.Equal(t, domain.DirectionBuy, gw.SubmittedRequests()[0].Direction)

	trades, pnl, stopHit := s.DailyStats()
	assert.Equal(t, 0, trades)
	assert.Equal(t, 0.0, pnl)
	assert.False(t, stopHit)
}

func TestOFIStrategy_ExitsOnStopLoss(t *testing.T) {
	s, gw := newTestOFI(t)

	for i := 0; i < 5; i++ {
		s.OnTick(context.Background(), flatTick(1000, 1000, 100))
	}
	s.OnTick(context.Background(), flatTick(5000, 100, 100)) // enter long
	require.Len(t, gw.SubmittedRequests(), 1)

	// price drops 2+ ticks against a long position -> stop loss exit
	s.OnTick(context.Background(), flatTick(1000, 1000, 99.4))

	require.Len(t, gw.SubmittedRequests(), 2)
	assert.Equal(t, domain.OffsetCloseToday, gw.SubmittedRequests()[1].Offset)

	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "stop_loss", trades[0].ExitReason)
}

func TestOFIStrategy_DiscardsOnTimeoutWithoutClosingOrder(t *testing.T) {
	s, gw := newTestOFI(t)
	s.cfg.MaxHoldTicks = 2
	s.cfg.StaggeredTP = nil

	for i := 0; i < 5; i++ {
		s.OnTick(context.Background(), flatTick(1000, 1000, 100))
	}
	s.OnTick(context.Background(), flatTick(5000, 100, 100)) // enter
	require.Len(t, gw.SubmittedRequests(), 1)

	s.OnTick(context.Background(), flatTick(1000, 1000, 100))
	s.OnTick(context.Background(), flatTick(1000, 1000, 100))

	// no closing order submitted for a discarded timeout position
	assert.Len(t, gw.SubmittedRequests(), 1)
	assert.Empty(t, s.Trades())
}
