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

// Package strategy holds the tick-to-order decision engines: Base wires
// the validate -> count -> submit chain every concrete strategy shares;
// OFIStrategy and StagedStrategy are the two engines spec.md names.
// Grounded on strategy/base_strategy.py.
package strategy

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/monitor"
	"github.com/ByteBard/prime-ctp-go/session"
	"github.com/ByteBard/prime-ctp-go/validator"
)

// TradingGate lets the orchestrator withhold submissions (e.g. while
// emergency.Handler.IsTradingPaused is true) without every strategy
// needing its own reference to the emergency handler.
type TradingGate interface {
	IsTradingPaused() bool
}

// Base is the shared validate -> count -> submit chain every concrete
// strategy embeds: buy_open/sell_open/buy_close/sell_close all run the
// order past the validator, count it on the order monitor, and only then
// forward it to the gateway — in that order, so a rejected order is never
// counted and a submission failure is still counted. cancel_order skips
// validation: it counts the cancel, then forwards it.
type Base struct {
	ID        string
	Gateway   session.Gateway
	Validator *validator.Validator
	Monitor   *monitor.OrderMonitor
	Gate      TradingGate
	Log       zerolog.Logger

	mu        sync.Mutex
	running   bool
	positions map[string]int
}

func NewBase(id string, gw session.Gateway, v *validator.Validator, mon *monitor.OrderMonitor, gate TradingGate, log zerolog.Logger) Base {
	return Base{
		ID:        id,
		Gateway:   gw,
		Validator: v,
		Monitor:   mon,
		Gate:      gate,
		Log:       log.With().Str("strategy_id", id).Logger(),
		positions: make(map[string]int),
	}
}

func (b *Base) tradingAllowed() bool {
	return b.Gate == nil || !b.Gate.IsTradingPaused()
}

func (b *Base) submit(ctx context.Context, instrumentID string, dir domain.Direction, offset domain.OffsetFlag, price decimal.Decimal, volume int) (string, bool) {
	if !b.tradingAllowed() {
		b.Log.Debug().Str("instrument_id", instrumentID).Msg("order suppressed: trading paused")
		return "", false
	}

	req := domain.NewLimitOrderRequest(instrumentID, dir, offset, price, volume)
	result := b.Validator.Validate(req)
	if !result.Valid {
		b.Log.Warn().Str("instrument_id", instrumentID).Str("kind", string(result.Kind)).Str("message", result.Message).Msg("order rejected by validator")
		return "", false
	}

	if offset == domain.OffsetOpen {
		b.Monitor.CountOpen(instrumentID)
	} else {
		b.Monitor.CountClose(instrumentID)
	}

	clOrdID, err := b.Gateway.Submit(ctx, req)
	if err != nil {
		b.Log.Error().Err(err).Str("instrument_id", instrumentID).Msg("submit failed")
		return "", false
	}
	return clOrdID, true
}

func (b *Base) BuyOpen(ctx context.Context, instrumentID string, price decimal.Decimal, volume int) (string, bool) {
	return b.submit(ctx, instrumentID, domain.DirectionBuy, domain.OffsetOpen, price, volume)
}

func (b *Base) SellOpen(ctx context.Context, instrumentID string, price decimal.Decimal, volume int) (string, bool) {
	return b.submit(ctx, instrumentID, domain.DirectionSell, domain.OffsetOpen, price, volume)
}

func (b *Base) BuyClose(ctx context.Context, instrumentID string, price decimal.Decimal, volume int, closeToday bool) (string, bool) {
	offset := domain.OffsetClose
	if closeToday {
		offset = domain.OffsetCloseToday
	}
	return b.submit(ctx, instrumentID, domain.DirectionBuy, offset, price, volume)
}

func (b *Base) SellClose(ctx context.Context, instrumentID string, price decimal.Decimal, volume int, closeToday bool) (string, bool) {
	offset := domain.OffsetClose
	if closeToday {
		offset = domain.OffsetCloseToday
	}
	return b.submit(ctx, instrumentID, domain.DirectionSell, offset, price, volume)
}

func (b *Base) CancelOrder(ctx context.Context, instrumentID, clOrdID string) bool {
	b.Monitor.CountCancel(instrumentID)
	return b.Gateway.Cancel(ctx, clOrdID) == nil
}

func (b *Base) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = true
}

// Stop satisfies emergency.StrategyControl.
func (b *Base) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
}

func (b *Base) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Base) Position(instrumentID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positions[instrumentID]
}

func (b *Base) UpdatePosition(instrumentID string, delta int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[instrumentID] += delta
}
