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

package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// FakeGateway is an in-memory Gateway double for strategy/orchestrator
// tests: Connect/Authenticate/Login always succeed, Submit assigns a
// synthetic ClOrdID and records the request without touching any network,
// and tests drive order/trade/tick callbacks directly via Deliver*.
type FakeGateway struct {
	mu          sync.Mutex
	connected   bool
	loggedIn    bool
	submitted   []domain.OrderRequest
	cancelled   []string
	failSubmit  error
	failCancel  error
	instruments []domain.Instrument
	account     domain.AccountSnapshot
	positions   []domain.Position

	tickCbs  []TickCallback
	orderCbs []OrderCallback
	tradeCbs []TradeCallback
	eventCbs []EventCallback
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

func (f *FakeGateway) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	f.emitEvent(Event{State: domain.SessionConnected})
	return nil
}

func (f *FakeGateway) Authenticate(ctx context.Context) error {
	f.emitEvent(Event{State: domain.SessionAuthenticated})
	return nil
}

func (f *FakeGateway) Login(ctx context.Context) error {
	f.mu.Lock()
	f.loggedIn = true
	f.mu.Unlock()
	f.emitEvent(Event{State: domain.SessionLoggedIn})
	return nil
}

func (f *FakeGateway) ConfirmSettlement(ctx context.Context) error { return nil }

func (f *FakeGateway) QueryInstruments(ctx context.Context) ([]domain.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Instrument(nil), f.instruments...), nil
}

func (f *FakeGateway) QueryAccount(ctx context.Context) (domain.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, nil
}

func (f *FakeGateway) QueryPositions(ctx context.Context) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Position(nil), f.positions...), nil
}

func (f *FakeGateway) Submit(ctx context.Context, req domain.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubmit != nil {
		return "", f.failSubmit
	}
	if !f.loggedIn {
		return "", ErrNotLoggedIn
	}
	f.submitted = append(f.submitted, req)
	return uuid.New().String(), nil
}

func (f *FakeGateway) Cancel(ctx context.Context, clOrdID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCancel != nil {
		return f.failCancel
	}
	f.cancelled = append(f.cancelled, clOrdID)
	return nil
}

func (f *FakeGateway) Disconnect() error {
	f.mu.Lock()
	f.connected, f.loggedIn = false, false
	f.mu.Unlock()
	f.emitEvent(Event{State: domain.SessionDisconnected})
	return nil
}

func (f *FakeGateway) OnTick(cb TickCallback)   { f.mu.Lock(); f.tickCbs = append(f.tickCbs, cb); f.mu.Unlock() }
func (f *FakeGateway) OnOrder(cb OrderCallback) { f.mu.Lock(); f.orderCbs = append(f.orderCbs, cb); f.mu.Unlock() }
func (f *FakeGateway) OnTrade(cb TradeCallback) { f.mu.Lock(); f.tradeCbs = append(f.tradeCbs, cb); f.mu.Unlock() }
func (f *FakeGateway) OnEvent(cb EventCallback) { f.mu.Lock(); f.eventCbs = append(f.eventCbs, cb); f.mu.Unlock() }

// --- test helpers ---

func (f *FakeGateway) SetFailSubmit(err error) { f.mu.Lock(); f.failSubmit = err; f.mu.Unlock() }
func (f *FakeGateway) SetFailCancel(err error) { f.mu.Lock(); f.failCancel = err; f.mu.Unlock() }

func (f *FakeGateway) SetInstruments(in []domain.Instrument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instruments = in
}

func (f *FakeGateway) SetAccount(acc domain.AccountSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = acc
}

func (f *FakeGateway) SetPositions(positions []domain.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = positions
}

func (f *FakeGateway) SubmittedRequests() []domain.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderRequest(nil), f.submitted...)
}

func (f *FakeGateway) CancelledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

func (f *FakeGateway) DeliverTick(t domain.Tick) {
	f.mu.Lock()
	cbs := append([]TickCallback(nil), f.tickCbs...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(t)
	}
}

func (f *FakeGateway) DeliverOrder(o domain.Order) {
	f.mu.Lock()
	cbs := append([]OrderCallback(nil), f.orderCbs...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(o)
	}
}

func (f *FakeGateway) DeliverTrade(t domain.Trade) {
	f.mu.Lock()
	cbs := append([]TradeCallback(nil), f.tradeCbs...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(t)
	}
}

func (f *FakeGateway) emitEvent(e Event) {
	f.mu.Lock()
	cbs := append([]EventCallback(nil), f.eventCbs...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(e)
	}
}

func (f *FakeGateway) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeGateway) IsLoggedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}
