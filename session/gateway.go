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

// Package session models the exchange connection as the abstract
// "connection primitive" the rest of the pipeline depends on:
// connect/authenticate/login/submit/cancel/query, delivering asynchronous
// tick/order/trade callbacks. FixGateway is the concrete implementation
// over a FIX session (github.com/quickfixgo/quickfix); Gateway is the
// interface strategies and the orchestrator depend on so tests can
// substitute FakeGateway.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// ErrConnectFailed is returned when the transport-level connect step
// fails (in FixGateway: no initiator attached, or the initiator fails to
// start).
var ErrConnectFailed = errors.New("session: connect failed")

// ErrNotLoggedIn is returned by Submit when called before login completes;
// Cancel and the query methods do not check the login state.
var ErrNotLoggedIn = errors.New("session: not logged in")

// ErrAuthFailed carries the exchange's rejection code and text for a
// failed authenticate/login step.
type ErrAuthFailed struct {
	Code int
	Msg  string
}

func (e ErrAuthFailed) Error() string {
	return fmt.Sprintf("session: auth failed (code=%d): %s", e.Code, e.Msg)
}

// TickCallback, OrderCallback, and TradeCallback are the asynchronous
// delivery points the gateway broadcasts on. FixGateway recovers panics
// from callbacks rather than let a misbehaving subscriber take the
// callback thread down; FakeGateway's Deliver* helpers call them directly.
type TickCallback func(domain.Tick)
type OrderCallback func(domain.Order)
type TradeCallback func(domain.Trade)
type EventCallback func(Event)

// Gateway is the brokerage wire shim's abstract surface. The concrete FIX
// implementation lives in FixGateway; tests use FakeGateway.
type Gateway interface {
	Connect(ctx context.Context) error
	Authenticate(ctx context.Context) error
	Login(ctx context.Context) error
	ConfirmSettlement(ctx context.Context) error

	QueryInstruments(ctx context.Context) ([]domain.Instrument, error)
	QueryAccount(ctx context.Context) (domain.AccountSnapshot, error)
	QueryPositions(ctx context.Context) ([]domain.Position, error)

	Submit(ctx context.Context, req domain.OrderRequest) (clOrdID string, err error)
	Cancel(ctx context.Context, clOrdID string) error

	Disconnect() error

	OnTick(TickCallback)
	OnOrder(OrderCallback)
	OnTrade(TradeCallback)
	OnEvent(EventCallback)
}

// Event is a session lifecycle notification delivered to the Connection
// Monitor and, through it, the Alert Service.
type Event struct {
	State  domain.SessionState
	Reason domain.DisconnectReason
	Detail string
}
