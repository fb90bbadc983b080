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

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is buy ('0') or sell ('1'), following the brokerage's character
// codes (field semantics per spec.md §6).
type Direction string

const (
	DirectionBuy  Direction = "0"
	DirectionSell Direction = "1"
)

// OffsetFlag distinguishes opening new exposure from closing existing
// exposure, and (for exchanges that track today vs. yesterday positions
// separately) which portion a close targets.
type OffsetFlag string

const (
	OffsetOpen           OffsetFlag = "0"
	OffsetClose          OffsetFlag = "1"
	OffsetCloseToday     OffsetFlag = "3"
	OffsetCloseYesterday OffsetFlag = "4"
)

// OrderStatus is the order record's lifecycle status. Transitions may only
// advance along the edges documented in spec.md §4.2.
type OrderStatus string

const (
	StatusSubmitted             OrderStatus = "submitted"
	StatusQueued                OrderStatus = "queued"
	StatusPartiallyFilledQueued OrderStatus = "partial-filled-queued"
	StatusPartiallyFilledGone   OrderStatus = "partial-filled-gone"
	StatusUnfilledGone          OrderStatus = "unfilled-gone"
	StatusCancelled             OrderStatus = "cancelled"
	StatusUnknown               OrderStatus = "unknown"
	StatusAllFilled             OrderStatus = "all-filled"
)

// allowedTransitions enumerates the edges from spec.md §4.2's order status
// diagram. "unknown" is reachable from any state (a diagnostic escape
// hatch), and every state may trivially stay put (duplicate callbacks).
var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusSubmitted: {
		StatusQueued:    true,
		StatusCancelled: true,
	},
	StatusQueued: {
		StatusPartiallyFilledQueued: true,
		StatusUnfilledGone:          true,
		StatusCancelled:             true,
	},
	StatusPartiallyFilledQueued: {
		StatusAllFilled:           true,
		StatusPartiallyFilledGone: true,
		StatusCancelled:           true,
	},
}

// CanTransition reports whether the order may move from 'from' to 'to'.
// Terminal states (all-filled, cancelled, partial-filled-gone,
// unfilled-gone) never transition except to "unknown". Repeating the same
// status is always allowed (idempotent callback delivery).
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	if to == StatusUnknown {
		return true
	}
	return allowedTransitions[from][to]
}

// Order is the client's view of an order's current state.
// Fields ordered for memory alignment: time.Time first, strings/decimals
// next, bools last — the teacher's convention in fixclient/orderstore.go.
type Order struct {
	CreatedAt time.Time
	UpdatedAt time.Time

	ClOrdID      string // locally-allocated client order reference
	ExchangeID   string // assigned on acknowledgement
	InstrumentID string
	Direction    Direction
	Offset       OffsetFlag
	Status       OrderStatus

	Price           decimal.Decimal
	OriginalVolume  int
	TradedVolume    int
	RemainingVolume int
}

// Trade is a single fill against an order.
type Trade struct {
	InstrumentID    string
	Direction       Direction
	Offset          OffsetFlag
	Price           decimal.Decimal
	Volume          int
	ExchangeTradeID string
	ClOrdID         string
}

// Position is one side (long or short) of an instrument's holdings.
type Position struct {
	InstrumentID    string
	Long            bool
	TotalVolume     int
	TodayVolume     int
	YesterdayVolume int
}

// AccountSnapshot is the most recently queried account state.
type AccountSnapshot struct {
	AvailableBalance decimal.Decimal
	TotalBalance     decimal.Decimal
	FrozenMargin     decimal.Decimal
	FrozenCommission decimal.Decimal
}

// OrderRequest carries the per-order fields of a new order. Order type and
// time in force are not fields: FixGateway always sends a limit order,
// good-till-cancel. Grounded on ctp_gateway.py's _send_order, which
// hard-codes its order parameters on every insert.
type OrderRequest struct {
	InstrumentID string
	Direction    Direction
	Offset       OffsetFlag
	Price        decimal.Decimal
	Volume       int
}

func NewLimitOrderRequest(instrumentID string, dir Direction, offset OffsetFlag, price decimal.Decimal, volume int) OrderRequest {
	return OrderRequest{
		InstrumentID: instrumentID,
		Direction:    dir,
		Offset:       offset,
		Price:        price,
		Volume:       volume,
	}
}
