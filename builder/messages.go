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

package builder

import (
	"time"

	"github.com/ByteBard/prime-ctp-go/constants"
	"github.com/ByteBard/prime-ctp-go/utils"

	"github.com/quickfixgo/quickfix"
)

// FieldSetter abstracts setting fields on FIX message components.
type FieldSetter interface {
	SetField(tag quickfix.Tag, field quickfix.FieldValueWriter) *quickfix.FieldMap
}

func setString(fs FieldSetter, tag quickfix.Tag, value string) {
	fs.SetField(tag, quickfix.FIXString(value))
}

// setStringIfNotEmpty sets a field only if the value is non-empty.
func setStringIfNotEmpty(fs FieldSetter, tag quickfix.Tag, value string) {
	if value != "" {
		fs.SetField(tag, quickfix.FIXString(value))
	}
}

// buildHeader sets common header fields for outgoing messages.
func buildHeader(header *quickfix.Header, msgType, senderCompId, targetCompId string) {
	setString(header, constants.TagBeginString, constants.FixBeginString)
	setString(header, constants.TagMsgType, msgType)
	setString(header, constants.TagSenderCompId, senderCompId)
	setString(header, constants.TagTargetCompId, targetCompId)
	setString(header, constants.TagSendingTime, time.Now().UTC().Format(constants.FixTimeFormat))
}

// --- Logon Message ---

func BuildLogon(
	body *quickfix.Body,
	ts, apiKey, apiSecret, passphrase, targetCompId, portfolioId string,
) {
	sig := utils.Sign(ts, constants.MsgTypeLogon, constants.MsgSeqNumInit, apiKey, targetCompId, passphrase, apiSecret)

	setString(body, constants.TagEncryptMethod, constants.EncryptMethodNone)
	setString(body, constants.TagHeartBtInt, constants.HeartBtInterval)

	setString(body, constants.TagPassword, passphrase)
	setString(body, constants.TagAccount, portfolioId)
	setString(body, constants.TagHmac, sig)
	// Per Coinbase Prime FIX API: use Tag 9407 (AccessKey) for API key
	// https://docs.cdp.coinbase.com/prime/fix-api/admin-messages
	setString(body, constants.TagAccessKey, apiKey)
	setString(body, constants.TagDropCopyFlag, constants.DropCopyFlagYes)
}

// --- New Order Single (D) ---

// NewOrderParams contains parameters for creating a new order.
type NewOrderParams struct {
	Account        string // Portfolio ID (required)
	ClOrdID        string // Client order ID (required)
	Symbol         string // Product pair e.g. BTC-USD (required)
	Side           string // "1" buy, "2" sell (required)
	OrdType        string // Order type (required)
	TargetStrategy string // L, M, T, V, SL, R (required)
	TimeInForce    string // 1, 3, 4, 6 (required)
	OrderQty       string // Size in base units (conditional)
	CashOrderQty   string // Size in quote units (conditional)
	Price          string // Limit price (conditional)
	StopPx         string // Stop price for stop orders (conditional)
	ExpireTime     string // For GTD/TWAP/VWAP (conditional)
	EffectiveTime  string // Start time for TWAP/VWAP (conditional)
	MaxShow        string // Display size (optional)
	ExecInst       string // "A" for post-only (conditional)
	PartRate       string // Participation rate for TWAP/VWAP (conditional)
	QuoteID        string // For RFQ orders (conditional)
	IsRaiseExact   string // Y/N for raise exact orders (optional)
}

// BuildNewOrderSingle creates a New Order Single (D) message.
//
// Example - Market order:
//
//	params := NewOrderParams{
//	    Account: "portfolio-123", ClOrdID: "order-1", Symbol: "BTC-USD",
//	    Side: constants.SideBuy, OrdType: constants.OrdTypeMarket,
//	    TargetStrategy: constants.TargetStrategyMarket,
//	    TimeInForce: constants.TimeInForceIOC, OrderQty: "0.01",
//	}
//	msg := BuildNewOrderSingle(params, senderCompId, targetCompId)
func BuildNewOrderSingle(params NewOrderParams, senderCompId, targetCompId string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeNewOrderSingle, senderCompId, targetCompId)

	// Required fields
	setString(&m.Body, constants.TagAccount, params.Account)
	setString(&m.Body, constants.TagClOrdID, params.ClOrdID)
	setString(&m.Body, constants.TagSymbol, params.Symbol)
	setString(&m.Body, constants.TagSide, params.Side)
	setString(&m.Body, constants.TagOrdType, params.OrdType)
	setString(&m.Body, constants.TagTargetStrategy, params.TargetStrategy)
	setString(&m.Body, constants.TagTimeInForce, params.TimeInForce)
	setString(&m.Body, constants.TagTransactTime, time.Now().UTC().Format(constants.FixTimeFormat))

	// Conditional fields
	setStringIfNotEmpty(&m.Body, constants.TagOrderQty, params.OrderQty)
	setStringIfNotEmpty(&m.Body, constants.TagCashOrderQty, params.CashOrderQty)
	setStringIfNotEmpty(&m.Body, constants.TagPrice, params.Price)
	setStringIfNotEmpty(&m.Body, constants.TagStopPx, params.StopPx)
	setStringIfNotEmpty(&m.Body, constants.TagExpireTime, params.ExpireTime)
	setStringIfNotEmpty(&m.Body, constants.TagEffectiveTime, params.EffectiveTime)
	setStringIfNotEmpty(&m.Body, constants.TagMaxShow, params.MaxShow)
	setStringIfNotEmpty(&m.Body, constants.TagExecInst, params.ExecInst)
	setStringIfNotEmpty(&m.Body, constants.TagParticipationRate, params.PartRate)
	setStringIfNotEmpty(&m.Body, constants.TagQuoteID, params.QuoteID)
	setStringIfNotEmpty(&m.Body, constants.TagIsRaiseExact, params.IsRaiseExact)

	return m
}

// --- Order Cancel Request (F) ---

// CancelOrderParams contains parameters for canceling an order.
type CancelOrderParams struct {
	Account      string // Portfolio ID (required)
	ClOrdID      string // Cancel request ID (required)
	OrigClOrdID  string // Original order's ClOrdID (required)
	OrderID      string // Coinbase order ID (required)
	Symbol       string // Product pair (required)
	Side         string // "1" buy, "2" sell (required)
	OrderQty     string // Original order quantity (conditional)
	CashOrderQty string // If originally in quote units (conditional)
}

// BuildOrderCancelRequest creates an Order Cancel Request (F) message.
//
// Example:
//
//	params := CancelOrderParams{
//	    Account: "portfolio-123", ClOrdID: "cancel-1", OrigClOrdID: "order-1",
//	    OrderID: "cb-order-id", Symbol: "BTC-USD", Side: constants.SideBuy,
//	    OrderQty: "0.01",
//	}
//	msg := BuildOrderCancelRequest(params, senderCompId, targetCompId)
func BuildOrderCancelRequest(params CancelOrderParams, senderCompId, targetCompId string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeOrderCancelRequest, senderCompId, targetCompId)

	setString(&m.Body, constants.TagAccount, params.Account)
	setString(&m.Body, constants.TagClOrdID, params.ClOrdID)
	setString(&m.Body, constants.TagOrigClOrdID, params.OrigClOrdID)
	setString(&m.Body, constants.TagOrderID, params.OrderID)
	setString(&m.Body, constants.TagSymbol, params.Symbol)
	setString(&m.Body, constants.TagSide, params.Side)
	setString(&m.Body, constants.TagTransactTime, time.Now().UTC().Format(constants.FixTimeFormat))

	setStringIfNotEmpty(&m.Body, constants.TagOrderQty, params.OrderQty)
	setStringIfNotEmpty(&m.Body, constants.TagCashOrderQty, params.CashOrderQty)

	return m
}
