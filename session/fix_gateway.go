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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/quickfix"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ByteBard/prime-ctp-go/builder"
	"github.com/ByteBard/prime-ctp-go/constants"
	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/utils"
)

// FixConfig carries the credentials and FIX identifiers the original's
// connect/authenticate/login sequence needs. Field names follow the
// brokerage-neutral vocabulary spec.md uses rather than FIX jargon.
type FixConfig struct {
	APIKey       string
	APISecret    string
	Passphrase   string
	SenderCompID string
	TargetCompID string
	PortfolioID  string
}

// FixGateway is the concrete Gateway backed by a FIX session. It reuses
// the teacher's transport idiom (quickfix.Application callbacks,
// builder.Build* message construction, constants.Tag field access)
// generalized from a market-data-only client to full order entry:
// connect/authenticate/login map onto FIX Logon, submit/cancel map onto
// NewOrderSingle/OrderCancelRequest, and ExecutionReport/OrderCancelReject
// drive the order/trade callbacks.
type FixGateway struct {
	config FixConfig
	log    zerolog.Logger

	initiator *quickfix.Initiator
	sessionID quickfix.SessionID

	mu         sync.Mutex
	loggedIn   chan struct{}
	loggedInCh sync.Once
	clOrdByID  map[string]*domain.Order // clOrdID -> order

	catalog   *domain.InstrumentCatalogue
	account   domain.AccountSnapshot
	positions []domain.Position

	tickCbs  []TickCallback
	orderCbs []OrderCallback
	tradeCbs []TradeCallback
	eventCbs []EventCallback
}

// NewFixGateway builds a gateway with no transport attached;
// quickfix.NewInitiator is left to the caller (cmd/tradingd), since it
// needs a SessionSettings loaded from config, and is bound with Attach.
func NewFixGateway(cfg FixConfig, catalog *domain.InstrumentCatalogue, log zerolog.Logger) *FixGateway {
	return &FixGateway{
		config:    cfg,
		log:       log.With().Str("component", "fix_gateway").Logger(),
		loggedIn:  make(chan struct{}),
		clOrdByID: make(map[string]*domain.Order),
		catalog:   catalog,
	}
}

// Attach binds the initiator constructed by the caller (quickfix.NewInitiator(gw, storeFactory, settings, logFactory)).
func (g *FixGateway) Attach(initiator *quickfix.Initiator) {
	g.initiator = initiator
}

func (g *FixGateway) Connect(ctx context.Context) error {
	if g.initiator == nil {
		return fmt.Errorf("%w: initiator not attached", ErrConnectFailed)
	}
	if err := g.initiator.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	g.emitEvent(Event{State: domain.SessionConnected})
	return nil
}

// Authenticate and Login collapse onto the same FIX Logon handshake; the
// handshake credentials are sent from ToAdmin and the result observed via
// OnLogon, so both steps just wait on the same channel with their own
// timeout budget, matching the original's separately-named but
// sequentially-dependent steps.
func (g *FixGateway) Authenticate(ctx context.Context) error {
	select {
	case <-g.loggedIn:
		g.emitEvent(Event{State: domain.SessionAuthenticated})
		return nil
	case <-ctx.Done():
		return ErrAuthFailed{Code: 0, Msg: "logon timed out"}
	}
}

func (g *FixGateway) Login(ctx context.Context) error {
	select {
	case <-g.loggedIn:
		g.emitEvent(Event{State: domain.SessionLoggedIn})
		return nil
	case <-ctx.Done():
		return ErrAuthFailed{Code: 0, Msg: "login timed out"}
	}
}

// ConfirmSettlement has no FIX equivalent; the brokerage API this gateway
// fronts settles trades out of band, so this step is a documented no-op
// that preserves the five-step connect sequence's shape for callers.
func (g *FixGateway) ConfirmSettlement(ctx context.Context) error {
	return nil
}

// QueryInstruments has no FIX reference-data request wired in this
// deployment; the instrument catalogue is loaded out of band (see
// domain.InstrumentCatalogue.Load) and this just reports what is cached.
func (g *FixGateway) QueryInstruments(ctx context.Context) ([]domain.Instrument, error) {
	if g.catalog == nil {
		return nil, nil
	}
	return g.catalog.All(), nil
}

func (g *FixGateway) QueryAccount(ctx context.Context) (domain.AccountSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.account, nil
}

func (g *FixGateway) QueryPositions(ctx context.Context) ([]domain.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Position(nil), g.positions...), nil
}

// LoadAccount and LoadPositions let whatever account-query mechanism the
// deployment uses (out of scope here, per spec.md §1) push fresh state
// into the gateway for ValidatePosition/ValidateMargin to read.
func (g *FixGateway) LoadAccount(acc domain.AccountSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.account = acc
}

func (g *FixGateway) LoadPositions(positions []domain.Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions = positions
}

func (g *FixGateway) Submit(ctx context.Context, req domain.OrderRequest) (string, error) {
	select {
	case <-g.loggedIn:
	default:
		return "", ErrNotLoggedIn
	}

	clOrdID := uuid.New().String()
	order := &domain.Order{
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
		ClOrdID:         clOrdID,
		InstrumentID:    req.InstrumentID,
		Direction:       req.Direction,
		Offset:          req.Offset,
		Status:          domain.StatusSubmitted,
		Price:           req.Price,
		OriginalVolume:  req.Volume,
		RemainingVolume: req.Volume,
	}

	g.mu.Lock()
	g.clOrdByID[clOrdID] = order
	g.mu.Unlock()

	side := constants.SideBuy
	if req.Direction == domain.DirectionSell {
		side = constants.SideSell
	}

	params := builder.NewOrderParams{
		Account:        g.config.PortfolioID,
		ClOrdID:        clOrdID,
		Symbol:         req.InstrumentID,
		Side:           side,
		OrdType:        constants.OrdTypeLimit,
		TargetStrategy: constants.TargetStrategyLimit,
		TimeInForce:    constants.TimeInForceGTC,
		OrderQty:       fmt.Sprintf("%d", req.Volume),
		Price:          req.Price.String(),
	}
	msg := builder.BuildNewOrderSingle(params, g.config.SenderCompID, g.config.TargetCompID)
	if err := quickfix.SendToTarget(msg, g.sessionID); err != nil {
		return "", fmt.Errorf("submit order: %w", err)
	}
	g.notifyOrder(*order)
	return clOrdID, nil
}

func (g *FixGateway) Cancel(ctx context.Context, clOrdID string) error {
	g.mu.Lock()
	order, found := g.clOrdByID[clOrdID]
	g.mu.Unlock()
	if !found {
		return fmt.Errorf("cancel: unknown clOrdID %s", clOrdID)
	}

	side := constants.SideBuy
	if order.Direction == domain.DirectionSell {
		side = constants.SideSell
	}
	cancelID := uuid.New().String()
	params := builder.CancelOrderParams{
		Account:     g.config.PortfolioID,
		ClOrdID:     cancelID,
		OrigClOrdID: clOrdID,
		OrderID:     order.ExchangeID,
		Symbol:      order.InstrumentID,
		Side:        side,
	}
	msg := builder.BuildOrderCancelRequest(params, g.config.SenderCompID, g.config.TargetCompID)
	if err := quickfix.SendToTarget(msg, g.sessionID); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return nil
}

func (g *FixGateway) Disconnect() error {
	if g.initiator != nil {
		g.initiator.Stop()
	}
	g.emitEvent(Event{State: domain.SessionDisconnected})
	return nil
}

func (g *FixGateway) OnTick(cb TickCallback)   { g.mu.Lock(); g.tickCbs = append(g.tickCbs, cb); g.mu.Unlock() }
func (g *FixGateway) OnOrder(cb OrderCallback) { g.mu.Lock(); g.orderCbs = append(g.orderCbs, cb); g.mu.Unlock() }
func (g *FixGateway) OnTrade(cb TradeCallback) { g.mu.Lock(); g.tradeCbs = append(g.tradeCbs, cb); g.mu.Unlock() }
func (g *FixGateway) OnEvent(cb EventCallback) { g.mu.Lock(); g.eventCbs = append(g.eventCbs, cb); g.mu.Unlock() }

func (g *FixGateway) notifyTick(t domain.Tick) {
	g.mu.Lock()
	cbs := append([]TickCallback(nil), g.tickCbs...)
	g.mu.Unlock()
	for _, cb := range cbs {
		g.safeCall(func() { cb(t) })
	}
}

func (g *FixGateway) notifyOrder(o domain.Order) {
	g.mu.Lock()
	cbs := append([]OrderCallback(nil), g.orderCbs...)
	g.mu.Unlock()
	for _, cb := range cbs {
		g.safeCall(func() { cb(o) })
	}
}

func (g *FixGateway) notifyTrade(t domain.Trade) {
	g.mu.Lock()
	cbs := append([]TradeCallback(nil), g.tradeCbs...)
	g.mu.Unlock()
	for _, cb := range cbs {
		g.safeCall(func() { cb(t) })
	}
}

func (g *FixGateway) emitEvent(e Event) {
	g.mu.Lock()
	cbs := append([]EventCallback(nil), g.eventCbs...)
	g.mu.Unlock()
	for _, cb := range cbs {
		g.safeCall(func() { cb(e) })
	}
}

func (g *FixGateway) safeCall(f func()) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Msg("gateway callback panicked")
		}
	}()
	f()
}

// --- quickfix.Application ---

func (g *FixGateway) OnCreate(sessionID quickfix.SessionID) {
	g.sessionID = sessionID
}

func (g *FixGateway) OnLogon(sessionID quickfix.SessionID) {
	g.sessionID = sessionID
	g.loggedInCh.Do(func() { close(g.loggedIn) })
	g.log.Info().Str("session_id", sessionID.String()).Msg("logon")
}

func (g *FixGateway) OnLogout(sessionID quickfix.SessionID) {
	g.log.Warn().Str("session_id", sessionID.String()).Msg("logout")
	g.emitEvent(Event{State: domain.SessionDisconnected, Reason: domain.ReasonNetReadFail})
}

func (g *FixGateway) ToAdmin(msg *quickfix.Message, _ quickfix.SessionID) {
	if t, _ := msg.Header.GetString(constants.TagMsgType); t == constants.MsgTypeLogon {
		ts := time.Now().UTC().Format(constants.FixTimeFormat)
		builder.BuildLogon(&msg.Body, ts, g.config.APIKey, g.config.APISecret, g.config.Passphrase, g.config.TargetCompID, g.config.PortfolioID)
	}
}

func (g *FixGateway) FromAdmin(_ *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (g *FixGateway) ToApp(_ *quickfix.Message, _ quickfix.SessionID) error {
	return nil
}

func (g *FixGateway) FromApp(msg *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	msgType, _ := msg.Header.GetString(constants.TagMsgType)
	switch msgType {
	case constants.MsgTypeExecutionReport:
		g.handleExecutionReport(msg)
	case constants.MsgTypeOrderCancelReject:
		g.handleCancelReject(msg)
	default:
		g.log.Debug().Str("msg_type", msgType).Msg("unhandled application message")
	}
	return nil
}

func (g *FixGateway) handleExecutionReport(msg *quickfix.Message) {
	clOrdID := utils.GetString(msg, constants.TagClOrdID)
	orderID := utils.GetString(msg, constants.TagOrderID)
	ordStatus := utils.GetString(msg, constants.TagOrdStatus)
	execType := utils.GetString(msg, constants.TagExecType)
	symbol := utils.GetString(msg, constants.TagSymbol)
	cumQtyStr := utils.GetString(msg, constants.TagCumQty)
	leavesQtyStr := utils.GetString(msg, constants.TagLeavesQty)
	lastQtyStr := utils.GetString(msg, constants.TagLastShares)
	lastPxStr := utils.GetString(msg, constants.TagLastPx)

	g.mu.Lock()
	order, found := g.clOrdByID[clOrdID]
	if !found {
		order = &domain.Order{ClOrdID: clOrdID, InstrumentID: symbol, CreatedAt: time.Now()}
		g.clOrdByID[clOrdID] = order
	}
	order.ExchangeID = orderID
	order.UpdatedAt = time.Now()
	newStatus := mapOrdStatus(ordStatus)
	if domain.CanTransition(order.Status, newStatus) {
		order.Status = newStatus
	}
	if cumQty, err := decimal.NewFromString(cumQtyStr); err == nil {
		order.TradedVolume = int(cumQty.IntPart())
	}
	if leavesQty, err := decimal.NewFromString(leavesQtyStr); err == nil {
		order.RemainingVolume = int(leavesQty.IntPart())
	}
	snapshot := *order
	g.mu.Unlock()

	g.notifyOrder(snapshot)

	if execType == constants.ExecTypeFilled || execType == constants.ExecTypePartialFill {
		lastQty, qtyErr := decimal.NewFromString(lastQtyStr)
		lastPx, pxErr := decimal.NewFromString(lastPxStr)
		if qtyErr == nil && pxErr == nil {
			g.notifyTrade(domain.Trade{
				InstrumentID:    symbol,
				Direction:       snapshot.Direction,
				Offset:          snapshot.Offset,
				Price:           lastPx,
				Volume:          int(lastQty.IntPart()),
				ExchangeTradeID: orderID,
				ClOrdID:         clOrdID,
			})
		}
	}
}

func (g *FixGateway) handleCancelReject(msg *quickfix.Message) {
	clOrdID := utils.GetString(msg, constants.TagClOrdID)
	reason := utils.GetString(msg, constants.TagCxlRejReason)
	text := utils.GetString(msg, constants.TagText)
	g.log.Warn().Str("cl_ord_id", clOrdID).Str("reason", reason).Str("text", text).Msg("cancel rejected")
}

// mapOrdStatus translates FIX's single-character OrdStatus into the order
// lifecycle's named states.
func mapOrdStatus(ordStatus string) domain.OrderStatus {
	switch ordStatus {
	case "0":
		return domain.StatusQueued
	case "1":
		return domain.StatusPartiallyFilledQueued
	case "2":
		return domain.StatusAllFilled
	case "4":
		return domain.StatusCancelled
	case "8":
		return domain.StatusUnfilledGone
	default:
		return domain.StatusUnknown
	}
}
