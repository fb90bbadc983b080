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

// Package emergency implements the operator's last-resort controls: pause/
// resume trading, stop one or all strategies, force logout, and cancel
// orders by instrument or across the whole book. Grounded on
// emergency/emergency_handler.py.
package emergency

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ByteBard/prime-ctp-go/alert"
	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/session"
)

type Action string

const (
	ActionPauseTrading  Action = "pause_trading"
	ActionStopStrategy  Action = "stop_strategy"
	ActionCancelOrders  Action = "cancel_orders"
	ActionForceLogout   Action = "force_logout"
	ActionResumeTrading Action = "resume_trading"
)

// Event is one recorded emergency action, successful or not.
type Event struct {
	Action    Action
	Timestamp time.Time
	Reason    string
	Success   bool
	Details   map[string]any
}

// StrategyControl is the minimal surface the handler needs to stop a
// running strategy; strategy.Manager's entries satisfy this directly.
type StrategyControl interface {
	Stop()
}

// PendingOrder is the minimal shape cancel_orders_by_instrument/
// cancel_all_orders need: enough to target a Gateway.Cancel call.
type PendingOrder struct {
	ClOrdID      string
	InstrumentID string
}

// Handler is the trading system's emergency-stop surface: it never talks
// to the exchange directly except through the Gateway it was built with,
// and every action is recorded to a bounded history for the operator
// console's audit view.
type Handler struct {
	gateway session.Gateway
	alerts  *alert.Service
	log     zerolog.Logger

	mu              sync.Mutex
	tradingPaused   bool
	strategyStopped bool
	strategies      map[string]StrategyControl
	strategyRunning map[string]bool
	pendingOrders   map[string]PendingOrder
	history         []Event
	maxHistory      int
	cancelPacing    time.Duration
}

func NewHandler(gateway session.Gateway, alerts *alert.Service, log zerolog.Logger) *Handler {
	return &Handler{
		gateway:         gateway,
		alerts:          alerts,
		log:             log.With().Str("component", "emergency_handler").Logger(),
		strategies:      make(map[string]StrategyControl),
		strategyRunning: make(map[string]bool),
		pendingOrders:   make(map[string]PendingOrder),
		maxHistory:      1000,
		cancelPacing:    100 * time.Millisecond,
	}
}

// --- pause / resume ---

// PauseTrading flips the internal trading-allowed flag; callers (the
// orchestrator's order-submission path) must check IsTradingPaused before
// forwarding a strategy's order to the gateway.
func (h *Handler) PauseTrading(reason string) bool {
	h.mu.Lock()
	if h.tradingPaused {
		h.mu.Unlock()
		h.log.Info().Msg("trading already paused")
		return true
	}
	h.tradingPaused = true
	h.mu.Unlock()

	h.recordEvent(ActionPauseTrading, reason, true, nil)
	h.log.Warn().Str("reason", reason).Msg("trading paused")
	if h.alerts != nil {
		h.alerts.Warning(domain.AlertTypeSystem, "trading paused: "+reason, nil)
	}
	return true
}

func (h *Handler) ResumeTrading(reason string) bool {
	h.mu.Lock()
	if !h.tradingPaused {
		h.mu.Unlock()
		h.log.Info().Msg("trading not paused")
		return true
	}
	h.tradingPaused = false
	h.mu.Unlock()

	h.recordEvent(ActionResumeTrading, reason, true, nil)
	h.log.Info().Str("reason", reason).Msg("trading resumed")
	if h.alerts != nil {
		h.alerts.Info(domain.AlertTypeSystem, "trading resumed: "+reason, nil)
	}
	return true
}

func (h *Handler) IsTradingPaused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tradingPaused
}

// --- strategy control ---

func (h *Handler) RegisterStrategy(id string, ctrl StrategyControl) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.strategies[id] = ctrl
	h.strategyRunning[id] = true
}

func (h *Handler) UnregisterStrategy(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.strategies, id)
	delete(h.strategyRunning, id)
}

func (h *Handler) IsStrategyRunning(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.strategyRunning[id]
}

// StopStrategy stops one strategy (by id) or all of them (id == "").
func (h *Handler) StopStrategy(id, reason string) bool {
	h.mu.Lock()
	target := id
	if id != "" {
		if ctrl, ok := h.strategies[id]; ok {
			h.strategyRunning[id] = false
			h.mu.Unlock()
			ctrl.Stop()
			h.log.Info().Str("strategy_id", id).Str("reason", reason).Msg("strategy stopped")
		} else {
			h.mu.Unlock()
		}
	} else {
		ctrls := make(map[string]StrategyControl, len(h.strategies))
		for sid, ctrl := range h.strategies {
			h.strategyRunning[sid] = false
			ctrls[sid] = ctrl
		}
		h.strategyStopped = true
		target = "ALL"
		h.mu.Unlock()
		for _, ctrl := range ctrls {
			ctrl.Stop()
		}
		h.log.Info().Str("reason", reason).Msg("all strategies stopped")
	}

	h.recordEvent(ActionStopStrategy, reason, true, map[string]any{"strategy_id": target})
	if h.alerts != nil {
		h.alerts.Warning(domain.AlertTypeStrategy, "strategy stopped: "+reason, map[string]any{"strategy_id": target})
	}
	return true
}

// --- force logout ---

func (h *Handler) ForceLogout(ctx context.Context, reason string) bool {
	h.CancelAllOrders(ctx, reason)
	if err := h.gateway.Disconnect(); err != nil {
		h.recordEvent(ActionForceLogout, reason, false, map[string]any{"error": err.Error()})
		h.log.Error().Err(err).Msg("force logout failed")
		return false
	}
	h.recordEvent(ActionForceLogout, reason, true, nil)
	h.log.Warn().Str("reason", reason).Msg("forced logout")
	if h.alerts != nil {
		h.alerts.Critical(domain.AlertTypeConnection, "forced logout: "+reason, nil)
	}
	return true
}

// --- cancel orders ---

func (h *Handler) RegisterPending(order PendingOrder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pendingOrders[order.ClOrdID] = order
}

func (h *Handler) UnregisterPending(clOrdID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pendingOrders, clOrdID)
}

func (h *Handler) pendingFor(instrumentID string) []PendingOrder {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]PendingOrder, 0, len(h.pendingOrders))
	for _, o := range h.pendingOrders {
		if instrumentID == "" || o.InstrumentID == instrumentID {
			out = append(out, o)
		}
	}
	return out
}

// CancelOrdersByInstrument cancels every registered pending order for one
// instrument, pacing requests 100ms apart so a burst of cancels doesn't
// trip the gateway's own rate limiting.
func (h *Handler) CancelOrdersByInstrument(ctx context.Context, instrumentID, reason string) map[string]bool {
	orders := h.pendingFor(instrumentID)
	results := make(map[string]bool, len(orders))

	h.log.Info().Str("instrument_id", instrumentID).Int("order_count", len(orders)).Msg("cancelling orders by instrument")

	for _, o := range orders {
		err := h.gateway.Cancel(ctx, o.ClOrdID)
		results[o.ClOrdID] = err == nil
		if err != nil {
			h.log.Error().Str("cl_ord_id", o.ClOrdID).Err(err).Msg("cancel failed")
		}
		time.Sleep(h.cancelPacing)
	}

	successCount := countTrue(results)
	h.recordEvent(ActionCancelOrders, reason, successCount > 0, map[string]any{
		"instrument_id": instrumentID,
		"total":         len(results),
		"success":       successCount,
	})
	return results
}

// CancelAllOrders cancels every registered pending order regardless of
// instrument.
func (h *Handler) CancelAllOrders(ctx context.Context, reason string) map[string]bool {
	orders := h.pendingFor("")
	results := make(map[string]bool, len(orders))

	h.log.Info().Int("order_count", len(orders)).Msg("cancelling all orders")
	if h.alerts != nil {
		h.alerts.Warning(domain.AlertTypeOrder, "cancelling all pending orders", map[string]any{"count": len(orders)})
	}

	for _, o := range orders {
		err := h.gateway.Cancel(ctx, o.ClOrdID)
		results[o.ClOrdID] = err == nil
		time.Sleep(h.cancelPacing)
	}

	successCount := countTrue(results)
	h.recordEvent(ActionCancelOrders, reason, true, map[string]any{
		"type":    "ALL",
		"total":   len(results),
		"success": successCount,
	})
	h.log.Info().Int("total", len(results)).Int("success", successCount).Msg("cancel-all complete")
	return results
}

func countTrue(m map[string]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// --- one-shot emergency stop ---

// EmergencyStop runs every countermeasure in sequence: pause trading, stop
// all strategies, cancel every pending order.
func (h *Handler) EmergencyStop(ctx context.Context, reason string) {
	h.log.Error().Str("reason", reason).Msg("executing emergency stop")
	if h.alerts != nil {
		h.alerts.Critical(domain.AlertTypeSystem, "emergency stop: "+reason, nil)
	}

	h.PauseTrading(reason)
	h.StopStrategy("", reason)
	h.CancelAllOrders(ctx, reason)

	h.log.Error().Msg("emergency stop complete")
}

// --- history / status ---

func (h *Handler) recordEvent(action Action, reason string, success bool, details map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, Event{
		Action:    action,
		Timestamp: time.Now(),
		Reason:    reason,
		Success:   success,
		Details:   details,
	})
	if len(h.history) > h.maxHistory {
		h.history = h.history[len(h.history)-h.maxHistory:]
	}
}

func (h *Handler) EventHistory(limit int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > len(h.history) {
		limit = len(h.history)
	}
	return append([]Event(nil), h.history[len(h.history)-limit:]...)
}

// StatusReport is the emergency handler's contribution to get_system_status.
type StatusReport struct {
	TradingPaused        bool
	StrategyStopped      bool
	RegisteredStrategies []string
	StrategyStatus       map[string]bool
	PendingOrdersCount   int
	EventCount           int
}

func (h *Handler) StatusReport() StatusReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.strategies))
	for id := range h.strategies {
		ids = append(ids, id)
	}
	status := make(map[string]bool, len(h.strategyRunning))
	for id, running := range h.strategyRunning {
		status[id] = running
	}
	return StatusReport{
		TradingPaused:        h.tradingPaused,
		StrategyStopped:      h.strategyStopped,
		RegisteredStrategies: ids,
		StrategyStatus:       status,
		PendingOrdersCount:   len(h.pendingOrders),
		EventCount:           len(h.history),
	}
}
