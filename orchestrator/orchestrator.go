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

// Package orchestrator wires every component the trading pipeline needs
// (gateway, connection monitor, validator, order monitor, threshold
// manager, alert service, emergency handler, strategy manager, audit
// database) into one object and exposes exactly the abstract
// operator surface spec.md names: open_long/open_short/close_long/
// close_short/cancel_order/pause_trading/resume_trading/
// cancel_all_orders/emergency_stop/get_system_status. There is no single
// teacher file this is grounded on one-to-one — it is the composition
// root the teacher's main.go/fixapp.go play for the FIX client, adapted
// to wire this repo's own component graph instead of quickfix's app
// callbacks directly.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shopspring/decimal"

	"github.com/ByteBard/prime-ctp-go/alert"
	"github.com/ByteBard/prime-ctp-go/auditdb"
	"github.com/ByteBard/prime-ctp-go/clock"
	"github.com/ByteBard/prime-ctp-go/config"
	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/emergency"
	"github.com/ByteBard/prime-ctp-go/monitor"
	"github.com/ByteBard/prime-ctp-go/session"
	"github.com/ByteBard/prime-ctp-go/strategy"
	"github.com/ByteBard/prime-ctp-go/validator"
)

// Orchestrator is the composition root: one instance per running trading
// system, built once at startup and handed to whatever operator surface
// (cmd/operatorctl's REPL, a future RPC service) drives it.
type Orchestrator struct {
	cfg *config.Config
	log zerolog.Logger

	catalog    *domain.InstrumentCatalogue
	gateway    session.Gateway
	connMon    *session.ConnectionMonitor
	validator  *validator.Validator
	orderMon   *monitor.OrderMonitor
	thresholds *monitor.ThresholdManager
	alerts     *alert.Service
	emergency  *emergency.Handler
	strategies *strategy.Manager
	audit      *auditdb.DB

	instrumentID string // the single configured instrument orchestrator-level orders target
}

// Deps bundles the already-constructed components New assembles. Callers
// (cmd/tradingd) build each piece from config, then hand them in as a
// group — the orchestrator does no I/O of its own at construction time
// except opening the audit database, mirroring the teacher's separation
// between argument parsing/wiring (main.go) and the running application.
type Deps struct {
	Config       *config.Config
	Log          zerolog.Logger
	Catalog      *domain.InstrumentCatalogue
	Gateway      session.Gateway
	AuditDBPath  string
	InstrumentID string
}

// New assembles the full component graph from cfg and an already-built
// Gateway (FixGateway in production, FakeGateway in tests), in the order
// the teacher's main.go wires quickfix: instrument catalogue, then
// session-backed components, then the compliance pipeline, then the
// strategy layer on top. Orders, trades and threshold breaches are written
// to the audit database; alerts and emergency events are not.
func New(d Deps) (*Orchestrator, error) {
	log := d.Log.With().Str("component", "orchestrator").Logger()

	auditDB, err := auditdb.Open(d.AuditDBPath)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open audit db: %w", err)
	}

	alerts := alert.NewService(log)
	connMon := session.NewConnectionMonitor(d.Gateway, session.DefaultConnectionMonitorConfig(), log)

	v := validator.New(log, d.Catalog, validator.DefaultTradingSessions())

	boundary := clock.NewBoundary(nil)
	orderMon := monitor.NewOrderMonitor(log, boundary)
	thresholds := monitor.NewThresholdManager(log, orderMon, monitor.Thresholds{
		RepeatOpen:   d.Config.Threshold.RepeatOpenThreshold,
		RepeatClose:  d.Config.Threshold.RepeatCloseThreshold,
		RepeatCancel: d.Config.Threshold.RepeatCancelThreshold,
		TotalOrder:   d.Config.Threshold.TotalOrderThreshold,
		TotalCancel:  d.Config.Threshold.TotalCancelThreshold,
	})

	emergencyHandler := emergency.NewHandler(d.Gateway, alerts, log)
	strategies := strategy.NewManager(log)

	o := &Orchestrator{
		cfg:          d.Config,
		log:          log,
		catalog:      d.Catalog,
		gateway:      d.Gateway,
		connMon:      connMon,
		validator:    v,
		orderMon:     orderMon,
		thresholds:   thresholds,
		alerts:       alerts,
		emergency:    emergencyHandler,
		strategies:   strategies,
		audit:        auditDB,
		instrumentID: d.InstrumentID,
	}

	thresholds.RegisterCallback(o.onThresholdBreach)
	d.Gateway.OnOrder(o.onOrder)
	d.Gateway.OnTrade(o.onTrade)
	d.Gateway.OnTick(o.onTick)
	emergencyHandler.RegisterStrategy("", strategyManagerControl{strategies})

	return o, nil
}

// strategyManagerControl adapts strategy.Manager.StopAll to
// emergency.StrategyControl's single-method Stop surface, so the manager
// can be registered under the "" (stop-everything) key without the
// emergency package needing to know about strategy.Manager directly.
type strategyManagerControl struct{ m *strategy.Manager }

func (s strategyManagerControl) Stop() { s.m.StopAll() }

func (o *Orchestrator) onOrder(ord domain.Order) {
	if err := o.audit.RecordOrder(ord); err != nil {
		o.log.Error().Err(err).Msg("failed to record order to audit db")
	}
}

func (o *Orchestrator) onTrade(t domain.Trade) {
	o.orderMon.CountTrade(t.InstrumentID, int64(t.Volume))
	if err := o.audit.RecordTrade(t); err != nil {
		o.log.Error().Err(err).Msg("failed to record trade to audit db")
	}
}

func (o *Orchestrator) onTick(t domain.Tick) {
	o.strategies.OnTick(context.Background(), t)
}

func (o *Orchestrator) onThresholdBreach(b monitor.ThresholdBreach) {
	level := domain.AlertLevelWarning
	if b.Level == domain.AlertLevelCritical {
		level = domain.AlertLevelCritical
	}
	o.alerts.Send(level, domain.AlertTypeThreshold, b.Message, map[string]any{
		"kind":          string(b.Kind),
		"instrument_id": b.InstrumentID,
		"current":       b.CurrentValue,
		"limit":         b.Limit,
	})
	if err := o.audit.RecordBreach(b); err != nil {
		o.log.Error().Err(err).Msg("failed to record threshold breach to audit db")
	}
}

// --- lifecycle ---

// Start starts the connection monitor's health loop, then connects,
// authenticates, logs in, and confirms settlement — the sequence spec.md
// §4.2's state diagram requires before any order may be submitted.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.connMon.Start(ctx)
	if err := o.gateway.Connect(ctx); err != nil {
		return fmt.Errorf("orchestrator: connect: %w", err)
	}
	if err := o.gateway.Authenticate(ctx); err != nil {
		return fmt.Errorf("orchestrator: authenticate: %w", err)
	}
	if err := o.gateway.Login(ctx); err != nil {
		return fmt.Errorf("orchestrator: login: %w", err)
	}
	if err := o.gateway.ConfirmSettlement(ctx); err != nil {
		return fmt.Errorf("orchestrator: confirm settlement: %w", err)
	}

	instruments, err := o.gateway.QueryInstruments(ctx)
	if err == nil {
		o.catalog.Load(instruments)
	}

	o.log.Info().Msg("orchestrator started")
	return nil
}

func (o *Orchestrator) Shutdown() {
	o.connMon.Stop()
	if err := o.gateway.Disconnect(); err != nil {
		o.log.Error().Err(err).Msg("disconnect failed during shutdown")
	}
	if err := o.audit.Close(); err != nil {
		o.log.Error().Err(err).Msg("failed to close audit database")
	}
}

// --- operator surface: spec.md §6's abstract operations ---

func (o *Orchestrator) submit(ctx context.Context, instrumentID string, dir domain.Direction, offset domain.OffsetFlag, price decimal.Decimal, volume int) (string, error) {
	if o.emergency.IsTradingPaused() {
		return "", fmt.Errorf("orchestrator: trading is paused")
	}

	req := domain.NewLimitOrderRequest(instrumentID, dir, offset, price, volume)
	result := o.validator.Validate(req)
	if !result.Valid {
		return "", fmt.Errorf("orchestrator: order rejected: %s: %s", result.Kind, result.Message)
	}

	if offset == domain.OffsetOpen {
		o.orderMon.CountOpen(instrumentID)
	} else {
		o.orderMon.CountClose(instrumentID)
	}

	clOrdID, err := o.gateway.Submit(ctx, req)
	if err != nil {
		return "", fmt.Errorf("orchestrator: submit: %w", err)
	}
	o.emergency.RegisterPending(emergency.PendingOrder{ClOrdID: clOrdID, InstrumentID: instrumentID})
	return clOrdID, nil
}

// OpenLong submits a buy-open order on the orchestrator's configured
// instrument.
func (o *Orchestrator) OpenLong(ctx context.Context, price decimal.Decimal, volume int) (string, error) {
	return o.submit(ctx, o.instrumentID, domain.DirectionBuy, domain.OffsetOpen, price, volume)
}

// OpenShort submits a sell-open order.
func (o *Orchestrator) OpenShort(ctx context.Context, price decimal.Decimal, volume int) (string, error) {
	return o.submit(ctx, o.instrumentID, domain.DirectionSell, domain.OffsetOpen, price, volume)
}

// CloseLong submits a sell-close order against an existing long position.
func (o *Orchestrator) CloseLong(ctx context.Context, price decimal.Decimal, volume int, closeToday bool) (string, error) {
	offset := domain.OffsetClose
	if closeToday {
		offset = domain.OffsetCloseToday
	}
	return o.submit(ctx, o.instrumentID, domain.DirectionSell, offset, price, volume)
}

// CloseShort submits a buy-close order against an existing short position.
func (o *Orchestrator) CloseShort(ctx context.Context, price decimal.Decimal, volume int, closeToday bool) (string, error) {
	offset := domain.OffsetClose
	if closeToday {
		offset = domain.OffsetCloseToday
	}
	return o.submit(ctx, o.instrumentID, domain.DirectionBuy, offset, price, volume)
}

// CancelOrder cancels one order by its client order reference.
func (o *Orchestrator) CancelOrder(ctx context.Context, clOrdID string) error {
	o.orderMon.CountCancel(o.instrumentID)
	if err := o.gateway.Cancel(ctx, clOrdID); err != nil {
		return fmt.Errorf("orchestrator: cancel: %w", err)
	}
	o.emergency.UnregisterPending(clOrdID)
	return nil
}

// PauseTrading disables order submission at the orchestration layer;
// idempotent.
func (o *Orchestrator) PauseTrading(reason string) bool { return o.emergency.PauseTrading(reason) }

// ResumeTrading re-enables submission; idempotent.
func (o *Orchestrator) ResumeTrading(reason string) bool { return o.emergency.ResumeTrading(reason) }

// CancelAllOrders cancels every registered pending order across every
// instrument.
func (o *Orchestrator) CancelAllOrders(ctx context.Context, reason string) map[string]bool {
	return o.emergency.CancelAllOrders(ctx, reason)
}

// EmergencyStop runs pause + stop-all-strategies + cancel-all in order.
func (o *Orchestrator) EmergencyStop(ctx context.Context, reason string) {
	o.emergency.EmergencyStop(ctx, reason)
}

// OrderMonitor exposes the shared order monitor so strategy.Base
// instances built by the caller count against the same account-wide
// totals the orchestrator's own manual order path counts against.
func (o *Orchestrator) OrderMonitor() *monitor.OrderMonitor { return o.orderMon }

// Validator exposes the shared validator for the same reason.
func (o *Orchestrator) Validator() *validator.Validator { return o.validator }

// TradingGate exposes the emergency handler as a strategy.TradingGate so
// every registered strategy observes the same pause/resume flag the
// manual operator surface does.
func (o *Orchestrator) TradingGate() strategy.TradingGate { return o.emergency }

// Strategies exposes the strategy manager so a caller (cmd/operatorctl,
// or a test) can register/start/stop concrete strategy engines; the
// orchestrator owns the manager but building OFIStrategy/StagedStrategy
// instances is the caller's job since only it knows which strategies a
// given deployment wants to run.
func (o *Orchestrator) Strategies() *strategy.Manager { return o.strategies }

// Status is the orchestrator's contribution to get_system_status: the
// connection state, order/cancel counters, active strategies, and recent
// alert/emergency history, matching spec.md §6's read-only status surface.
type Status struct {
	Connection      session.StatusReport
	TradingPaused   bool
	ActiveStrategy  []string
	StrategyStatus  map[string]strategy.Status
	TotalOrderCount int
	RecentAlerts    []domain.Alert
	RecentBreaches  []monitor.ThresholdBreach
	EmergencyEvents []emergency.Event
	CPUPercent      float64
	MemPercent      float64
}

// GetSystemStatus snapshots the orchestrator's full observable state,
// including host CPU/memory load — a process running unattended next
// to an exchange session is exactly the kind of thing an operator wants
// a health read on without shelling into the box, matching the host
// stats panel the teacher's system-status tooling exposes.
func (o *Orchestrator) GetSystemStatus() Status {
	cpuPct, memPct := hostLoad()
	return Status{
		Connection:      o.connMon.StatusReport(),
		TradingPaused:   o.emergency.IsTradingPaused(),
		ActiveStrategy:  o.strategies.ActiveStrategies(),
		StrategyStatus:  o.strategies.AllStatus(),
		TotalOrderCount: o.orderMon.TotalOrderCount(),
		RecentAlerts:    o.alerts.History(50),
		RecentBreaches:  o.thresholds.History(50),
		EmergencyEvents: o.emergency.EventHistory(50),
		CPUPercent:      cpuPct,
		MemPercent:      memPct,
	}
}

// hostLoad samples CPU and memory utilization over a short window, short
// enough not to stall a status request noticeably.
func hostLoad() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}
	memStat, err := mem.VirtualMemory()
	memPercent := 0.0
	if err == nil {
		memPercent = memStat.UsedPercent
	}
	return cpuPercent[0], memPercent
}
