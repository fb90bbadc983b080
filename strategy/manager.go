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
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// Engine is the common surface every concrete strategy in this package
// exposes to the Manager: lifecycle control plus tick dispatch. Both
// OFIStrategy and StagedStrategy satisfy it through their embedded Base
// and their own OnTick. Grounded on strategy_manager.py's duck-typed
// strategy objects (hasattr(strategy, 'on_tick')/'start'/'stop').
type Engine interface {
	Start()
	Stop()
	IsRunning() bool
	OnTick(ctx context.Context, t domain.Tick)
}

// Allocation records a strategy's position-sizing budget within the
// manager, mirroring strategy_manager.py's StrategyAllocation dataclass.
// The manager only records these; enforcing a cap is left to the
// strategy's own OrderSize/PositionSize configuration, since the manager
// has no hook into an already-built Engine's sizing.
type Allocation struct {
	AllocationPct float64 // 0-1
	MaxPosition   int
}

// Status is one strategy's reported state for the operator surface's
// get_system_status, mirroring strategy_manager.py's get_all_status.
type Status struct {
	Name       string
	Active     bool
	Allocation *Allocation
}

// Manager registers, starts, stops, and switches between the strategies
// running under one orchestrator, and fans tick data out to whichever of
// them are currently active. Grounded on strategy_manager.py's
// StrategyManager; Python's register_strategy constructs a strategy from
// a type+config pair, but this port takes an already-built Engine since
// Go has no equivalent of dynamically dispatching on an enum to a
// type-specific constructor — the caller (cmd/tradingd) builds the
// concrete OFIStrategy/StagedStrategy and hands it to Register.
type Manager struct {
	log zerolog.Logger

	mu          sync.Mutex
	strategies  map[string]Engine
	allocations map[string]Allocation
	active      map[string]bool
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:         log.With().Str("component", "strategy_manager").Logger(),
		strategies:  make(map[string]Engine),
		allocations: make(map[string]Allocation),
		active:      make(map[string]bool),
	}
}

// Register adds a strategy under name. Re-registering an existing name
// replaces it; the caller is responsible for stopping the old one first.
func (m *Manager) Register(name string, engine Engine, allocation *Allocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[name] = engine
	if allocation != nil {
		m.allocations[name] = *allocation
	}
	m.log.Info().Str("strategy", name).Msg("strategy registered")
}

// SetAllocation updates a registered strategy's position-sizing budget.
func (m *Manager) SetAllocation(name string, allocationPct float64, maxPosition int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.strategies[name]; !ok {
		return fmt.Errorf("strategy manager: unknown strategy %q", name)
	}
	m.allocations[name] = Allocation{AllocationPct: allocationPct, MaxPosition: maxPosition}
	m.log.Info().Str("strategy", name).Float64("allocation_pct", allocationPct).Int("max_position", maxPosition).Msg("allocation set")
	return nil
}

// Start starts a registered strategy. Starting an already-active strategy
// is a no-op success, matching the source's idempotent start_strategy.
func (m *Manager) Start(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	engine, ok := m.strategies[name]
	if !ok {
		m.log.Error().Str("strategy", name).Msg("start failed: unknown strategy")
		return fmt.Errorf("strategy manager: unknown strategy %q", name)
	}
	if m.active[name] {
		m.log.Warn().Str("strategy", name).Msg("strategy already running")
		return nil
	}
	engine.Start()
	m.active[name] = true
	m.log.Info().Str("strategy", name).Msg("strategy started")
	return nil
}

// Stop stops a registered strategy. Stopping an unregistered name is an
// error; stopping an inactive (but registered) one is a no-op success.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	engine, ok := m.strategies[name]
	if !ok {
		return fmt.Errorf("strategy manager: unknown strategy %q", name)
	}
	engine.Stop()
	delete(m.active, name)
	m.log.Info().Str("strategy", name).Msg("strategy stopped")
	return nil
}

// Switch stops from and starts to — a manual strategy switch. Positions
// opened by from are left exactly as from's own strategy left them; the
// manager does not flatten on switch, matching the source's comment that
// callers should wait for a close to complete before switching.
func (m *Manager) Switch(from, to string) error {
	m.log.Info().Str("from", from).Str("to", to).Msg("switching strategy")
	if from != "" {
		if err := m.Stop(from); err != nil {
			return err
		}
	}
	return m.Start(to)
}

// StopAll stops every currently active strategy. The orchestrator
// registers it under the "" (all) key name in the emergency handler
// through an adapter that exposes it as emergency.StrategyControl's Stop.
func (m *Manager) StopAll() {
	m.mu.Lock()
	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		_ = m.Stop(name)
	}
}

// ActiveStrategies lists the names currently running.
func (m *Manager) ActiveStrategies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	return names
}

// AllStrategies lists every registered name, active or not.
func (m *Manager) AllStrategies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.strategies))
	for name := range m.strategies {
		names = append(names, name)
	}
	return names
}

// Get returns a registered engine by name, for callers that need the
// concrete type (e.g. the operator console rendering per-strategy pnl).
func (m *Manager) Get(name string) (Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	engine, ok := m.strategies[name]
	return engine, ok
}

// AllStatus reports active/allocation for every registered strategy,
// mirroring strategy_manager.py's get_all_status.
func (m *Manager) AllStatus() map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]Status, len(m.strategies))
	for name := range m.strategies {
		status := Status{Name: name, Active: m.active[name]}
		if alloc, ok := m.allocations[name]; ok {
			a := alloc
			status.Allocation = &a
		}
		result[name] = status
	}
	return result
}

// OnTick fans a tick out to every active strategy. A panicking strategy
// (from a bad Predictor, say) is recovered and logged rather than taking
// down the whole dispatch loop, matching the source's per-strategy
// try/except around on_tick.
func (m *Manager) OnTick(ctx context.Context, t domain.Tick) {
	m.mu.Lock()
	actives := make([]Engine, 0, len(m.active))
	names := make([]string, 0, len(m.active))
	for name := range m.active {
		if engine, ok := m.strategies[name]; ok {
			actives = append(actives, engine)
			names = append(names, name)
		}
	}
	m.mu.Unlock()

	for i, engine := range actives {
		m.dispatchTick(ctx, names[i], engine, t)
	}
}

func (m *Manager) dispatchTick(ctx context.Context, name string, engine Engine, t domain.Tick) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("strategy", name).Interface("panic", r).Msg("strategy tick handler panicked")
		}
	}()
	engine.OnTick(ctx, t)
}
