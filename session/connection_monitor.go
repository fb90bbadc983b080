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
	"time"

	"github.com/rs/zerolog"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// ConnectionMonitorConfig tunes the reconnect loop. Defaults mirror the
// original monitor's constructor defaults.
type ConnectionMonitorConfig struct {
	ReconnectInterval   time.Duration
	MaxReconnectAttempt int
	HeartbeatInterval   time.Duration
}

func DefaultConnectionMonitorConfig() ConnectionMonitorConfig {
	return ConnectionMonitorConfig{
		ReconnectInterval:   5 * time.Second,
		MaxReconnectAttempt: 10,
		HeartbeatInterval:   30 * time.Second,
	}
}

// StateCallback observes every state transition (old, new).
type StateCallback func(old, new domain.SessionState)

// ConnectionMonitor drives the reconnect state machine on top of a Gateway:
// it watches the gateway's lifecycle events, and on disconnect retries
// connect/authenticate/login with a capped attempt count, recording every
// transition in a bounded history for the operator surface.
type ConnectionMonitor struct {
	gateway Gateway
	cfg     ConnectionMonitorConfig
	log     zerolog.Logger

	mu               sync.Mutex
	state            domain.SessionState
	lastChange       time.Time
	reconnectCount   int
	autoReconnect    bool
	history          []domain.SessionState
	events           []Event
	maxHistory       int
	stateCallbacks   []StateCallback
	cancelMonitorRun context.CancelFunc
	running          bool
}

func NewConnectionMonitor(gateway Gateway, cfg ConnectionMonitorConfig, log zerolog.Logger) *ConnectionMonitor {
	m := &ConnectionMonitor{
		gateway:       gateway,
		cfg:           cfg,
		log:           log.With().Str("component", "connection_monitor").Logger(),
		state:         domain.SessionDisconnected,
		lastChange:    time.Now(),
		autoReconnect: true,
		maxHistory:    1000,
	}
	gateway.OnEvent(m.onGatewayEvent)
	return m
}

func (m *ConnectionMonitor) onGatewayEvent(e Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	if len(m.events) > m.maxHistory {
		m.events = m.events[len(m.events)-m.maxHistory:]
	}
	m.mu.Unlock()

	switch e.State {
	case domain.SessionConnected:
		m.setState(domain.SessionConnected)
		m.mu.Lock()
		m.reconnectCount = 0
		m.mu.Unlock()
	case domain.SessionDisconnected:
		m.setState(domain.SessionDisconnected)
		m.mu.Lock()
		auto := m.autoReconnect
		m.mu.Unlock()
		if auto {
			go m.triggerReconnect()
		}
	default:
		m.setState(e.State)
	}
}

func (m *ConnectionMonitor) setState(newState domain.SessionState) {
	m.mu.Lock()
	old := m.state
	if old == newState {
		m.mu.Unlock()
		return
	}
	m.state = newState
	m.lastChange = time.Now()
	m.history = append(m.history, newState)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
	callbacks := append([]StateCallback(nil), m.stateCallbacks...)
	m.mu.Unlock()

	m.log.Info().Str("old_state", string(old)).Str("new_state", string(newState)).Msg("connection state changed")

	for _, cb := range callbacks {
		m.safeCall(cb, old, newState)
	}
}

func (m *ConnectionMonitor) safeCall(cb StateCallback, old, new domain.SessionState) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("state callback panicked")
		}
	}()
	cb(old, new)
}

func (m *ConnectionMonitor) triggerReconnect() {
	m.mu.Lock()
	if m.reconnectCount >= m.cfg.MaxReconnectAttempt {
		m.mu.Unlock()
		m.log.Error().Int("attempts", m.reconnectCount).Msg("max reconnect attempts reached, giving up")
		m.setState(domain.SessionError)
		return
	}
	m.reconnectCount++
	attempt := m.reconnectCount
	m.mu.Unlock()

	m.log.Warn().Int("attempt", attempt).Msg("reconnecting")
	m.setState(domain.SessionReconnecting)

	time.Sleep(m.cfg.ReconnectInterval)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.gateway.Connect(ctx); err != nil {
		m.setState(domain.SessionDisconnected)
		m.mu.Lock()
		auto := m.autoReconnect
		m.mu.Unlock()
		if auto {
			m.triggerReconnect()
		}
		return
	}

	authCtx, authCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer authCancel()
	if err := m.gateway.Authenticate(authCtx); err != nil {
		m.setState(domain.SessionConnected)
		return
	}

	loginCtx, loginCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer loginCancel()
	if err := m.gateway.Login(loginCtx); err != nil {
		m.setState(domain.SessionAuthenticated)
		return
	}

	m.setState(domain.SessionLoggedIn)
}

// Start marks the monitor as starting and launches the heartbeat-poll loop.
func (m *ConnectionMonitor) Start(ctx context.Context) {
	m.setState(domain.SessionStarting)

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancelMonitorRun = cancel
	m.running = true
	m.mu.Unlock()

	go m.monitorLoop(runCtx)

	m.log.Info().
		Dur("reconnect_interval", m.cfg.ReconnectInterval).
		Int("max_reconnect_attempts", m.cfg.MaxReconnectAttempt).
		Dur("heartbeat_interval", m.cfg.HeartbeatInterval).
		Msg("connection monitor started")
}

func (m *ConnectionMonitor) Stop() {
	m.mu.Lock()
	m.autoReconnect = false
	m.running = false
	cancel := m.cancelMonitorRun
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.log.Info().Msg("connection monitor stopped")
}

// monitorLoop polls once a second — matching the original's 1s poll
// cadence — checking every heartbeat interval whether the gateway still
// reports itself connected.
func (m *ConnectionMonitor) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	lastCheck := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Sub(lastCheck) >= m.cfg.HeartbeatInterval {
				m.checkHealth()
				lastCheck = now
			}
		}
	}
}

func (m *ConnectionMonitor) checkHealth() {
	if m.IsHealthy() {
		return
	}
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	if state == domain.SessionDisconnected || state == domain.SessionReconnecting || state == domain.SessionError {
		return
	}
	m.setState(domain.SessionDisconnected)
	m.mu.Lock()
	auto := m.autoReconnect
	m.mu.Unlock()
	if auto {
		go m.triggerReconnect()
	}
}

func (m *ConnectionMonitor) CurrentState() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnectionMonitor) StateDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastChange)
}

func (m *ConnectionMonitor) ReconnectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectCount
}

func (m *ConnectionMonitor) ResetReconnectCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectCount = 0
}

func (m *ConnectionMonitor) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case domain.SessionConnected, domain.SessionAuthenticated, domain.SessionLoggedIn:
		return true
	default:
		return false
	}
}

func (m *ConnectionMonitor) EnableAutoReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = true
}

func (m *ConnectionMonitor) DisableAutoReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = false
}

func (m *ConnectionMonitor) RegisterStateCallback(cb StateCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCallbacks = append(m.stateCallbacks, cb)
}

// EventHistory returns the most recent gateway lifecycle events, oldest
// first, capped at limit.
func (m *ConnectionMonitor) EventHistory(limit int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	return append([]Event(nil), m.events[len(m.events)-limit:]...)
}

// StatusReport is the connection monitor's contribution to the
// orchestrator's get_system_status surface.
type StatusReport struct {
	CurrentState         domain.SessionState
	StateDurationSeconds float64
	LastStateChange      time.Time
	ReconnectCount       int
	AutoReconnectEnabled bool
	IsHealthy            bool
	RecentEventsCount    int
}

func (m *ConnectionMonitor) StatusReport() StatusReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return StatusReport{
		CurrentState:         m.state,
		StateDurationSeconds: time.Since(m.lastChange).Seconds(),
		LastStateChange:      m.lastChange,
		ReconnectCount:       m.reconnectCount,
		AutoReconnectEnabled: m.autoReconnect,
		IsHealthy:            m.isHealthyLocked(),
		RecentEventsCount:    len(m.events),
	}
}

func (m *ConnectionMonitor) isHealthyLocked() bool {
	switch m.state {
	case domain.SessionConnected, domain.SessionAuthenticated, domain.SessionLoggedIn:
		return true
	default:
		return false
	}
}
