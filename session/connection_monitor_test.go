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
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/domain"
)

func fastReconnectConfig() ConnectionMonitorConfig {
	return ConnectionMonitorConfig{
		ReconnectInterval:   0,
		MaxReconnectAttempt: 3,
		HeartbeatInterval:   time.Hour,
	}
}

func TestConnectionMonitor_TracksConnectAuthenticateLogin(t *testing.T) {
	gw := NewFakeGateway()
	mon := NewConnectionMonitor(gw, fastReconnectConfig(), zerolog.Nop())

	require.NoError(t, gw.Connect(context.Background()))
	assert.Equal(t, domain.SessionConnected, mon.CurrentState())

	require.NoError(t, gw.Authenticate(context.Background()))
	assert.Equal(t, domain.SessionAuthenticated, mon.CurrentState())

	require.NoError(t, gw.Login(context.Background()))
	assert.Equal(t, domain.SessionLoggedIn, mon.CurrentState())
	assert.True(t, mon.IsHealthy())
}

func TestConnectionMonitor_DisconnectTriggersAutoReconnect(t *testing.T) {
	gw := NewFakeGateway()
	mon := NewConnectionMonitor(gw, fastReconnectConfig(), zerolog.Nop())

	require.NoError(t, gw.Connect(context.Background()))
	require.NoError(t, gw.Login(context.Background()))
	require.NoError(t, gw.Disconnect())

	require.Eventually(t, func() bool {
		return mon.CurrentState() == domain.SessionLoggedIn
	}, time.Second, time.Millisecond, "expected reconnect to restore a logged-in session")
}

func TestConnectionMonitor_GivesUpAfterMaxReconnectAttempts(t *testing.T) {
	gw := NewFakeGateway()
	cfg := fastReconnectConfig()
	cfg.MaxReconnectAttempt = 0
	mon := NewConnectionMonitor(gw, cfg, zerolog.Nop())

	require.NoError(t, gw.Connect(context.Background()))
	require.NoError(t, gw.Disconnect())

	require.Eventually(t, func() bool {
		return mon.CurrentState() == domain.SessionError
	}, time.Second, time.Millisecond, "expected the monitor to give up and report SessionError")
}

func TestConnectionMonitor_DisableAutoReconnect_SkipsReconnectLoop(t *testing.T) {
	gw := NewFakeGateway()
	mon := NewConnectionMonitor(gw, fastReconnectConfig(), zerolog.Nop())
	mon.DisableAutoReconnect()

	require.NoError(t, gw.Connect(context.Background()))
	require.NoError(t, gw.Disconnect())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.SessionDisconnected, mon.CurrentState())
	assert.Equal(t, 0, mon.ReconnectCount())
}

func TestConnectionMonitor_RegisterStateCallback_RecoversPanics(t *testing.T) {
	gw := NewFakeGateway()
	mon := NewConnectionMonitor(gw, fastReconnectConfig(), zerolog.Nop())

	var mu sync.Mutex
	var seen []domain.SessionState
	mon.RegisterStateCallback(func(old, new domain.SessionState) {
		mu.Lock()
		seen = append(seen, new)
		mu.Unlock()
	})
	mon.RegisterStateCallback(func(old, new domain.SessionState) {
		panic("boom")
	})

	require.NotPanics(t, func() {
		require.NoError(t, gw.Connect(context.Background()))
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, domain.SessionConnected)
}

func TestConnectionMonitor_EventHistory_CapsAtLimit(t *testing.T) {
	gw := NewFakeGateway()
	mon := NewConnectionMonitor(gw, fastReconnectConfig(), zerolog.Nop())

	require.NoError(t, gw.Connect(context.Background()))
	require.NoError(t, gw.Authenticate(context.Background()))
	require.NoError(t, gw.Login(context.Background()))

	all := mon.EventHistory(0)
	require.Len(t, all, 3)

	last := mon.EventHistory(1)
	require.Len(t, last, 1)
	assert.Equal(t, domain.SessionLoggedIn, last[0].State)
}

func TestConnectionMonitor_ResetReconnectCount(t *testing.T) {
	gw := NewFakeGateway()
	cfg := fastReconnectConfig()
	cfg.MaxReconnectAttempt = 0
	mon := NewConnectionMonitor(gw, cfg, zerolog.Nop())

	require.NoError(t, gw.Connect(context.Background()))
	require.NoError(t, gw.Disconnect())

	require.Eventually(t, func() bool {
		return mon.CurrentState() == domain.SessionError
	}, time.Second, time.Millisecond)

	mon.ResetReconnectCount()
	assert.Equal(t, 0, mon.ReconnectCount())
}

func TestConnectionMonitor_StatusReport(t *testing.T) {
	gw := NewFakeGateway()
	mon := NewConnectionMonitor(gw, fastReconnectConfig(), zerolog.Nop())
	require.NoError(t, gw.Connect(context.Background()))

	status := mon.StatusReport()
	assert.Equal(t, domain.SessionConnected, status.CurrentState)
	assert.True(t, status.AutoReconnectEnabled)
	assert.Equal(t, 1, status.RecentEventsCount)
}
