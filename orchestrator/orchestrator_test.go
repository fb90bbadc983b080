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

package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/config"
	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/session"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *session.FakeGateway) {
	t.Helper()
	catalog := domain.NewInstrumentCatalogue()
	catalog.Load([]domain.Instrument{
		{ID: "IF2501", Multiplier: decimal.NewFromInt(300), PriceTick: decimal.NewFromFloat(0.2),
			MaxOrderVolume: 100, MinOrderVolume: 1},
	})
	gw := session.NewFakeGateway()
	o, err := New(Deps{
		Config:       config.Defaults(),
		Log:          zerolog.Nop(),
		Catalog:      catalog,
		Gateway:      gw,
		AuditDBPath:  filepath.Join(t.TempDir(), "audit.db"),
		InstrumentID: "IF2501",
	})
	require.NoError(t, err)
	t.Cleanup(o.Shutdown)
	return o, gw
}

func TestOrchestrator_StartRunsTheLoginSequence(t *testing.T) {
	o, gw := newTestOrchestrator(t)
	require.NoError(t, o.Start(context.Background()))
	assert.True(t, gw.IsLoggedIn())
}

func TestOrchestrator_Submit_RejectedWhileTradingPaused(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	require.NoError(t, o.Start(context.Background()))

	o.PauseTrading("operator request")
	_, err := o.OpenLong(context.Background(), decimal.NewFromFloat(4500.2), 1)
	assert.ErrorContains(t, err, "paused")
}

func TestOrchestrator_PauseResumeTrading_Idempotent(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	assert.True(t, o.PauseTrading("maintenance"))
	assert.True(t, o.PauseTrading("maintenance again"), "re-pausing an already-paused session is a no-op success")
	assert.True(t, o.ResumeTrading("maintenance over"))
}

func TestOrchestrator_CancelOrder_CountsAndUnregisters(t *testing.T) {
	o, gw := newTestOrchestrator(t)
	require.NoError(t, o.Start(context.Background()))

	require.NoError(t, o.CancelOrder(context.Background(), "some-cl-ord-id"))
	assert.Contains(t, gw.CancelledIDs(), "some-cl-ord-id")
	assert.Equal(t, 1, o.OrderMonitor().TotalCancelCount())
}

func TestOrchestrator_EmergencyStop_PausesAndCancelsAll(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	require.NoError(t, o.Start(context.Background()))

	o.EmergencyStop(context.Background(), "operator panic button")
	assert.True(t, o.GetSystemStatus().TradingPaused)
}

func TestOrchestrator_GetSystemStatus_ReportsConnectionAndCounters(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	require.NoError(t, o.Start(context.Background()))

	status := o.GetSystemStatus()
	assert.Equal(t, domain.SessionLoggedIn, status.Connection.CurrentState)
	assert.Empty(t, status.ActiveStrategy)
	assert.GreaterOrEqual(t, status.MemPercent, 0.0)
}

func TestOrchestrator_OnTrade_CountsAgainstOrderMonitor(t *testing.T) {
	o, gw := newTestOrchestrator(t)
	require.NoError(t, o.Start(context.Background()))

	gw.DeliverTrade(domain.Trade{InstrumentID: "IF2501", Volume: 2, Price: decimal.NewFromFloat(4500.2)})
	stats := o.OrderMonitor().AllInstrumentStats()["IF2501"]
	assert.Equal(t, 1, stats.TradeCount)
}
