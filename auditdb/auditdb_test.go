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

package auditdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/emergency"
	"github.com/ByteBard/prime-ctp-go/monitor"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDB_RecordOrder(t *testing.T) {
	db := openTestDB(t)
	order := domain.Order{
		ClOrdID:         "clid-1",
		InstrumentID:    "IF2501",
		Direction:       domain.DirectionBuy,
		Offset:          domain.OffsetOpen,
		Status:          domain.StatusQueued,
		Price:           decimal.NewFromFloat(4500.2),
		OriginalVolume:  2,
		TradedVolume:    0,
		RemainingVolume: 2,
	}
	require.NoError(t, db.RecordOrder(order))

	var count int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM orders WHERE cl_ord_id = ?`, "clid-1").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDB_RecordTrade(t *testing.T) {
	db := openTestDB(t)
	trade := domain.Trade{
		InstrumentID:    "IF2501",
		Direction:       domain.DirectionSell,
		Offset:          domain.OffsetCloseToday,
		Price:           decimal.NewFromFloat(4510.0),
		Volume:          1,
		ExchangeTradeID: "ex-1",
		ClOrdID:         "clid-1",
	}
	require.NoError(t, db.RecordTrade(trade))

	var instrumentID string
	require.NoError(t, db.db.QueryRow(`SELECT instrument_id FROM trades WHERE exchange_trade_id = ?`, "ex-1").Scan(&instrumentID))
	assert.Equal(t, "IF2501", instrumentID)
}

func TestDB_RecordAlert(t *testing.T) {
	db := openTestDB(t)
	a := domain.Alert{
		ID:        uuid.New(),
		Level:     domain.AlertLevelCritical,
		Type:      domain.AlertTypeThreshold,
		Message:   "breach",
		Timestamp: time.Now(),
	}
	require.NoError(t, db.RecordAlert(a))

	var level string
	require.NoError(t, db.db.QueryRow(`SELECT level FROM alerts WHERE alert_id = ?`, a.ID.String()).Scan(&level))
	assert.Equal(t, "critical", level)
}

func TestDB_RecordBreach(t *testing.T) {
	db := openTestDB(t)
	b := monitor.ThresholdBreach{
		Kind:         "repeat_open",
		Level:        domain.AlertLevelWarning,
		CurrentValue: 11,
		Limit:        10,
		InstrumentID: "IF2501",
		Message:      "too many opens",
		Timestamp:    time.Now(),
	}
	require.NoError(t, db.RecordBreach(b))

	var currentValue int
	require.NoError(t, db.db.QueryRow(`SELECT current_value FROM threshold_breaches WHERE instrument_id = ?`, "IF2501").Scan(&currentValue))
	assert.Equal(t, 11, currentValue)
}

func TestDB_RecordEmergencyEvent_EncodesSuccessAsInteger(t *testing.T) {
	db := openTestDB(t)
	e := emergency.Event{
		Action:    emergency.ActionForceLogout,
		Timestamp: time.Now(),
		Reason:    "operator triggered",
		Success:   true,
	}
	require.NoError(t, db.RecordEmergencyEvent(e))

	var success int
	require.NoError(t, db.db.QueryRow(`SELECT success FROM emergency_events WHERE reason = ?`, "operator triggered").Scan(&success))
	assert.Equal(t, 1, success)
}

func TestOpen_CreatesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	db1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
}
