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

// Package auditdb is the compliance pipeline's queryable durable store:
// orders, trades, alerts, threshold breaches, and emergency actions each
// have a table and a Record method here, alongside the append-only audit
// log files, so a
// compliance review can run SQL against history instead of grepping log
// lines. Adapted from database/marketdata.go's SQLite idiom (WAL mode,
// prepared statements reused across inserts) generalized from market-data
// rows to compliance rows; every record is a single-row insert with no
// batching or explicit transaction. The source file's schema/init-statement constants were
// missing from the retrieved copy, so the schema here is written fresh in
// the same style rather than carried over broken.
package auditdb

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/emergency"
	"github.com/ByteBard/prime-ctp-go/monitor"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cl_ord_id TEXT NOT NULL,
	exchange_id TEXT,
	instrument_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	offset TEXT NOT NULL,
	status TEXT NOT NULL,
	price TEXT NOT NULL,
	original_volume INTEGER NOT NULL,
	traded_volume INTEGER NOT NULL,
	remaining_volume INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_cl_ord_id ON orders(cl_ord_id);
CREATE INDEX IF NOT EXISTS idx_orders_instrument ON orders(instrument_id);

CREATE TABLE IF NOT EXISTS trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	exchange_trade_id TEXT NOT NULL,
	cl_ord_id TEXT NOT NULL,
	instrument_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	offset TEXT NOT NULL,
	price TEXT NOT NULL,
	volume INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_instrument ON trades(instrument_id);

CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id TEXT NOT NULL,
	level TEXT NOT NULL,
	type TEXT NOT NULL,
	message TEXT NOT NULL,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS threshold_breaches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	level TEXT NOT NULL,
	instrument_id TEXT,
	current_value INTEGER NOT NULL,
	limit_value INTEGER NOT NULL,
	message TEXT NOT NULL,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS emergency_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action TEXT NOT NULL,
	reason TEXT NOT NULL,
	success INTEGER NOT NULL,
	timestamp TEXT NOT NULL
);
`

const (
	insertOrderQuery = `INSERT INTO orders
		(cl_ord_id, exchange_id, instrument_id, direction, offset, status, price, original_volume, traded_volume, remaining_volume, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertTradeQuery = `INSERT INTO trades
		(exchange_trade_id, cl_ord_id, instrument_id, direction, offset, price, volume, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertAlertQuery = `INSERT INTO alerts
		(alert_id, level, type, message, timestamp)
		VALUES (?, ?, ?, ?, ?)`

	insertBreachQuery = `INSERT INTO threshold_breaches
		(kind, level, instrument_id, current_value, limit_value, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertEmergencyQuery = `INSERT INTO emergency_events
		(action, reason, success, timestamp)
		VALUES (?, ?, ?, ?)`
)

// DB provides SQLite storage for the compliance audit trail, with
// prepared statements initialized once and reused for every insert —
// same rationale as the teacher's MarketDataDb: avoid re-parsing SQL on
// every hot-path record call.
type DB struct {
	db *sql.DB

	stmtOrder     *sql.Stmt
	stmtTrade     *sql.Stmt
	stmtAlert     *sql.Stmt
	stmtBreach    *sql.Stmt
	stmtEmergency *sql.Stmt
}

// Open opens (creating if absent) a WAL-mode SQLite database at path and
// prepares every insert statement.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("auditdb: open: %w", err)
	}

	d := &DB{db: sqlDB}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auditdb: init schema: %w", err)
	}

	if d.stmtOrder, err = sqlDB.Prepare(insertOrderQuery); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auditdb: prepare order statement: %w", err)
	}
	if d.stmtTrade, err = sqlDB.Prepare(insertTradeQuery); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("auditdb: prepare trade statement: %w", err)
	}
	if d.stmtAlert, err = sqlDB.Prepare(insertAlertQuery); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("auditdb: prepare alert statement: %w", err)
	}
	if d.stmtBreach, err = sqlDB.Prepare(insertBreachQuery); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("auditdb: prepare breach statement: %w", err)
	}
	if d.stmtEmergency, err = sqlDB.Prepare(insertEmergencyQuery); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("auditdb: prepare emergency statement: %w", err)
	}

	return d, nil
}

// Close closes every prepared statement then the underlying connection.
// Statement-close errors are ignored, matching the teacher's shutdown
// idiom: nothing useful can be done with them once the process is
// tearing down.
func (d *DB) Close() error {
	for _, stmt := range []*sql.Stmt{d.stmtOrder, d.stmtTrade, d.stmtAlert, d.stmtBreach, d.stmtEmergency} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return d.db.Close()
}

// RecordOrder persists one order's current state. Called on every
// ExecutionReport so the audit trail reflects each transition, not just
// the terminal state.
func (d *DB) RecordOrder(o domain.Order) error {
	_, err := d.stmtOrder.Exec(o.ClOrdID, o.ExchangeID, o.InstrumentID, string(o.Direction), string(o.Offset),
		string(o.Status), o.Price.String(), o.OriginalVolume, o.TradedVolume, o.RemainingVolume,
		time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// RecordTrade persists one fill.
func (d *DB) RecordTrade(t domain.Trade) error {
	_, err := d.stmtTrade.Exec(t.ExchangeTradeID, t.ClOrdID, t.InstrumentID, string(t.Direction), string(t.Offset),
		t.Price.String(), t.Volume, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// RecordAlert persists one alert service notification.
func (d *DB) RecordAlert(a domain.Alert) error {
	_, err := d.stmtAlert.Exec(a.ID.String(), string(a.Level), string(a.Type), a.Message,
		a.Timestamp.UTC().Format(time.RFC3339Nano))
	return err
}

// RecordBreach persists one threshold manager breach.
func (d *DB) RecordBreach(b monitor.ThresholdBreach) error {
	_, err := d.stmtBreach.Exec(string(b.Kind), string(b.Level), b.InstrumentID, b.CurrentValue, b.Limit,
		b.Message, b.Timestamp.UTC().Format(time.RFC3339Nano))
	return err
}

// RecordEmergencyEvent persists one emergency handler action.
func (d *DB) RecordEmergencyEvent(e emergency.Event) error {
	success := 0
	if e.Success {
		success = 1
	}
	_, err := d.stmtEmergency.Exec(string(e.Action), e.Reason, success, e.Timestamp.UTC().Format(time.RFC3339Nano))
	return err
}
