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

package domain

import "time"

// Tick is a point-in-time market-data sample for one instrument. Ticks
// arrive monotonically per instrument; out-of-order exchange timestamps are
// tolerated but never reordered — the observed arrival sequence is
// authoritative.
type Tick struct {
	ExchangeTime time.Time
	InstrumentID string
	TradingDay   string
	ActionDay    string
	LastPrice    float64
	BidPrice1    float64
	AskPrice1    float64
	BidVolume1   int64
	AskVolume1   int64
	Volume       int64 // cumulative session volume
	Turnover     float64
	OpenInterest float64
}

// Bar is a one-minute OHLCV aggregate for one instrument.
type Bar struct {
	Datetime     time.Time // floored to the minute
	InstrumentID string
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64   // delta of cumulative session volume over the bar
	Turnover     float64 // delta of cumulative turnover over the bar
	OpenInterest float64
}

// DepthSnapshot is a single L2 snapshot, up to five levels per side.
type DepthSnapshot struct {
	Timestamp  time.Time
	BidPrices  []float64
	BidVolumes []int64
	AskPrices  []float64
	AskVolumes []int64
}

func (d DepthSnapshot) BidVolumeTotal() int64 {
	var total int64
	for _, v := range d.BidVolumes {
		total += v
	}
	return total
}

func (d DepthSnapshot) AskVolumeTotal() int64 {
	var total int64
	for _, v := range d.AskVolumes {
		total += v
	}
	return total
}
