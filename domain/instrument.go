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

// Package domain holds the concrete record types shared across the trading
// pipeline: instruments, ticks, bars, depth snapshots, orders, trades,
// positions, account snapshots, and alerts. These replace the source's
// duck-typed dictionaries with a frozen set of struct types adapted once at
// the gateway boundary.
package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Instrument describes a tradable contract. Immutable once loaded from the
// session's instrument query; the catalogue that holds these is read-mostly.
type Instrument struct {
	ID             string
	ExchangeID     string
	Multiplier     decimal.Decimal
	PriceTick      decimal.Decimal
	MaxOrderVolume int
	MinOrderVolume int
}

// InstrumentCatalogue is a read-mostly lookup populated once at login.
// Load replaces the whole map under lock (copy-on-assign); Get reads under
// the same lock, so callers never observe a partially-populated catalogue.
type InstrumentCatalogue struct {
	mu   sync.RWMutex
	byID map[string]Instrument
}

func NewInstrumentCatalogue() *InstrumentCatalogue {
	return &InstrumentCatalogue{byID: make(map[string]Instrument)}
}

func (c *InstrumentCatalogue) Load(instruments []Instrument) {
	m := make(map[string]Instrument, len(instruments))
	for _, inst := range instruments {
		m[inst.ID] = inst
	}
	c.mu.Lock()
	c.byID = m
	c.mu.Unlock()
}

func (c *InstrumentCatalogue) Get(id string) (Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.byID[id]
	return inst, ok
}

func (c *InstrumentCatalogue) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID) > 0
}

// All returns every loaded instrument in unspecified order.
func (c *InstrumentCatalogue) All() []Instrument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Instrument, 0, len(c.byID))
	for _, inst := range c.byID {
		out = append(out, inst)
	}
	return out
}
