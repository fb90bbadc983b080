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

// Package validator runs a pre-submission order through the six checks
// every order must clear: instrument existence, price tick alignment,
// max-volume, margin sufficiency, position sufficiency, and trading-hours.
// Grounded on validator/order_validator.py.
package validator

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// ErrorKind identifies which of the six checks rejected an order.
type ErrorKind string

const (
	ErrorNone                 ErrorKind = ""
	ErrorInvalidInstrument    ErrorKind = "invalid_instrument"
	ErrorInvalidPriceTick     ErrorKind = "invalid_price_tick"
	ErrorExceedMaxVolume      ErrorKind = "exceed_max_volume"
	ErrorInsufficientMargin   ErrorKind = "insufficient_margin"
	ErrorInsufficientPosition ErrorKind = "insufficient_position"
	ErrorNotTradingTime       ErrorKind = "not_trading_time"
)

// Result is a value type, never an error: a rejected order is ordinary
// control flow, not an exceptional condition.
type Result struct {
	Valid   bool
	Kind    ErrorKind
	Message string
}

func ok() Result { return Result{Valid: true} }

func reject(kind ErrorKind, message string) Result {
	return Result{Valid: false, Kind: kind, Message: message}
}

// TradingSession is one contiguous trading window. China futures markets
// run several disjoint sessions per day (day session split into three
// legs, night session split across the midnight boundary); this is the
// concrete realization of the session-table design note.
type TradingSession struct {
	Start time.Duration // offset from midnight
	End   time.Duration
	Name  string
}

// DefaultTradingSessions matches the original's TRADING_TIMES table.
func DefaultTradingSessions() []TradingSession {
	h := time.Hour
	m := time.Minute
	return []TradingSession{
		{9 * h, 10*h + 15*m, "day session 1"},
		{10*h + 30*m, 11*h + 30*m, "day session 2"},
		{13*h + 30*m, 15 * h, "day session 3"},
		{21 * h, 23 * h, "night session 1"},
		{23 * h, 23*h + 59*m + 59*time.Second, "night session 2"},
		{0, 2*h + 30*m, "night session 3"},
	}
}

// Position is the subset of position state the validator needs to check
// a close order.
type Position struct {
	Long  int
	Short int
}

// Account is the subset of account state the validator needs to check a
// margin requirement.
type Account struct {
	Available decimal.Decimal
}

// Validator holds the instrument catalogue, cached account/position state,
// and trading-session table used to judge orders before submission.
type Validator struct {
	log      zerolog.Logger
	catalog  *domain.InstrumentCatalogue
	sessions []TradingSession

	marginRate decimal.Decimal

	account   *Account
	positions map[string]Position // keyed by instrumentID
}

func New(log zerolog.Logger, catalog *domain.InstrumentCatalogue, sessions []TradingSession) *Validator {
	if sessions == nil {
		sessions = DefaultTradingSessions()
	}
	return &Validator{
		log:        log.With().Str("component", "order_validator").Logger(),
		catalog:    catalog,
		sessions:   sessions,
		marginRate: decimal.NewFromFloat(0.1),
		positions:  make(map[string]Position),
	}
}

func (v *Validator) UpdateAccount(acc Account) {
	v.account = &acc
}

func (v *Validator) UpdatePosition(instrumentID string, pos Position) {
	v.positions[instrumentID] = pos
}

func (v *Validator) SetMarginRate(rate decimal.Decimal) {
	v.marginRate = rate
}

// Validate runs all six checks in the original's order: instrument, price,
// volume, margin-or-position (depending on offset), then trading hours.
func (v *Validator) Validate(req domain.OrderRequest) Result {
	if r := v.ValidateInstrument(req.InstrumentID); !r.Valid {
		return r
	}

	inst, _ := v.catalog.Get(req.InstrumentID)

	if r := v.ValidatePrice(req.Price, inst.PriceTick); !r.Valid {
		return r
	}
	if r := v.ValidateVolume(req.Volume, inst.MaxOrderVolume); !r.Valid {
		return r
	}

	if req.Offset == domain.OffsetOpen {
		if r := v.ValidateMargin(req.InstrumentID, req.Price, req.Volume, inst.Multiplier); !r.Valid {
			return r
		}
	} else {
		if r := v.ValidatePosition(req.InstrumentID, req.Direction, req.Volume); !r.Valid {
			return r
		}
	}

	return v.ValidateTradingTime(time.Now())
}

// ValidateInstrument rejects unknown instruments. When the catalogue has
// not been loaded yet it passes everything through, deferring to the
// exchange's own validation — matching the original's "skip local
// validation before instruments are loaded" behavior.
func (v *Validator) ValidateInstrument(instrumentID string) Result {
	if instrumentID == "" {
		return reject(ErrorInvalidInstrument, "instrument id must not be empty")
	}
	if !v.catalog.Loaded() {
		v.log.Debug().Msg("instrument catalogue not loaded, skipping local validation")
		return ok()
	}
	if _, found := v.catalog.Get(instrumentID); !found {
		return reject(ErrorInvalidInstrument, fmt.Sprintf("instrument %s does not exist", instrumentID))
	}
	return ok()
}

// ValidatePrice rejects non-positive prices and prices that are not an
// integer multiple of the instrument's tick size.
func (v *Validator) ValidatePrice(price, priceTick decimal.Decimal) Result {
	if price.Sign() <= 0 {
		return reject(ErrorInvalidPriceTick, fmt.Sprintf("price must be positive, got %s", price))
	}
	if priceTick.Sign() <= 0 {
		return ok() // nothing to validate against
	}
	remainder := price.Mod(priceTick)
	if !remainder.IsZero() && !remainder.Equal(priceTick) {
		return reject(ErrorInvalidPriceTick,
			fmt.Sprintf("price %s is not a multiple of tick size %s", price, priceTick))
	}
	return ok()
}

// ValidateVolume rejects non-positive volumes and volumes exceeding the
// instrument's per-order maximum.
func (v *Validator) ValidateVolume(volume, maxVolume int) Result {
	if volume <= 0 {
		return reject(ErrorExceedMaxVolume, fmt.Sprintf("volume must be positive, got %d", volume))
	}
	if maxVolume > 0 && volume > maxVolume {
		return reject(ErrorExceedMaxVolume,
			fmt.Sprintf("volume %d exceeds max order volume %d", volume, maxVolume))
	}
	return ok()
}

// ValidateMargin rejects opening orders whose required margin exceeds
// available balance. Passes through if account state has not been loaded.
func (v *Validator) ValidateMargin(instrumentID string, price decimal.Decimal, volume int, multiplier decimal.Decimal) Result {
	if v.account == nil {
		v.log.Debug().Msg("account state not loaded, skipping margin validation")
		return ok()
	}
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(10)
	}
	required := price.Mul(decimal.NewFromInt(int64(volume))).Mul(multiplier).Mul(v.marginRate)
	if required.GreaterThan(v.account.Available) {
		return reject(ErrorInsufficientMargin,
			fmt.Sprintf("insufficient margin: requires %s, available %s", required, v.account.Available))
	}
	return ok()
}

// ValidatePosition rejects closing orders whose volume exceeds the
// available opposite-direction position. Passes through if no position
// state has been loaded for the instrument.
func (v *Validator) ValidatePosition(instrumentID string, direction domain.Direction, volume int) Result {
	pos, ok2 := v.positions[instrumentID]
	if !ok2 {
		v.log.Debug().Str("instrument_id", instrumentID).Msg("position state not loaded, skipping position validation")
		return ok()
	}

	var available int
	if direction == domain.DirectionBuy {
		available = pos.Short // buying to close targets a short position
	} else {
		available = pos.Long // selling to close targets a long position
	}

	if volume > available {
		return reject(ErrorInsufficientPosition,
			fmt.Sprintf("insufficient position: closing %d, available %d", volume, available))
	}
	return ok()
}

// ValidateTradingTime rejects weekends and times outside every configured
// trading session.
func (v *Validator) ValidateTradingTime(t time.Time) Result {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return reject(ErrorNotTradingTime, fmt.Sprintf("not a trading time: weekend (%s)", wd))
	}

	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)

	for _, s := range v.sessions {
		if offset >= s.Start && offset <= s.End {
			return ok()
		}
	}
	return reject(ErrorNotTradingTime, fmt.Sprintf("not a trading time: %s is outside all configured sessions", t.Format("15:04:05")))
}

// IsTradingTime is a convenience wrapper around ValidateTradingTime.
func (v *Validator) IsTradingTime() bool {
	return v.ValidateTradingTime(time.Now()).Valid
}
