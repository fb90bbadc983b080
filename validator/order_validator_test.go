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

package validator

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/domain"
)

func newTestValidator(t *testing.T) (*Validator, *domain.InstrumentCatalogue) {
	t.Helper()
	catalog := domain.NewInstrumentCatalogue()
	catalog.Load([]domain.Instrument{
		{
			ID:             "IF2501",
			Multiplier:     decimal.NewFromInt(300),
			PriceTick:      decimal.NewFromFloat(0.2),
			MaxOrderVolume: 10,
			MinOrderVolume: 1,
		},
	})
	return New(zerolog.Nop(), catalog, nil), catalog
}

func TestValidator_ValidateInstrument(t *testing.T) {
	v, _ := newTestValidator(t)

	assert.True(t, v.ValidateInstrument("IF2501").Valid)

	r := v.ValidateInstrument("UNKNOWN")
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorInvalidInstrument, r.Kind)

	r = v.ValidateInstrument("")
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorInvalidInstrument, r.Kind)
}

func TestValidator_ValidateInstrument_SkipsBeforeCatalogueLoaded(t *testing.T) {
	catalog := domain.NewInstrumentCatalogue()
	v := New(zerolog.Nop(), catalog, nil)

	assert.True(t, v.ValidateInstrument("ANYTHING").Valid)
}

func TestValidator_ValidatePrice(t *testing.T) {
	v, _ := newTestValidator(t)
	tick := decimal.NewFromFloat(0.2)

	assert.True(t, v.ValidatePrice(decimal.NewFromFloat(100.2), tick).Valid)

	r := v.ValidatePrice(decimal.NewFromFloat(100.1), tick)
	require.False(t, r.Valid)
	assert.Equal(t, ErrorInvalidPriceTick, r.Kind)

	r = v.ValidatePrice(decimal.Zero, tick)
	assert.False(t, r.Valid)
}

func TestValidator_ValidateVolume(t *testing.T) {
	v, _ := newTestValidator(t)

	assert.True(t, v.ValidateVolume(5, 10).Valid)
	assert.False(t, v.ValidateVolume(0, 10).Valid)

	r := v.ValidateVolume(11, 10)
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorExceedMaxVolume, r.Kind)
}

func TestValidator_ValidateMargin_SkipsWithoutAccount(t *testing.T) {
	v, _ := newTestValidator(t)
	r := v.ValidateMargin("IF2501", decimal.NewFromInt(4000), 2, decimal.NewFromInt(300))
	assert.True(t, r.Valid)
}

func TestValidator_ValidateMargin_RejectsInsufficientBalance(t *testing.T) {
	v, _ := newTestValidator(t)
	v.UpdateAccount(Account{Available: decimal.NewFromInt(1000)})

	// required = 4000 * 2 * 300 * 0.1 = 240,000 -- far beyond the 1000 available
	r := v.ValidateMargin("IF2501", decimal.NewFromInt(4000), 2, decimal.NewFromInt(300))
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorInsufficientMargin, r.Kind)
}

func TestValidator_ValidatePosition_RejectsOverClose(t *testing.T) {
	v, _ := newTestValidator(t)
	v.UpdatePosition("IF2501", Position{Long: 3, Short: 1})

	// selling to close targets the long side
	assert.True(t, v.ValidatePosition("IF2501", domain.DirectionSell, 3).Valid)
	r := v.ValidatePosition("IF2501", domain.DirectionSell, 4)
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorInsufficientPosition, r.Kind)

	// buying to close targets the short side
	assert.True(t, v.ValidatePosition("IF2501", domain.DirectionBuy, 1).Valid)
	assert.False(t, v.ValidatePosition("IF2501", domain.DirectionBuy, 2).Valid)
}

func TestValidator_ValidatePosition_SkipsWithoutLoadedState(t *testing.T) {
	v, _ := newTestValidator(t)
	assert.True(t, v.ValidatePosition("IF2501", domain.DirectionSell, 999).Valid)
}

func TestValidator_ValidateTradingTime(t *testing.T) {
	v, _ := newTestValidator(t)

	loc := time.UTC
	weekday := time.Date(2026, time.March, 2, 9, 30, 0, 0, loc) // Monday, within day session 1
	assert.True(t, v.ValidateTradingTime(weekday).Valid)

	lunch := time.Date(2026, time.March, 2, 12, 0, 0, 0, loc) // between sessions
	r := v.ValidateTradingTime(lunch)
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorNotTradingTime, r.Kind)

	saturday := time.Date(2026, time.March, 7, 9, 30, 0, 0, loc)
	r = v.ValidateTradingTime(saturday)
	assert.False(t, r.Valid)
}

func TestValidator_Validate_FullChainStopsAtFirstFailure(t *testing.T) {
	v, _ := newTestValidator(t)

	req := domain.NewLimitOrderRequest("UNKNOWN", domain.DirectionBuy, domain.OffsetOpen, decimal.NewFromInt(100), 1)
	r := v.Validate(req)
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorInvalidInstrument, r.Kind)
}

func TestValidator_Validate_OpenChecksMargin_CloseChecksPosition(t *testing.T) {
	v, _ := newTestValidator(t)
	v.UpdateAccount(Account{Available: decimal.NewFromInt(1000)})
	v.UpdatePosition("IF2501", Position{Long: 1, Short: 0})

	// required = 100.2 * 5 * 300 * 0.1 = 15,030 -- beyond the 1000 available
	openReq := domain.NewLimitOrderRequest("IF2501", domain.DirectionBuy, domain.OffsetOpen, decimal.NewFromFloat(100.2), 5)
	r := v.Validate(openReq)
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorInsufficientMargin, r.Kind)

	closeReq := domain.NewLimitOrderRequest("IF2501", domain.DirectionSell, domain.OffsetClose, decimal.NewFromFloat(100.2), 5)
	r = v.Validate(closeReq)
	assert.False(t, r.Valid)
	assert.Equal(t, ErrorInsufficientPosition, r.Kind)
}
