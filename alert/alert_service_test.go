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

package alert

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBard/prime-ctp-go/domain"
)

type recordingSink struct {
	name     string
	received chan domain.Alert
	err      error
}

func newRecordingSink(name string) *recordingSink {
	return &recordingSink{name: name, received: make(chan domain.Alert, 10)}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(a domain.Alert) error {
	s.received <- a
	return s.err
}

type panickingSink struct{}

func (panickingSink) Name() string           { return "panicky" }
func (panickingSink) Send(domain.Alert) error { panic("sink exploded") }

func TestService_Send_RecordsHistoryAndSetsFields(t *testing.T) {
	s := NewService(zerolog.Nop())
	a := s.Info(domain.AlertTypeOrder, "order rejected", map[string]any{"clOrdID": "abc"})

	assert.Equal(t, domain.AlertLevelInfo, a.Level)
	assert.Equal(t, domain.AlertTypeOrder, a.Type)
	assert.Equal(t, "order rejected", a.Message)

	hist := s.History(0)
	require.Len(t, hist, 1)
	assert.Equal(t, a.ID, hist[0].ID)
}

func TestService_Send_DispatchesToRegisteredSinks(t *testing.T) {
	s := NewService(zerolog.Nop())
	sink := newRecordingSink("popup")
	s.RegisterSink(sink)

	s.Critical(domain.AlertTypeThreshold, "breach", nil)

	select {
	case a := <-sink.received:
		assert.Equal(t, domain.AlertLevelCritical, a.Level)
	case <-time.After(time.Second):
		t.Fatal("sink never received the alert")
	}
}

func TestService_Send_SinkErrorNeverPropagates(t *testing.T) {
	s := NewService(zerolog.Nop())
	sink := newRecordingSink("email")
	sink.err = errors.New("smtp down")
	s.RegisterSink(sink)

	require.NotPanics(t, func() {
		s.Warning(domain.AlertTypeConnection, "reconnecting", nil)
	})
	<-sink.received
}

func TestService_Send_PanickingSinkIsIsolated(t *testing.T) {
	s := NewService(zerolog.Nop())
	s.RegisterSink(panickingSink{})
	good := newRecordingSink("console-like")
	s.RegisterSink(good)

	require.NotPanics(t, func() {
		s.Info(domain.AlertTypeSystem, "heartbeat", nil)
	})

	select {
	case <-good.received:
	case <-time.After(time.Second):
		t.Fatal("a panicking sink must not block delivery to other sinks")
	}
}

func TestService_History_LimitsToRequestedCount(t *testing.T) {
	s := NewService(zerolog.Nop())
	s.Info(domain.AlertTypeSystem, "first", nil)
	s.Info(domain.AlertTypeSystem, "second", nil)
	s.Info(domain.AlertTypeSystem, "third", nil)

	last := s.History(1)
	require.Len(t, last, 1)
	assert.Equal(t, "third", last[0].Message)
}
