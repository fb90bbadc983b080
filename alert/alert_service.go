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

// Package alert fans a notifiable event out to whichever sinks are
// enabled: a console sink that is always on, and best-effort popup/sound/
// email sinks that run in isolation so one slow or failing sink never
// blocks another. Grounded on alert/alert_service.py.
package alert

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ByteBard/prime-ctp-go/domain"
)

// Sink delivers one alert to an external surface. Errors are logged, not
// propagated — a failing sink must never block Send or the caller that
// raised the alert.
type Sink interface {
	Name() string
	Send(domain.Alert) error
}

// Config toggles which best-effort sinks are active. Console is implicit
// and always runs.
type Config struct {
	EnablePopup bool
	EnableSound bool
	EnableEmail bool
}

// Service records alert history, always logs to console via the audit
// logger, and dispatches to any additionally configured sinks on their own
// goroutine so a stuck sink (e.g. blocked SMTP) can't delay the others.
type Service struct {
	mu      sync.Mutex
	log     zerolog.Logger
	history []domain.Alert
	maxHist int
	sinks   []Sink
}

func NewService(log zerolog.Logger) *Service {
	return &Service{
		log:     log.With().Str("component", "alert_service").Logger(),
		maxHist: 1000,
	}
}

// RegisterSink adds a best-effort delivery sink (popup, sound, email, ...).
func (s *Service) RegisterSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Send records the alert, logs it to console (always on), and dispatches
// it to every registered sink concurrently.
func (s *Service) Send(level domain.AlertLevel, typ domain.AlertType, message string, details map[string]any) domain.Alert {
	a := domain.Alert{
		ID:      uuid.New(),
		Level:   level,
		Type:    typ,
		Message: message,
		Details: details,
	}

	s.mu.Lock()
	s.history = append(s.history, a)
	if len(s.history) > s.maxHist {
		s.history = s.history[len(s.history)-s.maxHist:]
	}
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.Unlock()

	s.logConsole(a)
	for _, sink := range sinks {
		go s.deliver(sink, a)
	}
	return a
}

func (s *Service) logConsole(a domain.Alert) {
	event := s.log.Info()
	switch a.Level {
	case domain.AlertLevelWarning:
		event = s.log.Warn()
	case domain.AlertLevelCritical:
		event = s.log.Error()
	}
	event.Str("alert_id", a.ID.String()).Str("type", string(a.Type)).Msg(a.Message)
}

func (s *Service) deliver(sink Sink, a domain.Alert) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("sink", sink.Name()).Interface("panic", r).Msg("alert sink panicked")
		}
	}()
	if err := sink.Send(a); err != nil {
		s.log.Error().Str("sink", sink.Name()).Err(err).Msg("alert sink delivery failed")
	}
}

func (s *Service) Info(typ domain.AlertType, message string, details map[string]any) domain.Alert {
	return s.Send(domain.AlertLevelInfo, typ, message, details)
}

func (s *Service) Warning(typ domain.AlertType, message string, details map[string]any) domain.Alert {
	return s.Send(domain.AlertLevelWarning, typ, message, details)
}

func (s *Service) Critical(typ domain.AlertType, message string, details map[string]any) domain.Alert {
	return s.Send(domain.AlertLevelCritical, typ, message, details)
}

// History returns the most recent alerts, oldest first, capped at limit.
func (s *Service) History(limit int) []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	return append([]domain.Alert(nil), s.history[len(s.history)-limit:]...)
}
