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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAdvance_HappyPathOneStepAtATime(t *testing.T) {
	assert.True(t, CanAdvance(SessionStarting, SessionConnected))
	assert.True(t, CanAdvance(SessionConnected, SessionAuthenticated))
	assert.True(t, CanAdvance(SessionAuthenticated, SessionLoggedIn))
}

func TestCanAdvance_RejectsSkippingAStage(t *testing.T) {
	assert.False(t, CanAdvance(SessionStarting, SessionAuthenticated))
	assert.False(t, CanAdvance(SessionConnected, SessionLoggedIn))
}

func TestCanAdvance_RejectsGoingBackwards(t *testing.T) {
	assert.False(t, CanAdvance(SessionLoggedIn, SessionConnected))
}

func TestCanAdvance_RecoveryStatesAreUnranked(t *testing.T) {
	assert.True(t, CanAdvance(SessionLoggedIn, SessionDisconnected))
	assert.True(t, CanAdvance(SessionDisconnected, SessionReconnecting))
	assert.True(t, CanAdvance(SessionError, SessionConnected))
}

func TestDisconnectReason_String(t *testing.T) {
	assert.Equal(t, "network read failure", ReasonNetReadFail.String())
	assert.Equal(t, "heartbeat receive timeout", ReasonHeartbeatRecvTimeout.String())
	assert.Equal(t, "unknown", DisconnectReason(0).String())
}
