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

// SessionState is the exchange session's connection lifecycle state,
// mirrored from the original's ConnectionState enum.
type SessionState string

const (
	SessionStarting      SessionState = "starting"
	SessionConnected     SessionState = "connected"
	SessionAuthenticated SessionState = "authenticated"
	SessionLoggedIn      SessionState = "logged_in"
	SessionDisconnected  SessionState = "disconnected"
	SessionReconnecting  SessionState = "reconnecting"
	SessionError         SessionState = "error"
)

// DisconnectReason is a stable numeric code identifying why the session
// dropped, carried verbatim from the original's reason_map so operator
// tooling and log greps keep working across the port.
type DisconnectReason int

const (
	ReasonNetReadFail          DisconnectReason = 0x1001
	ReasonNetWriteFail         DisconnectReason = 0x1002
	ReasonHeartbeatRecvTimeout DisconnectReason = 0x2001
	ReasonHeartbeatSendFail    DisconnectReason = 0x2002
	ReasonBadPacket            DisconnectReason = 0x2003
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonNetReadFail:
		return "network read failure"
	case ReasonNetWriteFail:
		return "network write failure"
	case ReasonHeartbeatRecvTimeout:
		return "heartbeat receive timeout"
	case ReasonHeartbeatSendFail:
		return "heartbeat send failure"
	case ReasonBadPacket:
		return "malformed packet"
	default:
		return "unknown"
	}
}

// sessionRank gives every state a total order so state transitions can be
// validated without an explicit edge table: a session may always move
// forward along the happy path (starting -> connected -> authenticated ->
// logged_in) or drop to disconnected/reconnecting/error from any state.
var sessionRank = map[SessionState]int{
	SessionStarting:      0,
	SessionConnected:     1,
	SessionAuthenticated: 2,
	SessionLoggedIn:      3,
}

// CanAdvance reports whether the session may move from 'from' to 'to' along
// the happy path. Terminal/recovery states (disconnected, reconnecting,
// error) are always reachable from any state and are not governed by this
// check.
func CanAdvance(from, to SessionState) bool {
	fromRank, fromOK := sessionRank[from]
	toRank, toOK := sessionRank[to]
	if !fromOK || !toOK {
		return true
	}
	return toRank == fromRank+1
}
