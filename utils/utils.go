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

// Package utils holds the small helpers builder and session share:
// HMAC request signing and tolerant FIX field extraction.
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/quickfixgo/quickfix"
)

// Sign computes the base64 HMAC-SHA256 signature the logon message
// carries, over the pipe-joined prehash string
// "timestamp|msgType|seqNum|apiKey|targetCompId|passphrase".
func Sign(timestamp, msgType, seqNum, apiKey, targetCompId, passphrase, apiSecret string) string {
	prehash := strings.Join([]string{timestamp, msgType, seqNum, apiKey, targetCompId, passphrase}, "|")

	key, err := base64.StdEncoding.DecodeString(apiSecret)
	if err != nil {
		key = []byte(apiSecret)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(prehash))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// GetString reads a field from a FIX message's body, falling back to the
// header, and returns "" rather than an error if the tag is absent —
// callers in the hot path want a tolerant read, not a branch per field.
func GetString(msg *quickfix.Message, tag quickfix.Tag) string {
	if v, err := msg.Body.GetString(tag); err == nil {
		return v
	}
	if v, err := msg.Header.GetString(tag); err == nil {
		return v
	}
	return ""
}

// Version is the build-time version string, overridable via -ldflags.
var Version = "dev"

// FullVersion returns a human-readable version banner built from Version.
func FullVersion() string {
	return "prime-ctp-go " + Version
}
