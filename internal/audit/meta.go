// Copyright 2026 The WorkSafe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"net"
	"net/http"
	"strings"
)

const maxUserAgentLen = 500

// MetaFromRequest extracts the technical metadata recorded with each entry.
//
// The external (public) IP is resolved in priority order: a client-asserted
// X-Client-Public-IP header (mobile clients learn their own public address
// and send it along), the first hop of X-Forwarded-For, then X-Real-IP.
// Loopback values are skipped. The internal IP is the immediate transport
// peer.
func MetaFromRequest(r *http.Request) Meta {
	ua := r.UserAgent()
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return Meta{
		InternalIP: peerIP(r),
		ExternalIP: externalIP(r),
		UserAgent:  ua,
		Method:     r.Method,
		Path:       r.URL.Path,
	}
}

func externalIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Client-Public-IP")); usableIP(ip) {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop is the original client.
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if usableIP(first) {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); usableIP(ip) {
		return ip
	}
	return ""
}

func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func usableIP(ip string) bool {
	return ip != "" && ip != "127.0.0.1" && ip != "::1"
}
