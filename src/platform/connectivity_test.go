/*
 * DNSCheck Copyright 2025 The DNSCheck Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy
 * of the License at http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
 * implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */

package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/dnscheck/dnscheck/src/scan"
)

func portalMonitorFor(server *httptest.Server) *PortalMonitor {
	m := NewPortalMonitor()
	m.ProbeURL = server.URL
	m.PollInterval = 10 * time.Millisecond
	return m
}

func TestPortalMonitorTransparentNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("success\n"))
	}))
	defer server.Close()

	m := portalMonitorFor(server)
	assert.Equal(t, m.State(context.Background()), scan.ConnectivityNotCaptive)
}

func TestPortalMonitorLockedPortal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusNetworkAuthRequired)
	}))
	defer server.Close()

	m := portalMonitorFor(server)
	assert.Equal(t, m.State(context.Background()), scan.ConnectivityLockedPortal)
}

func TestPortalMonitorInterceptedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>please log in</html>"))
	}))
	defer server.Close()

	m := portalMonitorFor(server)
	assert.Equal(t, m.State(context.Background()), scan.ConnectivityUnlockedPortal)
}

func TestPortalMonitorRedirectIsNotFollowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://portal.invalid/login", http.StatusFound)
	}))
	defer server.Close()

	m := portalMonitorFor(server)
	assert.Equal(t, m.State(context.Background()), scan.ConnectivityUnlockedPortal)
}

func TestPortalMonitorUnreachableIsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	m := portalMonitorFor(server)
	assert.Equal(t, m.State(context.Background()), scan.ConnectivityUnknown)
}

func TestAwaitAvailableResolvesOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("success"))
	}))
	defer server.Close()

	m := portalMonitorFor(server)
	signal, err := m.AwaitAvailable(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, signal, scan.SignalClear)

	// The endpoint going away must not change the recorded resolution.
	server.Close()
	again, err := m.AwaitAvailable(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, again, scan.SignalClear)
}

func TestAwaitAvailablePollsUntilClear(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			// Drop the connection so the probe errors out and retries.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.Write([]byte("success"))
	}))
	defer server.Close()

	m := portalMonitorFor(server)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	signal, err := m.AwaitAvailable(ctx)
	assert.NilError(t, err)
	assert.Equal(t, signal, scan.SignalClear)
	assert.Assert(t, calls >= 3)
}

func TestAwaitAvailableCaptiveSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusNetworkAuthRequired)
	}))
	defer server.Close()

	m := portalMonitorFor(server)
	signal, err := m.AwaitAvailable(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, signal, scan.SignalCaptive)
}
