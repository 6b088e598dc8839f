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
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnscheck/dnscheck/src/scan"
)

const (
	defaultPortalProbeURL     = "http://detectportal.dnscheck-test.net/success.txt"
	defaultPortalBody         = "success"
	defaultPortalTimeout      = 10 * time.Second
	defaultPollInterval       = 5 * time.Second
	statusNetworkAuthRequired = 511 // RFC 6585, emitted by locked portals
)

// PortalMonitor detects captive portals by fetching a well-known endpoint
// with a fixed plain-HTTP body. A transparent network returns that body; a
// portal rewrites, redirects, or blocks the request.
type PortalMonitor struct {
	ProbeURL     string
	ExpectedBody string
	PollInterval time.Duration
	Client       *http.Client

	once   sync.Once
	signal scan.ConnectivitySignal
	err    error
}

// NewPortalMonitor returns a monitor using the default probe endpoint.
func NewPortalMonitor() *PortalMonitor {
	client := &http.Client{
		Timeout: defaultPortalTimeout,
		// Portal redirects are themselves the signal; do not follow them.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &PortalMonitor{
		ProbeURL:     defaultPortalProbeURL,
		ExpectedBody: defaultPortalBody,
		PollInterval: defaultPollInterval,
		Client:       client,
	}
}

// State probes the portal endpoint once and classifies the outcome.
func (m *PortalMonitor) State(ctx context.Context) scan.ConnectivityState {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ProbeURL, nil)
	if err != nil {
		log.Debugf("could not build portal probe request: %v", err)
		return scan.ConnectivityUnknown
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		log.Debugf("portal probe failed: %v", err)
		return scan.ConnectivityUnknown
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Debugf("error closing portal probe body: %v", cerr)
		}
	}()
	if resp.StatusCode == statusNetworkAuthRequired {
		return scan.ConnectivityLockedPortal
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		log.Debugf("could not read portal probe body: %v", err)
		return scan.ConnectivityUnknown
	}
	if resp.StatusCode == http.StatusOK && strings.TrimSpace(string(body)) == m.ExpectedBody {
		return scan.ConnectivityNotCaptive
	}
	// Some other party answered for the probe endpoint.
	return scan.ConnectivityUnlockedPortal
}

// AwaitAvailable polls the probe endpoint until the network looks usable
// and resolves exactly once; repeated calls return the first resolution.
func (m *PortalMonitor) AwaitAvailable(ctx context.Context) (scan.ConnectivitySignal, error) {
	m.once.Do(func() {
		interval := m.PollInterval
		if interval <= 0 {
			interval = defaultPollInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			switch m.State(ctx) {
			case scan.ConnectivityNotCaptive:
				m.signal = scan.SignalClear
				return
			case scan.ConnectivityLockedPortal, scan.ConnectivityUnlockedPortal:
				m.signal = scan.SignalCaptive
				return
			}
			select {
			case <-ctx.Done():
				m.err = errors.Wrap(ctx.Err(), "gave up waiting for connectivity")
				return
			case <-ticker.C:
			}
		}
	})
	return m.signal, m.err
}
