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

package scan

import "context"

// The measurement engine talks to the outside world only through the
// narrow contracts below. Real implementations live in src/platform; tests
// substitute fakes.

// PermissionChecker gates whether any telemetry may leave the host at all.
type PermissionChecker interface {
	UploadEnabled(ctx context.Context) bool
}

// ConnectivityState is the captive-portal/connectivity verdict.
type ConnectivityState int

const (
	ConnectivityUnknown ConnectivityState = iota
	ConnectivityNotCaptive
	ConnectivityUnlockedPortal
	ConnectivityLockedPortal
)

// ConnectivitySignal is what a connectivity-available notification carries.
type ConnectivitySignal int

const (
	SignalClear ConnectivitySignal = iota
	SignalCaptive
)

// ConnectivityMonitor reports the current connectivity state and, when the
// state is indeterminate, delivers a one-shot connectivity-available
// notification. AwaitAvailable must resume the caller exactly once even if
// the underlying event fires repeatedly.
type ConnectivityMonitor interface {
	State(ctx context.Context) ConnectivityState
	AwaitAvailable(ctx context.Context) (ConnectivitySignal, error)
}

// NameserverSource yields the host's configured resolvers in failover
// priority order. Returned strings must be bare IP literals; the engine
// validates them and fails the run on anything else.
type NameserverSource interface {
	ReadNameservers(ctx context.Context, platformHint string) ([]string, error)
}

// HostResolver performs the baseline resolution through the host's own
// resolution path. Implementations are expected to bypass local caches and
// any encrypted transport, and to return IPv4 addresses only.
type HostResolver interface {
	Resolve(ctx context.Context, domain string) ([]string, error)
}

// TransportSender performs one raw round trip and returns the raw response
// bytes. Implementations apply their own bounded timeout and surface
// failures as tagged transport errors where they can classify them.
type TransportSender interface {
	SendUDP(ctx context.Context, nameserver string, packet []byte, rrtypeHint string) ([]byte, error)
	SendTCP(ctx context.Context, nameserver string, packet []byte) ([]byte, error)
}

// ReachabilityProber fetches a known endpoint whose body is compared
// verbatim against the expected probe text.
type ReachabilityProber interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Reporter emits one event into the telemetry pipeline. Emission is
// fire-and-forget; the engine logs but otherwise ignores reporter errors.
type Reporter interface {
	ReportEvent(ctx context.Context, eventType string, payload *Report) error
}
