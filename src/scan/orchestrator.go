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

import (
	"context"
	"math/rand"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/dnscheck/dnscheck/src/internal/util"
)

const (
	defaultApexDomain       = "dnscheck-test.net"
	defaultReachabilityURL  = "http://probe.dnscheck-test.net/ok"
	defaultReachabilityBody = "OK"
	defaultEventType        = "dnscheck-v1"
)

// RunState tracks where a run is in its lifecycle. Terminal failures
// short-circuit to a reported error without advancing further.
type RunState int

const (
	NotStarted RunState = iota
	ConnectivityChecked
	BaselineFetchOk
	MeasuringStart
	Measuring
	MeasuringDone
	Reported
)

func (rs RunState) String() string {
	switch rs {
	case NotStarted:
		return "NotStarted"
	case ConnectivityChecked:
		return "ConnectivityChecked"
	case BaselineFetchOk:
		return "BaselineFetchOk"
	case MeasuringStart:
		return "MeasuringStart"
	case Measuring:
		return "Measuring"
	case MeasuringDone:
		return "MeasuringDone"
	case Reported:
		return "Reported"
	}
	return "Unknown"
}

// OrchestratorConfig holds everything a run needs. Collaborator fields are
// required; the rest have defaults from NewOrchestratorConfig.
type OrchestratorConfig struct {
	Catalog          []QueryVariant
	ApexDomain       string
	AddonVersion     string
	EventType        string
	ReachabilityURL  string
	ReachabilityBody string
	PlatformHint     string
	ShuffleSeed      int64 // 0 means time-seeded

	Permission   PermissionChecker
	Connectivity ConnectivityMonitor
	Nameservers  NameserverSource
	HostResolver HostResolver
	Sender       TransportSender
	Prober       ReachabilityProber
	Reporter     Reporter

	// Progress, if non-nil, is called after each completed work item.
	Progress func(completed, total int)
}

// NewOrchestratorConfig returns a config with default values. Callers fill
// in the collaborators.
func NewOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		Catalog:          DefaultCatalog,
		ApexDomain:       defaultApexDomain,
		AddonVersion:     Version,
		EventType:        defaultEventType,
		ReachabilityURL:  defaultReachabilityURL,
		ReachabilityBody: defaultReachabilityBody,
		PlatformHint:     runtime.GOOS,
	}
}

func (cfg *OrchestratorConfig) isValid() (bool, string) {
	switch {
	case cfg.Permission == nil:
		return false, "permission checker is required"
	case cfg.Connectivity == nil:
		return false, "connectivity monitor is required"
	case cfg.Nameservers == nil:
		return false, "nameserver source is required"
	case cfg.HostResolver == nil:
		return false, "host resolver is required"
	case cfg.Sender == nil:
		return false, "transport sender is required"
	case cfg.Prober == nil:
		return false, "reachability prober is required"
	case cfg.Reporter == nil:
		return false, "reporter is required"
	case len(cfg.Catalog) == 0:
		return false, "catalog must not be empty"
	case cfg.ApexDomain == "":
		return false, "apex domain must not be empty"
	}
	return true, ""
}

// RunMetadata summarizes a completed run for operator-facing output. It is
// not part of the external reporting schema.
type RunMetadata struct {
	StartedAt time.Time `json:"started_at" groups:"normal,long"`
	Duration  float64   `json:"duration" groups:"normal,long"` // seconds
	NumItems  int       `json:"num_items" groups:"normal,long"`
	NumErrors int       `json:"num_errors" groups:"normal,long"`
	RTTs      []float64 `json:"-" groups:"-"`
}

// Orchestrator drives exactly one measurement run to completion. It owns
// the run's MeasurementState for the duration and is not safe for
// concurrent use; create a new one per run.
type Orchestrator struct {
	cfg      *OrchestratorConfig
	rng      *rand.Rand
	runState RunState
	state    *MeasurementState
	meta     RunMetadata
}

// NewOrchestrator validates the config and returns an orchestrator ready
// for a single Run call.
func NewOrchestrator(cfg *OrchestratorConfig) (*Orchestrator, error) {
	if isValid, reason := cfg.isValid(); !isValid {
		return nil, errors.Errorf("invalid orchestrator config: %s", reason)
	}
	seed := cfg.ShuffleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Orchestrator{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		runState: NotStarted,
	}, nil
}

// State returns the run's current lifecycle state.
func (o *Orchestrator) State() RunState {
	return o.runState
}

// Metadata returns the run summary. Valid after Run returns.
func (o *Orchestrator) Metadata() RunMetadata {
	return o.meta
}

func (o *Orchestrator) transition(next RunState) {
	log.Debugf("run state %s -> %s", o.runState, next)
	o.runState = next
}

// reportError emits a best-effort error report for a run-level failure.
// The payload carries whatever was collected up to the failure point.
func (o *Orchestrator) reportError(ctx context.Context, reason Reason) {
	report := o.state.BuildReport(reason, o.cfg.AddonVersion, o.cfg.ApexDomain)
	if err := o.cfg.Reporter.ReportEvent(ctx, o.cfg.EventType, report); err != nil {
		log.Warnf("could not report run failure %s: %v", reason, err)
	}
}

// Run performs the full measurement: permission and connectivity gating,
// the pre-sweep reachability fetch, the randomized sequential query sweep,
// the post-sweep fetch, and the final aggregate report. Per-query failures
// never abort the run; run-level failures emit a best-effort error report
// and then propagate.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.meta.StartedAt = time.Now()
	o.state = NewMeasurementState(xid.New().String())

	// Upload permission gates everything, including error reports.
	if !o.cfg.Permission.UploadEnabled(ctx) {
		log.Info("upload permission denied, aborting without reporting")
		return nil, ErrPermissionDenied
	}

	if err := o.checkConnectivity(ctx); err != nil {
		return nil, err
	}
	o.transition(ConnectivityChecked)

	if err := o.fetchTest(ctx); err != nil {
		reason := ReasonOf(err, ReasonFetchFailed)
		o.reportError(ctx, reason)
		return nil, errors.Wrap(err, "pre-measurement reachability fetch failed")
	}
	o.transition(BaselineFetchOk)

	o.transition(MeasuringStart)
	start := o.state.BuildReport(ReasonStudyStart, o.cfg.AddonVersion, o.cfg.ApexDomain)
	if err := o.cfg.Reporter.ReportEvent(ctx, o.cfg.EventType, start); err != nil {
		log.Warnf("could not report measurement start: %v", err)
	}

	nameservers, err := o.readNameservers(ctx)
	if err != nil {
		reason := ReasonOf(err, ReasonNameserversUnavailable)
		o.reportError(ctx, reason)
		return nil, errors.Wrap(err, "could not acquire nameservers")
	}
	log.Infof("measuring against nameservers: %s", strings.Join(nameservers, ", "))

	deriver := NewDeriver(o.cfg.ApexDomain, o.state.MeasurementID())
	items := ExpandCatalog(o.cfg.Catalog, deriver)
	for i := range items {
		o.state.InitKey(items[i])
	}
	o.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	o.meta.NumItems = len(items)

	o.transition(Measuring)
	sw := &sweeper{sender: o.cfg.Sender, state: o.state}
	for i, item := range items {
		o.runWorkItem(ctx, sw, item, nameservers)
		if o.cfg.Progress != nil {
			o.cfg.Progress(i+1, len(items))
		}
	}
	o.transition(MeasuringDone)

	reason := ReasonMeasurementCompleted
	if err := o.fetchTest(ctx); err != nil {
		// Connectivity degraded mid-run. The sweep data is still a valid
		// measurement, so report it under the asymmetric-failure reason.
		log.Warnf("post-measurement reachability fetch failed: %v", err)
		reason = ReasonFetchFailedAfter
	}

	report := o.state.BuildReport(reason, o.cfg.AddonVersion, o.cfg.ApexDomain)
	if err := o.cfg.Reporter.ReportEvent(ctx, o.cfg.EventType, report); err != nil {
		log.Warnf("could not report measurement: %v", err)
	}
	o.transition(Reported)
	o.meta.Duration = time.Since(o.meta.StartedAt).Seconds()
	o.meta.NumErrors = len(o.state.Errors())
	o.meta.RTTs = o.state.RTTs()
	return report, nil
}

// checkConnectivity resolves the captive-portal question. An unknown state
// suspends the run on the monitor's one-shot connectivity-available
// notification; a locked portal is a hard stop.
func (o *Orchestrator) checkConnectivity(ctx context.Context) error {
	switch o.cfg.Connectivity.State(ctx) {
	case ConnectivityNotCaptive, ConnectivityUnlockedPortal:
		return nil
	case ConnectivityLockedPortal:
		o.reportError(ctx, ReasonCaptivePortalLocked)
		return errors.New("locked captive portal detected")
	}
	log.Info("connectivity state unknown, waiting for connectivity notification")
	signal, err := o.cfg.Connectivity.AwaitAvailable(ctx)
	if err != nil {
		o.reportError(ctx, ReasonConnectivity)
		return errors.Wrap(err, "connectivity notification unavailable")
	}
	if signal == SignalCaptive {
		o.reportError(ctx, ReasonCaptivePortalLocked)
		return errors.New("connectivity notification reported a captive portal")
	}
	return nil
}

// fetchTest performs the lightweight reachability probe and compares the
// body verbatim against the expected text.
func (o *Orchestrator) fetchTest(ctx context.Context) error {
	body, err := o.cfg.Prober.Fetch(ctx, o.cfg.ReachabilityURL)
	if err != nil {
		return WithReason(ReasonFetchFailed, err)
	}
	if body != o.cfg.ReachabilityBody {
		return WithReason(ReasonFetchNotMatched, errors.Errorf("unexpected probe body: %q", body))
	}
	return nil
}

// readNameservers acquires and validates the host's resolver list. Every
// entry must be a bare IPv4/IPv6 literal; anything else fails the run.
func (o *Orchestrator) readNameservers(ctx context.Context) ([]string, error) {
	nameservers, err := o.cfg.Nameservers.ReadNameservers(ctx, o.cfg.PlatformHint)
	if err != nil {
		return nil, WithReason(ReasonNameserversUnavailable, err)
	}
	if len(nameservers) == 0 {
		return nil, WithReason(ReasonNameserversUnavailable, errors.New("empty nameserver list"))
	}
	for _, ns := range nameservers {
		if !util.IsIPLiteral(ns) {
			return nil, WithReason(ReasonNameserversInvalid, errors.Errorf("invalid nameserver address: %q", ns))
		}
	}
	return nameservers, nil
}

// runWorkItem fully completes one work item, through all of its nameserver
// and retry attempts, before returning. Encoding failures are terminal for
// the item and consume no nameserver cycle.
func (o *Orchestrator) runWorkItem(ctx context.Context, sw *sweeper, item WorkItem, nameservers []string) {
	switch item.Transport {
	case TransportWebExt:
		o.runBaselineItem(ctx, item)
	case TransportUDP:
		packet, err := EncodeUDPQuery(item.Domain, item.Variant)
		if err != nil {
			log.Warnf("could not encode UDP query for %s: %v", item.Key, err)
			o.state.RecordResult(item.Key, nil, &QueryError{
				Reason:   ReasonOf(err, ReasonUDPEncoding),
				ErrorKey: item.Key,
				Attempt:  o.state.Attempts(item.Key),
			})
			return
		}
		sw.sweepUDP(ctx, item, packet, nameservers)
	case TransportTCP:
		packet, err := EncodeTCPQuery(item.Domain, item.Variant)
		if err != nil {
			log.Warnf("could not encode TCP query for %s: %v", item.Key, err)
			o.state.RecordResult(item.Key, nil, &QueryError{
				Reason:   ReasonOf(err, ReasonTCPEncoding),
				ErrorKey: item.Key,
				Attempt:  o.state.Attempts(item.Key),
			})
			return
		}
		sw.sweepTCP(ctx, item, packet, nameservers)
	}
}

// runBaselineItem resolves the baseline domain through the host resolver.
// There is no nameserver failover here; the host path is a single attempt.
func (o *Orchestrator) runBaselineItem(ctx context.Context, item WorkItem) {
	attempt := o.state.RecordAttempt(item.Key)
	start := time.Now()
	addrs, err := o.cfg.HostResolver.Resolve(ctx, item.Domain)
	o.state.RecordRTT(time.Since(start))
	if err != nil {
		log.Debugf("baseline attempt %d for %s failed: %v", attempt, item.Key, err)
		o.state.RecordResult(item.Key, nil, &QueryError{
			Reason:   ReasonOf(err, ReasonWebExtMisc),
			ErrorKey: item.Key,
			Attempt:  attempt,
		})
		return
	}
	o.state.RecordResult(item.Key, []byte(strings.Join(addrs, ",")), nil)
}
