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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dnscheck/dnscheck/src/internal/util"
)

// udpSweepPasses is how many full nameserver sweeps a UDP query gets
// before giving up. Two passes mirror stub-resolver retry behavior; TCP
// sweeps once because the transport either delivers or reports a terminal
// error on its own.
const udpSweepPasses = 2

// sweeper drives one query's attempts across the nameserver list and folds
// every outcome into the run state. Round-trip failures are fully absorbed
// here: the sweep records them and moves on, it never propagates them.
type sweeper struct {
	sender TransportSender
	state  *MeasurementState
}

// sweepUDP sends the encoded packet to each nameserver in priority order,
// repeating the whole sweep up to udpSweepPasses times. The first response
// wins and ends the sweep.
func (sw *sweeper) sweepUDP(ctx context.Context, item WorkItem, packet []byte, nameservers []string) {
	for pass := 0; pass < udpSweepPasses; pass++ {
		for _, ns := range nameservers {
			if util.HasCtxExpired(ctx) {
				return
			}
			attempt := sw.state.RecordAttempt(item.Key)
			start := time.Now()
			resp, err := sw.sender.SendUDP(ctx, ns, packet, item.Variant.RRType)
			sw.state.RecordRTT(time.Since(start))
			if err == nil {
				sw.state.RecordResult(item.Key, resp, nil)
				return
			}
			log.Debugf("UDP attempt %d for %s against %s failed: %v", attempt, item.Key, ns, err)
			sw.state.RecordResult(item.Key, nil, &QueryError{
				Reason:   ReasonOf(err, ReasonUDPMisc),
				ErrorKey: item.Key,
				Attempt:  attempt,
			})
		}
	}
}

// sweepTCP is the single-pass variant of the same policy.
func (sw *sweeper) sweepTCP(ctx context.Context, item WorkItem, packet []byte, nameservers []string) {
	for _, ns := range nameservers {
		if util.HasCtxExpired(ctx) {
			return
		}
		attempt := sw.state.RecordAttempt(item.Key)
		start := time.Now()
		resp, err := sw.sender.SendTCP(ctx, ns, packet)
		sw.state.RecordRTT(time.Since(start))
		if err == nil {
			sw.state.RecordResult(item.Key, resp, nil)
			return
		}
		log.Debugf("TCP attempt %d for %s against %s failed: %v", attempt, item.Key, ns, err)
		sw.state.RecordResult(item.Key, nil, &QueryError{
			Reason:   ReasonOf(err, ReasonTCPMisc),
			ErrorKey: item.Key,
			Attempt:  attempt,
		})
	}
}
