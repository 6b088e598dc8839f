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

import "strings"

// perClientSuffix is the static label under the apex that all per-client
// domains live in, so the zone can delegate them with a single wildcard.
const perClientSuffix = "pc"

// Deriver maps (transport, variant, per-client) triples to reporting keys
// and fully-qualified query domains. All methods are pure; the run token
// baked in at construction is the only per-run input.
type Deriver struct {
	apex           string
	perClientLabel string
}

// NewDeriver returns a Deriver for the given apex domain. runToken is an
// opaque per-run value embedded in every per-client domain so that answers
// can never be served from a cache shared with another client or run.
func NewDeriver(apex, runToken string) *Deriver {
	return &Deriver{
		apex:           strings.TrimSuffix(apex, "."),
		perClientLabel: runToken + "." + perClientSuffix,
	}
}

// Apex returns the apex domain all queries are scoped under.
func (d *Deriver) Apex() string {
	return d.apex
}

// ComputeKey derives the unique reporting key for one work item. The
// suffix order (DO, CD, -N, -U) is part of the reporting schema consumed
// downstream and must not change.
func (d *Deriver) ComputeKey(tr Transport, v QueryVariant, perClient bool) string {
	var b strings.Builder
	b.WriteString(string(tr))
	b.WriteString("-")
	b.WriteString(v.RRType)
	if v.DNSSECOk {
		b.WriteString("DO")
	}
	if v.CheckingDisabled {
		b.WriteString("CD")
	}
	if v.NoEDNS0 {
		b.WriteString("-N")
	}
	if perClient {
		b.WriteString("-U")
	}
	return b.String()
}

// ComputeDomain derives the domain actually placed in the question section
// for a key. Per-client domains embed the key and the run token as labels
// under the per-client subtree; shared domains are just prefix + apex.
func (d *Deriver) ComputeDomain(key string, v QueryVariant, perClient bool) string {
	if !perClient {
		return v.Prefix + d.apex
	}
	return v.Prefix + key + "." + d.perClientLabel + "." + d.apex
}
