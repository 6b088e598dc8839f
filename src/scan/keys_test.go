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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeKey(t *testing.T) {
	d := NewDeriver("example.net", "tok123")

	tests := []struct {
		transport Transport
		variant   QueryVariant
		perClient bool
		expected  string
	}{
		{TransportTCP, QueryVariant{RRType: "A"}, false, "tcp-A"},
		{TransportTCP, QueryVariant{RRType: "A"}, true, "tcp-A-U"},
		{TransportUDP, QueryVariant{RRType: "A", DNSSECOk: true}, false, "udp-ADO"},
		{TransportUDP, QueryVariant{RRType: "A", CheckingDisabled: true}, false, "udp-ACD"},
		{TransportUDP, QueryVariant{RRType: "A", DNSSECOk: true, CheckingDisabled: true}, false, "udp-ADOCD"},
		{TransportUDP, QueryVariant{RRType: "A", NoEDNS0: true}, true, "udp-A-N-U"},
		{TransportUDP, QueryVariant{RRType: "DNSKEY", DNSSECOk: true}, false, "udp-DNSKEYDO"},
		{TransportWebExt, QueryVariant{RRType: "A"}, true, "webext-A-U"},
	}
	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, d.ComputeKey(tc.transport, tc.variant, tc.perClient))
		})
	}
}

func TestComputeKeyIsDeterministic(t *testing.T) {
	d := NewDeriver("example.net", "tok123")
	v := QueryVariant{RRType: "SMIMEA", Prefix: "_25._tcp."}
	first := d.ComputeKey(TransportUDP, v, true)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, d.ComputeKey(TransportUDP, v, true))
	}
}

func TestComputeDomainSharedRoundTripsApex(t *testing.T) {
	d := NewDeriver("example.net", "tok123")
	domain := d.ComputeDomain("tcp-A", QueryVariant{RRType: "A"}, false)
	assert.Equal(t, "example.net", domain)
}

func TestComputeDomainAppliesPrefix(t *testing.T) {
	d := NewDeriver("example.net", "tok123")
	v := QueryVariant{RRType: "SMIMEA", Prefix: "_25._tcp."}
	assert.Equal(t, "_25._tcp.example.net", d.ComputeDomain("udp-SMIMEA", v, false))
}

func TestComputeDomainPerClient(t *testing.T) {
	d := NewDeriver("example.net", "tok123")
	domain := d.ComputeDomain("udp-A-U", QueryVariant{RRType: "A"}, true)
	assert.Equal(t, "udp-A-U.tok123.pc.example.net", domain)

	// prefixed types keep their service labels outermost
	v := QueryVariant{RRType: "SMIMEA", Prefix: "_25._tcp."}
	domain = d.ComputeDomain("udp-SMIMEA-U", v, true)
	assert.Equal(t, "_25._tcp.udp-SMIMEA-U.tok123.pc.example.net", domain)
}

func TestExpandCatalogKeysAreInjective(t *testing.T) {
	d := NewDeriver("example.net", "tok123")
	items := ExpandCatalog(DefaultCatalog, d)
	require.Len(t, items, len(DefaultCatalog)*4+2)

	seen := make(map[string]WorkItem, len(items))
	for _, item := range items {
		prev, dup := seen[item.Key]
		require.False(t, dup, "key %q produced by both %+v and %+v", item.Key, prev, item)
		seen[item.Key] = item
	}
}

func TestExpandCatalogPerClientDomainsEmbedOwnKey(t *testing.T) {
	d := NewDeriver("example.net", "tok123")
	for _, item := range ExpandCatalog(DefaultCatalog, d) {
		if !item.PerClient {
			continue
		}
		// Each transport derives its per-client domain from its own key,
		// never from the other transport's.
		require.Contains(t, item.Domain, item.Key+".", "domain %q must embed key %q", item.Domain, item.Key)
		require.Contains(t, item.Domain, ".tok123.pc.example.net")
		if item.Transport == TransportTCP {
			require.True(t, strings.HasPrefix(item.Key, "tcp-"))
			require.NotContains(t, item.Domain, "udp-")
		}
	}
}

func TestExpandCatalogBaselineItems(t *testing.T) {
	d := NewDeriver("example.net", "tok123")
	items := ExpandCatalog(DefaultCatalog, d)

	var webext []WorkItem
	for _, item := range items {
		if item.Transport == TransportWebExt {
			webext = append(webext, item)
		}
	}
	require.Len(t, webext, 2)
	assert.Equal(t, "webext-A", webext[0].Key)
	assert.Equal(t, "webext-A-U", webext[1].Key)
}
