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

// Transport identifies how a query variant reaches the nameserver. The
// webext transport is the synthetic baseline that goes through the host's
// own resolution path instead of a raw socket.
type Transport string

const (
	TransportUDP    Transport = "udp"
	TransportTCP    Transport = "tcp"
	TransportWebExt Transport = "webext"
)

// QueryVariant is one catalog-defined combination of record type and
// protocol flags. Values are immutable once constructed.
type QueryVariant struct {
	RRType           string
	Prefix           string // label(s) prepended to the queried domain, empty for most types
	DNSSECOk         bool
	CheckingDisabled bool
	NoEDNS0          bool // omit the OPT pseudo-record entirely (UDP only)
}

// rrTypeCodes maps catalog record-type tokens to wire-format type codes.
// The NEW* entries are forward-compatibility placeholders in the RFC 6895
// private-use range; resolvers that mishandle unknown types are part of
// what the measurement is looking for.
var rrTypeCodes = map[string]uint16{
	"A":        1,
	"RRSIG":    46,
	"SMIMEA":   53,
	"DNSKEY":   48,
	"HTTPS":    65,
	"NEWONE":   65280,
	"NEWTWO":   65281,
	"NEWTHREE": 65282,
	"NEWFOUR":  65283,
}

// DefaultCatalog is the fixed, ordered set of query variants issued over
// raw UDP and TCP sockets. Adding or removing a record type here is the
// only change needed to grow or shrink a measurement.
var DefaultCatalog = []QueryVariant{
	{RRType: "A"},
	{RRType: "A", DNSSECOk: true},
	{RRType: "A", DNSSECOk: true, CheckingDisabled: true},
	{RRType: "A", NoEDNS0: true},
	{RRType: "RRSIG"},
	{RRType: "DNSKEY"},
	{RRType: "DNSKEY", DNSSECOk: true},
	{RRType: "SMIMEA", Prefix: "_25._tcp."},
	{RRType: "HTTPS", Prefix: "httpssvc."},
	{RRType: "NEWONE"},
	{RRType: "NEWTWO"},
	{RRType: "NEWTHREE"},
	{RRType: "NEWFOUR"},
}

// BaselineVariant is the webext baseline: a plain A query resolved through
// the host resolver rather than a packet we encode ourselves.
var BaselineVariant = QueryVariant{RRType: "A"}

// WorkItem is one fully-expanded unit of measurement work: a variant bound
// to a transport and a per-client choice, with its derived key and domain.
type WorkItem struct {
	Variant   QueryVariant
	Transport Transport
	PerClient bool
	Key       string
	Domain    string
}

// ExpandCatalog expands every catalog entry into its (transport ×
// per-client) work items, plus the two baseline items, in catalog order.
// Keys are guaranteed unique across the returned slice.
func ExpandCatalog(catalog []QueryVariant, d *Deriver) []WorkItem {
	items := make([]WorkItem, 0, len(catalog)*4+2)
	for _, v := range catalog {
		for _, tr := range []Transport{TransportUDP, TransportTCP} {
			for _, perClient := range []bool{false, true} {
				key := d.ComputeKey(tr, v, perClient)
				items = append(items, WorkItem{
					Variant:   v,
					Transport: tr,
					PerClient: perClient,
					Key:       key,
					Domain:    d.ComputeDomain(key, v, perClient),
				})
			}
		}
	}
	for _, perClient := range []bool{false, true} {
		key := d.ComputeKey(TransportWebExt, BaselineVariant, perClient)
		items = append(items, WorkItem{
			Variant:   BaselineVariant,
			Transport: TransportWebExt,
			PerClient: perClient,
			Key:       key,
			Domain:    d.ComputeDomain(key, BaselineVariant, perClient),
		})
	}
	return items
}
