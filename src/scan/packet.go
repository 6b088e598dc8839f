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
	"encoding/binary"
	"math/rand"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// udpPayloadSize is the EDNS0 advertised UDP payload size. Large on
// purpose: truncation behavior under big advertised sizes is one of the
// conditions being measured.
const udpPayloadSize = 4096

func buildQueryMsg(domain string, v QueryVariant) (*dns.Msg, error) {
	code, ok := rrTypeCodes[v.RRType]
	if !ok {
		return nil, errors.Errorf("unsupported record type token: %q", v.RRType)
	}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), code)
	m.Id = uint16(rand.Intn(1 << 16))
	m.RecursionDesired = true
	m.CheckingDisabled = v.CheckingDisabled
	return m, nil
}

// EncodeUDPQuery builds the wire bytes of a UDP query for the given domain
// and variant. Unless the variant suppresses EDNS0, an OPT pseudo-record
// advertising udpPayloadSize is attached, carrying the DO bit when the
// variant requests DNSSEC records. NoEDNS0 together with DNSSECOk is a
// contract violation: the DO bit has nowhere to live without an OPT record.
func EncodeUDPQuery(domain string, v QueryVariant) ([]byte, error) {
	if v.NoEDNS0 && v.DNSSECOk {
		return nil, WithReason(ReasonUDPEncoding, errors.New("cannot set DNSSEC OK without an OPT record"))
	}
	m, err := buildQueryMsg(domain, v)
	if err != nil {
		return nil, WithReason(ReasonUDPEncoding, err)
	}
	if !v.NoEDNS0 {
		m.SetEdns0(udpPayloadSize, v.DNSSECOk)
	}
	packet, err := m.Pack()
	if err != nil {
		return nil, WithReason(ReasonUDPEncoding, errors.Wrap(err, "could not pack UDP query"))
	}
	return packet, nil
}

// EncodeTCPQuery builds the length-prefixed stream framing of the same
// query for TCP. TCP has no datagram size constraint, so the OPT record is
// attached only when the DO bit is needed and carries no payload-size
// tuning.
func EncodeTCPQuery(domain string, v QueryVariant) ([]byte, error) {
	m, err := buildQueryMsg(domain, v)
	if err != nil {
		return nil, WithReason(ReasonTCPEncoding, err)
	}
	if v.DNSSECOk {
		opt := &dns.OPT{Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeOPT}}
		opt.SetDo()
		m.Extra = append(m.Extra, opt)
	}
	packet, err := m.Pack()
	if err != nil {
		return nil, WithReason(ReasonTCPEncoding, errors.Wrap(err, "could not pack TCP query"))
	}
	framed := make([]byte, 2+len(packet))
	binary.BigEndian.PutUint16(framed, uint16(len(packet)))
	copy(framed[2:], packet)
	return framed, nil
}
