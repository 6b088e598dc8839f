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

import "time"

// QueryError is one failed attempt, in the order it happened.
type QueryError struct {
	Reason   Reason `json:"reason" groups:"short,normal,long"`
	ErrorKey string `json:"errorKey" groups:"short,normal,long"`
	Attempt  int    `json:"attemptNumber" groups:"short,normal,long"`
}

// QueryInfo records the variant metadata behind a key so downstream schema
// validation can tie attempts and raw bytes back to what was actually sent.
type QueryInfo struct {
	RRType           string `json:"rrtype" groups:"short,normal,long"`
	Transport        string `json:"transport" groups:"short,normal,long"`
	Domain           string `json:"domain" groups:"short,normal,long"`
	DNSSECOk         bool   `json:"dnssecOk" groups:"normal,long"`
	CheckingDisabled bool   `json:"checkingDisabled" groups:"normal,long"`
	NoEDNS0          bool   `json:"noEdns0" groups:"normal,long"`
	PerClient        bool   `json:"perClient" groups:"normal,long"`
}

// Report is the flat aggregate payload emitted at the end of a run. Field
// names are a fixed external schema; do not rename.
type Report struct {
	Reason         Reason               `json:"reason" groups:"short,normal,long"`
	MeasurementID  string               `json:"measurementID" groups:"short,normal,long"`
	DNSAttempts    map[string]int       `json:"dnsAttempts" groups:"short,normal,long"`
	DNSData        map[string][]byte    `json:"dnsData" groups:"short,normal,long"`
	DNSQueryErrors []QueryError         `json:"dnsQueryErrors" groups:"short,normal,long"`
	DNSQueryInfo   map[string]QueryInfo `json:"dnsQueryInfo" groups:"normal,long"`
	HasErrors      bool                 `json:"hasErrors" groups:"short,normal,long"`
	AddonVersion   string               `json:"addonVersion" groups:"short,normal,long"`
	ApexDomain     string               `json:"apexDomain" groups:"short,normal,long"`
}

// MeasurementState is the mutable state of exactly one run. It is owned by
// the orchestrator and mutated only through RecordAttempt/RecordResult, so
// it needs no locking as long as queries stay sequential. A new run gets a
// new state; there is no reset.
type MeasurementState struct {
	measurementID string
	attempts      map[string]int
	data          map[string][]byte
	errors        []QueryError
	info          map[string]QueryInfo
	rtts          []float64 // per-attempt round-trip times, seconds
}

// NewMeasurementState returns fresh state for a run identified by id.
func NewMeasurementState(id string) *MeasurementState {
	return &MeasurementState{
		measurementID: id,
		attempts:      make(map[string]int),
		data:          make(map[string][]byte),
		errors:        make([]QueryError, 0),
		info:          make(map[string]QueryInfo),
	}
}

// MeasurementID returns the opaque run identifier.
func (s *MeasurementState) MeasurementID() string {
	return s.measurementID
}

// InitKey registers a key before any sends, so keys whose every attempt is
// abandoned (e.g. on encoding errors) still show up with a zero count.
func (s *MeasurementState) InitKey(item WorkItem) {
	if _, ok := s.attempts[item.Key]; !ok {
		s.attempts[item.Key] = 0
	}
	s.info[item.Key] = QueryInfo{
		RRType:           item.Variant.RRType,
		Transport:        string(item.Transport),
		Domain:           item.Domain,
		DNSSECOk:         item.Variant.DNSSECOk,
		CheckingDisabled: item.Variant.CheckingDisabled,
		NoEDNS0:          item.Variant.NoEDNS0,
		PerClient:        item.PerClient,
	}
}

// RecordAttempt bumps the attempt counter for key and returns the new
// count. Safe on unseen keys, which start at 1.
func (s *MeasurementState) RecordAttempt(key string) int {
	s.attempts[key]++
	return s.attempts[key]
}

// RecordResult folds one attempt outcome into the state. Response bytes
// are kept only for the first success per key; a retried nameserver that
// also answers is dropped silently. Errors append to the ordered log and
// never touch the data map.
func (s *MeasurementState) RecordResult(key string, data []byte, qerr *QueryError) {
	if qerr != nil {
		s.errors = append(s.errors, *qerr)
		return
	}
	if data == nil {
		return
	}
	if _, ok := s.data[key]; !ok {
		s.data[key] = data
	}
}

// RecordRTT stashes one attempt's round-trip time for the run metadata.
func (s *MeasurementState) RecordRTT(d time.Duration) {
	s.rtts = append(s.rtts, d.Seconds())
}

// RTTs returns the recorded round-trip times in seconds.
func (s *MeasurementState) RTTs() []float64 {
	return s.rtts
}

// Attempts returns the attempt count for key.
func (s *MeasurementState) Attempts(key string) int {
	return s.attempts[key]
}

// Data returns the first-success bytes for key, or nil.
func (s *MeasurementState) Data(key string) []byte {
	return s.data[key]
}

// Errors returns the ordered error log.
func (s *MeasurementState) Errors() []QueryError {
	return s.errors
}

// BuildReport reads the state into the flat reportable payload.
func (s *MeasurementState) BuildReport(reason Reason, addonVersion, apexDomain string) *Report {
	return &Report{
		Reason:         reason,
		MeasurementID:  s.measurementID,
		DNSAttempts:    s.attempts,
		DNSData:        s.data,
		DNSQueryErrors: s.errors,
		DNSQueryInfo:   s.info,
		HasErrors:      len(s.errors) > 0,
		AddonVersion:   addonVersion,
		ApexDomain:     apexDomain,
	}
}
