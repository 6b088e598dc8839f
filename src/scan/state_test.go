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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAttemptCounts(t *testing.T) {
	s := NewMeasurementState("run1")
	assert.Equal(t, 1, s.RecordAttempt("udp-A"))
	assert.Equal(t, 2, s.RecordAttempt("udp-A"))
	assert.Equal(t, 1, s.RecordAttempt("tcp-A"))
	assert.Equal(t, 2, s.Attempts("udp-A"))
}

func TestInitKeyStartsAtZero(t *testing.T) {
	s := NewMeasurementState("run1")
	item := WorkItem{
		Variant:   QueryVariant{RRType: "A"},
		Transport: TransportUDP,
		PerClient: false,
		Key:       "udp-A",
		Domain:    "example.net",
	}
	s.InitKey(item)

	report := s.BuildReport(ReasonMeasurementCompleted, "1.0.0", "example.net")
	count, present := report.DNSAttempts["udp-A"]
	require.True(t, present)
	assert.Equal(t, 0, count)

	info := report.DNSQueryInfo["udp-A"]
	assert.Equal(t, "A", info.RRType)
	assert.Equal(t, "udp", info.Transport)
	assert.Equal(t, "example.net", info.Domain)
}

func TestRecordResultFirstSuccessWins(t *testing.T) {
	s := NewMeasurementState("run1")
	s.RecordResult("udp-A", []byte("first"), nil)
	s.RecordResult("udp-A", []byte("second"), nil)
	assert.Equal(t, []byte("first"), s.Data("udp-A"))
}

func TestRecordResultErrorsNeverTouchData(t *testing.T) {
	s := NewMeasurementState("run1")
	s.RecordResult("udp-A", []byte("answer"), nil)
	s.RecordResult("udp-A", nil, &QueryError{Reason: ReasonTimeout, ErrorKey: "udp-A", Attempt: 2})

	assert.Equal(t, []byte("answer"), s.Data("udp-A"))
	require.Len(t, s.Errors(), 1)
	assert.Equal(t, ReasonTimeout, s.Errors()[0].Reason)
}

func TestErrorLogPreservesOrder(t *testing.T) {
	s := NewMeasurementState("run1")
	s.RecordResult("udp-A", nil, &QueryError{Reason: ReasonTimeout, ErrorKey: "udp-A", Attempt: 1})
	s.RecordResult("tcp-A", nil, &QueryError{Reason: ReasonRefused, ErrorKey: "tcp-A", Attempt: 1})
	s.RecordResult("udp-A", nil, &QueryError{Reason: ReasonUDPMisc, ErrorKey: "udp-A", Attempt: 2})

	errs := s.Errors()
	require.Len(t, errs, 3)
	assert.Equal(t, []QueryError{
		{Reason: ReasonTimeout, ErrorKey: "udp-A", Attempt: 1},
		{Reason: ReasonRefused, ErrorKey: "tcp-A", Attempt: 1},
		{Reason: ReasonUDPMisc, ErrorKey: "udp-A", Attempt: 2},
	}, errs)
}

func TestBuildReport(t *testing.T) {
	s := NewMeasurementState("run1")
	s.RecordAttempt("udp-A")
	s.RecordResult("udp-A", []byte{0xde, 0xad}, nil)

	report := s.BuildReport(ReasonMeasurementCompleted, "1.2.0", "example.net")
	assert.Equal(t, ReasonMeasurementCompleted, report.Reason)
	assert.Equal(t, "run1", report.MeasurementID)
	assert.Equal(t, "1.2.0", report.AddonVersion)
	assert.Equal(t, "example.net", report.ApexDomain)
	assert.False(t, report.HasErrors)
	assert.Equal(t, []byte{0xde, 0xad}, report.DNSData["udp-A"])

	s.RecordResult("udp-A", nil, &QueryError{Reason: ReasonTimeout, ErrorKey: "udp-A", Attempt: 2})
	report = s.BuildReport(ReasonMeasurementCompleted, "1.2.0", "example.net")
	assert.True(t, report.HasErrors)
}

func TestFreshStatePerRun(t *testing.T) {
	first := NewMeasurementState("run1")
	first.RecordAttempt("udp-A")
	first.RecordResult("udp-A", []byte("answer"), nil)

	second := NewMeasurementState("run2")
	assert.Equal(t, 0, second.Attempts("udp-A"))
	assert.Nil(t, second.Data("udp-A"))
	assert.Empty(t, second.Errors())
	assert.NotEqual(t, first.MeasurementID(), second.MeasurementID())
}
