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
	stderrors "errors"

	"github.com/pkg/errors"
)

// Reason is the fixed error/event vocabulary of the reporting schema.
// Per-query reasons end up in dnsQueryErrors; run-level reasons become the
// report's top-level reason field.
type Reason string

const (
	// Per-query reasons.
	ReasonUDPEncoding Reason = "UDP_ENCODING_ERROR"
	ReasonTCPEncoding Reason = "TCP_ENCODING_ERROR"
	ReasonUDPMisc     Reason = "UDP_MISC_ERROR"
	ReasonTCPMisc     Reason = "TCP_MISC_ERROR"
	ReasonWebExtMisc  Reason = "WEBEXT_MISC_ERROR"
	ReasonTimeout     Reason = "TIMEOUT_ERROR"
	ReasonRefused     Reason = "CONNECTION_REFUSED_ERROR"

	// Run-level reasons.
	ReasonStudyStart             Reason = "STUDY_START"
	ReasonMeasurementCompleted   Reason = "STUDY_MEASUREMENT_COMPLETED"
	ReasonCaptivePortalLocked    Reason = "STUDY_ERROR_CAPTIVE_PORTAL_LOCKED"
	ReasonConnectivity           Reason = "STUDY_ERROR_CONNECTIVITY"
	ReasonNameserversUnavailable Reason = "STUDY_ERROR_NAMESERVERS_UNAVAILABLE"
	ReasonNameserversInvalid     Reason = "STUDY_ERROR_NAMESERVERS_INVALID"
	ReasonFetchFailed            Reason = "STUDY_ERROR_FETCH_FAILED"
	ReasonFetchNotMatched        Reason = "STUDY_ERROR_FETCH_NOT_MATCHED"
	ReasonFetchFailedAfter       Reason = "STUDY_ERROR_FETCH_FAILED_AFTER"
)

// ErrPermissionDenied aborts a run before any event is emitted. Reporting
// itself requires upload permission, so this is the one failure that is
// deliberately silent.
var ErrPermissionDenied = errors.New("upload permission denied")

// ReasonError tags an underlying error with a Reason from the protocol
// vocabulary so callers never have to sniff error strings.
type ReasonError struct {
	reason Reason
	err    error
}

func (e *ReasonError) Error() string {
	if e.err == nil {
		return string(e.reason)
	}
	return string(e.reason) + ": " + e.err.Error()
}

func (e *ReasonError) Unwrap() error {
	return e.err
}

// Reason returns the tagged reason.
func (e *ReasonError) Reason() Reason {
	return e.reason
}

// WithReason wraps err with a Reason tag. A nil err still yields a tagged
// error so sentinel conditions can be expressed directly.
func WithReason(reason Reason, err error) error {
	return &ReasonError{reason: reason, err: err}
}

// ReasonOf extracts the Reason carried by err, walking the wrap chain.
// Errors outside the vocabulary map to the caller-supplied fallback, which
// is the transport-generic misc reason in the retry path.
func ReasonOf(err error, fallback Reason) Reason {
	var re *ReasonError
	if stderrors.As(err, &re) {
		return re.reason
	}
	return fallback
}
