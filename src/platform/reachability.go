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

package platform

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxProbeBodySize    = 4096
)

// HTTPProber implements the reachability fetch: a plain GET whose trimmed
// body the caller compares against the expected probe text.
type HTTPProber struct {
	Client *http.Client
}

// NewHTTPProber returns a prober with a bounded timeout.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{Client: &http.Client{Timeout: defaultFetchTimeout}}
}

// Fetch performs the GET and returns the trimmed response body.
func (p *HTTPProber) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "could not build reachability request")
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "reachability fetch failed")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Debugf("error closing reachability response body: %v", cerr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected reachability status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBodySize))
	if err != nil {
		return "", errors.Wrap(err, "could not read reachability response")
	}
	return strings.TrimSpace(string(body)), nil
}
