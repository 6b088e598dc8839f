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
	"net"

	"github.com/pkg/errors"
)

// NetResolver is the baseline host-path resolver. PreferGo keeps the
// lookup on the plain Do53 stub path (no system caches, no encrypted
// transport), and only IPv4 answers are requested.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver returns a baseline resolver.
func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: &net.Resolver{PreferGo: true}}
}

// Resolve returns the IPv4 addresses the host's resolution path produces
// for domain.
func (r *NetResolver) Resolve(ctx context.Context, domain string) ([]string, error) {
	ips, err := r.resolver.LookupIP(ctx, "ip4", domain)
	if err != nil {
		return nil, errors.Wrapf(err, "host resolution failed for %s", domain)
	}
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.String())
	}
	return addrs, nil
}
