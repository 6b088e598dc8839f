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

package util

import (
	"context"
	"net"
	"regexp"

	"github.com/pkg/errors"
)

const (
	EnvPrefix              = "DNSCHECK"
	DefaultFilePermissions = 0644 // rw-r--r--
	DefaultDNSPort         = "53"
)

// IsIPLiteral reports whether s is a bare, syntactically well-formed
// IPv4 or IPv6 address with no port or brackets attached.
func IsIPLiteral(s string) bool {
	return net.ParseIP(s) != nil
}

// AddDefaultPortToDNSServerName validates inAddr as an IP address with an
// optional port and returns it in host:port form, attaching port 53 when
// none was given.
func AddDefaultPortToDNSServerName(inAddr string) (string, error) {
	host, port, err := net.SplitHostPort(inAddr)
	if err != nil {
		// might mean there's no port specified
		host = inAddr
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "", errors.New("invalid IP address")
	}

	if port == "" {
		port = DefaultDNSPort
	}

	return net.JoinHostPort(ip.String(), port), nil
}

var domainRegex = regexp.MustCompile(`^(?i)[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9_])?(\.[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9_])?)*\.[a-z]{2,}$`)

// IsStringValidDomainName checks if the given string is a valid domain
// name. Underscore labels are allowed; service-prefixed names such as
// _25._tcp.example.net are legitimate query targets here.
func IsStringValidDomainName(domain string) bool {
	return domainRegex.MatchString(domain)
}

// HasCtxExpired checks if the context has expired. Common helper used in
// the sweep loops.
func HasCtxExpired(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
