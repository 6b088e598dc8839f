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

	"github.com/miekg/dns"
	"github.com/pkg/errors"

	"github.com/dnscheck/dnscheck/src/internal/util"
)

// DefaultNameServerConfigFile is where Unix-like systems keep the stub
// resolver configuration.
const DefaultNameServerConfigFile = "/etc/resolv.conf"

// supportedPlatforms lists the platform hints the resolv.conf source can
// honor. Windows keeps resolver configuration in the registry, which this
// source cannot read.
var supportedPlatforms = map[string]bool{
	"linux":   true,
	"darwin":  true,
	"freebsd": true,
	"openbsd": true,
	"netbsd":  true,
}

// ResolvConfSource reads the OS-configured resolvers from a resolv.conf
// style file, preserving the file's failover order.
type ResolvConfSource struct {
	Path string
}

// NewResolvConfSource returns a source reading the default config file.
func NewResolvConfSource() *ResolvConfSource {
	return &ResolvConfSource{Path: DefaultNameServerConfigFile}
}

// ReadNameservers returns the configured resolver addresses as bare IP
// literals, in file order.
func (s *ResolvConfSource) ReadNameservers(_ context.Context, platformHint string) ([]string, error) {
	if !supportedPlatforms[platformHint] {
		return nil, errors.Errorf("unsupported platform for resolv.conf parsing: %s", platformHint)
	}
	c, err := dns.ClientConfigFromFile(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading DNS config file (%s)", s.Path)
	}
	servers := make([]string, 0, len(c.Servers))
	for _, srv := range c.Servers {
		if !util.IsIPLiteral(srv) {
			return nil, errors.Errorf("could not parse IP address (%s) from file: %s", srv, s.Path)
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

// StaticSource serves a fixed operator-supplied resolver list, used when
// the CLI overrides the OS configuration.
type StaticSource struct {
	Servers []string
}

// ReadNameservers returns a copy of the configured list.
func (s *StaticSource) ReadNameservers(_ context.Context, _ string) ([]string, error) {
	out := make([]string, len(s.Servers))
	copy(out, s.Servers)
	return out, nil
}
