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

package cli

import (
	"net"
	"os"

	flags "github.com/zmap/zflags"
)

const dnscheckCLIVersion = "1.2.0"

var parser *flags.Parser

// ApplicationOptions are the user-facing knobs of a measurement run.
type ApplicationOptions struct {
	ApexDomain        string `long:"apex-domain" default:"dnscheck-test.net" description:"apex domain all measurement queries are scoped under"`
	NameServersString string `long:"name-servers" description:"comma-delimited list of resolver IPs to use instead of the OS configuration"`
	ConfigFilePath    string `long:"conf-file" default:"/etc/resolv.conf" description:"config file to read OS resolvers from"`
	Timeout           int    `long:"timeout" default:"15" description:"timeout for a single send/receive round trip, in seconds"`
	LocalAddrString   string `long:"local-addr" description:"local address to use as the source IP for outbound queries"`

	FetchTestURL   string `long:"fetch-test-url" default:"http://probe.dnscheck-test.net/ok" description:"reachability probe endpoint fetched before and after the sweep"`
	FetchTestBody  string `long:"fetch-test-body" default:"OK" description:"exact body the reachability probe must return"`
	PortalProbeURL string `long:"portal-probe-url" default:"http://detectportal.dnscheck-test.net/success.txt" description:"captive portal detection endpoint"`

	DisableUpload bool  `long:"no-upload" description:"deny upload permission; the run aborts before any telemetry is emitted"`
	ShuffleSeed   int64 `long:"shuffle-seed" default:"0" description:"seed for the work list shuffle, 0 means time-seeded (useful for reproducing runs)"`

	ResultVerbosity  string `long:"result-verbosity" default:"normal" description:"Sets verbosity of the output record. Options: short, normal, long"`
	OutputFilePath   string `short:"o" long:"output-file" default:"-" description:"where should JSON output be saved, defaults to stdout"`
	MetadataFilePath string `long:"metadata-file" description:"where should JSON run metadata be saved, defaults to no metadata output. Use '-' for stderr."`
	LogFilePath      string `long:"log-file" default:"-" description:"where should logs be saved, defaults to stderr"`
	Verbosity        int    `long:"verbosity" default:"3" description:"log verbosity: 1 (lowest)--5 (highest)"`
	NoProgress       bool   `long:"no-progress" description:"disable the progress bar"`
}

// CLIConf is the parsed options plus everything derived from them during
// validation.
type CLIConf struct {
	ApplicationOptions
	OutputGroups []string
	NameServers  []string
	LocalAddr    net.IP
}

var cliconf = CLIConf{}

func init() {
	parser = flags.NewParser(&cliconf, flags.Default)
}

// Execute parses the command line and runs one measurement.
func Execute() {
	if _, _, _, err := parser.ParseCommandLine(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	Run(&cliconf)
}
