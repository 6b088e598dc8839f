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
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnscheck/dnscheck/src/internal/util"
)

func populateCLIConfig(gc *CLIConf) error {
	if err := populateLogger(gc); err != nil {
		return err
	}
	if err := populateOutputGroups(gc); err != nil {
		return err
	}
	if err := populateNetworkingConfig(gc); err != nil {
		return err
	}
	if !util.IsStringValidDomainName(gc.ApexDomain) {
		return errors.Errorf("invalid apex domain: %s", gc.ApexDomain)
	}
	if gc.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %d", gc.Timeout)
	}
	return nil
}

func populateLogger(gc *CLIConf) error {
	switch gc.Verbosity {
	case 1: // least verbose
		log.SetLevel(log.ErrorLevel)
	case 2:
		log.SetLevel(log.WarnLevel)
	case 3:
		log.SetLevel(log.InfoLevel)
	case 4:
		log.SetLevel(log.DebugLevel)
	case 5: // most verbose
		log.SetLevel(log.TraceLevel)
	default:
		return errors.Errorf("invalid verbosity level: %d", gc.Verbosity)
	}
	return nil
}

func populateOutputGroups(gc *CLIConf) error {
	switch gc.ResultVerbosity {
	case "short":
		gc.OutputGroups = []string{"short"}
	case "normal":
		gc.OutputGroups = []string{"short", "normal"}
	case "long":
		gc.OutputGroups = []string{"short", "normal", "long"}
	default:
		return errors.Errorf("invalid result verbosity: %s", gc.ResultVerbosity)
	}
	return nil
}

func populateNetworkingConfig(gc *CLIConf) error {
	if gc.NameServersString != "" {
		for _, ns := range strings.Split(gc.NameServersString, ",") {
			ns = strings.TrimSpace(ns)
			if !util.IsIPLiteral(ns) {
				return errors.Errorf("user-supplied nameserver is not an IP literal: %s", ns)
			}
			gc.NameServers = append(gc.NameServers, ns)
		}
	}
	if gc.LocalAddrString != "" {
		ip := net.ParseIP(strings.TrimSpace(gc.LocalAddrString))
		if ip == nil {
			return errors.Errorf("invalid local address: %s", gc.LocalAddrString)
		}
		gc.LocalAddr = ip
	}
	return nil
}
