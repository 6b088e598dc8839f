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
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/liip/sheriff"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/dnscheck/dnscheck/src/internal/util"
	"github.com/dnscheck/dnscheck/src/platform"
	"github.com/dnscheck/dnscheck/src/scan"
)

// eventEnvelope is one emitted telemetry event as written to the output
// stream: the event type plus the schema payload.
type eventEnvelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// lineReporter writes each reported event as one JSON line, with the
// payload filtered through the configured output groups.
type lineReporter struct {
	w      io.Writer
	groups []string
}

func (r *lineReporter) ReportEvent(_ context.Context, eventType string, payload *scan.Report) error {
	v, err := version.NewVersion("0.0.0")
	if err != nil {
		return errors.Wrap(err, "could not build sheriff api version")
	}
	o := &sheriff.Options{
		Groups:     r.groups,
		ApiVersion: v,
	}
	data, err := sheriff.Marshal(o, payload)
	if err != nil {
		return errors.Wrap(err, "unable to marshal report to JSON")
	}
	jsonRes, err := json.Marshal(eventEnvelope{Type: eventType, Payload: data})
	if err != nil {
		return errors.Wrap(err, "unable to marshal JSON event")
	}
	if _, err = r.w.Write(append(jsonRes, '\n')); err != nil {
		return errors.Wrap(err, "unable to write event")
	}
	return nil
}

// rttSummary is the operator-facing latency digest attached to the run
// metadata output.
type rttSummary struct {
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

type runMetadataOutput struct {
	scan.RunMetadata
	RTT *rttSummary `json:"rtt,omitempty"`
}

func openOutputFile(path string) (io.Writer, func(), error) {
	switch path {
	case "", "-":
		return os.Stdout, func() {}, nil
	default:
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, util.DefaultFilePermissions)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "unable to open output file %s", path)
		}
		return f, func() {
			if cerr := f.Close(); cerr != nil {
				log.Errorf("error closing output file: %v", cerr)
			}
		}, nil
	}
}

// Run validates the parsed configuration, wires the platform collaborators
// into a fresh orchestrator, and drives one measurement to its report.
func Run(gc *CLIConf) {
	if err := populateCLIConfig(gc); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if gc.LogFilePath != "" && gc.LogFilePath != "-" {
		f, err := os.OpenFile(gc.LogFilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, util.DefaultFilePermissions)
		if err != nil {
			log.Fatalf("unable to open log file %s: %v", gc.LogFilePath, err)
		}
		log.SetOutput(f)
	}

	out, closeOut, err := openOutputFile(gc.OutputFilePath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeOut()

	cfg := scan.NewOrchestratorConfig()
	cfg.ApexDomain = gc.ApexDomain
	cfg.ReachabilityURL = gc.FetchTestURL
	cfg.ReachabilityBody = gc.FetchTestBody
	cfg.ShuffleSeed = gc.ShuffleSeed
	cfg.Permission = &platform.StaticPermission{Allowed: !gc.DisableUpload}
	cfg.HostResolver = platform.NewNetResolver()
	cfg.Prober = platform.NewHTTPProber()
	cfg.Reporter = &lineReporter{w: out, groups: gc.OutputGroups}

	monitor := platform.NewPortalMonitor()
	monitor.ProbeURL = gc.PortalProbeURL
	cfg.Connectivity = monitor

	sender := platform.NewSocketSender()
	sender.Timeout = time.Duration(gc.Timeout) * time.Second
	sender.LocalAddr = gc.LocalAddr
	cfg.Sender = sender

	if len(gc.NameServers) > 0 {
		cfg.Nameservers = &platform.StaticSource{Servers: gc.NameServers}
	} else {
		cfg.Nameservers = &platform.ResolvConfSource{Path: gc.ConfigFilePath}
	}

	if !gc.NoProgress {
		var bar *progressbar.ProgressBar
		cfg.Progress = func(completed, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("measuring"),
				)
			}
			if err := bar.Set(completed); err != nil {
				log.Debugf("could not advance progress bar: %v", err)
			}
		}
	}

	orch, err := scan.NewOrchestrator(cfg)
	if err != nil {
		log.Fatalf("unable to build orchestrator: %v", err)
	}

	_, err = orch.Run(context.Background())
	switch {
	case errors.Is(err, scan.ErrPermissionDenied):
		log.Info("run aborted: upload permission denied")
		return
	case err != nil:
		log.Fatalf("measurement run failed: %v", err)
	}

	if gc.MetadataFilePath != "" {
		if err := writeRunMetadata(gc.MetadataFilePath, orch.Metadata()); err != nil {
			log.Errorf("unable to write run metadata: %v", err)
		}
	}
}

func writeRunMetadata(path string, meta scan.RunMetadata) error {
	out := runMetadataOutput{RunMetadata: meta}
	if len(meta.RTTs) > 0 {
		out.RTT = summarizeRTTs(meta.RTTs)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "unable to marshal run metadata")
	}
	if path == "-" {
		_, err = os.Stderr.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), util.DefaultFilePermissions)
}

func summarizeRTTs(rtts []float64) *rttSummary {
	s := &rttSummary{}
	// stats errors only on empty input, which the caller excludes.
	s.Min, _ = stats.Min(rtts)
	s.Median, _ = stats.Median(rtts)
	s.Max, _ = stats.Max(rtts)
	s.StdDev, _ = stats.StandardDeviation(rtts)
	return s
}
