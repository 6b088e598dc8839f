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
	"encoding/binary"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnscheck/dnscheck/src/internal/util"
	"github.com/dnscheck/dnscheck/src/scan"
)

const (
	defaultSendTimeout = 15 * time.Second
	udpReadBufferSize  = 4096
	maxTCPResponseSize = 1 << 16
)

// SocketSender sends caller-encoded raw DNS packets over plain UDP/TCP
// sockets. The packets arrive already framed (the TCP variant carries its
// 2-byte length prefix), so the sender only moves bytes and applies a
// bounded per-round-trip timeout.
type SocketSender struct {
	Timeout   time.Duration
	LocalAddr net.IP // optional source address
}

// NewSocketSender returns a sender with the default timeout.
func NewSocketSender() *SocketSender {
	return &SocketSender{Timeout: defaultSendTimeout}
}

func (s *SocketSender) dialer(local net.Addr) *net.Dialer {
	return &net.Dialer{Timeout: s.Timeout, LocalAddr: local}
}

// classifySendError tags timeouts and refused connections with their
// protocol reasons; everything else passes through untagged and ends up as
// the transport-generic misc reason upstream.
func classifySendError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return scan.WithReason(scan.ReasonTimeout, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return scan.WithReason(scan.ReasonRefused, err)
	}
	return err
}

// SendUDP performs one datagram round trip against the nameserver and
// returns the raw response bytes. rrtypeHint is only used for logging; the
// sender never inspects the packet.
func (s *SocketSender) SendUDP(ctx context.Context, nameserver string, packet []byte, rrtypeHint string) ([]byte, error) {
	addr, err := util.AddDefaultPortToDNSServerName(nameserver)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid nameserver: %s", nameserver)
	}
	var local net.Addr
	if s.LocalAddr != nil {
		local = &net.UDPAddr{IP: s.LocalAddr}
	}
	log.Debugf("sending %s query over UDP to %s", rrtypeHint, addr)
	conn, err := s.dialer(local).DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, classifySendError(err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Debugf("error closing UDP socket to %s: %v", addr, cerr)
		}
	}()
	if err = conn.SetDeadline(time.Now().Add(s.Timeout)); err != nil {
		return nil, errors.Wrap(err, "could not set socket deadline")
	}
	if _, err = conn.Write(packet); err != nil {
		return nil, classifySendError(err)
	}
	buf := make([]byte, udpReadBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, classifySendError(err)
	}
	return buf[:n], nil
}

// SendTCP performs one stream round trip. The response's own length prefix
// is consumed here; callers receive just the DNS message bytes.
func (s *SocketSender) SendTCP(ctx context.Context, nameserver string, packet []byte) ([]byte, error) {
	addr, err := util.AddDefaultPortToDNSServerName(nameserver)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid nameserver: %s", nameserver)
	}
	var local net.Addr
	if s.LocalAddr != nil {
		local = &net.TCPAddr{IP: s.LocalAddr}
	}
	log.Debugf("sending query over TCP to %s", addr)
	conn, err := s.dialer(local).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifySendError(err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Debugf("error closing TCP socket to %s: %v", addr, cerr)
		}
	}()
	if err = conn.SetDeadline(time.Now().Add(s.Timeout)); err != nil {
		return nil, errors.Wrap(err, "could not set socket deadline")
	}
	if _, err = conn.Write(packet); err != nil {
		return nil, classifySendError(err)
	}
	var prefix [2]byte
	if _, err = io.ReadFull(conn, prefix[:]); err != nil {
		return nil, classifySendError(err)
	}
	respLen := int(binary.BigEndian.Uint16(prefix[:]))
	if respLen == 0 || respLen > maxTCPResponseSize {
		return nil, errors.Errorf("nonsensical TCP response length: %d", respLen)
	}
	body := make([]byte, respLen)
	if _, err = io.ReadFull(conn, body); err != nil {
		return nil, classifySendError(err)
	}
	return body, nil
}
