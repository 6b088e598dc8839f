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
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/dnscheck/dnscheck/src/scan"
)

// startUDPEcho runs a one-shot UDP responder on loopback that echoes the
// request with a fixed reply.
func startUDPEcho(t *testing.T, reply []byte) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	assert.NilError(t, err)
	t.Cleanup(func() { pc.Close() })
	go func() {
		buf := make([]byte, 4096)
		_, addr, rerr := pc.ReadFrom(buf)
		if rerr != nil {
			return
		}
		pc.WriteTo(reply, addr)
	}()
	return pc.LocalAddr().String()
}

// startTCPResponder runs a one-shot TCP responder on loopback that reads
// the framed request and writes back a length-prefixed reply.
func startTCPResponder(t *testing.T, reply []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, aerr := ln.Accept()
		if aerr != nil {
			return
		}
		defer conn.Close()
		var prefix [2]byte
		if _, rerr := io.ReadFull(conn, prefix[:]); rerr != nil {
			return
		}
		body := make([]byte, binary.BigEndian.Uint16(prefix[:]))
		if _, rerr := io.ReadFull(conn, body); rerr != nil {
			return
		}
		framed := make([]byte, 2+len(reply))
		binary.BigEndian.PutUint16(framed, uint16(len(reply)))
		copy(framed[2:], reply)
		conn.Write(framed)
	}()
	return ln.Addr().String()
}

func TestSendUDPRoundTrip(t *testing.T) {
	reply := []byte("raw dns reply")
	addr := startUDPEcho(t, reply)
	sender := NewSocketSender()

	resp, err := sender.SendUDP(context.Background(), addr, []byte("raw dns query"), "A")
	assert.NilError(t, err)
	assert.DeepEqual(t, resp, reply)
}

func TestSendUDPTimeoutTagged(t *testing.T) {
	// Listener that never answers.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	assert.NilError(t, err)
	t.Cleanup(func() { pc.Close() })

	sender := &SocketSender{Timeout: 50 * time.Millisecond}
	_, err = sender.SendUDP(context.Background(), pc.LocalAddr().String(), []byte("query"), "A")
	assert.Assert(t, err != nil)
	assert.Equal(t, scan.ReasonOf(err, scan.ReasonUDPMisc), scan.ReasonTimeout)
}

func TestSendTCPRoundTripStripsPrefix(t *testing.T) {
	reply := []byte("raw tcp dns reply")
	addr := startTCPResponder(t, reply)
	sender := NewSocketSender()

	query := make([]byte, 2+3)
	binary.BigEndian.PutUint16(query, 3)
	copy(query[2:], "abc")

	resp, err := sender.SendTCP(context.Background(), addr, query)
	assert.NilError(t, err)
	assert.DeepEqual(t, resp, reply)
}

func TestSendTCPConnectionRefusedTagged(t *testing.T) {
	// Grab a port and close the listener so nothing is accepting.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	addr := ln.Addr().String()
	assert.NilError(t, ln.Close())

	sender := &SocketSender{Timeout: time.Second}
	_, err = sender.SendTCP(context.Background(), addr, []byte{0, 0})
	assert.Assert(t, err != nil)
	assert.Equal(t, scan.ReasonOf(err, scan.ReasonTCPMisc), scan.ReasonRefused)
}

func TestSendUDPInvalidNameserver(t *testing.T) {
	sender := NewSocketSender()
	_, err := sender.SendUDP(context.Background(), "not an address", []byte("query"), "A")
	assert.Assert(t, err != nil)
}
