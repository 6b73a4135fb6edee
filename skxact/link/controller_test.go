/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package link

import (
	"strings"
	"sync"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"

	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/skxutil"
)

// Records requests and mimics the host's "already" responses.
type fakeStack struct {
	mtx sync.Mutex
	h   Handler

	advertising bool
	scanning    bool

	advStarts   int
	scanStarts  int
	connects    []BleDev
	terminates  []uint16
	connectErr  error
	ensureErr   error
	startAdvErr error
}

func (fs *fakeStack) Start() error { return nil }
func (fs *fakeStack) Stop() error  { return nil }

func (fs *fakeStack) EnsureAddr() (BleDev, error) {
	if fs.ensureErr != nil {
		return BleDev{}, fs.ensureErr
	}
	return testDev(0x01), nil
}

func (fs *fakeStack) StartAdvertising(own BleAddrType, p BleAdvParams) error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	if fs.startAdvErr != nil {
		return fs.startAdvErr
	}
	if fs.advertising {
		return skxutil.NewBleHostError(ERR_CODE_EALREADY, "already advertising")
	}
	fs.advertising = true
	fs.advStarts++
	return nil
}

func (fs *fakeStack) StopAdvertising() error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	if !fs.advertising {
		return skxutil.NewBleHostError(ERR_CODE_EALREADY, "not advertising")
	}
	fs.advertising = false
	return nil
}

func (fs *fakeStack) StartScan(own BleAddrType, p BleScanParams) error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	if fs.scanning {
		return skxutil.NewBleHostError(ERR_CODE_EALREADY, "already scanning")
	}
	fs.scanning = true
	fs.scanStarts++
	return nil
}

func (fs *fakeStack) StopScan() error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	if !fs.scanning {
		return skxutil.NewBleHostError(ERR_CODE_EALREADY, "not scanning")
	}
	fs.scanning = false
	return nil
}

func (fs *fakeStack) Connect(own BleAddrType, peer BleDev,
	p BleConnParams) error {

	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	if fs.connectErr != nil {
		return fs.connectErr
	}
	fs.connects = append(fs.connects, peer)
	return nil
}

func (fs *fakeStack) Terminate(connHandle uint16, hciReason int) error {
	fs.terminates = append(fs.terminates, connHandle)
	return nil
}

func (fs *fakeStack) FindConn(connHandle uint16) (BleConnDesc, error) {
	return BleConnDesc{ConnHandle: connHandle}, nil
}

func (fs *fakeStack) SetHandler(h Handler) { fs.h = h }

// The host stops advertising when a connection forms; scanning ends when
// the scan times out.
func (fs *fakeStack) linkUp() {
	fs.mtx.Lock()
	fs.advertising = false
	fs.mtx.Unlock()
}

func (fs *fakeStack) scanDone() {
	fs.mtx.Lock()
	fs.scanning = false
	fs.mtx.Unlock()
}

func TestPeripheralScenario(t *testing.T) {
	fs := &fakeStack{}
	p := NewPeripheral(fs, Config{})
	if err := p.Start(); err != nil {
		t.Fatalf("start: %s", err.Error())
	}
	if fs.h != p {
		t.Fatalf("peripheral not registered as handler")
	}

	if p.IsConnected() {
		t.Fatalf("connected before sync")
	}

	fs.h.OnSync()
	if fs.advStarts != 1 {
		t.Fatalf("sync: %d advertise calls; want 1", fs.advStarts)
	}

	peer := BleDev{
		AddrType: BLE_ADDR_TYPE_PUBLIC,
		Addr:     BleAddr{Bytes: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}},
	}
	fs.linkUp()
	fs.h.OnEvent(connectOk(7, peer))

	s := p.Session()
	if !p.IsConnected() || s.ConnHandle != 7 {
		t.Fatalf("after connect: %s", s)
	}
	if s.Peer != peer {
		t.Fatalf("peer=%s; want %s", s.Peer.String(), peer.String())
	}

	fs.h.OnEvent(disconnected(7, 0x213))
	s = p.Session()
	if p.IsConnected() || s.ConnHandle != CONN_HANDLE_NONE {
		t.Fatalf("after disconnect: %s", s)
	}
	if fs.advStarts != 2 {
		t.Fatalf("disconnect: %d advertise calls total; want 2", fs.advStarts)
	}
}

func TestCentralScenario(t *testing.T) {
	fs := &fakeStack{}
	c := NewCentral(fs, Config{})
	if err := c.Start(); err != nil {
		t.Fatalf("start: %s", err.Error())
	}

	fs.h.OnSync()
	if fs.scanStarts != 1 {
		t.Fatalf("sync: %d scans; want 1", fs.scanStarts)
	}

	x := testDev(0x10)
	y := testDev(0x20)

	fs.h.OnEvent(discovered(x, BLE_ADV_EVENT_IND))
	fs.h.OnEvent(discovered(y, BLE_ADV_EVENT_IND))

	if len(fs.connects) != 1 || fs.connects[0] != x {
		t.Fatalf("connect attempts=%v; want exactly one to x", fs.connects)
	}
	if fs.scanning {
		t.Fatalf("scan not cancelled before connecting")
	}

	// Connect failure during the outstanding attempt.
	fs.h.OnEvent(&ConnectEvt{Status: ERR_CODE_HCI_BASE +
		ERR_CODE_HCI_CONN_ESTABLISHMENT})
	if s := c.Session(); s.State != STATE_DISCOVERING || s.PeerKnown {
		t.Fatalf("after failure: %s", s)
	}
	if fs.scanStarts != 2 {
		t.Fatalf("failure: %d scans total; want 2", fs.scanStarts)
	}
}

func TestCentralScanComplete(t *testing.T) {
	fs := &fakeStack{}
	c := NewCentral(fs, Config{})
	c.Start()
	fs.h.OnSync()

	fs.scanDone()
	fs.h.OnEvent(&DiscCompleteEvt{})
	if fs.scanStarts != 2 {
		t.Fatalf("scan not restarted after completion")
	}
}

func TestStopSurvivesLateComplete(t *testing.T) {
	fs := &fakeStack{}
	p := NewPeripheral(fs, Config{})
	p.Start()
	fs.h.OnSync()

	if err := p.StopAdvertising(); err != nil {
		t.Fatalf("stop advertising: %s", err.Error())
	}
	fs.h.OnEvent(&AdvCompleteEvt{})
	if s := p.Session(); s.State != STATE_IDLE || fs.advStarts != 1 {
		t.Fatalf("peripheral: state=%s advStarts=%d; want idle, 1",
			s.State, fs.advStarts)
	}

	fs = &fakeStack{}
	c := NewCentral(fs, Config{})
	c.Start()
	fs.h.OnSync()

	if err := c.StopScan(); err != nil {
		t.Fatalf("stop scan: %s", err.Error())
	}
	fs.h.OnEvent(&DiscCompleteEvt{})
	if s := c.Session(); s.State != STATE_IDLE || fs.scanStarts != 1 {
		t.Fatalf("central: state=%s scanStarts=%d; want idle, 1",
			s.State, fs.scanStarts)
	}
}

func TestForeignDisconnectKeepsLink(t *testing.T) {
	fs := &fakeStack{}
	p := NewPeripheral(fs, Config{})
	p.Start()
	fs.h.OnSync()
	fs.linkUp()
	fs.h.OnEvent(connectOk(7, testDev(5)))

	fs.h.OnEvent(disconnected(2, 0x213))
	fs.h.OnEvent(&ConnectEvt{Status: ERR_CODE_ETIMEOUT})
	if !p.IsConnected() || p.Session().ConnHandle != 7 {
		t.Fatalf("live link lost to a stale event: %s", p.Session())
	}
	if fs.advStarts != 1 {
		t.Fatalf("advertising restarted while connected")
	}
}

func TestDisconnectWhenIdle(t *testing.T) {
	fs := &fakeStack{}
	p := NewPeripheral(fs, Config{})
	p.Start()
	fs.h.OnSync()

	before := p.Session()
	err := p.Disconnect()
	if !skxutil.IsNotConnected(err) {
		t.Fatalf("err=%v; want not connected", err)
	}
	if p.Session() != before || len(fs.terminates) != 0 {
		t.Fatalf("disconnect mutated state")
	}
}

func TestDisconnectIsAsynchronous(t *testing.T) {
	fs := &fakeStack{}
	c := NewCentral(fs, Config{})
	c.Start()
	fs.h.OnSync()
	fs.h.OnEvent(discovered(testDev(3), BLE_ADV_EVENT_IND))
	fs.h.OnEvent(connectOk(2, testDev(3)))

	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %s", err.Error())
	}
	if len(fs.terminates) != 1 || fs.terminates[0] != 2 {
		t.Fatalf("terminates=%v", fs.terminates)
	}
	if !c.IsConnected() {
		t.Fatalf("session changed before the disconnect event")
	}
}

func TestArmWhileConnectedRejected(t *testing.T) {
	fs := &fakeStack{}
	p := NewPeripheral(fs, Config{})
	p.Start()
	fs.h.OnSync()
	fs.linkUp()
	fs.h.OnEvent(connectOk(1, testDev(9)))

	before := p.Session()
	if err := p.StartAdvertising(); !skxutil.IsAlreadyConnected(err) {
		t.Fatalf("err=%v; want already connected", err)
	}
	if p.Session() != before || fs.advStarts != 1 {
		t.Fatalf("rejected advertise altered the session")
	}

	cs := &fakeStack{}
	c := NewCentral(cs, Config{})
	c.Start()
	cs.h.OnEvent(connectOk(1, testDev(9)))
	if err := c.ConnectToDevice(testDev(8)); !skxutil.IsAlreadyConnected(err) {
		t.Fatalf("err=%v; want already connected", err)
	}
	if len(cs.connects) != 0 {
		t.Fatalf("connect issued while connected")
	}
}

func TestStopTwice(t *testing.T) {
	fs := &fakeStack{}
	p := NewPeripheral(fs, Config{})
	p.Start()
	fs.h.OnSync()

	for i := 0; i < 2; i++ {
		if err := p.StopAdvertising(); err != nil {
			t.Fatalf("stop advertising #%d: %s", i+1, err.Error())
		}
	}
	if p.Session().State != STATE_IDLE {
		t.Fatalf("stop did not leave idle")
	}

	cs := &fakeStack{}
	c := NewCentral(cs, Config{})
	c.Start()
	cs.h.OnSync()

	for i := 0; i < 2; i++ {
		if err := c.StopScan(); err != nil {
			t.Fatalf("stop scan #%d: %s", i+1, err.Error())
		}
	}
}

func TestEnsureAddrFailureStaysIdle(t *testing.T) {
	fs := &fakeStack{ensureErr: skxutil.NewBleHostError(ERR_CODE_ENOADDR,
		"no address")}
	p := NewPeripheral(fs, Config{})
	p.Start()
	fs.h.OnSync()

	if fs.advStarts != 0 {
		t.Fatalf("advertising started without an address")
	}
	if p.Session().State != STATE_IDLE {
		t.Fatalf("state=%s; want idle", p.Session().State)
	}
}

func TestRejectedAdvertiseReturnsError(t *testing.T) {
	fs := &fakeStack{}
	p := NewPeripheral(fs, Config{})
	p.Start()

	fs.startAdvErr = skxutil.NewBleHostError(ERR_CODE_EINVAL, "bad params")
	err := p.StartAdvertising()
	if !skxutil.IsBleHostStatus(err, ERR_CODE_EINVAL) {
		t.Fatalf("err=%v; want einval", err)
	}
	if p.Session().State != STATE_IDLE {
		t.Fatalf("state=%s; want idle", p.Session().State)
	}
}

func TestRejectedConnectRescans(t *testing.T) {
	fs := &fakeStack{}
	c := NewCentral(fs, Config{})
	c.Start()
	fs.h.OnSync()

	fs.connectErr = skxutil.NewBleHostError(ERR_CODE_EBUSY, "busy")
	if err := c.ConnectToDevice(testDev(4)); err == nil {
		t.Fatalf("rejected connect returned no error")
	}
	if s := c.Session(); s.State != STATE_DISCOVERING {
		t.Fatalf("state=%s; want discovering", s.State)
	}
	if fs.scanStarts != 2 || !fs.scanning {
		t.Fatalf("scan not resumed after rejected connect")
	}
}

func TestConnectTimeoutRescans(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	fs := &fakeStack{}
	c := NewCentral(fs, Config{})
	c.Start()
	fs.h.OnSync()

	fs.connectErr = skxutil.NewRspTimeoutError("no connect response")
	err := c.ConnectToDevice(testDev(4))
	if !skxutil.IsRspTimeout(err) {
		t.Fatalf("err=%v; want response timeout", err)
	}
	if fs.scanStarts != 2 || !fs.scanning {
		t.Fatalf("scan not resumed after timed out connect")
	}

	found := false
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "BLE host did not respond") {
			found = true
		}
	}
	if !found {
		t.Fatalf("timeout not reported as an unresponsive host")
	}
}

func TestListenersReceiveNotices(t *testing.T) {
	fs := &fakeStack{}
	p := NewPeripheral(fs, Config{})
	p.Start()
	ch := p.Listen()

	fs.h.OnSync()
	fs.linkUp()
	fs.h.OnEvent(connectOk(7, testDev(5)))
	fs.h.OnEvent(disconnected(7, 0x213))

	up := <-ch
	down := <-ch
	if !up.Up || up.Desc.ConnHandle != 7 {
		t.Fatalf("unexpected up notice: %s", up)
	}
	if down.Up || down.Reason != 0x213 {
		t.Fatalf("unexpected down notice: %s", down)
	}

	p.Unlisten(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed by unlisten")
	}
}
