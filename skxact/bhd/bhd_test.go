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

package bhd

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skxact/skxutil"
)

const peerAddrStr = "11:22:33:44:55:66"

// Plays the part of blehostd: answers every request and lets the test
// inject events.
type fakeLink struct {
	mtx    sync.Mutex
	reqs   []map[string]interface{}
	rxCh   chan []byte
	stopCh chan struct{}

	// Per request type status overrides.
	statuses map[string]int
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		rxCh:     make(chan []byte, 64),
		stopCh:   make(chan struct{}),
		statuses: map[string]int{},
	}
}

func (fl *fakeLink) Start() error { return nil }

func (fl *fakeLink) Stop() error {
	fl.mtx.Lock()
	defer fl.mtx.Unlock()

	select {
	case <-fl.stopCh:
	default:
		close(fl.stopCh)
	}
	return nil
}

func (fl *fakeLink) Tx(data []byte) error {
	req := map[string]interface{}{}
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	fl.mtx.Lock()
	fl.reqs = append(fl.reqs, req)
	status := fl.statuses[req["type"].(string)]
	fl.mtx.Unlock()

	rsp := map[string]interface{}{
		"op":     "response",
		"type":   req["type"],
		"seq":    req["seq"],
		"status": status,
	}

	switch req["type"] {
	case "sync":
		delete(rsp, "status")
		rsp["synced"] = true

	case "gen_rand_addr":
		rsp["addr"] = "c0:00:00:00:00:01"

	case "conn_find":
		rsp["conn_handle"] = req["conn_handle"]
		rsp["peer_id_addr_type"] = "public"
		rsp["peer_id_addr"] = peerAddrStr
		rsp["role"] = "master"
		rsp["conn_itvl"] = 24
		rsp["conn_latency"] = 0
		rsp["supervision_timeout"] = 256
	}

	j, err := json.Marshal(rsp)
	if err != nil {
		return err
	}
	fl.rxCh <- j
	return nil
}

func (fl *fakeLink) Rx() ([]byte, error) {
	select {
	case buf := <-fl.rxCh:
		return buf, nil
	case <-fl.stopCh:
		return nil, skxutil.NewXportError("fake link stopped")
	}
}

func (fl *fakeLink) inject(evt string) {
	fl.rxCh <- []byte(evt)
}

func (fl *fakeLink) reqTypes() []string {
	fl.mtx.Lock()
	defer fl.mtx.Unlock()

	types := make([]string, len(fl.reqs))
	for i, r := range fl.reqs {
		types[i] = r["type"].(string)
	}
	return types
}

func (fl *fakeLink) count(msgType string) int {
	n := 0
	for _, t := range fl.reqTypes() {
		if t == msgType {
			n++
		}
	}
	return n
}

func testCfg() XportCfg {
	cfg := NewXportCfg()
	cfg.SyncTimeout = time.Second
	cfg.RspTimeout = time.Second
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDecodeScanEvt(t *testing.T) {
	data := []byte(`{"op":"event","type":"scan_evt","event_type":"ind",` +
		`"addr_type":"random","addr":"aa:bb:cc:dd:ee:ff","rssi":-61,` +
		`"data":"0x02:0x01:0x06","data_name":"ESP-SKYNET",` +
		`"data_name_is_complete":true}`)

	base, msg, err := DecodeBleMsg(data)
	if err != nil {
		t.Fatalf("decode: %s", err.Error())
	}
	if base.Seq != BLE_SEQ_NONE || base.ConnHandle != -1 {
		t.Fatalf("unexpected base: %+v", base)
	}

	evt, ok := msg.(*BleScanEvt)
	if !ok {
		t.Fatalf("decoded %T; want *BleScanEvt", msg)
	}

	r := BleAdvReportFromScanEvt(evt)
	if !r.EventType.Connectable() || r.Rssi != -61 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if FmtAddr(r.Sender.Addr) != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("addr=%s", FmtAddr(r.Sender.Addr))
	}
	if r.Fields.Name == nil || *r.Fields.Name != "ESP-SKYNET" {
		t.Fatalf("name not decoded")
	}
	if len(r.Fields.Data) != 3 || r.Fields.Data[2] != 0x06 {
		t.Fatalf("data=%v", r.Fields.Data)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, _, err := DecodeBleMsg(
		[]byte(`{"op":"event","type":"bogus_evt"}`)); err == nil {

		t.Fatalf("unknown message type accepted")
	}
}

func TestRequestEncoding(t *testing.T) {
	r := NewBleConnectReq(BLE_ADDR_TYPE_PUBLIC,
		BleDev{
			AddrType: BLE_ADDR_TYPE_RANDOM,
			Addr:     BleAddr{Bytes: [6]byte{1, 2, 3, 4, 5, 6}},
		},
		link.DefaultConnParams())

	j, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %s", err.Error())
	}

	m := map[string]interface{}{}
	if err := json.Unmarshal(j, &m); err != nil {
		t.Fatalf("unmarshal: %s", err.Error())
	}

	want := map[string]interface{}{
		"op":                  "request",
		"type":                "connect",
		"peer_addr_type":      "random",
		"peer_addr":           "01:02:03:04:05:06",
		"duration_ms":         float64(10000),
		"itvl_min":            float64(24),
		"itvl_max":            float64(40),
		"supervision_timeout": float64(256),
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s=%v; want %v", k, m[k], v)
		}
	}
}

func TestDispatcherRouting(t *testing.T) {
	d := NewDispatcher()

	seql := NewListener()
	if err := d.AddListener(SeqKey(7), seql); err != nil {
		t.Fatalf("add seq listener: %s", err.Error())
	}
	if err := d.AddListener(SeqKey(7), NewListener()); err == nil {
		t.Fatalf("duplicate seq listener accepted")
	}

	evtl := NewListener()
	if err := d.AddListener(EvtKey(MSG_TYPE_DISCONNECT_EVT), evtl); err != nil {
		t.Fatalf("add evt listener: %s", err.Error())
	}

	d.Dispatch([]byte(`{"op":"response","type":"scan","seq":7,"status":0}`))
	d.Dispatch([]byte(`{"op":"event","type":"disconnect_evt",` +
		`"conn_handle":3,"reason":531}`))

	if rsp, ok := (<-seql.MsgChan).(*BleStatusRsp); !ok || rsp.Seq != 7 {
		t.Fatalf("response not routed by seq")
	}
	evt, ok := (<-evtl.MsgChan).(*BleDisconnectEvt)
	if !ok || evt.ConnHandle != 3 || evt.Reason != 0x213 {
		t.Fatalf("disconnect event not routed")
	}

	d.ErrorAll(skxutil.NewXportError("gone"))
	if err := <-seql.ErrChan; !skxutil.IsXport(err) {
		t.Fatalf("err=%v; want xport error", err)
	}
}

func TestErrorStatus(t *testing.T) {
	fl := newFakeLink()
	fl.statuses["adv_stop"] = ERR_CODE_EALREADY

	bx := NewBhdXport(fl, testCfg())
	bs := NewBhdStack(bx, BLE_ADDR_TYPE_PUBLIC)
	if err := bs.Start(); err != nil {
		t.Fatalf("start: %s", err.Error())
	}
	defer bs.Stop()

	err := bs.StopAdvertising()
	if !skxutil.IsBleHostStatus(err, ERR_CODE_EALREADY) {
		t.Fatalf("err=%v; want ealready", err)
	}
}

func TestRandomAddr(t *testing.T) {
	fl := newFakeLink()
	bs := NewBhdStack(NewBhdXport(fl, testCfg()), BLE_ADDR_TYPE_RANDOM)
	if err := bs.Start(); err != nil {
		t.Fatalf("start: %s", err.Error())
	}
	defer bs.Stop()

	dev, err := bs.EnsureAddr()
	if err != nil {
		t.Fatalf("ensure addr: %s", err.Error())
	}
	if dev.AddrType != BLE_ADDR_TYPE_RANDOM || dev.Addr.Bytes[0] != 0xc0 {
		t.Fatalf("unexpected own addr: %s", dev.String())
	}
	if fl.count("set_rand_addr") != 1 {
		t.Fatalf("random address not configured")
	}
}

func TestCentralOverBhd(t *testing.T) {
	fl := newFakeLink()
	bs := NewBhdStack(NewBhdXport(fl, testCfg()), BLE_ADDR_TYPE_PUBLIC)
	c := link.NewCentral(bs, link.Config{})
	if err := c.Start(); err != nil {
		t.Fatalf("start: %s", err.Error())
	}
	defer c.Stop()

	waitFor(t, "scan", func() bool { return fl.count("scan") == 1 })

	fl.inject(`{"op":"event","type":"scan_evt","event_type":"ind",` +
		`"addr_type":"public","addr":"` + peerAddrStr + `","rssi":-40,` +
		`"data":""}`)
	waitFor(t, "connect", func() bool { return fl.count("connect") == 1 })
	if fl.count("scan_cancel") != 1 {
		t.Fatalf("scan not cancelled before connect")
	}

	fl.inject(`{"op":"event","type":"connect_evt","status":0,` +
		`"conn_handle":1}`)
	waitFor(t, "link up", c.IsConnected)

	s := c.Session()
	if s.ConnHandle != 1 || FmtAddr(s.Peer.Addr) != "11:22:33:44:55:66" {
		t.Fatalf("unexpected session: %s", s)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %s", err.Error())
	}
	fl.inject(`{"op":"event","type":"disconnect_evt","conn_handle":1,` +
		`"reason":534}`)
	waitFor(t, "rescan", func() bool { return fl.count("scan") == 2 })
	if c.IsConnected() {
		t.Fatalf("still connected after disconnect event")
	}
}

func TestPeripheralOverBhd(t *testing.T) {
	fl := newFakeLink()
	bs := NewBhdStack(NewBhdXport(fl, testCfg()), BLE_ADDR_TYPE_PUBLIC)
	p := link.NewPeripheral(bs, link.Config{})
	if err := p.Start(); err != nil {
		t.Fatalf("start: %s", err.Error())
	}
	defer p.Stop()

	waitFor(t, "advertise", func() bool { return fl.count("adv_start") == 1 })
	if fl.count("adv_fields") != 1 {
		t.Fatalf("advertising fields not set")
	}

	fl.inject(`{"op":"event","type":"adv_complete_evt","reason":0}`)
	waitFor(t, "re-advertise", func() bool {
		return fl.count("adv_start") == 2
	})
}

func TestStopCancelsPendingConnect(t *testing.T) {
	fl := newFakeLink()
	bs := NewBhdStack(NewBhdXport(fl, testCfg()), BLE_ADDR_TYPE_PUBLIC)
	c := link.NewCentral(bs, link.Config{})
	if err := c.Start(); err != nil {
		t.Fatalf("start: %s", err.Error())
	}

	waitFor(t, "scan", func() bool { return fl.count("scan") == 1 })
	fl.inject(`{"op":"event","type":"scan_evt","event_type":"ind",` +
		`"addr_type":"public","addr":"` + peerAddrStr + `","rssi":-40,` +
		`"data":""}`)
	waitFor(t, "connect", func() bool { return fl.count("connect") == 1 })
	waitFor(t, "pending connect", bs.isConnPending)

	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %s", err.Error())
	}
	if fl.count("conn_cancel") != 1 {
		t.Fatalf("outstanding connect not cancelled on stop: %v",
			fl.reqTypes())
	}
}

func TestStopWithoutPendingConnect(t *testing.T) {
	fl := newFakeLink()
	bs := NewBhdStack(NewBhdXport(fl, testCfg()), BLE_ADDR_TYPE_PUBLIC)
	c := link.NewCentral(bs, link.Config{})
	if err := c.Start(); err != nil {
		t.Fatalf("start: %s", err.Error())
	}

	waitFor(t, "scan", func() bool { return fl.count("scan") == 1 })
	fl.inject(`{"op":"event","type":"scan_evt","event_type":"ind",` +
		`"addr_type":"public","addr":"` + peerAddrStr + `","rssi":-40,` +
		`"data":""}`)
	waitFor(t, "connect", func() bool { return fl.count("connect") == 1 })
	fl.inject(`{"op":"event","type":"connect_evt","status":0,` +
		`"conn_handle":1}`)
	waitFor(t, "link up", c.IsConnected)

	c.Stop()
	if fl.count("conn_cancel") != 0 {
		t.Fatalf("conn_cancel sent with no attempt outstanding")
	}
}
