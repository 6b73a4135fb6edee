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

package cli

import (
	"testing"

	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skynet/config"
)

func advReport(addr string, rssi int8, name *string) BleAdvReport {
	ba, err := ParseBleAddr(addr)
	if err != nil {
		panic(err)
	}

	return BleAdvReport{
		EventType: BLE_ADV_EVENT_IND,
		Sender:    BleDev{AddrType: BLE_ADDR_TYPE_PUBLIC, Addr: ba},
		Rssi:      rssi,
		Fields:    BleAdvFields{Name: name, NameIsComplete: name != nil},
	}
}

func TestScannerDedup(t *testing.T) {
	s := newScanner()

	name := "ESP-SKYNET"
	s.OnEvent(&link.DiscEvt{Report: advReport("11:22:33:44:55:66", -40, &name)})
	s.OnEvent(&link.DiscEvt{Report: advReport("aa:bb:cc:dd:ee:ff", -70, nil)})
	s.OnEvent(&link.DiscEvt{Report: advReport("11:22:33:44:55:66", -35, nil)})

	rs := s.results()
	if len(rs) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(rs))
	}

	if rs[0].Rssi != -35 {
		t.Fatalf("expected freshest RSSI -35, got %d", rs[0].Rssi)
	}
	if rs[0].Fields.Name == nil || *rs[0].Fields.Name != name {
		t.Fatalf("name lost on a nameless repeat advertisement")
	}
	if rs[1].Fields.Name != nil {
		t.Fatalf("unexpected name on second device")
	}
}

func TestScannerDone(t *testing.T) {
	s := newScanner()

	s.OnEvent(&link.DiscCompleteEvt{Reason: 0})
	// A second completion must not panic on a closed channel.
	s.OnReset(0)

	select {
	case <-s.doneCh:
	default:
		t.Fatalf("scan completion not signalled")
	}
}

func TestParsePeer(t *testing.T) {
	dev, err := parsePeer("0a:0b:0c:0d:0e:0f", "random")
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if dev.AddrType != BLE_ADDR_TYPE_RANDOM {
		t.Fatalf("wrong addr type: %d", dev.AddrType)
	}
	if dev.Addr.Bytes[0] != 0x0a || dev.Addr.Bytes[5] != 0x0f {
		t.Fatalf("wrong addr: %s", dev.Addr.String())
	}

	if _, err := parsePeer("0a:0b", "public"); err == nil {
		t.Fatalf("short address accepted")
	}
	if _, err := parsePeer("0a:0b:0c:0d:0e:0f", "bogus"); err == nil {
		t.Fatalf("bad addr type accepted")
	}
}

func TestCleanupOrder(t *testing.T) {
	var order []int
	AddCleanup(func() { order = append(order, 1) })
	AddCleanup(func() { order = append(order, 2) })

	RunCleanup()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("cleanups ran in wrong order: %v", order)
	}

	RunCleanup()
	if len(order) != 2 {
		t.Fatalf("cleanups ran twice")
	}
}

func TestParseProfileArgs(t *testing.T) {
	cp, err := parseProfileArgs("usb",
		[]string{"type=serial", "connstring=dev=/dev/ttyUSB0,baud=9600"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if cp.Type != config.CONN_TYPE_SERIAL {
		t.Fatalf("wrong type: %s", config.ConnTypeToString(cp.Type))
	}
	if cp.ConnString != "dev=/dev/ttyUSB0,baud=9600" {
		t.Fatalf("wrong connstring: %s", cp.ConnString)
	}

	bad := [][]string{
		{"connstring=dev=/dev/ttyUSB0"},
		{"type=carrier-pigeon"},
		{"type=serial", "speed=fast"},
		{"type=serial", "connstring=baud=9600"},
		{"type"},
	}
	for _, args := range bad {
		if _, err := parseProfileArgs("usb", args); err == nil {
			t.Errorf("accepted %v", args)
		}
	}
}
