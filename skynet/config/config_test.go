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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"

	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skynet/skutil"
)

func withHome(t *testing.T) func() {
	dir, err := ioutil.TempDir("", "skynet-home")
	if err != nil {
		t.Fatalf("TempDir: %s", err.Error())
	}

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", dir)
	homedir.DisableCache = true
	skutil.ToolInfo.CfgFilename = ".skynet.json"

	return func() {
		os.Setenv("HOME", oldHome)
		os.RemoveAll(dir)
	}
}

func TestConnProfilePersist(t *testing.T) {
	defer withHome(t)()

	cpm, err := NewConnProfileMgr()
	if err != nil {
		t.Fatalf("NewConnProfileMgr: %s", err.Error())
	}

	for _, cp := range []*ConnProfile{
		{Name: "usb", Type: CONN_TYPE_SERIAL, ConnString: "dev=/dev/ttyUSB0"},
		{Name: "hci", Type: CONN_TYPE_BLL},
	} {
		if err := cpm.AddConnProfile(cp); err != nil {
			t.Fatalf("AddConnProfile: %s", err.Error())
		}
	}

	cpm2, err := NewConnProfileMgr()
	if err != nil {
		t.Fatalf("reload: %s", err.Error())
	}

	list := cpm2.GetConnProfileList()
	if len(list) != 2 || list[0].Name != "hci" || list[1].Name != "usb" {
		t.Fatalf("unexpected profiles %v", list)
	}
	if list[1].Type != CONN_TYPE_SERIAL {
		t.Fatalf("type not persisted: %s", ConnTypeToString(list[1].Type))
	}

	if err := cpm2.DeleteConnProfile("usb"); err != nil {
		t.Fatalf("DeleteConnProfile: %s", err.Error())
	}
	if err := cpm2.DeleteConnProfile("usb"); err == nil {
		t.Fatalf("deleting a missing profile succeeded")
	}
	if _, err := cpm2.GetConnProfile("usb"); err == nil {
		t.Fatalf("deleted profile still present")
	}
}

func TestParseSerialConnString(t *testing.T) {
	sc, err := ParseSerialConnString("/dev/ttyUSB1")
	if err != nil {
		t.Fatalf("bare dev: %s", err.Error())
	}
	if sc.Xport.DevPath != "/dev/ttyUSB1" || sc.Xport.Baud != 115200 {
		t.Fatalf("unexpected cfg %+v", sc.Xport)
	}

	sc, err = ParseSerialConnString("dev=/dev/ttyACM0,baud=9600")
	if err != nil {
		t.Fatalf("kv: %s", err.Error())
	}
	if sc.Xport.DevPath != "/dev/ttyACM0" || sc.Xport.Baud != 9600 {
		t.Fatalf("unexpected cfg %+v", sc.Xport)
	}

	for _, cs := range []string{"", "dev=/x,baud=fast", "dev=/x,parity=odd"} {
		if _, err := ParseSerialConnString(cs); err == nil {
			t.Errorf("%q accepted", cs)
		}
	}
}

func TestParseBhdConnString(t *testing.T) {
	bc, err := ParseBhdConnString("bhd_path=/opt/blehostd,ctlr_path=/dev/ttyUSB0," +
		"own_addr_type=public,sync_timeout=2.5")
	if err != nil {
		t.Fatalf("ParseBhdConnString: %s", err.Error())
	}

	if bc.Xport.BlehostdPath != "/opt/blehostd" ||
		bc.Xport.DevPath != "/dev/ttyUSB0" ||
		bc.OwnAddrType != BLE_ADDR_TYPE_PUBLIC ||
		bc.Xport.SyncTimeout != 2500*time.Millisecond {

		t.Fatalf("unexpected cfg %+v", bc)
	}

	if _, err := ParseBhdConnString("bhd_path"); err == nil {
		t.Fatalf("bare token accepted")
	}
}

func TestParseBllConnString(t *testing.T) {
	bc, err := ParseBllConnString("ctlr_name=hci1")
	if err != nil {
		t.Fatalf("ParseBllConnString: %s", err.Error())
	}
	if bc.CtlrName != "hci1" {
		t.Fatalf("ctlr_name %s", bc.CtlrName)
	}

	if _, err := ParseBllConnString("own_addr_type=bogus"); err == nil {
		t.Fatalf("bad own_addr_type accepted")
	}
}

func TestResolveConnProfileOverrides(t *testing.T) {
	skutil.ConnType = "serial"
	skutil.ConnString = "/dev/ttyS0"
	defer func() {
		skutil.ConnType = ""
		skutil.ConnString = ""
	}()

	cp, err := ResolveConnProfile()
	if err != nil {
		t.Fatalf("ResolveConnProfile: %s", err.Error())
	}
	if cp.Type != CONN_TYPE_SERIAL || cp.ConnString != "/dev/ttyS0" {
		t.Fatalf("unexpected profile %s", cp.String())
	}

	if _, err := BuildStack(cp); err != nil {
		t.Fatalf("BuildStack: %s", err.Error())
	}
}

func TestDeviceConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "skynet-cfg")
	if err != nil {
		t.Fatalf("TempDir: %s", err.Error())
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "device.yml")
	yml := `
role: central
net:
  iface: wlan0
  max_retry: 3
led:
  driver: mem
http_addr: 127.0.0.1:8080
`
	if err := ioutil.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}

	dc, err := LoadDeviceConfig(path)
	if err != nil {
		t.Fatalf("LoadDeviceConfig: %s", err.Error())
	}

	role, _ := dc.BleRole()
	if role != link.ROLE_CENTRAL {
		t.Fatalf("role %s", link.RoleToString(role))
	}
	if dc.Net.Iface != "wlan0" || dc.Net.MaxRetry != 3 {
		t.Fatalf("net %+v", dc.Net)
	}
	if dc.Led.Driver != "mem" || dc.Led.Pin != 32 {
		t.Fatalf("led %+v", dc.Led)
	}
	if dc.CoapAddr != ":5683" || dc.Name != link.DEVICE_NAME {
		t.Fatalf("defaults lost: %+v", dc)
	}
	if dc.RetryInterval() != time.Second {
		t.Fatalf("retry interval %s", dc.RetryInterval())
	}

	if err := ioutil.WriteFile(path, []byte("role: observer\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}
	if _, err := LoadDeviceConfig(path); err == nil {
		t.Fatalf("invalid role accepted")
	}

	dc, err = LoadDeviceConfig(filepath.Join(dir, "missing.yml"))
	if err != nil || dc.Role != "peripheral" {
		t.Fatalf("missing file: %+v %v", dc, err)
	}
}

func TestConnProfileValidate(t *testing.T) {
	dir, err := ioutil.TempDir("", "skynet-cp")
	if err != nil {
		t.Fatalf("TempDir: %s", err.Error())
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "profiles.json")
	cpm, err := OpenConnProfileMgr(path)
	if err != nil {
		t.Fatalf("OpenConnProfileMgr: %s", err.Error())
	}

	bad := []*ConnProfile{
		{Name: "", Type: CONN_TYPE_BHD},
		{Name: "a,b", Type: CONN_TYPE_BHD},
		{Name: "notype"},
	}
	for _, cp := range bad {
		if err := cpm.AddConnProfile(cp); err == nil {
			t.Errorf("accepted profile %s", cp.String())
		}
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("rejected profiles were written to disk")
	}

	// A stale type loads as none instead of failing the whole file.
	blob := `[{"name":"old","type":"mtech_lora","connstring":""}]`
	if err := ioutil.WriteFile(path, []byte(blob), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}
	cpm, err = OpenConnProfileMgr(path)
	if err != nil {
		t.Fatalf("reload: %s", err.Error())
	}
	cp, err := cpm.GetConnProfile("old")
	if err != nil {
		t.Fatalf("GetConnProfile: %s", err.Error())
	}
	if cp.Type != CONN_TYPE_NONE {
		t.Fatalf("expected none, got %s", ConnTypeToString(cp.Type))
	}
}
