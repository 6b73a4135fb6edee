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
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/skynet/skxact/kvstore"
	"mynewt.apache.org/skynet/skxact/led"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skxact/oic"
	"mynewt.apache.org/skynet/skxact/station"
	"mynewt.apache.org/skynet/skxact/strmgr"
	"mynewt.apache.org/skynet/skxact/websrv"
	"mynewt.apache.org/skynet/skynet/config"
	"mynewt.apache.org/skynet/skynet/skutil"
)

// Everything `skynet device` runs.
type device struct {
	cfg  *config.DeviceConfig
	role link.Role

	store *kvstore.Store
	led   *led.Led
	strs  *strmgr.StrMgr
	web   *websrv.Server
	coap  *oic.Server
	sta   *station.Station

	mtx sync.Mutex
	ble roleCtlr

	stopCh chan struct{}
}

func openStore(path string) *kvstore.Store {
	store, err := kvstore.Open(path)
	if err != nil {
		log.Warnf("Failed to open store at %s (%s); using a volatile store",
			path, err.Error())
		return kvstore.NewMem()
	}

	return store
}

func newLed(dc *config.DeviceConfig) *led.Led {
	if dc.Led.Driver == "sysfs" {
		l, err := led.New(led.NewSysfsDriver(dc.Led.GpioRoot, dc.Led.Pin))
		if err == nil {
			return l
		}
		log.Warnf("GPIO %d unavailable (%s); LED state kept in memory",
			dc.Led.Pin, err.Error())
	}

	// The in-memory driver never fails.
	l, _ := led.New(&led.MemDriver{})
	return l
}

func (d *device) bleSession() link.LinkSession {
	d.mtx.Lock()
	ble := d.ble
	d.mtx.Unlock()

	if ble == nil {
		return link.NewLinkSession(d.role)
	}
	return ble.Session()
}

func newDevice(dc *config.DeviceConfig) (*device, error) {
	role, err := dc.BleRole()
	if err != nil {
		return nil, err
	}

	d := &device{
		cfg:    dc,
		role:   role,
		stopCh: make(chan struct{}),
	}

	d.store = openStore(dc.StorePath)
	d.led = newLed(dc)
	d.strs = strmgr.Init(d.store)

	d.web = websrv.New(dc.HttpAddr, d.led, d.strs)

	devId, err := oic.DeviceId(d.store)
	if err != nil {
		log.Warnf("Failed to persist device id: %s", err.Error())
	}

	d.coap = oic.NewServer(dc.CoapAddr)
	for _, r := range []oic.Resource{
		oic.NewLedResource(d.led),
		oic.NewStringResource(d.strs),
		oic.NewBleResource(d.bleSession),
		oic.NewDeviceResource(dc.Name, devId),
	} {
		if err := d.coap.AddResource(r); err != nil {
			return nil, err
		}
	}

	scfg := station.NewConfig()
	scfg.Iface = dc.Net.Iface
	scfg.MaxRetry = dc.Net.MaxRetry
	scfg.RetryInterval = dc.RetryInterval()
	d.sta = station.New(scfg)

	d.sta.OnReady(func(ip net.IP) { d.led.Set(true) })
	d.sta.OnReady(func(ip net.IP) {
		if err := d.web.Start(); err != nil {
			log.Errorf("Failed to start HTTP server: %s", err.Error())
		}
		if err := d.coap.Start(); err != nil {
			log.Errorf("Failed to start CoAP server: %s", err.Error())
		}
	})

	return d, nil
}

func (d *device) startBle() {
	stack, err := buildStack()
	if err != nil {
		log.Errorf("BLE unavailable: %s", err.Error())
		return
	}

	ble := newRoleCtlr(d.role, stack, link.Config{Name: d.cfg.Name})
	if err := ble.Start(); err != nil {
		log.Errorf("Failed to start BLE %s: %s",
			link.RoleToString(d.role), err.Error())
		return
	}

	d.mtx.Lock()
	d.ble = ble
	d.mtx.Unlock()

	go printNotices(ble.Listen())
}

func (d *device) start() {
	go func() {
		o := d.sta.Run(d.stopCh)
		if !o.Connected {
			log.Warnf("No network; HTTP and CoAP servers not started")
		}
	}()

	d.startBle()
}

func (d *device) stop() {
	close(d.stopCh)

	d.mtx.Lock()
	ble := d.ble
	d.ble = nil
	d.mtx.Unlock()

	if ble != nil {
		ble.Stop()
	}

	d.coap.Stop()
	d.web.Stop()

	if err := d.store.Commit(); err != nil {
		log.Warnf("Failed to commit store: %s", err.Error())
	}
}

func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Run the full device: network, LED, string store, servers, BLE",
		Example: "  " + skutil.ToolInfo.ExeName +
			" -c bhd0 device --device-config skynet.yml",
		Run: func(cmd *cobra.Command, args []string) {
			dc, err := config.LoadDeviceConfig(skutil.DeviceCfgPath)
			if err != nil {
				skUsage(nil, err)
			}

			d, err := newDevice(dc)
			if err != nil {
				skUsage(nil, err)
			}

			d.start()
			AddCleanup(d.stop)

			waitInterrupt()
		},
	}

	cmd.Flags().StringVar(&skutil.DeviceCfgPath, "device-config",
		"skynet.yml", "YAML device description")

	return cmd
}
