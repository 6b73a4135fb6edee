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

package bll

import (
	"context"

	"github.com/JuulLabs-OSS/ble"
	"github.com/JuulLabs-OSS/ble/examples/lib/dev"
	"github.com/JuulLabs-OSS/ble/linux/hci/cmd"

	"mynewt.apache.org/newt/util"

	. "mynewt.apache.org/skynet/skxact/bledefs"
)

type XportCfg struct {
	CtlrName    string
	OwnAddrType BleAddrType
}

func NewXportCfg() XportCfg {
	return XportCfg{
		CtlrName:    "default",
		OwnAddrType: BLE_ADDR_TYPE_PUBLIC,
	}
}

// The subset of a go-ble advertisement the stack reads.
type advert interface {
	LocalName() string
	ManufacturerData() []byte
	TxPowerLevel() int
	Connectable() bool
	RSSI() int
	Addr() ble.Addr
}

type client interface {
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// radio is the HCI device as the stack uses it.
type radio interface {
	Open(p BleConnParams, own BleAddrType) error
	Close() error
	Addr() string
	Scan(ctx context.Context, allowDup bool, h func(a advert)) error
	Dial(ctx context.Context, addr string) (client, error)
}

// hciRadio drives the default go-ble device.
type hciRadio struct {
	ctlrName string
	d        ble.Device
}

func connParamsOpt(p BleConnParams, own BleAddrType) ble.Option {
	return ble.OptConnParams(cmd.LECreateConnection{
		LEScanInterval:        p.ScanItvl,
		LEScanWindow:          p.ScanWindow,
		InitiatorFilterPolicy: 0x00, // White list is not used
		OwnAddressType:        uint8(own),
		ConnIntervalMin:       p.ItvlMin,
		ConnIntervalMax:       p.ItvlMax,
		ConnLatency:           p.Latency,
		SupervisionTimeout:    p.SupervisionTimeout,
		MinimumCELength:       p.MinCeLen,
		MaximumCELength:       p.MaxCeLen,

		// Specified at connect time.
		PeerAddressType: 0x00,
		PeerAddress:     [6]byte{},
	})
}

func (r *hciRadio) Open(p BleConnParams, own BleAddrType) error {
	d, err := dev.NewDevice(r.ctlrName, connParamsOpt(p, own))
	if err != nil {
		return util.FmtNewtError("failed to open HCI device %s: %s",
			r.ctlrName, err.Error())
	}

	r.d = d
	ble.SetDefaultDevice(d)

	return nil
}

func (r *hciRadio) Close() error {
	if r.d == nil {
		return nil
	}

	r.d = nil
	return ble.Stop()
}

func (r *hciRadio) Addr() string {
	if r.d == nil {
		return ""
	}
	return r.d.Address().String()
}

func (r *hciRadio) Scan(ctx context.Context, allowDup bool,
	h func(a advert)) error {

	return ble.Scan(ctx, allowDup, func(a ble.Advertisement) { h(a) }, nil)
}

func (r *hciRadio) Dial(ctx context.Context, addr string) (client, error) {
	return ble.Dial(ctx, ble.NewAddr(addr))
}
