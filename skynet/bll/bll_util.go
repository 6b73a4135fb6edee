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
	. "mynewt.apache.org/skynet/skxact/bledefs"
)

// go-ble reports an unknown transmit power as this value.
const txPwrUnknown = 127

func advReport(a advert) BleAdvReport {
	r := BleAdvReport{
		EventType: BLE_ADV_EVENT_NONCONN_IND,
		Rssi:      int8(a.RSSI()),
	}

	if a.Connectable() {
		r.EventType = BLE_ADV_EVENT_IND
	}

	// go-ble hides the address type; identity addresses are assumed.
	r.Sender.AddrType = BLE_ADDR_TYPE_PUBLIC
	if a.Addr() != nil {
		if addr, err := ParseBleAddr(a.Addr().String()); err == nil {
			r.Sender.Addr = addr
		}
	}

	if name := a.LocalName(); name != "" {
		r.Fields.Name = &name
		r.Fields.NameIsComplete = true
	}

	if pwr := a.TxPowerLevel(); pwr != txPwrUnknown {
		p := int8(pwr)
		r.Fields.TxPwrLvl = &p
	}

	r.Fields.MfgData = a.ManufacturerData()

	return r
}
