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
	. "mynewt.apache.org/skynet/skxact/bledefs"
)

const DEVICE_NAME = "ESP-SKYNET"

// Reason sent with a locally requested termination.
const HCI_REASON_REM_USER_CONN_TERM = ERR_CODE_HCI_REM_USER_CONN_TERM

const (
	ADV_ITVL_MIN = 160 // 100 ms
	ADV_ITVL_MAX = 240 // 150 ms

	SCAN_DURATION_MS = 30000
	SCAN_ITVL        = 0x0010 // 10 ms
	SCAN_WINDOW      = 0x0010

	CONN_DURATION_MS = 10000
	CONN_SCAN_ITVL   = 0x0010
	CONN_SCAN_WINDOW = 0x0010
	CONN_ITVL_MIN    = 24 // 30 ms
	CONN_ITVL_MAX    = 40 // 50 ms
	CONN_LATENCY     = 0
	CONN_SUPERVISION = 0x0100 // 2.56 s
)

func DefaultAdvParams(name string) BleAdvParams {
	flags := uint8(BLE_ADV_F_DISC_GEN | BLE_ADV_F_BREDR_UNSUP)
	txPwr := BLE_ADV_TX_PWR_LVL_AUTO

	return BleAdvParams{
		ConnMode:     BLE_ADV_CONN_MODE_UND,
		DiscMode:     BLE_ADV_DISC_MODE_GEN,
		ItvlMin:      ADV_ITVL_MIN,
		ItvlMax:      ADV_ITVL_MAX,
		FilterPolicy: BLE_ADV_FILTER_POLICY_NONE,
		DurationMs:   BLE_HS_FOREVER,
		Fields: BleAdvFields{
			Flags:          &flags,
			Name:           &name,
			NameIsComplete: true,
			TxPwrLvl:       &txPwr,
		},
	}
}

func DefaultScanParams() BleScanParams {
	return BleScanParams{
		DurationMs:       SCAN_DURATION_MS,
		Itvl:             SCAN_ITVL,
		Window:           SCAN_WINDOW,
		FilterPolicy:     BLE_SCAN_FILT_NO_WL,
		Limited:          false,
		Passive:          false,
		FilterDuplicates: true,
	}
}

func DefaultConnParams() BleConnParams {
	return BleConnParams{
		DurationMs:         CONN_DURATION_MS,
		ScanItvl:           CONN_SCAN_ITVL,
		ScanWindow:         CONN_SCAN_WINDOW,
		ItvlMin:            CONN_ITVL_MIN,
		ItvlMax:            CONN_ITVL_MAX,
		Latency:            CONN_LATENCY,
		SupervisionTimeout: CONN_SUPERVISION,
	}
}

// Per-controller settings.  Zero values select the defaults above.
type Config struct {
	Name       string
	AdvParams  *BleAdvParams
	ScanParams *BleScanParams
	ConnParams *BleConnParams
}

func (c Config) advParams() BleAdvParams {
	if c.AdvParams != nil {
		return *c.AdvParams
	}
	name := c.Name
	if name == "" {
		name = DEVICE_NAME
	}
	return DefaultAdvParams(name)
}

func (c Config) scanParams() BleScanParams {
	if c.ScanParams != nil {
		return *c.ScanParams
	}
	return DefaultScanParams()
}

func (c Config) connParams() BleConnParams {
	if c.ConnParams != nil {
		return *c.ConnParams
	}
	return DefaultConnParams()
}
