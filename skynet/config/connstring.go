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
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/skynet/skxact/bhd"
	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/skserial"
	"mynewt.apache.org/skynet/skynet/bll"
	"mynewt.apache.org/skynet/skynet/skutil"
)

func einvalConnString(kind string, f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return util.FmtNewtError("Invalid %s connstring; %s", kind, suffix)
}

type kv struct {
	k string
	v string
}

// Splits a connstring into its key=value pairs, in order.  A bare token is
// reported under defKey if one is given.
func parseKvs(kind string, cs string, defKey string) ([]kv, error) {
	var kvs []kv

	if strings.TrimSpace(cs) == "" {
		return nil, nil
	}

	for _, p := range strings.Split(cs, ",") {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 {
			if defKey == "" {
				return nil, einvalConnString(kind, "expected comma-separated "+
					"key=value pairs; no '=' in: %s", p)
			}
			parts = []string{defKey, parts[0]}
		}

		kvs = append(kvs, kv{
			k: strings.TrimSpace(parts[0]),
			v: strings.TrimSpace(parts[1]),
		})
	}

	return kvs, nil
}

func secs(v string) (time.Duration, error) {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

type BhdConfig struct {
	Xport       bhd.XportCfg
	OwnAddrType BleAddrType
}

func ParseBhdConnString(cs string) (*BhdConfig, error) {
	bc := &BhdConfig{
		Xport:       bhd.NewXportCfg(),
		OwnAddrType: BLE_ADDR_TYPE_RANDOM,
	}
	if skutil.Timeout > 0 {
		bc.Xport.RspTimeout = skutil.TimeoutDuration()
	}

	kvs, err := parseKvs("bhd", cs, "")
	if err != nil {
		return nil, err
	}

	for _, p := range kvs {
		var err error

		switch p.k {
		case "bhd_path":
			bc.Xport.BlehostdPath = p.v
		case "ctlr_path":
			bc.Xport.DevPath = p.v
		case "sock_path":
			bc.Xport.SockPath = p.v
		case "own_addr_type":
			bc.OwnAddrType, err = BleAddrTypeFromString(p.v)
			if err != nil {
				return nil, einvalConnString("bhd",
					"Invalid own_addr_type: %s", p.v)
			}
		case "sync_timeout":
			bc.Xport.SyncTimeout, err = secs(p.v)
			if err != nil {
				return nil, einvalConnString("bhd",
					"Invalid sync_timeout: %s", p.v)
			}
		case "rsp_timeout":
			bc.Xport.RspTimeout, err = secs(p.v)
			if err != nil {
				return nil, einvalConnString("bhd",
					"Invalid rsp_timeout: %s", p.v)
			}
		default:
			return nil, einvalConnString("bhd", "Unrecognized key: %s", p.k)
		}
	}

	return bc, nil
}

type SerialConfig struct {
	Xport       skserial.XportCfg
	Bhd         bhd.XportCfg
	OwnAddrType BleAddrType
}

func ParseSerialConnString(cs string) (*SerialConfig, error) {
	sc := &SerialConfig{
		Xport:       skserial.NewXportCfg(),
		Bhd:         bhd.NewXportCfg(),
		OwnAddrType: BLE_ADDR_TYPE_PUBLIC,
	}
	if skutil.Timeout > 0 {
		sc.Xport.ReadTimeout = skutil.TimeoutDuration()
		sc.Bhd.RspTimeout = skutil.TimeoutDuration()
	}

	// Old-style conn string: a single token naming the device file.
	kvs, err := parseKvs("serial", cs, "dev")
	if err != nil {
		return nil, err
	}

	for _, p := range kvs {
		var err error

		switch p.k {
		case "dev":
			sc.Xport.DevPath = p.v
		case "baud":
			sc.Xport.Baud, err = cast.ToIntE(p.v)
			if err != nil || sc.Xport.Baud <= 0 {
				return nil, einvalConnString("serial", "Invalid baud: %s", p.v)
			}
		case "own_addr_type":
			sc.OwnAddrType, err = BleAddrTypeFromString(p.v)
			if err != nil {
				return nil, einvalConnString("serial",
					"Invalid own_addr_type: %s", p.v)
			}
		default:
			return nil, einvalConnString("serial", "Unrecognized key: %s", p.k)
		}
	}

	if sc.Xport.DevPath == "" {
		return nil, einvalConnString("serial", "missing dev")
	}

	return sc, nil
}

func ParseBllConnString(cs string) (*bll.XportCfg, error) {
	bc := bll.NewXportCfg()
	if skutil.HciIdx > 0 {
		bc.CtlrName = fmt.Sprintf("hci%d", skutil.HciIdx)
	}

	kvs, err := parseKvs("BLE", cs, "")
	if err != nil {
		return nil, err
	}

	for _, p := range kvs {
		var err error

		switch p.k {
		case "ctlr_name":
			bc.CtlrName = p.v
		case "own_addr_type":
			bc.OwnAddrType, err = BleAddrTypeFromString(p.v)
			if err != nil {
				return nil, einvalConnString("BLE",
					"Invalid own_addr_type: %s", p.v)
			}
		default:
			return nil, einvalConnString("BLE", "Unrecognized key: %s", p.k)
		}
	}

	return &bc, nil
}
