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
	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/skynet/skxact/bhd"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skxact/skserial"
	"mynewt.apache.org/skynet/skynet/bll"
	"mynewt.apache.org/skynet/skynet/skutil"
)

// ResolveConnProfile applies the command line overrides to the named
// profile, or builds an ad hoc profile from them alone.
func ResolveConnProfile() (*ConnProfile, error) {
	cp := &ConnProfile{}

	if skutil.ConnProfile != "" {
		p, err := GlobalConnProfileMgr().GetConnProfile(skutil.ConnProfile)
		if err != nil {
			return nil, err
		}
		*cp = *p
	}

	if skutil.ConnType != "" {
		ct, err := ConnTypeFromString(skutil.ConnType)
		if err != nil {
			return nil, err
		}
		cp.Type = ct
	}
	if skutil.ConnString != "" {
		cp.ConnString = skutil.ConnString
	}

	if cp.Type == CONN_TYPE_NONE {
		return nil, util.NewNewtError("no connection profile or type " +
			"specified; use -c or --conntype")
	}

	return cp, nil
}

// BuildStack creates an unstarted BLE host for the profile.
func BuildStack(cp *ConnProfile) (link.Stack, error) {
	switch cp.Type {
	case CONN_TYPE_BHD:
		bc, err := ParseBhdConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}
		bx := bhd.NewChildXport(bc.Xport)
		return bhd.NewBhdStack(bx, bc.OwnAddrType), nil

	case CONN_TYPE_SERIAL:
		sc, err := ParseSerialConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}
		sl := skserial.NewSerialLink(sc.Xport)
		bx := bhd.NewBhdXport(sl, sc.Bhd)
		return bhd.NewBhdStack(bx, sc.OwnAddrType), nil

	case CONN_TYPE_BLL:
		bc, err := ParseBllConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}
		return bll.NewBllStack(*bc), nil

	default:
		return nil, util.FmtNewtError("unsupported connection type: %s",
			ConnTypeToString(cp.Type))
	}
}
