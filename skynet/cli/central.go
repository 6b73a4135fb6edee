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
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skynet/skutil"
)

func parsePeer(addr string, addrType string) (BleDev, error) {
	dev := BleDev{}

	var err error
	dev.Addr, err = ParseBleAddr(addr)
	if err != nil {
		return dev, util.ChildNewtError(err)
	}

	dev.AddrType, err = BleAddrTypeFromString(addrType)
	if err != nil {
		return dev, util.ChildNewtError(err)
	}

	return dev, nil
}

func centralCmd() *cobra.Command {
	peerAddr := ""
	peerType := ""

	cmd := &cobra.Command{
		Use:   "central",
		Short: "Scan for and connect to the first connectable BLE device",
		Long: "Scan for and connect to the first connectable BLE device.  " +
			"With --peer,\nconnect to that device instead of the first " +
			"one heard.",
		Run: func(cmd *cobra.Command, args []string) {
			var peer BleDev
			if peerAddr != "" {
				var err error
				peer, err = parsePeer(peerAddr, peerType)
				if err != nil {
					skUsage(cmd, err)
				}
			}

			rc, err := startRoleCtlr(link.ROLE_CENTRAL, link.Config{})
			if err != nil {
				skUsage(nil, err)
			}

			go printNotices(rc.Listen())

			if peerAddr != "" {
				if !waitArmed(rc, skutil.TimeoutDuration()) {
					skUsage(nil, util.NewNewtError("BLE host never synced"))
				}
				if err := rc.(*link.Central).ConnectToDevice(peer); err != nil {
					skUsage(nil, util.ChildNewtError(err))
				}
			}

			waitInterrupt()
		},
	}

	cmd.Flags().StringVar(&peerAddr, "peer", "",
		"address of the device to connect to")
	cmd.Flags().StringVar(&peerType, "peer-type", "public",
		"address type of --peer (public, random, rpa_pub, rpa_rnd)")

	return cmd
}
