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
	"fmt"

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/skynet/skxact/bledefs"
)

// Central scans and connects to the first connectable advertiser it hears,
// then resumes scanning whenever no link is up or in progress.
type Central struct {
	controller
}

func NewCentral(stack Stack, cfg Config) *Central {
	return &Central{
		controller: newController(ROLE_CENTRAL, stack, cfg),
	}
}

func (c *Central) Start() error {
	return c.start(c)
}

func (c *Central) Stop() error {
	return c.stop()
}

func (c *Central) StartScan() error {
	return c.armNow()
}

// StopScan succeeds if no scan is in progress.
func (c *Central) StopScan() error {
	return c.disarmNow()
}

// ConnectToDevice cancels any scan and initiates a connection to peer.  A
// rejected request resumes scanning.
func (c *Central) ConnectToDevice(peer BleDev) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, effs, err := PlanConnect(c.sesn, peer)
	if err != nil {
		return err
	}
	c.sesn = s

	fb, err := c.exec(effs)
	if fb != nil {
		c.step(fb)
	}
	return err
}

func (c *Central) OnSync() {
	log.Debugf("BLE central synced")
	c.handle(&SyncEvt{})
}

func (c *Central) OnReset(reason int) {
	log.Warnf("BLE host reset (reason=0x%02x)", reason)
	c.handle(&ResetEvt{Reason: reason})
}

func (c *Central) OnEvent(ev Event) {
	switch e := ev.(type) {
	case *DiscEvt:
		for _, line := range DiscReport(e.Report) {
			log.Infof("%s", line)
		}

	case *DiscCompleteEvt:
		log.Infof("Scan complete (reason=%d)", e.Reason)

	case *AdvCompleteEvt:
		return

	default:
		c.logEvent(ev)
	}

	c.handle(ev)
}

// DiscReport renders an advertisement the way a discovery is logged.  The
// name is best effort; many advertisers omit it.
func DiscReport(r BleAdvReport) []string {
	lines := []string{
		"Discovered device:",
		fmt.Sprintf("  Address: %s (%s)",
			FmtAddr(r.Sender.Addr), BleAddrTypeDesc(r.Sender.AddrType)),
		fmt.Sprintf("  RSSI: %d dBm", r.Rssi),
	}

	if r.Fields.Name != nil {
		name := "  Name: " + *r.Fields.Name
		if !r.Fields.NameIsComplete {
			name += " (partial)"
		}
		lines = append(lines, name)
	}

	return lines
}
