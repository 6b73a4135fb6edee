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
	log "github.com/sirupsen/logrus"
)

// Peripheral advertises, accepts a single inbound connection, and resumes
// advertising whenever no link is up.
type Peripheral struct {
	controller
}

func NewPeripheral(stack Stack, cfg Config) *Peripheral {
	return &Peripheral{
		controller: newController(ROLE_PERIPHERAL, stack, cfg),
	}
}

// Start registers the peripheral with its stack and starts the host.
// Advertising begins once the host reports sync.
func (p *Peripheral) Start() error {
	return p.start(p)
}

func (p *Peripheral) Stop() error {
	return p.stop()
}

func (p *Peripheral) StartAdvertising() error {
	return p.armNow()
}

// StopAdvertising succeeds if advertising is already stopped.
func (p *Peripheral) StopAdvertising() error {
	return p.disarmNow()
}

func (p *Peripheral) OnSync() {
	log.Debugf("BLE peripheral synced")
	p.handle(&SyncEvt{})
}

func (p *Peripheral) OnReset(reason int) {
	log.Warnf("BLE host reset (reason=0x%02x)", reason)
	p.handle(&ResetEvt{Reason: reason})
}

func (p *Peripheral) OnEvent(ev Event) {
	switch e := ev.(type) {
	case *AdvCompleteEvt:
		log.Debugf("Advertising complete (reason=%d)", e.Reason)

	case *DiscEvt, *DiscCompleteEvt:
		// Not scanning; nothing to do.
		return

	default:
		p.logEvent(ev)
	}

	p.handle(ev)
}
