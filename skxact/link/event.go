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

// Event is a radio-link notification delivered by a Stack, or a feedback
// event the controller raises when a stack request is rejected.
type Event interface {
	EventName() string
}

// Host and controller are synchronized.
type SyncEvt struct{}

// The host stack reset itself; the link, if any, is gone.
type ResetEvt struct {
	Reason int
}

// Outcome of a connection attempt (central) or an inbound connection
// (peripheral).  A zero status indicates success.
type ConnectEvt struct {
	Status     int
	ConnHandle uint16

	// Filled in by the stack on success.
	Desc BleConnDesc
}

type DisconnectEvt struct {
	Reason int
	Desc   BleConnDesc
}

// An advertisement was received while scanning.
type DiscEvt struct {
	Report BleAdvReport
}

// The scan procedure ended, normally because its duration elapsed.
type DiscCompleteEvt struct {
	Reason int
}

// The advertising procedure ended without producing a connection.
type AdvCompleteEvt struct {
	Reason int
}

type ConnUpdateEvt struct {
	Status     int
	ConnHandle uint16
}

// The stack refused to start advertising or scanning.
type ArmFailedEvt struct {
	Err error
}

// The stack refused to initiate a connection.
type ConnectRejectedEvt struct {
	Err error
}

// Any stack event the controllers have no use for.
type OtherEvt struct {
	Kind string
}

func (e *SyncEvt) EventName() string            { return "sync" }
func (e *ResetEvt) EventName() string           { return "reset" }
func (e *ConnectEvt) EventName() string         { return "connect" }
func (e *DisconnectEvt) EventName() string      { return "disconnect" }
func (e *DiscEvt) EventName() string            { return "disc" }
func (e *DiscCompleteEvt) EventName() string    { return "disc_complete" }
func (e *AdvCompleteEvt) EventName() string     { return "adv_complete" }
func (e *ConnUpdateEvt) EventName() string      { return "conn_update" }
func (e *ArmFailedEvt) EventName() string       { return "arm_failed" }
func (e *ConnectRejectedEvt) EventName() string { return "connect_rejected" }

func (e *OtherEvt) EventName() string {
	if e.Kind == "" {
		return "other"
	}
	return e.Kind
}
