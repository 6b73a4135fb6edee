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

	. "mynewt.apache.org/skynet/skxact/bledefs"
)

// Effect is a stack operation requested by a transition.  Effects are
// executed in order; execution stops at the first one that fails.
type Effect interface {
	EffectName() string
}

// Resolve the own address type and make sure an identity address exists.
type EffEnsureAddr struct{}

// Start advertising (peripheral) or scanning (central).
type EffArm struct{}

// Stop advertising (peripheral) or scanning (central).
type EffDisarm struct{}

// Cancel an in-progress scan ahead of a connection attempt.
type EffCancelDisc struct{}

type EffConnect struct {
	Peer BleDev
}

type EffTerminate struct {
	ConnHandle uint16
	Reason     int
}

// Tell listeners the link came up or went down.
type EffNotify struct {
	Notice Notice
}

func (e EffEnsureAddr) EffectName() string { return "ensure_addr" }
func (e EffArm) EffectName() string        { return "arm" }
func (e EffDisarm) EffectName() string     { return "disarm" }
func (e EffCancelDisc) EffectName() string { return "cancel_disc" }
func (e EffConnect) EffectName() string    { return "connect" }
func (e EffTerminate) EffectName() string  { return "terminate" }
func (e EffNotify) EffectName() string     { return "notify" }

// Notice is what link listeners receive.
type Notice struct {
	Up     bool
	Desc   BleConnDesc
	Reason int
}

func (n Notice) String() string {
	if n.Up {
		return fmt.Sprintf("link up: %s", n.Desc.String())
	}

	return fmt.Sprintf("link down: conn_handle=%d reason=0x%02x (%s)",
		n.Desc.ConnHandle, n.Reason, ErrCodeToString(n.Reason))
}
