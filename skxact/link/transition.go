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
	"mynewt.apache.org/skynet/skxact/skxutil"
)

// Transition computes the session that results from an event and the stack
// operations that must follow.  It performs no I/O.
func Transition(s LinkSession, ev Event) (LinkSession, []Effect) {
	switch e := ev.(type) {
	case *SyncEvt:
		if s.Busy() {
			return s, nil
		}
		s.State = STATE_DISCOVERING
		return s, []Effect{EffEnsureAddr{}, EffArm{}}

	case *ResetEvt:
		return s.cleared(), nil

	case *ConnectEvt:
		if e.Status != 0 {
			// A failure can only end an attempt that is still pending;
			// a peripheral's inbound attempt arrives while advertising.
			pending := s.State == STATE_CONNECTING ||
				(s.Role == ROLE_PERIPHERAL && s.State == STATE_DISCOVERING)
			if !pending {
				return s, nil
			}
			s = s.cleared()
			s.State = STATE_DISCOVERING
			return s, []Effect{EffArm{}}
		}

		s.State = STATE_CONNECTED
		s.ConnHandle = int(e.ConnHandle)
		if !e.Desc.PeerIdAddr.IsZero() {
			s.Peer = e.Desc.PeerDev()
			s.PeerKnown = true
		}
		desc := e.Desc
		desc.ConnHandle = e.ConnHandle
		return s, []Effect{EffNotify{Notice{Up: true, Desc: desc}}}

	case *DisconnectEvt:
		switch s.State {
		case STATE_CONNECTED:
			if int(e.Desc.ConnHandle) != s.ConnHandle {
				return s, nil
			}
		case STATE_CONNECTING:
		default:
			// No link to lose.
			return s, nil
		}
		s = s.cleared()
		s.State = STATE_DISCOVERING
		return s, []Effect{
			EffNotify{Notice{Up: false, Desc: e.Desc, Reason: e.Reason}},
			EffArm{},
		}

	case *DiscEvt:
		if s.Role != ROLE_CENTRAL || s.Busy() {
			return s, nil
		}
		if !e.Report.EventType.Connectable() {
			return s, nil
		}
		s.State = STATE_CONNECTING
		s.Peer = e.Report.Sender
		s.PeerKnown = true
		return s, []Effect{EffCancelDisc{}, EffConnect{Peer: e.Report.Sender}}

	case *DiscCompleteEvt:
		// An explicit stop leaves the session idle; a completion that
		// raced it must not restart the procedure.
		if s.Role != ROLE_CENTRAL || s.State != STATE_DISCOVERING {
			return s, nil
		}
		s.State = STATE_DISCOVERING
		return s, []Effect{EffArm{}}

	case *AdvCompleteEvt:
		if s.Role != ROLE_PERIPHERAL || s.State != STATE_DISCOVERING {
			return s, nil
		}
		s.State = STATE_DISCOVERING
		return s, []Effect{EffArm{}}

	case *ArmFailedEvt:
		if s.State == STATE_DISCOVERING {
			s.State = STATE_IDLE
		}
		return s, nil

	case *ConnectRejectedEvt:
		if s.State != STATE_CONNECTING {
			return s, nil
		}
		s = s.cleared()
		s.State = STATE_DISCOVERING
		return s, []Effect{EffArm{}}

	default:
		// Includes connection parameter updates; informational only.
		return s, nil
	}
}

// PlanArm prepares an explicit start-advertising / start-scan request.
func PlanArm(s LinkSession) (LinkSession, []Effect, error) {
	if s.Connected() {
		return s, nil, skxutil.NewAlreadyConnectedError(
			"cannot " + armVerb(s.Role) + "; already connected")
	}
	if s.State == STATE_CONNECTING {
		return s, nil, skxutil.NewAlreadyConnectedError(
			"cannot " + armVerb(s.Role) + "; connection in progress")
	}

	s.State = STATE_DISCOVERING
	return s, []Effect{EffArm{}}, nil
}

// PlanDisarm prepares a stop-advertising / stop-scan request.  An
// outstanding connection attempt or an established link is left alone.
func PlanDisarm(s LinkSession) (LinkSession, []Effect) {
	if s.State == STATE_DISCOVERING {
		s.State = STATE_IDLE
	}
	return s, []Effect{EffDisarm{}}
}

// PlanConnect prepares an explicit connection attempt to a known peer.
func PlanConnect(s LinkSession, peer BleDev) (LinkSession, []Effect, error) {
	if s.Connected() {
		return s, nil, skxutil.NewAlreadyConnectedError(
			"cannot connect; already connected")
	}
	if s.State == STATE_CONNECTING {
		return s, nil, skxutil.NewAlreadyConnectedError(
			"cannot connect; connection already in progress")
	}

	s.State = STATE_CONNECTING
	s.Peer = peer
	s.PeerKnown = true
	return s, []Effect{EffCancelDisc{}, EffConnect{Peer: peer}}, nil
}

// PlanDisconnect prepares termination of the active link.  The session is
// not modified; the resulting disconnect event performs the transition.
func PlanDisconnect(s LinkSession) ([]Effect, error) {
	if !s.Connected() {
		return nil, skxutil.NewNotConnectedError(
			"cannot disconnect; not connected")
	}

	return []Effect{EffTerminate{
		ConnHandle: uint16(s.ConnHandle),
		Reason:     HCI_REASON_REM_USER_CONN_TERM,
	}}, nil
}

func armVerb(r Role) string {
	if r == ROLE_CENTRAL {
		return "start scan"
	}
	return "start advertising"
}
