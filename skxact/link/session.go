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
	"encoding/json"
	"fmt"

	. "mynewt.apache.org/skynet/skxact/bledefs"
)

type State int

const (
	STATE_IDLE State = iota
	STATE_DISCOVERING
	STATE_CONNECTING
	STATE_CONNECTED
	STATE_DISCONNECTING
)

var StateStringMap = map[State]string{
	STATE_IDLE:          "idle",
	STATE_DISCOVERING:   "discovering",
	STATE_CONNECTING:    "connecting",
	STATE_CONNECTED:     "connected",
	STATE_DISCONNECTING: "disconnecting",
}

func StateToString(s State) string {
	str := StateStringMap[s]
	if str == "" {
		return "???"
	}

	return str
}

func StateFromString(s string) (State, error) {
	for state, name := range StateStringMap {
		if s == name {
			return state, nil
		}
	}

	return State(0), fmt.Errorf("Invalid State string: %s", s)
}

func (s State) String() string {
	return StateToString(s)
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(StateToString(s))
}

func (s *State) UnmarshalJSON(data []byte) error {
	var err error

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	*s, err = StateFromString(str)
	return err
}

type Role int

const (
	ROLE_PERIPHERAL Role = iota
	ROLE_CENTRAL
)

var RoleStringMap = map[Role]string{
	ROLE_PERIPHERAL: "peripheral",
	ROLE_CENTRAL:    "central",
}

func RoleToString(r Role) string {
	s := RoleStringMap[r]
	if s == "" {
		return "???"
	}

	return s
}

func RoleFromString(s string) (Role, error) {
	for role, name := range RoleStringMap {
		if s == name {
			return role, nil
		}
	}

	return Role(0), fmt.Errorf("Invalid Role string: %s", s)
}

func (r Role) String() string {
	return RoleToString(r)
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(RoleToString(r))
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*r, err = RoleFromString(s)
	return err
}

const CONN_HANDLE_NONE = -1

// The lifecycle of the single link a role controller manages.
type LinkSession struct {
	State State `json:"state"`
	Role  Role  `json:"role"`

	// Only meaningful when PeerKnown is set.
	Peer      BleDev `json:"-"`
	PeerKnown bool   `json:"peer_known"`

	ConnHandle int `json:"conn_handle"`
}

func NewLinkSession(role Role) LinkSession {
	return LinkSession{
		State:      STATE_IDLE,
		Role:       role,
		ConnHandle: CONN_HANDLE_NONE,
	}
}

func (s LinkSession) Connected() bool {
	return s.State == STATE_CONNECTED
}

// A connection attempt is outstanding or a link is up.
func (s LinkSession) Busy() bool {
	return s.State == STATE_CONNECTING || s.State == STATE_CONNECTED
}

// Drops everything learned about the current peer.
func (s LinkSession) cleared() LinkSession {
	s.State = STATE_IDLE
	s.ConnHandle = CONN_HANDLE_NONE
	s.Peer = BleDev{}
	s.PeerKnown = false
	return s
}

func (s LinkSession) Validate() error {
	if StateStringMap[s.State] == "" {
		return fmt.Errorf("invalid link state: %d", int(s.State))
	}

	hasHandle := s.ConnHandle != CONN_HANDLE_NONE
	if hasHandle != s.Connected() {
		return fmt.Errorf("link state %s inconsistent with conn_handle=%d",
			s.State, s.ConnHandle)
	}

	if s.Connected() && (s.ConnHandle < 0 || s.ConnHandle > 0xffff) {
		return fmt.Errorf("invalid conn_handle=%d", s.ConnHandle)
	}

	return nil
}

func (s LinkSession) String() string {
	peer := "none"
	if s.PeerKnown {
		peer = s.Peer.String()
	}

	return fmt.Sprintf("role=%s state=%s conn_handle=%d peer=%s",
		s.Role, s.State, s.ConnHandle, peer)
}
