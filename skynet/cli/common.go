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
	"fmt"
	"time"

	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skynet/config"
)

// The operations shared by both role controllers.
type roleCtlr interface {
	Start() error
	Stop() error
	Session() link.LinkSession
	IsConnected() bool
	OwnAddr() BleDev
	Disconnect() error
	Listen() <-chan link.Notice
	Unlisten(ch <-chan link.Notice)
}

func buildStack() (link.Stack, error) {
	cp, err := config.ResolveConnProfile()
	if err != nil {
		return nil, err
	}

	return config.BuildStack(cp)
}

func newRoleCtlr(role link.Role, stack link.Stack, cfg link.Config) roleCtlr {
	if role == link.ROLE_CENTRAL {
		return link.NewCentral(stack, cfg)
	}
	return link.NewPeripheral(stack, cfg)
}

// Starts a controller and arranges for it to be stopped on exit.
func startRoleCtlr(role link.Role, cfg link.Config) (roleCtlr, error) {
	stack, err := buildStack()
	if err != nil {
		return nil, err
	}

	rc := newRoleCtlr(role, stack, cfg)
	if err := rc.Start(); err != nil {
		return nil, err
	}
	AddCleanup(func() { rc.Stop() })

	return rc, nil
}

func printNotices(ch <-chan link.Notice) {
	for n := range ch {
		fmt.Println(n.String())
	}
}

// Polls until the controller leaves the idle state.
func waitArmed(rc roleCtlr, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if rc.Session().State != link.STATE_IDLE {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}

	return false
}
