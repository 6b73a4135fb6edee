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
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/skxutil"
)

// Stack is the BLE host a controller drives.  Requests return once the
// host has accepted or rejected them; outcomes arrive later through the
// Handler.  Implementations must not call the Handler from inside any of
// these methods.
type Stack interface {
	Start() error
	Stop() error

	// Infers the own address type, creating an identity address if
	// needed.
	EnsureAddr() (BleDev, error)

	StartAdvertising(own BleAddrType, p BleAdvParams) error
	StopAdvertising() error

	StartScan(own BleAddrType, p BleScanParams) error
	StopScan() error

	Connect(own BleAddrType, peer BleDev, p BleConnParams) error
	Terminate(connHandle uint16, hciReason int) error

	FindConn(connHandle uint16) (BleConnDesc, error)

	SetHandler(h Handler)
}

// Handler receives host notifications.  Peripheral and Central implement
// it; a Stack holds exactly one.
type Handler interface {
	OnSync()
	OnReset(reason int)
	OnEvent(ev Event)
}

const listenerQueueSz = 16

// State and effect execution shared by both roles.
type controller struct {
	stack Stack
	cfg   Config
	rl    Role
	own   BleDev

	// Guards sesn and own.  Transitions and the effects they produce
	// execute with this held.
	mtx  sync.Mutex
	sesn LinkSession

	lmtx      sync.Mutex
	listeners map[chan Notice]struct{}
}

func newController(role Role, stack Stack, cfg Config) controller {
	return controller{
		stack:     stack,
		cfg:       cfg,
		rl:        role,
		sesn:      NewLinkSession(role),
		listeners: map[chan Notice]struct{}{},
	}
}

func (c *controller) start(h Handler) error {
	c.stack.SetHandler(h)
	if err := c.stack.Start(); err != nil {
		return errors.Wrapf(err, "failed to start BLE %s",
			RoleToString(c.role()))
	}

	return nil
}

func (c *controller) stop() error {
	return c.stack.Stop()
}

func (c *controller) role() Role {
	return c.rl
}

func (c *controller) Session() LinkSession {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.sesn
}

func (c *controller) IsConnected() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.sesn.Connected()
}

// OwnAddr returns the address resolved at sync time.
func (c *controller) OwnAddr() BleDev {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.own
}

// Disconnect requests termination of the active link.  The session changes
// when the resulting disconnect event arrives.
func (c *controller) Disconnect() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	effs, err := PlanDisconnect(c.sesn)
	if err != nil {
		return err
	}

	_, err = c.exec(effs)
	return err
}

// Listen registers a channel that receives a Notice each time the link
// comes up or goes down.  A listener that falls behind misses notices.
func (c *controller) Listen() <-chan Notice {
	c.lmtx.Lock()
	defer c.lmtx.Unlock()

	ch := make(chan Notice, listenerQueueSz)
	c.listeners[ch] = struct{}{}
	return ch
}

func (c *controller) Unlisten(ch <-chan Notice) {
	c.lmtx.Lock()
	defer c.lmtx.Unlock()

	for l := range c.listeners {
		if l == ch {
			delete(c.listeners, l)
			close(l)
			return
		}
	}
}

func (c *controller) notify(n Notice) {
	c.lmtx.Lock()
	defer c.lmtx.Unlock()

	for l := range c.listeners {
		select {
		case l <- n:
		default:
			log.Debugf("link listener full; dropping notice: %s", n)
		}
	}
}

func (c *controller) handle(ev Event) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.step(ev)
}

// Feeds an event through the state machine, along with any feedback events
// raised while executing the resulting effects.  Lock must be held.
func (c *controller) step(ev Event) {
	for ev != nil {
		var effs []Effect
		c.sesn, effs = Transition(c.sesn, ev)
		ev, _ = c.exec(effs)
	}
}

// Runs effects against the stack in order.  If an arm or connect request
// is rejected, execution stops and the corresponding feedback event is
// returned alongside the error.  Lock must be held.
func (c *controller) exec(effs []Effect) (Event, error) {
	for _, eff := range effs {
		log.Debugf("link %s: executing %s", RoleToString(c.role()),
			eff.EffectName())

		switch e := eff.(type) {
		case EffEnsureAddr:
			own, err := c.stack.EnsureAddr()
			if err != nil {
				logRejected("ensure address", err)
				return &ArmFailedEvt{Err: err}, err
			}
			c.own = own
			if own.Addr.IsZero() {
				log.Infof("BLE %s initialized. Our address type: %s",
					roleTitle(c.role()), BleAddrTypeDesc(own.AddrType))
			} else {
				log.Infof("BLE %s initialized. Our address: %s",
					roleTitle(c.role()), FmtAddr(own.Addr))
			}

		case EffArm:
			if err := c.arm(); err != nil {
				if !skxutil.IsBleHostStatus(err, ERR_CODE_EALREADY) {
					logRejected(armVerb(c.role()), err)
					return &ArmFailedEvt{Err: err}, err
				}
			}

		case EffDisarm:
			if err := c.disarm(); err != nil {
				if !skxutil.IsBleHostStatus(err, ERR_CODE_EALREADY) {
					return nil, err
				}
			}

		case EffCancelDisc:
			if err := c.stack.StopScan(); err != nil {
				if !skxutil.IsBleHostStatus(err, ERR_CODE_EALREADY) {
					log.Warnf("Failed to cancel scan: %s", err.Error())
				}
			}

		case EffConnect:
			log.Infof("Attempting to connect to %s...",
				FmtAddr(e.Peer.Addr))
			err := c.stack.Connect(c.own.AddrType, e.Peer,
				c.cfg.connParams())
			if err != nil {
				logRejected("initiate connection", err)
				return &ConnectRejectedEvt{Err: err}, err
			}

		case EffTerminate:
			if err := c.stack.Terminate(e.ConnHandle, e.Reason); err != nil {
				return nil, err
			}

		case EffNotify:
			c.report(e.Notice)
			c.notify(e.Notice)

		default:
			return nil, fmt.Errorf("unknown link effect: %T", eff)
		}
	}

	return nil, nil
}

// A timed out request is not a refusal; the host may be wedged.
func logRejected(what string, err error) {
	if skxutil.IsRspTimeout(err) {
		log.Errorf("BLE host did not respond to %s request: %s",
			what, err.Error())
		return
	}

	log.Errorf("Failed to %s: %s", what, err.Error())
}

func (c *controller) arm() error {
	if c.role() == ROLE_CENTRAL {
		return c.stack.StartScan(c.own.AddrType, c.cfg.scanParams())
	}
	return c.stack.StartAdvertising(c.own.AddrType, c.cfg.advParams())
}

func (c *controller) disarm() error {
	if c.role() == ROLE_CENTRAL {
		return c.stack.StopScan()
	}
	return c.stack.StopAdvertising()
}

// Explicit arm request from a caller outside the event path.
func (c *controller) armNow() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, effs, err := PlanArm(c.sesn)
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

func (c *controller) disarmNow() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, effs := PlanDisarm(c.sesn)
	c.sesn = s

	_, err := c.exec(effs)
	return err
}

func (c *controller) report(n Notice) {
	if !n.Up {
		log.Infof("Disconnected from %s (reason=0x%02x)",
			FmtAddr(n.Desc.PeerIdAddr), n.Reason)
		return
	}

	log.Infof("Connection established")
	for _, line := range n.Desc.Report(c.role() == ROLE_CENTRAL) {
		log.Infof("  %s", line)
	}
}

func (c *controller) logEvent(ev Event) {
	switch e := ev.(type) {
	case *ConnectEvt:
		if e.Status != 0 {
			log.Errorf("Connection failed (status=%d)", e.Status)
		}

	case *ConnUpdateEvt:
		log.Infof("Connection parameters updated")

	default:
		log.Debugf("BLE %s event: %s", RoleToString(c.role()),
			ev.EventName())
	}
}

func roleTitle(r Role) string {
	if r == ROLE_CENTRAL {
		return "Central"
	}
	return "Peripheral"
}
