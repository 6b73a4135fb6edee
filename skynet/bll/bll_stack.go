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

package bll

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skxact/skxutil"
	"mynewt.apache.org/skynet/skynet/skutil"
)

const evtQueueSz = 256

type bllConn struct {
	cln         client
	desc        BleConnDesc
	terminating bool
}

// BllStack is a central-only link.Stack on a local HCI controller.
type BllStack struct {
	cfg XportCfg
	r   radio

	hmtx sync.Mutex
	h    link.Handler

	mtx        sync.Mutex
	started    bool
	evCh       chan link.Event
	stopCh     chan struct{}
	wg         sync.WaitGroup
	scanCancel context.CancelFunc
	scanDone   chan struct{}
	dialCancel context.CancelFunc
	conns      map[uint16]*bllConn
	nextHandle uint16
	ownAddr    BleAddr
}

func NewBllStack(cfg XportCfg) *BllStack {
	return newBllStack(cfg, &hciRadio{ctlrName: cfg.CtlrName})
}

func newBllStack(cfg XportCfg, r radio) *BllStack {
	return &BllStack{
		cfg:        cfg,
		r:          r,
		conns:      map[uint16]*bllConn{},
		nextHandle: 1,
	}
}

func (bs *BllStack) SetHandler(h link.Handler) {
	bs.hmtx.Lock()
	defer bs.hmtx.Unlock()

	bs.h = h
}

func (bs *BllStack) handler() link.Handler {
	bs.hmtx.Lock()
	defer bs.hmtx.Unlock()

	return bs.h
}

func (bs *BllStack) Start() error {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	if bs.started {
		return skxutil.NewBleHostError(ERR_CODE_EALREADY,
			"HCI stack already started")
	}

	if err := bs.r.Open(link.DefaultConnParams(),
		bs.cfg.OwnAddrType); err != nil {

		return err
	}

	if addr, err := ParseBleAddr(bs.r.Addr()); err == nil {
		bs.ownAddr = addr
	}

	bs.started = true
	bs.evCh = make(chan link.Event, evtQueueSz)
	bs.stopCh = make(chan struct{})

	bs.wg.Add(1)
	go bs.eventLoop(bs.evCh, bs.stopCh)

	return nil
}

func (bs *BllStack) Stop() error {
	bs.mtx.Lock()
	if !bs.started {
		bs.mtx.Unlock()
		return skxutil.NewBleHostError(ERR_CODE_EALREADY,
			"HCI stack already stopped")
	}
	bs.started = false

	if bs.scanCancel != nil {
		bs.scanCancel()
	}
	if bs.dialCancel != nil {
		bs.dialCancel()
	}
	for _, c := range bs.conns {
		c.terminating = true
		c.cln.CancelConnection()
	}
	close(bs.stopCh)
	bs.mtx.Unlock()

	bs.wg.Wait()

	bs.mtx.Lock()
	bs.conns = map[uint16]*bllConn{}
	bs.mtx.Unlock()

	return bs.r.Close()
}

func (bs *BllStack) eventLoop(evCh chan link.Event, stopCh chan struct{}) {
	defer bs.wg.Done()

	if h := bs.handler(); h != nil {
		h.OnSync()
	}

	for {
		select {
		case <-stopCh:
			return

		case ev := <-evCh:
			if h := bs.handler(); h != nil {
				h.OnEvent(ev)
			}
		}
	}
}

// Must be called with the lock held.  Advertisement reports are dropped
// when the queue is full; other events wait for room.
func (bs *BllStack) enqueueLocked(ev link.Event, droppable bool) {
	if droppable {
		select {
		case bs.evCh <- ev:
		default:
			log.Debugf("HCI event queue full; dropping %s", ev.EventName())
		}
		return
	}

	select {
	case bs.evCh <- ev:
	case <-bs.stopCh:
	}
}

// Queues an event from a worker goroutine.  Nothing is queued after Stop.
func (bs *BllStack) enqueue(ev link.Event, droppable bool) {
	bs.mtx.Lock()
	evCh := bs.evCh
	stopCh := bs.stopCh
	started := bs.started
	bs.mtx.Unlock()

	if !started {
		return
	}

	if droppable {
		select {
		case evCh <- ev:
		default:
			log.Debugf("HCI event queue full; dropping %s", ev.EventName())
		}
		return
	}

	select {
	case evCh <- ev:
	case <-stopCh:
	}
}

func (bs *BllStack) EnsureAddr() (BleDev, error) {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	if bs.cfg.OwnAddrType != BLE_ADDR_TYPE_PUBLIC {
		return BleDev{}, skxutil.NewBleHostError(ERR_CODE_ENOTSUP,
			"HCI stack only supports the public address")
	}

	return BleDev{
		AddrType: bs.cfg.OwnAddrType,
		Addr:     bs.ownAddr,
	}, nil
}

func (bs *BllStack) StartAdvertising(own BleAddrType, p BleAdvParams) error {
	return skxutil.NewBleHostError(ERR_CODE_ENOTSUP,
		"HCI stack cannot advertise")
}

func (bs *BllStack) StopAdvertising() error {
	return skxutil.NewBleHostError(ERR_CODE_EALREADY, "not advertising")
}

func (bs *BllStack) StartScan(own BleAddrType, p BleScanParams) error {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	if !bs.started {
		return skxutil.NewBleHostError(ERR_CODE_ENOTSYNCED,
			"HCI stack not started")
	}
	if bs.scanCancel != nil {
		return skxutil.NewBleHostError(ERR_CODE_EALREADY, "already scanning")
	}
	if bs.dialCancel != nil {
		return skxutil.NewBleHostError(ERR_CODE_EBUSY,
			"connection attempt in progress")
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if p.DurationMs > 0 && p.DurationMs != BLE_HS_FOREVER {
		ctx, cancel = context.WithTimeout(context.Background(),
			time.Duration(p.DurationMs)*time.Millisecond)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	done := make(chan struct{})
	bs.scanCancel = cancel
	bs.scanDone = done

	go bs.scan(ctx, !p.FilterDuplicates, done)

	return nil
}

func (bs *BllStack) scan(ctx context.Context, allowDup bool,
	done chan struct{}) {

	defer close(done)

	err := bs.r.Scan(ctx, allowDup, func(a advert) {
		bs.enqueue(&link.DiscEvt{Report: advReport(a)}, true)
	})

	bs.mtx.Lock()
	cancelled := bs.scanDone != done
	if !cancelled {
		bs.scanCancel = nil
		bs.scanDone = nil
	}
	bs.mtx.Unlock()

	// StopScan claimed this scan and may be waiting on done from the event
	// goroutine, so nothing may be queued.  Even if the deadline won the
	// race, a stopped scan reports no completion.
	if cancelled {
		return
	}

	switch {
	case skutil.ErrorCausedBy(err, context.Canceled):
		// Stopped by request; NimBLE reports nothing in this case either.

	case err == nil || skutil.ErrorCausedBy(err, context.DeadlineExceeded):
		bs.enqueue(&link.DiscCompleteEvt{Reason: 0}, false)

	default:
		log.Debugf("HCI scan failed: %s", err.Error())
		bs.enqueue(&link.DiscCompleteEvt{Reason: ERR_CODE_ECONTROLLER}, false)
	}
}

func (bs *BllStack) StopScan() error {
	bs.mtx.Lock()
	cancel := bs.scanCancel
	done := bs.scanDone
	bs.scanCancel = nil
	bs.scanDone = nil
	bs.mtx.Unlock()

	if cancel == nil {
		return skxutil.NewBleHostError(ERR_CODE_EALREADY, "not scanning")
	}

	cancel()
	<-done

	return nil
}

func (bs *BllStack) Connect(own BleAddrType, peer BleDev,
	p BleConnParams) error {

	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	if !bs.started {
		return skxutil.NewBleHostError(ERR_CODE_ENOTSYNCED,
			"HCI stack not started")
	}
	if bs.dialCancel != nil {
		return skxutil.NewBleHostError(ERR_CODE_EALREADY,
			"connection attempt in progress")
	}
	if len(bs.conns) > 0 {
		return skxutil.NewBleHostError(ERR_CODE_EBUSY,
			"already connected")
	}
	if bs.scanCancel != nil {
		return skxutil.NewBleHostError(ERR_CODE_EBUSY, "scan in progress")
	}

	dur := p.DurationMs
	if dur <= 0 {
		dur = link.CONN_DURATION_MS
	}
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(dur)*time.Millisecond)
	bs.dialCancel = cancel

	go bs.dial(ctx, cancel, peer, p)

	return nil
}

func (bs *BllStack) dial(ctx context.Context, cancel context.CancelFunc,
	peer BleDev, p BleConnParams) {

	cln, err := bs.r.Dial(ctx, peer.Addr.String())

	bs.mtx.Lock()
	bs.dialCancel = nil
	cancel()

	if err != nil {
		status := ERR_CODE_EUNKNOWN
		if skutil.ErrorCausedBy(err, context.DeadlineExceeded) {
			status = ERR_CODE_ETIMEOUT
		}
		log.Debugf("HCI connect to %s failed: %s",
			peer.String(), err.Error())

		if bs.started {
			bs.enqueueLocked(&link.ConnectEvt{Status: status}, false)
		}
		bs.mtx.Unlock()
		return
	}

	if !bs.started {
		bs.mtx.Unlock()
		cln.CancelConnection()
		return
	}

	h := bs.nextHandle
	bs.nextHandle++

	desc := BleConnDesc{
		ConnHandle:         h,
		OwnIdAddrType:      bs.cfg.OwnAddrType,
		OwnIdAddr:          bs.ownAddr,
		OwnOtaAddrType:     bs.cfg.OwnAddrType,
		OwnOtaAddr:         bs.ownAddr,
		PeerIdAddrType:     peer.AddrType,
		PeerIdAddr:         peer.Addr,
		PeerOtaAddrType:    peer.AddrType,
		PeerOtaAddr:        peer.Addr,
		Role:               BLE_ROLE_MASTER,
		ConnItvl:           p.ItvlMin,
		ConnLatency:        p.Latency,
		SupervisionTimeout: p.SupervisionTimeout,
	}

	c := &bllConn{cln: cln, desc: desc}
	bs.conns[h] = c
	bs.enqueueLocked(&link.ConnectEvt{ConnHandle: h, Desc: desc}, false)

	bs.wg.Add(1)
	bs.mtx.Unlock()

	go bs.watch(h, c)
}

func (bs *BllStack) watch(h uint16, c *bllConn) {
	defer bs.wg.Done()

	<-c.cln.Disconnected()

	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	delete(bs.conns, h)

	reason := ERR_CODE_HCI_BASE + ERR_CODE_HCI_UNSPECIFIED
	if c.terminating {
		reason = ERR_CODE_HCI_BASE + ERR_CODE_HCI_CONN_TERM_LOCAL
	}

	if bs.started {
		bs.enqueueLocked(&link.DisconnectEvt{
			Reason: reason,
			Desc:   c.desc,
		}, false)
	}
}

func (bs *BllStack) Terminate(connHandle uint16, hciReason int) error {
	bs.mtx.Lock()
	c := bs.conns[connHandle]
	if c != nil {
		c.terminating = true
	}
	bs.mtx.Unlock()

	if c == nil {
		return skxutil.FmtBleHostError(ERR_CODE_ENOTCONN,
			"no connection with handle %d", connHandle)
	}

	// go-ble does not let the caller choose the reason code.
	return c.cln.CancelConnection()
}

func (bs *BllStack) FindConn(connHandle uint16) (BleConnDesc, error) {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	c := bs.conns[connHandle]
	if c == nil {
		return BleConnDesc{}, skxutil.FmtBleHostError(ERR_CODE_ENOTCONN,
			"no connection with handle %d", connHandle)
	}

	return c.desc, nil
}
