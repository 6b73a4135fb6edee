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

package bhd

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skxact/skxutil"
)

// Scan reports can arrive in bursts while the event loop waits on a
// conn_find response; the event queue must absorb them.
const evtQueueSz = 256

// BhdStack drives a blehostd instance on behalf of a link controller.
type BhdStack struct {
	bx *BhdXport

	// Own address type to request.  Random causes a static random address
	// to be generated and configured on sync.
	ownAddrType BleAddrType

	hmtx sync.Mutex
	h    link.Handler

	// Set while blehostd is initiating a connection.
	mtx         sync.Mutex
	connPending bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewBhdStack(bx *BhdXport, ownAddrType BleAddrType) *BhdStack {
	return &BhdStack{
		bx:          bx,
		ownAddrType: ownAddrType,
	}
}

func (bs *BhdStack) SetHandler(h link.Handler) {
	bs.hmtx.Lock()
	defer bs.hmtx.Unlock()

	bs.h = h
}

func (bs *BhdStack) handler() link.Handler {
	bs.hmtx.Lock()
	defer bs.hmtx.Unlock()

	return bs.h
}

func evtListenKey() BleMsgBase {
	return BleMsgBase{
		Op:         MSG_OP_EVT,
		Type:       -1,
		Seq:        BLE_SEQ_NONE,
		ConnHandle: -1,
	}
}

// Start brings up the transport.  The handler's OnSync is invoked from the
// event goroutine once the host is synced.
func (bs *BhdStack) Start() error {
	if err := bs.bx.Start(); err != nil {
		return err
	}

	l := &Listener{
		MsgChan: make(chan BleMsg, evtQueueSz),
		ErrChan: make(chan error, 1),
	}
	if err := bs.bx.Bd.AddListener(evtListenKey(), l); err != nil {
		bs.bx.Stop()
		return err
	}

	bs.stopCh = make(chan struct{})
	bs.wg.Add(1)
	go bs.eventLoop(l)

	return nil
}

func (bs *BhdStack) Stop() error {
	if bs.stopCh == nil {
		return nil
	}

	// Don't leave the controller initiating on behalf of nobody.
	if bs.isConnPending() {
		if err := bs.CancelConnect(); err != nil {
			log.Debugf("Failed to cancel connection attempt: %s",
				err.Error())
		}
	}

	close(bs.stopCh)
	bs.bx.Bd.RemoveListener(evtListenKey())
	err := bs.bx.Stop()
	bs.wg.Wait()
	bs.stopCh = nil

	return err
}

func (bs *BhdStack) eventLoop(l *Listener) {
	defer bs.wg.Done()

	if h := bs.handler(); h != nil {
		h.OnSync()
	}

	for {
		select {
		case <-bs.stopCh:
			return

		case err := <-l.ErrChan:
			log.Debugf("blehostd event stream ended: %s", err.Error())
			if h := bs.handler(); h != nil {
				h.OnReset(ERR_CODE_ENOTSYNCED)
			}
			return

		case bm := <-l.MsgChan:
			bs.handleEvt(bm)
		}
	}
}

func (bs *BhdStack) handleEvt(bm BleMsg) {
	h := bs.handler()
	if h == nil {
		return
	}

	switch msg := bm.(type) {
	case *BleSyncEvt:
		if msg.Synced {
			h.OnSync()
		} else {
			h.OnReset(ERR_CODE_ENOTSYNCED)
		}

	case *BleResetEvt:
		h.OnReset(msg.Reason)

	case *BleConnectEvt:
		bs.setConnPending(false)

		ev := &link.ConnectEvt{
			Status:     msg.Status,
			ConnHandle: msg.ConnHandle,
		}
		if msg.Status == 0 {
			desc, err := bs.FindConn(msg.ConnHandle)
			if err != nil {
				log.Warnf("Failed to look up connection %d: %s",
					msg.ConnHandle, err.Error())
				desc = BleConnDesc{ConnHandle: msg.ConnHandle}
			}
			ev.Desc = desc
		}
		h.OnEvent(ev)

	case *BleDisconnectEvt:
		desc := BleConnDesc{
			ConnHandle:     msg.ConnHandle,
			PeerIdAddrType: msg.PeerIdAddrType,
		}
		if msg.PeerIdAddr != nil {
			desc.PeerIdAddr = *msg.PeerIdAddr
		}
		h.OnEvent(&link.DisconnectEvt{Reason: msg.Reason, Desc: desc})

	case *BleScanEvt:
		h.OnEvent(&link.DiscEvt{Report: BleAdvReportFromScanEvt(msg)})

	case *BleScanTmoEvt:
		h.OnEvent(&link.DiscCompleteEvt{Reason: 0})

	case *BleAdvCompleteEvt:
		h.OnEvent(&link.AdvCompleteEvt{Reason: msg.Reason})

	case *BleConnUpdateEvt:
		h.OnEvent(&link.ConnUpdateEvt{
			Status:     msg.Status,
			ConnHandle: msg.ConnHandle,
		})

	default:
		h.OnEvent(&link.OtherEvt{Kind: fmt.Sprintf("%T", bm)})
	}
}

func (bs *BhdStack) EnsureAddr() (BleDev, error) {
	if bs.ownAddrType != BLE_ADDR_TYPE_RANDOM {
		// blehostd infers the public identity address itself.
		return BleDev{AddrType: bs.ownAddrType}, nil
	}

	addr, err := bs.GenRandAddr()
	if err != nil {
		return BleDev{}, err
	}
	if err := bs.SetRandAddr(addr); err != nil {
		return BleDev{}, err
	}

	return BleDev{AddrType: BLE_ADDR_TYPE_RANDOM, Addr: addr}, nil
}

func (bs *BhdStack) GenRandAddr() (BleAddr, error) {
	r := NewBleGenRandAddrReq()
	rsp, err := bs.bx.TxRx(r.BleHdr, r)
	if err != nil {
		return BleAddr{}, err
	}

	grsp, ok := rsp.(*BleGenRandAddrRsp)
	if !ok {
		return BleAddr{}, skxutil.FmtXportError(
			"unexpected gen_rand_addr response: %T", rsp)
	}
	if grsp.Status != 0 {
		return BleAddr{}, StatusError(MSG_OP_RSP, r.Type, grsp.Status)
	}

	return grsp.Addr, nil
}

func (bs *BhdStack) SetRandAddr(addr BleAddr) error {
	r := NewBleSetRandAddrReq()
	r.Addr = addr
	return bs.bx.StatusXact(r.BleHdr, r)
}

func (bs *BhdStack) setAdvFields(f BleAdvFields) error {
	r := NewBleAdvFieldsReq(f)
	rsp, err := bs.bx.TxRx(r.BleHdr, r)
	if err != nil {
		return err
	}

	frsp, ok := rsp.(*BleAdvFieldsRsp)
	if !ok {
		return skxutil.FmtXportError(
			"unexpected adv_fields response: %T", rsp)
	}
	if frsp.Status != 0 {
		return StatusError(MSG_OP_RSP, r.Type, frsp.Status)
	}

	return nil
}

func (bs *BhdStack) StartAdvertising(own BleAddrType, p BleAdvParams) error {
	if err := bs.setAdvFields(p.Fields); err != nil {
		return err
	}

	r := NewBleAdvStartReq(own, p)
	return bs.bx.StatusXact(r.BleHdr, r)
}

func (bs *BhdStack) StopAdvertising() error {
	r := NewBleAdvStopReq()
	return bs.bx.StatusXact(r.BleHdr, r)
}

func (bs *BhdStack) StartScan(own BleAddrType, p BleScanParams) error {
	r := NewBleScanReq(own, p)
	return bs.bx.StatusXact(r.BleHdr, r)
}

func (bs *BhdStack) StopScan() error {
	r := NewBleScanCancelReq()
	return bs.bx.StatusXact(r.BleHdr, r)
}

func (bs *BhdStack) Connect(own BleAddrType, peer BleDev,
	p BleConnParams) error {

	r := NewBleConnectReq(own, peer, p)
	if err := bs.bx.StatusXact(r.BleHdr, r); err != nil {
		return err
	}

	bs.setConnPending(true)
	return nil
}

func (bs *BhdStack) setConnPending(pending bool) {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	bs.connPending = pending
}

func (bs *BhdStack) isConnPending() bool {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	return bs.connPending
}

// CancelConnect aborts an outstanding connection attempt.  blehostd
// reports the outcome as a connect event with a nonzero status.
func (bs *BhdStack) CancelConnect() error {
	r := NewBleConnCancelReq()
	if err := bs.bx.StatusXact(r.BleHdr, r); err != nil {
		return err
	}

	bs.setConnPending(false)
	return nil
}

func (bs *BhdStack) Terminate(connHandle uint16, hciReason int) error {
	r := NewBleTerminateReq(connHandle, hciReason)
	return bs.bx.StatusXact(r.BleHdr, r)
}

func (bs *BhdStack) FindConn(connHandle uint16) (BleConnDesc, error) {
	r := NewBleConnFindReq(connHandle)
	rsp, err := bs.bx.TxRx(r.BleHdr, r)
	if err != nil {
		return BleConnDesc{}, err
	}

	frsp, ok := rsp.(*BleConnFindRsp)
	if !ok {
		return BleConnDesc{}, skxutil.FmtXportError(
			"unexpected conn_find response: %T", rsp)
	}
	if frsp.Status != 0 {
		return BleConnDesc{}, StatusError(MSG_OP_RSP, r.Type, frsp.Status)
	}

	return BleDescFromConnFindRsp(frsp), nil
}

// Reset asks blehostd to reset the host; a reset event follows.
func (bs *BhdStack) Reset() error {
	r := NewResetReq()
	return bs.bx.StatusXact(r.BleHdr, r)
}
