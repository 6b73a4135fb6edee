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
	"encoding/json"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/skynet/skxact/skxutil"
)

type XportCfg struct {
	// Path of Unix domain socket to create and listen on.
	SockPath string

	// Path of the blehostd executable.
	BlehostdPath string

	// Path of the BLE controller device (e.g., /dev/ttyUSB0).
	DevPath string

	// How long to wait for host <-> controller sync on startup.
	SyncTimeout time.Duration

	// How long to wait for blehostd to answer a request.
	RspTimeout time.Duration
}

func NewXportCfg() XportCfg {
	return XportCfg{
		SockPath:     "/tmp/blehostd-uds",
		BlehostdPath: "blehostd",
		SyncTimeout:  10 * time.Second,
		RspTimeout:   10 * time.Second,
	}
}

type BhdXportState uint32

const (
	BHD_XPORT_STATE_STOPPED BhdXportState = iota
	BHD_XPORT_STATE_STARTING
	BHD_XPORT_STATE_STARTED
)

// BhdXport exchanges blehostd messages over a Link and routes what comes
// back through its dispatcher.
type BhdXport struct {
	Bd    *Dispatcher
	link  Link
	state BhdXportState
	cfg   XportCfg
}

func NewBhdXport(link Link, cfg XportCfg) *BhdXport {
	return &BhdXport{
		Bd:   NewDispatcher(),
		link: link,
		cfg:  cfg,
	}
}

func NewChildXport(cfg XportCfg) *BhdXport {
	return NewBhdXport(NewChildLink(cfg), cfg)
}

func (bx *BhdXport) setStateFrom(from BhdXportState, to BhdXportState) bool {
	return atomic.CompareAndSwapUint32(
		(*uint32)(&bx.state), uint32(from), uint32(to))
}

func (bx *BhdXport) getState() BhdXportState {
	u32 := atomic.LoadUint32((*uint32)(&bx.state))
	return BhdXportState(u32)
}

func (bx *BhdXport) onError(err error) {
	if !bx.setStateFrom(BHD_XPORT_STATE_STARTED, BHD_XPORT_STATE_STOPPED) &&
		!bx.setStateFrom(BHD_XPORT_STATE_STARTING, BHD_XPORT_STATE_STOPPED) {

		// Already stopped.
		return
	}

	log.Debugf("Shutting down blehostd transport: %s", err.Error())
	bx.Bd.ErrorAll(err)
	bx.link.Stop()
}

func (bx *BhdXport) Stop() error {
	bx.onError(skxutil.NewXportError("blehostd transport stopped"))
	return nil
}

// Start brings up the link and waits for the host and controller to sync.
func (bx *BhdXport) Start() error {
	if !bx.setStateFrom(BHD_XPORT_STATE_STOPPED, BHD_XPORT_STATE_STARTING) {
		return skxutil.NewXportError("blehostd transport started twice")
	}

	if err := bx.link.Start(); err != nil {
		bx.setStateFrom(BHD_XPORT_STATE_STARTING, BHD_XPORT_STATE_STOPPED)
		return err
	}

	go func() {
		for {
			buf, err := bx.link.Rx()
			if err != nil {
				bx.onError(err)
				return
			}
			if len(buf) != 0 {
				if skxutil.Debugging() {
					log.Debugf("Rx from blehostd: %s", buf)
				}
				bx.Bd.Dispatch(buf)
			}
		}
	}()

	syncl := NewListener()
	syncKey := EvtKey(MSG_TYPE_SYNC_EVT)
	if err := bx.Bd.AddListener(syncKey, syncl); err != nil {
		bx.Stop()
		return err
	}
	defer bx.Bd.RemoveListener(syncKey)

	synced, err := bx.querySyncStatus()
	if err != nil {
		bx.Stop()
		return err
	}

	if !synced {
		tmoChan := time.After(bx.cfg.SyncTimeout)

	SyncLoop:
		for {
			select {
			case err := <-syncl.ErrChan:
				return err
			case bm := <-syncl.MsgChan:
				if msg, ok := bm.(*BleSyncEvt); ok && msg.Synced {
					break SyncLoop
				}
			case <-tmoChan:
				bx.Stop()
				return skxutil.NewXportError(
					"Timeout waiting for host <-> controller sync")
			}
		}
	}

	if !bx.setStateFrom(BHD_XPORT_STATE_STARTING, BHD_XPORT_STATE_STARTED) {
		return skxutil.NewXportError(
			"Internal error; blehostd transport in unexpected state")
	}

	return nil
}

func (bx *BhdXport) querySyncStatus() (bool, error) {
	req := NewSyncReq()
	rsp, err := bx.txRx(req.BleHdr, req, false)
	if err != nil {
		return false, err
	}

	srsp, ok := rsp.(*BleSyncRsp)
	if !ok {
		return false, skxutil.FmtXportError(
			"unexpected response to sync request: %T", rsp)
	}

	return srsp.Synced, nil
}

func (bx *BhdXport) Tx(data []byte) error {
	if bx.getState() != BHD_XPORT_STATE_STARTED {
		return skxutil.NewXportError("Attempt to transmit before blehostd " +
			"transport fully started")
	}

	if skxutil.Debugging() {
		log.Debugf("Tx to blehostd: %s", data)
	}
	return bx.link.Tx(data)
}

// TxRx sends a request and waits for the response with the same sequence
// number.  An error response is converted to a BleHostError.
func (bx *BhdXport) TxRx(hdr BleHdr, req interface{}) (BleMsg, error) {
	return bx.txRx(hdr, req, true)
}

func (bx *BhdXport) txRx(hdr BleHdr, req interface{},
	requireStarted bool) (BleMsg, error) {

	j, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	l := NewListener()
	key := SeqKey(hdr.Seq)
	if err := bx.Bd.AddListener(key, l); err != nil {
		return nil, err
	}
	defer bx.Bd.RemoveListener(key)

	if requireStarted {
		err = bx.Tx(j)
	} else {
		err = bx.link.Tx(j)
	}
	if err != nil {
		return nil, err
	}

	tmr := time.NewTimer(bx.cfg.RspTimeout)
	defer skxutil.StopAndDrainTimer(tmr)

	select {
	case err := <-l.ErrChan:
		return nil, err

	case bm := <-l.MsgChan:
		if ersp, ok := bm.(*BleErrRsp); ok {
			return nil, StatusError(MSG_OP_RSP, hdr.Type, ersp.Status)
		}
		return bm, nil

	case <-tmr.C:
		return nil, BhdTimeoutError(hdr.Type, hdr.Seq)
	}
}

// StatusXact performs a request whose response only carries a status.
func (bx *BhdXport) StatusXact(hdr BleHdr, req interface{}) error {
	rsp, err := bx.TxRx(hdr, req)
	if err != nil {
		return err
	}

	srsp, ok := rsp.(*BleStatusRsp)
	if !ok {
		return skxutil.FmtXportError(
			"unexpected response to %s request: %T",
			MsgTypeToString(hdr.Type), rsp)
	}
	if srsp.Status != 0 {
		return StatusError(MSG_OP_RSP, hdr.Type, srsp.Status)
	}

	return nil
}
