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
	"mynewt.apache.org/skynet/skxact/skxutil"
)

var nextSeq BleSeq
var seqMtx sync.Mutex

func NextSeq() BleSeq {
	seqMtx.Lock()
	defer seqMtx.Unlock()

	seq := nextSeq
	nextSeq++
	if nextSeq >= BLE_SEQ_EVT_MIN {
		nextSeq = BLE_SEQ_MIN
	}

	return seq
}

func newHdr(msgType MsgType) BleHdr {
	return BleHdr{
		Op:   MSG_OP_REQ,
		Type: msgType,
		Seq:  NextSeq(),
	}
}

func BhdTimeoutError(rspType MsgType, seq BleSeq) error {
	str := fmt.Sprintf(
		"Timeout waiting for blehostd to send %s response (seq=%d)",
		MsgTypeToString(rspType), seq)

	log.Debug(str)
	return skxutil.NewRspTimeoutError(str)
}

func StatusError(op MsgOp, msgType MsgType, status int) error {
	str := fmt.Sprintf("%s %s indicates error: %s (%d)",
		MsgOpToString(op),
		MsgTypeToString(msgType),
		ErrCodeToString(status),
		status)

	log.Debug(str)
	return skxutil.NewBleHostError(status, str)
}

func BleDescFromConnFindRsp(r *BleConnFindRsp) BleConnDesc {
	return BleConnDesc{
		ConnHandle:      r.ConnHandle,
		OwnIdAddrType:   r.OwnIdAddrType,
		OwnIdAddr:       r.OwnIdAddr,
		OwnOtaAddrType:  r.OwnOtaAddrType,
		OwnOtaAddr:      r.OwnOtaAddr,
		PeerIdAddrType:  r.PeerIdAddrType,
		PeerIdAddr:      r.PeerIdAddr,
		PeerOtaAddrType: r.PeerOtaAddrType,
		PeerOtaAddr:     r.PeerOtaAddr,
		Role:            r.Role,

		ConnItvl:           r.ConnItvl,
		ConnLatency:        r.ConnLatency,
		SupervisionTimeout: r.SupervisionTimeout,
	}
}

func BleAdvReportFromScanEvt(e *BleScanEvt) BleAdvReport {
	return BleAdvReport{
		EventType: e.EventType,
		Sender: BleDev{
			AddrType: e.AddrType,
			Addr:     e.Addr,
		},
		Rssi: e.Rssi,

		Fields: BleAdvFields{
			Data: e.Data.Bytes,

			Flags:          e.DataFlags,
			Name:           e.DataName,
			NameIsComplete: e.DataNameIsComplete,
			TxPwrLvl:       e.DataTxPwrLvl,
			MfgData:        e.DataMfgData.Bytes,
		},
	}
}

func NewSyncReq() *BleSyncReq {
	return &BleSyncReq{BleHdr: newHdr(MSG_TYPE_SYNC)}
}

func NewResetReq() *BleResetReq {
	return &BleResetReq{BleHdr: newHdr(MSG_TYPE_RESET)}
}

func NewBleGenRandAddrReq() *BleGenRandAddrReq {
	return &BleGenRandAddrReq{BleHdr: newHdr(MSG_TYPE_GEN_RAND_ADDR)}
}

func NewBleSetRandAddrReq() *BleSetRandAddrReq {
	return &BleSetRandAddrReq{BleHdr: newHdr(MSG_TYPE_SET_RAND_ADDR)}
}

func NewBleAdvFieldsReq(f BleAdvFields) *BleAdvFieldsReq {
	return &BleAdvFieldsReq{
		BleHdr: newHdr(MSG_TYPE_ADV_FIELDS),

		Flags:          f.Flags,
		Name:           f.Name,
		NameIsComplete: f.NameIsComplete,
		TxPwrLvl:       f.TxPwrLvl,
		MfgData:        f.MfgData,
	}
}

func NewBleAdvStartReq(own BleAddrType, p BleAdvParams) *BleAdvStartReq {
	return &BleAdvStartReq{
		BleHdr: newHdr(MSG_TYPE_ADV_START),

		OwnAddrType:  own,
		DurationMs:   p.DurationMs,
		ConnMode:     p.ConnMode,
		DiscMode:     p.DiscMode,
		ItvlMin:      p.ItvlMin,
		ItvlMax:      p.ItvlMax,
		FilterPolicy: p.FilterPolicy,
	}
}

func NewBleAdvStopReq() *BleAdvStopReq {
	return &BleAdvStopReq{BleHdr: newHdr(MSG_TYPE_ADV_STOP)}
}

func NewBleScanReq(own BleAddrType, p BleScanParams) *BleScanReq {
	return &BleScanReq{
		BleHdr: newHdr(MSG_TYPE_SCAN),

		OwnAddrType:      own,
		DurationMs:       p.DurationMs,
		Itvl:             p.Itvl,
		Window:           p.Window,
		FilterPolicy:     p.FilterPolicy,
		Limited:          p.Limited,
		Passive:          p.Passive,
		FilterDuplicates: p.FilterDuplicates,
	}
}

func NewBleScanCancelReq() *BleScanCancelReq {
	return &BleScanCancelReq{BleHdr: newHdr(MSG_TYPE_SCAN_CANCEL)}
}

func NewBleConnectReq(own BleAddrType, peer BleDev,
	p BleConnParams) *BleConnectReq {

	return &BleConnectReq{
		BleHdr: newHdr(MSG_TYPE_CONNECT),

		OwnAddrType:  own,
		PeerAddrType: peer.AddrType,
		PeerAddr:     peer.Addr,

		DurationMs:         p.DurationMs,
		ScanItvl:           p.ScanItvl,
		ScanWindow:         p.ScanWindow,
		ItvlMin:            p.ItvlMin,
		ItvlMax:            p.ItvlMax,
		Latency:            p.Latency,
		SupervisionTimeout: p.SupervisionTimeout,
		MinCeLen:           p.MinCeLen,
		MaxCeLen:           p.MaxCeLen,
	}
}

func NewBleConnCancelReq() *BleConnCancelReq {
	return &BleConnCancelReq{BleHdr: newHdr(MSG_TYPE_CONN_CANCEL)}
}

func NewBleTerminateReq(connHandle uint16, hciReason int) *BleTerminateReq {
	return &BleTerminateReq{
		BleHdr: newHdr(MSG_TYPE_TERMINATE),

		ConnHandle: connHandle,
		HciReason:  hciReason,
	}
}

func NewBleConnFindReq(connHandle uint16) *BleConnFindReq {
	return &BleConnFindReq{
		BleHdr: newHdr(MSG_TYPE_CONN_FIND),

		ConnHandle: connHandle,
	}
}
