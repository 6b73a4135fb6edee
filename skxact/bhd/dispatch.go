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
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

type OpTypePair struct {
	Op   MsgOp
	Type MsgType
}

// Identifies the messages a listener wants.  -1 (BLE_SEQ_NONE for Seq) is a
// wildcard.
type BleMsgBase struct {
	Op         MsgOp   `json:"op"`
	Type       MsgType `json:"type"`
	Seq        BleSeq  `json:"seq"`
	ConnHandle int     `json:"conn_handle"`
}

func SeqKey(seq BleSeq) BleMsgBase {
	return BleMsgBase{
		Op:         -1,
		Type:       -1,
		Seq:        seq,
		ConnHandle: -1,
	}
}

func EvtKey(msgType MsgType) BleMsgBase {
	return BleMsgBase{
		Op:         MSG_OP_EVT,
		Type:       msgType,
		Seq:        BLE_SEQ_NONE,
		ConnHandle: -1,
	}
}

type Listener struct {
	MsgChan chan BleMsg
	ErrChan chan error
}

func NewListener() *Listener {
	return &Listener{
		MsgChan: make(chan BleMsg, 16),
		ErrChan: make(chan error, 1),
	}
}

type Dispatcher struct {
	seqMap  map[BleSeq]*Listener
	baseMap map[BleMsgBase]*Listener
	mtx     sync.Mutex
}

type msgCtor func() BleMsg

func errRspCtor() BleMsg         { return &BleErrRsp{} }
func syncRspCtor() BleMsg        { return &BleSyncRsp{} }
func statusRspCtor() BleMsg      { return &BleStatusRsp{} }
func genRandAddrRspCtor() BleMsg { return &BleGenRandAddrRsp{} }
func advFieldsRspCtor() BleMsg   { return &BleAdvFieldsRsp{} }
func connFindRspCtor() BleMsg    { return &BleConnFindRsp{} }

func syncEvtCtor() BleMsg        { return &BleSyncEvt{} }
func resetEvtCtor() BleMsg       { return &BleResetEvt{} }
func connectEvtCtor() BleMsg     { return &BleConnectEvt{} }
func disconnectEvtCtor() BleMsg  { return &BleDisconnectEvt{} }
func scanEvtCtor() BleMsg        { return &BleScanEvt{} }
func scanTmoEvtCtor() BleMsg     { return &BleScanTmoEvt{} }
func advCompleteEvtCtor() BleMsg { return &BleAdvCompleteEvt{} }
func connUpdateEvtCtor() BleMsg  { return &BleConnUpdateEvt{} }

var msgCtorMap = map[OpTypePair]msgCtor{
	{MSG_OP_RSP, MSG_TYPE_ERR}:           errRspCtor,
	{MSG_OP_RSP, MSG_TYPE_SYNC}:          syncRspCtor,
	{MSG_OP_RSP, MSG_TYPE_RESET}:         statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_CONNECT}:       statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_TERMINATE}:     statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_CONN_CANCEL}:   statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_SCAN}:          statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_SCAN_CANCEL}:   statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_ADV_START}:     statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_ADV_STOP}:      statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_SET_RAND_ADDR}: statusRspCtor,
	{MSG_OP_RSP, MSG_TYPE_GEN_RAND_ADDR}: genRandAddrRspCtor,
	{MSG_OP_RSP, MSG_TYPE_ADV_FIELDS}:    advFieldsRspCtor,
	{MSG_OP_RSP, MSG_TYPE_CONN_FIND}:     connFindRspCtor,

	{MSG_OP_EVT, MSG_TYPE_SYNC_EVT}:         syncEvtCtor,
	{MSG_OP_EVT, MSG_TYPE_RESET_EVT}:        resetEvtCtor,
	{MSG_OP_EVT, MSG_TYPE_CONNECT_EVT}:      connectEvtCtor,
	{MSG_OP_EVT, MSG_TYPE_DISCONNECT_EVT}:   disconnectEvtCtor,
	{MSG_OP_EVT, MSG_TYPE_SCAN_EVT}:         scanEvtCtor,
	{MSG_OP_EVT, MSG_TYPE_SCAN_TMO_EVT}:     scanTmoEvtCtor,
	{MSG_OP_EVT, MSG_TYPE_ADV_COMPLETE_EVT}: advCompleteEvtCtor,
	{MSG_OP_EVT, MSG_TYPE_CONN_UPDATE_EVT}:  connUpdateEvtCtor,
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		seqMap:  map[BleSeq]*Listener{},
		baseMap: map[BleMsgBase]*Listener{},
	}
}

func (d *Dispatcher) findBaseListener(base BleMsgBase) (
	BleMsgBase, *Listener) {

	for k, v := range d.baseMap {
		if k.Op != -1 && base.Op != -1 && k.Op != base.Op {
			continue
		}
		if k.Type != -1 && base.Type != -1 && k.Type != base.Type {
			continue
		}
		if k.ConnHandle != -1 && base.ConnHandle != -1 &&
			k.ConnHandle != base.ConnHandle {

			continue
		}

		return k, v
	}

	return base, nil
}

func (d *Dispatcher) findListener(base BleMsgBase) (BleMsgBase, *Listener) {
	if base.Seq != BLE_SEQ_NONE {
		if l := d.seqMap[base.Seq]; l != nil {
			return base, l
		}
	}

	return d.findBaseListener(base)
}

func (d *Dispatcher) AddListener(base BleMsgBase, l *Listener) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if base.Seq != BLE_SEQ_NONE {
		if base.Op != -1 || base.Type != -1 || base.ConnHandle != -1 {
			return fmt.Errorf(
				"Invalid listener base; non-wild seq with wild fields")
		}
		if d.seqMap[base.Seq] != nil {
			return fmt.Errorf("Duplicate BLE listener; seq=%d", base.Seq)
		}

		d.seqMap[base.Seq] = l
		return nil
	}

	if ob, old := d.findBaseListener(base); old != nil {
		return fmt.Errorf(
			"Duplicate BLE listener; old=op=%d type=%d connHandle=%d "+
				"new=op=%d type=%d connHandle=%d",
			ob.Op, ob.Type, ob.ConnHandle,
			base.Op, base.Type, base.ConnHandle)
	}

	d.baseMap[base] = l
	return nil
}

func (d *Dispatcher) RemoveListener(base BleMsgBase) *Listener {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if base.Seq != BLE_SEQ_NONE {
		l := d.seqMap[base.Seq]
		delete(d.seqMap, base.Seq)
		return l
	}

	l := d.baseMap[base]
	delete(d.baseMap, base)
	return l
}

func decodeBleBase(data []byte) (BleMsgBase, error) {
	// Events normally omit the sequence number and connection handle.
	base := BleMsgBase{
		Seq:        BLE_SEQ_NONE,
		ConnHandle: -1,
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return base, err
	}

	return base, nil
}

func DecodeBleMsg(data []byte) (BleMsgBase, BleMsg, error) {
	base, err := decodeBleBase(data)
	if err != nil {
		return base, nil, err
	}

	cb := msgCtorMap[OpTypePair{base.Op, base.Type}]
	if cb == nil {
		return base, nil, fmt.Errorf(
			"Unrecognized op+type pair: %s, %s",
			MsgOpToString(base.Op), MsgTypeToString(base.Type))
	}

	msg := cb()
	if err := json.Unmarshal(data, msg); err != nil {
		return base, nil, err
	}

	return base, msg, nil
}

func (d *Dispatcher) Dispatch(data []byte) {
	base, msg, err := DecodeBleMsg(data)
	if err != nil {
		log.Warnf("BLE dispatch error: %s", err.Error())
		return
	}

	d.mtx.Lock()
	_, l := d.findListener(base)
	d.mtx.Unlock()

	if l == nil {
		log.Debugf(
			"No BLE listener for op=%s type=%s seq=%d connHandle=%d",
			MsgOpToString(base.Op), MsgTypeToString(base.Type),
			base.Seq, base.ConnHandle)
		return
	}

	l.MsgChan <- msg
}

// ErrorAll reports err to every listener and forgets them all.
func (d *Dispatcher) ErrorAll(err error) {
	d.mtx.Lock()

	listeners := make([]*Listener, 0, len(d.seqMap)+len(d.baseMap))
	for _, v := range d.seqMap {
		listeners = append(listeners, v)
	}
	for _, v := range d.baseMap {
		listeners = append(listeners, v)
	}

	d.seqMap = map[BleSeq]*Listener{}
	d.baseMap = map[BleMsgBase]*Listener{}

	d.mtx.Unlock()

	for _, l := range listeners {
		select {
		case l.ErrChan <- err:
		default:
		}
	}
}
