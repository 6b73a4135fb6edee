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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	. "mynewt.apache.org/skynet/skxact/bledefs"
)

type MsgOp int
type MsgType int

type BleSeq uint32

// Byte strings travel as colon-separated hex ("0x01:0x02").
type BleBytes struct {
	Bytes []byte
}

const BLE_SEQ_MIN BleSeq = 0
const BLE_SEQ_EVT_MIN BleSeq = 0xffffff00
const BLE_SEQ_NONE BleSeq = 0xffffffff

const (
	MSG_OP_REQ MsgOp = 0
	MSG_OP_RSP       = 1
	MSG_OP_EVT       = 2
)

// Values match the blehostd source.  Only the requests and events a link
// controller needs are listed.
const (
	MSG_TYPE_ERR           MsgType = 1
	MSG_TYPE_SYNC                  = 2
	MSG_TYPE_CONNECT               = 3
	MSG_TYPE_TERMINATE             = 4
	MSG_TYPE_GEN_RAND_ADDR         = 12
	MSG_TYPE_SET_RAND_ADDR         = 13
	MSG_TYPE_CONN_CANCEL           = 14
	MSG_TYPE_SCAN                  = 15
	MSG_TYPE_SCAN_CANCEL           = 16
	MSG_TYPE_CONN_FIND             = 19
	MSG_TYPE_RESET                 = 20
	MSG_TYPE_ADV_START             = 21
	MSG_TYPE_ADV_STOP              = 22
	MSG_TYPE_ADV_FIELDS            = 25

	MSG_TYPE_SYNC_EVT         = 2049
	MSG_TYPE_CONNECT_EVT      = 2050
	MSG_TYPE_DISCONNECT_EVT   = 2051
	MSG_TYPE_SCAN_EVT         = 2057
	MSG_TYPE_SCAN_TMO_EVT     = 2058
	MSG_TYPE_RESET_EVT        = 2060
	MSG_TYPE_ADV_COMPLETE_EVT = 2061
	MSG_TYPE_CONN_UPDATE_EVT  = 2062
)

var MsgOpStringMap = map[MsgOp]string{
	MSG_OP_REQ: "request",
	MSG_OP_RSP: "response",
	MSG_OP_EVT: "event",
}

var MsgTypeStringMap = map[MsgType]string{
	MSG_TYPE_ERR:           "error",
	MSG_TYPE_SYNC:          "sync",
	MSG_TYPE_CONNECT:       "connect",
	MSG_TYPE_TERMINATE:     "terminate",
	MSG_TYPE_GEN_RAND_ADDR: "gen_rand_addr",
	MSG_TYPE_SET_RAND_ADDR: "set_rand_addr",
	MSG_TYPE_CONN_CANCEL:   "conn_cancel",
	MSG_TYPE_SCAN:          "scan",
	MSG_TYPE_SCAN_CANCEL:   "scan_cancel",
	MSG_TYPE_CONN_FIND:     "conn_find",
	MSG_TYPE_RESET:         "reset",
	MSG_TYPE_ADV_START:     "adv_start",
	MSG_TYPE_ADV_STOP:      "adv_stop",
	MSG_TYPE_ADV_FIELDS:    "adv_fields",

	MSG_TYPE_SYNC_EVT:         "sync_evt",
	MSG_TYPE_CONNECT_EVT:      "connect_evt",
	MSG_TYPE_DISCONNECT_EVT:   "disconnect_evt",
	MSG_TYPE_SCAN_EVT:         "scan_evt",
	MSG_TYPE_SCAN_TMO_EVT:     "scan_tmo_evt",
	MSG_TYPE_RESET_EVT:        "reset_evt",
	MSG_TYPE_ADV_COMPLETE_EVT: "adv_complete_evt",
	MSG_TYPE_CONN_UPDATE_EVT:  "conn_update_evt",
}

type BleHdr struct {
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  BleSeq  `json:"seq"`
}

type BleMsg interface{}

// Responses that carry nothing but a status.
type BleStatusRsp struct {
	BleHdr

	Status int `json:"status"`
}

type BleErrRsp struct {
	BleHdr

	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

type BleSyncReq struct {
	BleHdr
}

type BleSyncRsp struct {
	BleHdr

	Synced bool `json:"synced"`
}

type BleResetReq struct {
	BleHdr
}

type BleGenRandAddrReq struct {
	BleHdr

	Nrpa bool `json:"nrpa"`
}

type BleGenRandAddrRsp struct {
	BleHdr

	Status int     `json:"status"`
	Addr   BleAddr `json:"addr"`
}

type BleSetRandAddrReq struct {
	BleHdr

	Addr BleAddr `json:"addr"`
}

type BleAdvFieldsReq struct {
	BleHdr

	// 0x01 - Flags.
	Flags *uint8 `json:"flags,omitempty"`

	// 0x08,0x09 - Local name.
	Name           *string `json:"name,omitempty"`
	NameIsComplete bool    `json:"name_is_complete"`

	// 0x0a - Tx power level.
	TxPwrLvl *int8 `json:"tx_pwr_lvl,omitempty"`

	// 0xff - Manufacturer specific data.
	MfgData []byte `json:"mfg_data,omitempty"`
}

type BleAdvFieldsRsp struct {
	BleHdr

	Status int    `json:"status"`
	Data   []byte `json:"data"`
}

type BleAdvStartReq struct {
	BleHdr

	OwnAddrType   BleAddrType        `json:"own_addr_type"`
	DurationMs    int                `json:"duration_ms"`
	ConnMode      BleAdvConnMode     `json:"conn_mode"`
	DiscMode      BleAdvDiscMode     `json:"disc_mode"`
	ItvlMin       uint16             `json:"itvl_min"`
	ItvlMax       uint16             `json:"itvl_max"`
	ChannelMap    uint8              `json:"channel_map"`
	FilterPolicy  BleAdvFilterPolicy `json:"filter_policy"`
	HighDutyCycle bool               `json:"high_duty_cycle"`
}

type BleAdvStopReq struct {
	BleHdr
}

type BleScanReq struct {
	BleHdr

	OwnAddrType      BleAddrType         `json:"own_addr_type"`
	DurationMs       int                 `json:"duration_ms"`
	Itvl             uint16              `json:"itvl"`
	Window           uint16              `json:"window"`
	FilterPolicy     BleScanFilterPolicy `json:"filter_policy"`
	Limited          bool                `json:"limited"`
	Passive          bool                `json:"passive"`
	FilterDuplicates bool                `json:"filter_duplicates"`
}

type BleScanCancelReq struct {
	BleHdr
}

type BleConnectReq struct {
	BleHdr

	OwnAddrType  BleAddrType `json:"own_addr_type"`
	PeerAddrType BleAddrType `json:"peer_addr_type"`
	PeerAddr     BleAddr     `json:"peer_addr"`

	DurationMs         int    `json:"duration_ms"`
	ScanItvl           uint16 `json:"scan_itvl"`
	ScanWindow         uint16 `json:"scan_window"`
	ItvlMin            uint16 `json:"itvl_min"`
	ItvlMax            uint16 `json:"itvl_max"`
	Latency            uint16 `json:"latency"`
	SupervisionTimeout uint16 `json:"supervision_timeout"`
	MinCeLen           uint16 `json:"min_ce_len"`
	MaxCeLen           uint16 `json:"max_ce_len"`
}

type BleConnCancelReq struct {
	BleHdr
}

type BleTerminateReq struct {
	BleHdr

	ConnHandle uint16 `json:"conn_handle"`
	HciReason  int    `json:"hci_reason"`
}

type BleConnFindReq struct {
	BleHdr

	ConnHandle uint16 `json:"conn_handle"`
}

type BleConnFindRsp struct {
	BleHdr

	Status          int         `json:"status"`
	ConnHandle      uint16      `json:"conn_handle"`
	OwnIdAddrType   BleAddrType `json:"own_id_addr_type"`
	OwnIdAddr       BleAddr     `json:"own_id_addr"`
	OwnOtaAddrType  BleAddrType `json:"own_ota_addr_type"`
	OwnOtaAddr      BleAddr     `json:"own_ota_addr"`
	PeerIdAddrType  BleAddrType `json:"peer_id_addr_type"`
	PeerIdAddr      BleAddr     `json:"peer_id_addr"`
	PeerOtaAddrType BleAddrType `json:"peer_ota_addr_type"`
	PeerOtaAddr     BleAddr     `json:"peer_ota_addr"`
	Role            BleRole     `json:"role"`

	ConnItvl           uint16 `json:"conn_itvl"`
	ConnLatency        uint16 `json:"conn_latency"`
	SupervisionTimeout uint16 `json:"supervision_timeout"`
}

type BleSyncEvt struct {
	BleHdr

	Synced bool `json:"synced"`
}

type BleResetEvt struct {
	BleHdr

	Reason int `json:"reason"`
}

type BleConnectEvt struct {
	BleHdr

	Status     int    `json:"status"`
	ConnHandle uint16 `json:"conn_handle"`
}

type BleDisconnectEvt struct {
	BleHdr

	Reason     int    `json:"reason"`
	ConnHandle uint16 `json:"conn_handle"`

	// Present when the host still knew the connection.
	PeerIdAddrType BleAddrType `json:"peer_id_addr_type"`
	PeerIdAddr     *BleAddr    `json:"peer_id_addr,omitempty"`
}

type BleScanEvt struct {
	BleHdr

	EventType BleAdvEventType `json:"event_type"`
	AddrType  BleAddrType     `json:"addr_type"`
	Addr      BleAddr         `json:"addr"`
	Rssi      int8            `json:"rssi"`
	Data      BleBytes        `json:"data"`

	DataFlags          *uint8   `json:"data_flags"`
	DataName           *string  `json:"data_name"`
	DataNameIsComplete bool     `json:"data_name_is_complete"`
	DataTxPwrLvl       *int8    `json:"data_tx_pwr_lvl"`
	DataMfgData        BleBytes `json:"data_mfg_data"`
}

type BleScanTmoEvt struct {
	BleHdr
}

type BleAdvCompleteEvt struct {
	BleHdr

	Reason int `json:"reason"`
}

type BleConnUpdateEvt struct {
	BleHdr

	Status     int    `json:"status"`
	ConnHandle uint16 `json:"conn_handle"`
}

func MsgOpToString(op MsgOp) string {
	s := MsgOpStringMap[op]
	if s == "" {
		return "???"
	}

	return s
}

func MsgOpFromString(s string) (MsgOp, error) {
	for op, name := range MsgOpStringMap {
		if s == name {
			return op, nil
		}
	}

	return MsgOp(0), fmt.Errorf("Invalid MsgOp string: %s", s)
}

func MsgTypeToString(msgType MsgType) string {
	s := MsgTypeStringMap[msgType]
	if s == "" {
		return "???"
	}

	return s
}

func MsgTypeFromString(s string) (MsgType, error) {
	for msgType, name := range MsgTypeStringMap {
		if s == name {
			return msgType, nil
		}
	}

	return MsgType(0), fmt.Errorf("Invalid MsgType string: %s", s)
}

func (o MsgOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(MsgOpToString(o))
}

func (o *MsgOp) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*o, err = MsgOpFromString(s)
	return err
}

func (t MsgType) MarshalJSON() ([]byte, error) {
	return json.Marshal(MsgTypeToString(t))
}

func (t *MsgType) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*t, err = MsgTypeFromString(s)
	return err
}

func (bb BleBytes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(bb.Bytes) * 5)

	for i, b := range bb.Bytes {
		if i != 0 {
			buf.WriteString(":")
		}
		fmt.Fprintf(&buf, "0x%02x", b)
	}

	return json.Marshal(buf.String())
}

func (bb *BleBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if len(s) == 0 {
		bb.Bytes = nil
		return nil
	}

	toks := strings.Split(strings.ToLower(s), ":")
	bb.Bytes = make([]byte, len(toks))

	for i, t := range toks {
		if !strings.HasPrefix(t, "0x") {
			return fmt.Errorf(
				"Byte stream contains invalid token; token=%s stream=%s", t, s)
		}

		u64, err := strconv.ParseUint(t, 0, 8)
		if err != nil {
			return err
		}
		bb.Bytes[i] = byte(u64)
	}

	return nil
}
