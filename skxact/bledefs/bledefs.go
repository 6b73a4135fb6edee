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

package bledefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Advertising flags (AD type 0x01).
const (
	BLE_ADV_F_DISC_LTD     uint8 = 0x01
	BLE_ADV_F_DISC_GEN           = 0x02
	BLE_ADV_F_BREDR_UNSUP        = 0x04
)

// Requests the host to fill in the controller's TX power level.
const BLE_ADV_TX_PWR_LVL_AUTO int8 = -128

const BLE_HS_FOREVER = math.MaxInt32

type BleAddrType int

const (
	BLE_ADDR_TYPE_PUBLIC  BleAddrType = 0
	BLE_ADDR_TYPE_RANDOM              = 1
	BLE_ADDR_TYPE_RPA_PUB             = 2
	BLE_ADDR_TYPE_RPA_RND             = 3
)

var BleAddrTypeStringMap = map[BleAddrType]string{
	BLE_ADDR_TYPE_PUBLIC:  "public",
	BLE_ADDR_TYPE_RANDOM:  "random",
	BLE_ADDR_TYPE_RPA_PUB: "rpa_pub",
	BLE_ADDR_TYPE_RPA_RND: "rpa_rnd",
}

var bleAddrTypeDescMap = map[BleAddrType]string{
	BLE_ADDR_TYPE_PUBLIC:  "Public",
	BLE_ADDR_TYPE_RANDOM:  "Random",
	BLE_ADDR_TYPE_RPA_PUB: "Public ID",
	BLE_ADDR_TYPE_RPA_RND: "Random ID",
}

func BleAddrTypeToString(addrType BleAddrType) string {
	s := BleAddrTypeStringMap[addrType]
	if s == "" {
		return "???"
	}

	return s
}

func BleAddrTypeFromString(s string) (BleAddrType, error) {
	for addrType, name := range BleAddrTypeStringMap {
		if s == name {
			return addrType, nil
		}
	}

	return BleAddrType(0), fmt.Errorf("Invalid BleAddrType string: %s", s)
}

// Human readable form used in connection reports.
func BleAddrTypeDesc(addrType BleAddrType) string {
	s := bleAddrTypeDescMap[addrType]
	if s == "" {
		return "Unknown"
	}

	return s
}

func (a BleAddrType) MarshalJSON() ([]byte, error) {
	return json.Marshal(BleAddrTypeToString(a))
}

func (a *BleAddrType) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*a, err = BleAddrTypeFromString(s)
	return err
}

// Bytes are stored in display order: Bytes[0] is the most significant octet.
type BleAddr struct {
	Bytes [6]byte
}

func ParseBleAddr(s string) (BleAddr, error) {
	ba := BleAddr{}

	toks := strings.Split(strings.ToLower(s), ":")
	if len(toks) != 6 {
		return ba, fmt.Errorf("invalid BLE addr string: %s", s)
	}

	for i, t := range toks {
		u64, err := strconv.ParseUint(t, 16, 8)
		if err != nil {
			return ba, err
		}
		ba.Bytes[i] = byte(u64)
	}

	return ba, nil
}

func (ba *BleAddr) fmt(format string) string {
	var buf bytes.Buffer
	buf.Grow(len(ba.Bytes) * 3)

	for i, b := range ba.Bytes {
		if i != 0 {
			buf.WriteString(":")
		}
		fmt.Fprintf(&buf, format, b)
	}

	return buf.String()
}

func (ba *BleAddr) String() string {
	return ba.fmt("%02x")
}

// FmtAddr renders an address the way connection reports print it
// (AA:BB:CC:DD:EE:FF).
func FmtAddr(ba BleAddr) string {
	return ba.fmt("%02X")
}

func (ba *BleAddr) IsZero() bool {
	return ba.Bytes == [6]byte{}
}

func (ba *BleAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(ba.String())
}

func (ba *BleAddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*ba, err = ParseBleAddr(s)
	if err != nil {
		return err
	}

	return nil
}

type BleDev struct {
	AddrType BleAddrType
	Addr     BleAddr
}

func (bd *BleDev) String() string {
	return fmt.Sprintf("%s,%s",
		BleAddrTypeToString(bd.AddrType),
		bd.Addr.String())
}

type BleScanFilterPolicy int

const (
	BLE_SCAN_FILT_NO_WL        BleScanFilterPolicy = 0
	BLE_SCAN_FILT_USE_WL                           = 1
	BLE_SCAN_FILT_NO_WL_INITA                      = 2
	BLE_SCAN_FILT_USE_WL_INITA                     = 3
)

var BleScanFilterPolicyStringMap = map[BleScanFilterPolicy]string{
	BLE_SCAN_FILT_NO_WL:        "no_wl",
	BLE_SCAN_FILT_USE_WL:       "use_wl",
	BLE_SCAN_FILT_NO_WL_INITA:  "no_wl_inita",
	BLE_SCAN_FILT_USE_WL_INITA: "use_wl_inita",
}

func BleScanFilterPolicyToString(filtPolicy BleScanFilterPolicy) string {
	s := BleScanFilterPolicyStringMap[filtPolicy]
	if s == "" {
		return "???"
	}

	return s
}

func BleScanFilterPolicyFromString(s string) (BleScanFilterPolicy, error) {
	for filtPolicy, name := range BleScanFilterPolicyStringMap {
		if s == name {
			return filtPolicy, nil
		}
	}

	return BleScanFilterPolicy(0),
		fmt.Errorf("Invalid BleScanFilterPolicy string: %s", s)
}

func (a BleScanFilterPolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(BleScanFilterPolicyToString(a))
}

func (a *BleScanFilterPolicy) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*a, err = BleScanFilterPolicyFromString(s)
	return err
}

type BleAdvEventType int

const (
	BLE_ADV_EVENT_IND           BleAdvEventType = 0
	BLE_ADV_EVENT_DIRECT_IND_HD                 = 1
	BLE_ADV_EVENT_SCAN_IND                      = 2
	BLE_ADV_EVENT_NONCONN_IND                   = 3
	BLE_ADV_EVENT_DIRECT_IND_LD                 = 4
)

var BleAdvEventTypeStringMap = map[BleAdvEventType]string{
	BLE_ADV_EVENT_IND:           "ind",
	BLE_ADV_EVENT_DIRECT_IND_HD: "direct_ind_hd",
	BLE_ADV_EVENT_SCAN_IND:      "scan_ind",
	BLE_ADV_EVENT_NONCONN_IND:   "nonconn_ind",
	BLE_ADV_EVENT_DIRECT_IND_LD: "direct_ind_ld",
}

func BleAdvEventTypeToString(advEventType BleAdvEventType) string {
	s := BleAdvEventTypeStringMap[advEventType]
	if s == "" {
		return "???"
	}

	return s
}

func BleAdvEventTypeFromString(s string) (BleAdvEventType, error) {
	for advEventType, name := range BleAdvEventTypeStringMap {
		if s == name {
			return advEventType, nil
		}
	}

	return BleAdvEventType(0),
		fmt.Errorf("Invalid BleAdvEventType string: %s", s)
}

// Only undirected and directed connectable advertisements accept a
// connection request.
func (a BleAdvEventType) Connectable() bool {
	switch a {
	case BLE_ADV_EVENT_IND, BLE_ADV_EVENT_DIRECT_IND_HD,
		BLE_ADV_EVENT_DIRECT_IND_LD:

		return true
	default:
		return false
	}
}

func (a BleAdvEventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(BleAdvEventTypeToString(a))
}

func (a *BleAdvEventType) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*a, err = BleAdvEventTypeFromString(s)
	return err
}

type BleAdvConnMode int

const (
	BLE_ADV_CONN_MODE_NON BleAdvConnMode = iota
	BLE_ADV_CONN_MODE_DIR
	BLE_ADV_CONN_MODE_UND
)

var BleAdvConnModeStringMap = map[BleAdvConnMode]string{
	BLE_ADV_CONN_MODE_NON: "non",
	BLE_ADV_CONN_MODE_DIR: "dir",
	BLE_ADV_CONN_MODE_UND: "und",
}

func BleAdvConnModeToString(connMode BleAdvConnMode) string {
	s := BleAdvConnModeStringMap[connMode]
	if s == "" {
		return "???"
	}

	return s
}

func BleAdvConnModeFromString(s string) (BleAdvConnMode, error) {
	for advConnMode, name := range BleAdvConnModeStringMap {
		if s == name {
			return advConnMode, nil
		}
	}

	return BleAdvConnMode(0),
		fmt.Errorf("Invalid BleAdvConnMode string: %s", s)
}

func (a BleAdvConnMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(BleAdvConnModeToString(a))
}

func (a *BleAdvConnMode) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*a, err = BleAdvConnModeFromString(s)
	return err
}

type BleAdvDiscMode int

const (
	BLE_ADV_DISC_MODE_NON BleAdvDiscMode = iota
	BLE_ADV_DISC_MODE_LTD
	BLE_ADV_DISC_MODE_GEN
)

var BleAdvDiscModeStringMap = map[BleAdvDiscMode]string{
	BLE_ADV_DISC_MODE_NON: "non",
	BLE_ADV_DISC_MODE_LTD: "ltd",
	BLE_ADV_DISC_MODE_GEN: "gen",
}

func BleAdvDiscModeToString(discMode BleAdvDiscMode) string {
	s := BleAdvDiscModeStringMap[discMode]
	if s == "" {
		return "???"
	}

	return s
}

func BleAdvDiscModeFromString(s string) (BleAdvDiscMode, error) {
	for advDiscMode, name := range BleAdvDiscModeStringMap {
		if s == name {
			return advDiscMode, nil
		}
	}

	return BleAdvDiscMode(0),
		fmt.Errorf("Invalid BleAdvDiscMode string: %s", s)
}

func (a BleAdvDiscMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(BleAdvDiscModeToString(a))
}

func (a *BleAdvDiscMode) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*a, err = BleAdvDiscModeFromString(s)
	return err
}

type BleAdvFilterPolicy int

const (
	BLE_ADV_FILTER_POLICY_NONE BleAdvFilterPolicy = iota
	BLE_ADV_FILTER_POLICY_SCAN
	BLE_ADV_FILTER_POLICY_CONN
	BLE_ADV_FILTER_POLICY_BOTH
)

var BleAdvFilterPolicyStringMap = map[BleAdvFilterPolicy]string{
	BLE_ADV_FILTER_POLICY_NONE: "none",
	BLE_ADV_FILTER_POLICY_SCAN: "scan",
	BLE_ADV_FILTER_POLICY_CONN: "conn",
	BLE_ADV_FILTER_POLICY_BOTH: "both",
}

func BleAdvFilterPolicyToString(filterPolicy BleAdvFilterPolicy) string {
	s := BleAdvFilterPolicyStringMap[filterPolicy]
	if s == "" {
		return "???"
	}

	return s
}

func BleAdvFilterPolicyFromString(s string) (BleAdvFilterPolicy, error) {
	for advFilterPolicy, name := range BleAdvFilterPolicyStringMap {
		if s == name {
			return advFilterPolicy, nil
		}
	}

	return BleAdvFilterPolicy(0),
		fmt.Errorf("Invalid BleAdvFilterPolicy string: %s", s)
}

func (a BleAdvFilterPolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(BleAdvFilterPolicyToString(a))
}

func (a *BleAdvFilterPolicy) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*a, err = BleAdvFilterPolicyFromString(s)
	return err
}

type BleAdvFields struct {
	// Raw advertisement payload, if the stack reported it.
	Data []byte

	// Each field is only present if the sender included it in its
	// advertisement.
	Flags          *uint8
	Name           *string
	NameIsComplete bool
	TxPwrLvl       *int8
	MfgData        []byte
}

type BleAdvReport struct {
	// These fields are always present.
	EventType BleAdvEventType
	Sender    BleDev
	Rssi      int8

	Fields BleAdvFields
}

type BleRole int

const (
	BLE_ROLE_MASTER BleRole = iota
	BLE_ROLE_SLAVE
)

var BleRoleStringMap = map[BleRole]string{
	BLE_ROLE_MASTER: "master",
	BLE_ROLE_SLAVE:  "slave",
}

func BleRoleToString(role BleRole) string {
	s := BleRoleStringMap[role]
	if s == "" {
		return "???"
	}

	return s
}

func BleRoleFromString(s string) (BleRole, error) {
	for role, name := range BleRoleStringMap {
		if s == name {
			return role, nil
		}
	}

	return BleRole(0), fmt.Errorf("Invalid BleRole string: %s", s)
}

func (r BleRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(BleRoleToString(r))
}

func (r *BleRole) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*r, err = BleRoleFromString(s)
	return err
}

type BleConnDesc struct {
	ConnHandle      uint16
	OwnIdAddrType   BleAddrType
	OwnIdAddr       BleAddr
	OwnOtaAddrType  BleAddrType
	OwnOtaAddr      BleAddr
	PeerIdAddrType  BleAddrType
	PeerIdAddr      BleAddr
	PeerOtaAddrType BleAddrType
	PeerOtaAddr     BleAddr
	Role            BleRole

	// Connection interval, in 1.25 ms units.
	ConnItvl uint16
	// Peripheral latency, in connection events.
	ConnLatency uint16
	// Supervision timeout, in 10 ms units.
	SupervisionTimeout uint16
}

func (d *BleConnDesc) String() string {
	return fmt.Sprintf("conn_handle=%d "+
		"own_id_addr=%s,%s own_ota_addr=%s,%s "+
		"peer_id_addr=%s,%s peer_ota_addr=%s,%s",
		d.ConnHandle,
		BleAddrTypeToString(d.OwnIdAddrType),
		d.OwnIdAddr.String(),
		BleAddrTypeToString(d.OwnOtaAddrType),
		d.OwnOtaAddr.String(),
		BleAddrTypeToString(d.PeerIdAddrType),
		d.PeerIdAddr.String(),
		BleAddrTypeToString(d.PeerOtaAddrType),
		d.PeerOtaAddr.String())
}

func (d *BleConnDesc) PeerDev() BleDev {
	return BleDev{
		AddrType: d.PeerIdAddrType,
		Addr:     d.PeerIdAddr,
	}
}

func (d *BleConnDesc) ConnItvlMs() float64 {
	return float64(d.ConnItvl) * 1.25
}

func (d *BleConnDesc) SupervisionTimeoutMs() int {
	return int(d.SupervisionTimeout) * 10
}

// Multi-line connection report.  The role line is only meaningful to a
// device that can play either role, so callers opt in to it.
func (d *BleConnDesc) Report(withRole bool) []string {
	lines := []string{
		fmt.Sprintf("Connection Handle: %d", d.ConnHandle),
		fmt.Sprintf("Peer Address: %s (%s)",
			FmtAddr(d.PeerIdAddr), BleAddrTypeDesc(d.PeerIdAddrType)),
		fmt.Sprintf("Connection Interval: %.2f ms", d.ConnItvlMs()),
		fmt.Sprintf("Slave Latency: %d", d.ConnLatency),
		fmt.Sprintf("Supervision Timeout: %d ms", d.SupervisionTimeoutMs()),
	}

	if withRole {
		role := "Peripheral"
		if d.Role == BLE_ROLE_MASTER {
			role = "Central"
		}
		lines = append(lines, "Role: "+role)
	}

	return lines
}

// Parameters for undirected advertising.  Intervals are in 0.625 ms units.
type BleAdvParams struct {
	ConnMode     BleAdvConnMode
	DiscMode     BleAdvDiscMode
	ItvlMin      uint16
	ItvlMax      uint16
	FilterPolicy BleAdvFilterPolicy
	DurationMs   int

	Fields BleAdvFields
}

// Intervals and windows are in 0.625 ms units.
type BleScanParams struct {
	DurationMs       int
	Itvl             uint16
	Window           uint16
	FilterPolicy     BleScanFilterPolicy
	Limited          bool
	Passive          bool
	FilterDuplicates bool
}

type BleConnParams struct {
	DurationMs int

	// 0.625 ms units.
	ScanItvl   uint16
	ScanWindow uint16

	// 1.25 ms units.
	ItvlMin uint16
	ItvlMax uint16

	Latency uint16

	// 10 ms units.
	SupervisionTimeout uint16

	MinCeLen uint16
	MaxCeLen uint16
}
