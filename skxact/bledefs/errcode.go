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

// Host status codes, as reported by the NimBLE host.
const ERR_CODE_ATT_BASE = 0x100
const ERR_CODE_HCI_BASE = 0x200
const ERR_CODE_L2C_BASE = 0x300
const ERR_CODE_SM_US_BASE = 0x400
const ERR_CODE_SM_PEER_BASE = 0x500

const (
	ERR_CODE_EAGAIN       int = 1
	ERR_CODE_EALREADY         = 2
	ERR_CODE_EINVAL           = 3
	ERR_CODE_EMSGSIZE         = 4
	ERR_CODE_ENOENT           = 5
	ERR_CODE_ENOMEM           = 6
	ERR_CODE_ENOTCONN         = 7
	ERR_CODE_ENOTSUP          = 8
	ERR_CODE_EAPP             = 9
	ERR_CODE_EBADDATA         = 10
	ERR_CODE_EOS              = 11
	ERR_CODE_ECONTROLLER      = 12
	ERR_CODE_ETIMEOUT         = 13
	ERR_CODE_EDONE            = 14
	ERR_CODE_EBUSY            = 15
	ERR_CODE_EREJECT          = 16
	ERR_CODE_EUNKNOWN         = 17
	ERR_CODE_EROLE            = 18
	ERR_CODE_ETIMEOUT_HCI     = 19
	ERR_CODE_ENOMEM_EVT       = 20
	ERR_CODE_ENOADDR          = 21
	ERR_CODE_ENOTSYNCED       = 22
)

var ErrCodeStringMap = map[int]string{
	ERR_CODE_EAGAIN:       "eagain",
	ERR_CODE_EALREADY:     "ealready",
	ERR_CODE_EINVAL:       "einval",
	ERR_CODE_EMSGSIZE:     "emsgsize",
	ERR_CODE_ENOENT:       "enoent",
	ERR_CODE_ENOMEM:       "enomem",
	ERR_CODE_ENOTCONN:     "enotconn",
	ERR_CODE_ENOTSUP:      "enotsup",
	ERR_CODE_EAPP:         "eapp",
	ERR_CODE_EBADDATA:     "ebaddata",
	ERR_CODE_EOS:          "eos",
	ERR_CODE_ECONTROLLER:  "econtroller",
	ERR_CODE_ETIMEOUT:     "etimeout",
	ERR_CODE_EDONE:        "edone",
	ERR_CODE_EBUSY:        "ebusy",
	ERR_CODE_EREJECT:      "ereject",
	ERR_CODE_EUNKNOWN:     "eunknown",
	ERR_CODE_EROLE:        "erole",
	ERR_CODE_ETIMEOUT_HCI: "etimeout_hci",
	ERR_CODE_ENOMEM_EVT:   "enomem_evt",
	ERR_CODE_ENOADDR:      "enoaddr",
	ERR_CODE_ENOTSYNCED:   "enotsynced",
}

// HCI reason codes the link layer reports for disconnects and failed
// connects (offset by ERR_CODE_HCI_BASE when carried as a host status).
const (
	ERR_CODE_HCI_UNK_CONN_ID          int = 0x02
	ERR_CODE_HCI_AUTH_FAIL                = 0x05
	ERR_CODE_HCI_CONN_SPVN_TMO            = 0x08
	ERR_CODE_HCI_CONN_LIMIT               = 0x09
	ERR_CODE_HCI_CMD_DISALLOWED           = 0x0c
	ERR_CODE_HCI_CONN_ACCEPT_TMO          = 0x10
	ERR_CODE_HCI_UNSUPPORTED              = 0x11
	ERR_CODE_HCI_INV_HCI_CMD_PARMS        = 0x12
	ERR_CODE_HCI_REM_USER_CONN_TERM       = 0x13
	ERR_CODE_HCI_RD_CONN_TERM_RESRCS      = 0x14
	ERR_CODE_HCI_RD_CONN_TERM_PWROFF      = 0x15
	ERR_CODE_HCI_CONN_TERM_LOCAL          = 0x16
	ERR_CODE_HCI_UNSPECIFIED              = 0x1f
	ERR_CODE_HCI_LMP_LL_RSP_TMO           = 0x22
	ERR_CODE_HCI_CONN_PARMS               = 0x3b
	ERR_CODE_HCI_DIR_ADV_TMO              = 0x3c
	ERR_CODE_HCI_CONN_TERM_MIC            = 0x3d
	ERR_CODE_HCI_CONN_ESTABLISHMENT       = 0x3e
)

var HciErrCodeStringMap = map[int]string{
	ERR_CODE_HCI_UNK_CONN_ID:         "unknown connection id",
	ERR_CODE_HCI_AUTH_FAIL:           "auth fail",
	ERR_CODE_HCI_CONN_SPVN_TMO:       "connection supervision timeout",
	ERR_CODE_HCI_CONN_LIMIT:          "conn limit",
	ERR_CODE_HCI_CMD_DISALLOWED:      "cmd disallowed",
	ERR_CODE_HCI_CONN_ACCEPT_TMO:     "conn accept tmo",
	ERR_CODE_HCI_UNSUPPORTED:         "unsupported",
	ERR_CODE_HCI_INV_HCI_CMD_PARMS:   "inv hci cmd parms",
	ERR_CODE_HCI_REM_USER_CONN_TERM:  "rem user conn term",
	ERR_CODE_HCI_RD_CONN_TERM_RESRCS: "rd conn term resrcs",
	ERR_CODE_HCI_RD_CONN_TERM_PWROFF: "rd conn term pwroff",
	ERR_CODE_HCI_CONN_TERM_LOCAL:     "conn term local",
	ERR_CODE_HCI_UNSPECIFIED:         "unspecified",
	ERR_CODE_HCI_LMP_LL_RSP_TMO:      "lmp ll rsp tmo",
	ERR_CODE_HCI_CONN_PARMS:          "conn parms",
	ERR_CODE_HCI_DIR_ADV_TMO:         "dir adv tmo",
	ERR_CODE_HCI_CONN_TERM_MIC:       "conn term mic",
	ERR_CODE_HCI_CONN_ESTABLISHMENT:  "conn establishment",
}

func ErrCodeToString(e int) string {
	var s string

	switch {
	case e >= ERR_CODE_SM_PEER_BASE:
	case e >= ERR_CODE_SM_US_BASE:
	case e >= ERR_CODE_L2C_BASE:
	case e >= ERR_CODE_HCI_BASE:
		s = HciErrCodeStringMap[e-ERR_CODE_HCI_BASE]

	case e >= ERR_CODE_ATT_BASE:
	default:
		s = ErrCodeStringMap[e]
	}

	if s == "" {
		s = "unknown"
	}

	return s
}
