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

package oic

import (
	"github.com/google/uuid"
	"github.com/runtimeco/go-coap"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"mynewt.apache.org/skynet/skxact/kvstore"
	"mynewt.apache.org/skynet/skxact/link"
)

const (
	URI_LED    = "/led"
	URI_STRING = "/string"
	URI_BLE    = "/ble"
	URI_DEVICE = "/oic/d"
)

type Indicator interface {
	Set(on bool)
	IsOn() bool
}

type StringStore interface {
	Get() string
	Save(val string) error
	Delete() error
}

type LedRsp struct {
	State string `codec:"state"`
}

type StringRsp struct {
	Value string `codec:"value"`
}

type BleRsp struct {
	Role       string `codec:"role"`
	State      string `codec:"state"`
	ConnHandle int    `codec:"conn_handle"`
	Peer       string `codec:"peer"`
}

type DeviceRsp struct {
	Name string `codec:"n"`
	Id   string `codec:"di"`
}

func NewLedResource(led Indicator) Resource {
	return NewCborResource(URI_LED,
		func(uri string) (coap.COAPCode, interface{}) {
			state := "off"
			if led.IsOn() {
				state = "on"
			}
			return coap.Content, LedRsp{State: state}
		},

		func(uri string, val map[string]interface{}) coap.COAPCode {
			state, err := cast.ToStringE(val["state"])
			if err != nil {
				return coap.BadRequest
			}

			switch state {
			case "on":
				led.Set(true)
			case "off":
				led.Set(false)
			default:
				return coap.BadRequest
			}
			return coap.Changed
		},

		nil)
}

func NewStringResource(strs StringStore) Resource {
	return NewCborResource(URI_STRING,
		func(uri string) (coap.COAPCode, interface{}) {
			return coap.Content, StringRsp{Value: strs.Get()}
		},

		func(uri string, val map[string]interface{}) coap.COAPCode {
			s, err := cast.ToStringE(val["value"])
			if err != nil || len(s) > kvstore.MAX_VAL_LEN {
				return coap.BadRequest
			}

			if err := strs.Save(s); err != nil {
				log.Errorf("Failed to save string: %s", err.Error())
				return coap.InternalServerError
			}
			return coap.Changed
		},

		func(uri string) coap.COAPCode {
			if err := strs.Delete(); err != nil {
				log.Errorf("Failed to delete string: %s", err.Error())
				return coap.InternalServerError
			}
			return coap.Deleted
		})
}

// NewBleResource reports the link session returned by sesnFn.
func NewBleResource(sesnFn func() link.LinkSession) Resource {
	return NewCborResource(URI_BLE,
		func(uri string) (coap.COAPCode, interface{}) {
			s := sesnFn()

			rsp := BleRsp{
				Role:       link.RoleToString(s.Role),
				State:      link.StateToString(s.State),
				ConnHandle: s.ConnHandle,
			}
			if s.PeerKnown {
				rsp.Peer = s.Peer.String()
			}

			return coap.Content, rsp
		},
		nil, nil)
}

func NewDeviceResource(name string, id string) Resource {
	return NewCborResource(URI_DEVICE,
		func(uri string) (coap.COAPCode, interface{}) {
			return coap.Content, DeviceRsp{Name: name, Id: id}
		},
		nil, nil)
}

const (
	DEVID_NAMESPACE = "oic"
	DEVID_KEY       = "di"
)

// DeviceId returns the persistent device identifier, generating and
// committing one on first use.
func DeviceId(store *kvstore.Store) (string, error) {
	id, err := store.GetStr(DEVID_NAMESPACE, DEVID_KEY)
	if err == nil {
		if _, perr := uuid.Parse(id); perr == nil {
			return id, nil
		}
		log.Warnf("Discarding malformed device id %q", id)
	} else if err != kvstore.ErrNotFound {
		return "", err
	}

	id = uuid.New().String()
	if err := store.SetStr(DEVID_NAMESPACE, DEVID_KEY, id); err != nil {
		return "", err
	}
	if err := store.Commit(); err != nil {
		return "", err
	}

	return id, nil
}
