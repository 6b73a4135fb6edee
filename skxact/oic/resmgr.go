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
	"fmt"
	"strings"

	"github.com/runtimeco/go-coap"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/skynet/skxact/skxutil"
)

type ResGetFn func(uri string) (coap.COAPCode, []byte)
type ResPutFn func(uri string, data []byte) coap.COAPCode
type ResDeleteFn func(uri string) coap.COAPCode

type Resource struct {
	Uri      string
	GetCb    ResGetFn
	PutCb    ResPutFn
	DeleteCb ResDeleteFn
}

type ResMgr struct {
	uriResMap map[string]Resource
}

func NewResMgr() ResMgr {
	return ResMgr{
		uriResMap: map[string]Resource{},
	}
}

func uriKey(uri string) string {
	return strings.Trim(uri, "/")
}

func (rm *ResMgr) Add(r Resource) error {
	key := uriKey(r.Uri)
	if _, ok := rm.uriResMap[key]; ok {
		return fmt.Errorf("Registration of duplicate CoAP resource: %s", r.Uri)
	}

	rm.uriResMap[key] = r
	return nil
}

func (rm *ResMgr) Access(m coap.Message) (coap.COAPCode, []byte) {
	r, ok := rm.uriResMap[uriKey(m.PathString())]
	if !ok {
		log.Debugf("Incoming CoAP message specifies unknown resource: %s",
			m.PathString())
		return coap.NotFound, nil
	}
	path := r.Uri

	switch m.Code() {
	case coap.GET:
		if r.GetCb == nil {
			return coap.MethodNotAllowed, nil
		}
		return r.GetCb(path)

	case coap.PUT:
		if r.PutCb == nil {
			return coap.MethodNotAllowed, nil
		}
		return r.PutCb(path, m.Payload()), nil

	case coap.DELETE:
		if r.DeleteCb == nil {
			return coap.MethodNotAllowed, nil
		}
		return r.DeleteCb(path), nil

	default:
		log.Debugf("Don't know how to handle CoAP message with code=%d (%s)",
			m.Code(), m.Code().String())
		return coap.MethodNotAllowed, nil
	}
}

// Returns the struct to encode as the response body.
type StructGetFn func(uri string) (coap.COAPCode, interface{})

type CborPutFn func(uri string, val map[string]interface{}) coap.COAPCode

func NewCborResource(uri string, getCb StructGetFn, putCb CborPutFn,
	deleteCb ResDeleteFn) Resource {

	r := Resource{
		Uri:      uri,
		DeleteCb: deleteCb,
	}

	if getCb != nil {
		r.GetCb = func(uri string) (coap.COAPCode, []byte) {
			code, val := getCb(uri)
			if code >= coap.BadRequest {
				return code, nil
			}
			b, err := EncodeStruct(val)
			if err != nil {
				log.Errorf("Failed to encode %s: %s", uri, err.Error())
				return coap.InternalServerError, nil
			}
			return code, b
		}
	}

	if putCb != nil {
		r.PutCb = func(uri string, data []byte) coap.COAPCode {
			m, err := skxutil.DecodeCborMap(data)
			if err != nil {
				return coap.BadRequest
			}

			return putCb(uri, m)
		}
	}

	return r
}
