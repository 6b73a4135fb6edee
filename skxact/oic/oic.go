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

// Package oic exposes device resources over CoAP.
package oic

import (
	"fmt"
	"sync"

	"github.com/fatih/structs"
	"github.com/runtimeco/go-coap"
	"github.com/ugorji/go/codec"
)

var messageIdMtx sync.Mutex
var nextMessageId uint16

func NextMessageId() uint16 {
	messageIdMtx.Lock()
	defer messageIdMtx.Unlock()

	id := nextMessageId
	nextMessageId++
	return id
}

func Encode(m coap.Message) ([]byte, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("Failed to encode CoAP: %s\n", err.Error())
	}

	return b, nil
}

// EncodeStruct converts a struct to a CBOR map keyed by its "codec" tags.
func EncodeStruct(val interface{}) ([]byte, error) {
	s := structs.New(val)
	s.TagName = "codec"

	b := []byte{}
	enc := codec.NewEncoderBytes(&b, new(codec.CborHandle))
	if err := enc.Encode(s.Map()); err != nil {
		return nil, err
	}

	return b, nil
}

func CreateReq(code coap.COAPCode, resUri string, token []byte,
	payload []byte) (coap.Message, error) {

	if len(token) > 8 {
		return nil,
			fmt.Errorf("Invalid token; len=%d, must be < 8", len(token))
	}

	p := coap.MessageParams{
		Type:      coap.Confirmable,
		Code:      code,
		MessageID: NextMessageId(),
		Token:     token,
		Payload:   payload,
	}

	m := coap.NewDgramMessage(p)
	m.SetPathString(resUri)

	return m, nil
}

func EncodeGet(resUri string, token []byte) ([]byte, error) {
	m, err := CreateReq(coap.GET, resUri, token, nil)
	if err != nil {
		return nil, err
	}

	return Encode(m)
}
