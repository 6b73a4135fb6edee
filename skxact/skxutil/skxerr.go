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

package skxutil

import (
	"fmt"

	"github.com/pkg/errors"
)

// Represents a low-level transport error.
type XportError struct {
	Text string
}

func NewXportError(text string) *XportError {
	return &XportError{text}
}

func FmtXportError(format string, args ...interface{}) *XportError {
	return NewXportError(fmt.Sprintf(format, args...))
}

func (e *XportError) Error() string {
	return e.Text
}

func IsXport(err error) bool {
	if err == nil {
		return false
	}

	_, ok := errors.Cause(err).(*XportError)
	return ok
}

// A request the BLE host rejected; Status carries the host's error code.
type BleHostError struct {
	Text   string
	Status int
}

func NewBleHostError(status int, text string) *BleHostError {
	return &BleHostError{
		Status: status,
		Text:   text,
	}
}

func FmtBleHostError(status int, format string,
	args ...interface{}) *BleHostError {

	return NewBleHostError(status, fmt.Sprintf(format, args...))
}

func (e *BleHostError) Error() string {
	return e.Text
}

func ToBleHost(err error) *BleHostError {
	if berr, ok := errors.Cause(err).(*BleHostError); ok {
		return berr
	} else {
		return nil
	}
}

// Reports whether err is a host error carrying the given status.
func IsBleHostStatus(err error, status int) bool {
	berr := ToBleHost(err)
	return berr != nil && berr.Status == status
}

// Returned when an operation needs a link and none is established.
type NotConnectedError struct {
	Text string
}

func NewNotConnectedError(text string) *NotConnectedError {
	return &NotConnectedError{text}
}

func (err *NotConnectedError) Error() string {
	return err.Text
}

func IsNotConnected(err error) bool {
	_, ok := errors.Cause(err).(*NotConnectedError)
	return ok
}

// Returned when a request would disturb an established or pending link.
type AlreadyConnectedError struct {
	Text string
}

func NewAlreadyConnectedError(text string) *AlreadyConnectedError {
	return &AlreadyConnectedError{text}
}

func (err *AlreadyConnectedError) Error() string {
	return err.Text
}

func IsAlreadyConnected(err error) bool {
	_, ok := errors.Cause(err).(*AlreadyConnectedError)
	return ok
}

// Represents a response that never arrived.
type RspTimeoutError struct {
	Text string
}

func NewRspTimeoutError(text string) *RspTimeoutError {
	return &RspTimeoutError{
		Text: text,
	}
}

func (e *RspTimeoutError) Error() string {
	return e.Text
}

func IsRspTimeout(err error) bool {
	_, ok := errors.Cause(err).(*RspTimeoutError)
	return ok
}
