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

// Package kvstore is a small persistent store of string values grouped in
// namespaces.  The backing file holds a CBOR document followed by a
// big-endian CRC-16 of that document.
package kvstore

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"sync"

	"github.com/joaojeronimo/go-crc16"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// Largest value accepted by SetStr.  Stored strings keep room for a
// terminator on the device side.
const MAX_VAL_LEN = 63

var ErrNotFound = errors.New("key not found")

type TooLongError struct {
	Len int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("value too long (%d > %d)", e.Len, MAX_VAL_LEN)
}

func IsTooLong(err error) bool {
	_, ok := errors.Cause(err).(*TooLongError)
	return ok
}

type Store struct {
	path string

	mtx   sync.Mutex
	data  map[string]map[string]string
	dirty bool
}

// Open loads the store at path.  A missing file yields an empty store.  A
// corrupt file is erased and the store starts over empty.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: map[string]map[string]string{},
	}

	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrapf(err, "failed to read store %s", path)
	}

	data, err := decode(b)
	if err != nil {
		log.Warnf("Store %s is corrupt (%s); erasing", path, err.Error())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to erase store %s", path)
		}
		return s, nil
	}

	s.data = data
	return s, nil
}

// NewMem creates a store that is never written to disk.
func NewMem() *Store {
	return &Store{
		data: map[string]map[string]string{},
	}
}

func decode(b []byte) (map[string]map[string]string, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("short file (%d bytes)", len(b))
	}

	doc := b[:len(b)-2]
	crc := binary.BigEndian.Uint16(b[len(b)-2:])
	if crc16.Crc16(doc) != crc {
		return nil, fmt.Errorf("CRC mismatch")
	}

	m := map[string]map[string]string{}
	dec := codec.NewDecoderBytes(doc, new(codec.CborHandle))
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}

	return m, nil
}

func encode(m map[string]map[string]string) ([]byte, error) {
	b := []byte{}
	enc := codec.NewEncoderBytes(&b, new(codec.CborHandle))
	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	crc := make([]byte, 2)
	binary.BigEndian.PutUint16(crc, crc16.Crc16(b))
	return append(b, crc...), nil
}

func (s *Store) GetStr(ns string, key string) (string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	v, ok := s.data[ns][key]
	if !ok {
		return "", ErrNotFound
	}

	return v, nil
}

func (s *Store) SetStr(ns string, key string, val string) error {
	if len(val) > MAX_VAL_LEN {
		return &TooLongError{Len: len(val)}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.data[ns] == nil {
		s.data[ns] = map[string]string{}
	}
	s.data[ns][key] = val
	s.dirty = true

	return nil
}

func (s *Store) Erase(ns string, key string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.data[ns][key]; !ok {
		return ErrNotFound
	}

	delete(s.data[ns], key)
	if len(s.data[ns]) == 0 {
		delete(s.data, ns)
	}
	s.dirty = true

	return nil
}

// Commit persists pending changes.  The file is replaced atomically.
func (s *Store) Commit() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.dirty || s.path == "" {
		s.dirty = false
		return nil
	}

	b, err := encode(s.data)
	if err != nil {
		return errors.Wrap(err, "failed to encode store")
	}

	tmp := s.path + ".tmp"
	if err := ioutil.WriteFile(tmp, b, 0644); err != nil {
		return errors.Wrapf(err, "failed to write store %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "failed to replace store %s", s.path)
	}

	s.dirty = false
	return nil
}
