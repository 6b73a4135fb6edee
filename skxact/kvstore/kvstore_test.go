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

package kvstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tmpPath(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "kvstore")
	if err != nil {
		t.Fatalf("TempDir: %s", err.Error())
	}

	return filepath.Join(dir, "store.bin"), func() { os.RemoveAll(dir) }
}

func TestPersist(t *testing.T) {
	path, done := tmpPath(t)
	defer done()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %s", err.Error())
	}

	if _, err := s.GetStr("storage", "my_string"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetStr("storage", "my_string", "hello"); err != nil {
		t.Fatalf("SetStr: %s", err.Error())
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %s", err.Error())
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %s", err.Error())
	}
	v, err := s2.GetStr("storage", "my_string")
	if err != nil || v != "hello" {
		t.Fatalf("got %q, %v; want hello", v, err)
	}
}

func TestUncommittedLost(t *testing.T) {
	path, done := tmpPath(t)
	defer done()

	s, _ := Open(path)
	s.SetStr("ns", "k", "v")

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %s", err.Error())
	}
	if _, err := s2.GetStr("ns", "k"); err != ErrNotFound {
		t.Fatalf("uncommitted value survived reopen")
	}
}

func TestLengthLimit(t *testing.T) {
	s := NewMem()

	if err := s.SetStr("ns", "k", strings.Repeat("a", MAX_VAL_LEN)); err != nil {
		t.Fatalf("max length rejected: %s", err.Error())
	}

	err := s.SetStr("ns", "k", strings.Repeat("a", MAX_VAL_LEN+1))
	if !IsTooLong(err) {
		t.Fatalf("expected TooLongError, got %v", err)
	}
}

func TestErase(t *testing.T) {
	s := NewMem()

	if err := s.Erase("ns", "k"); err != ErrNotFound {
		t.Fatalf("erase missing: expected ErrNotFound, got %v", err)
	}

	s.SetStr("ns", "k", "v")
	if err := s.Erase("ns", "k"); err != nil {
		t.Fatalf("Erase: %s", err.Error())
	}
	if _, err := s.GetStr("ns", "k"); err != ErrNotFound {
		t.Fatalf("value survived erase")
	}
}

func TestCorruptFileReset(t *testing.T) {
	path, done := tmpPath(t)
	defer done()

	s, _ := Open(path)
	s.SetStr("ns", "k", "v")
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %s", err.Error())
	}

	b, _ := ioutil.ReadFile(path)
	b[0] ^= 0xff
	ioutil.WriteFile(path, b, 0644)

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open corrupt: %s", err.Error())
	}
	if _, err := s2.GetStr("ns", "k"); err != ErrNotFound {
		t.Fatalf("corrupt store not reset")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupt file not erased")
	}
}
