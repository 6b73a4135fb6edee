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

package led

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestMemLed(t *testing.T) {
	drv := &MemDriver{Level: true}
	l, err := New(drv)
	if err != nil {
		t.Fatalf("New: %s", err.Error())
	}

	if l.IsOn() || drv.Level {
		t.Fatalf("LED not off after init")
	}

	l.Set(true)
	if !l.IsOn() || !drv.Level {
		t.Fatalf("LED not on")
	}

	drv.Err = fmt.Errorf("bus fault")
	l.Set(false)
	if l.IsOn() {
		t.Fatalf("requested state not recorded")
	}
}

func TestSysfsLed(t *testing.T) {
	root, err := ioutil.TempDir("", "gpio")
	if err != nil {
		t.Fatalf("TempDir: %s", err.Error())
	}
	defer os.RemoveAll(root)

	// Pretend the pin is already exported.
	pinDir := filepath.Join(root, "gpio32")
	if err := os.MkdirAll(pinDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %s", err.Error())
	}

	l, err := New(NewSysfsDriver(root, DEFAULT_PIN))
	if err != nil {
		t.Fatalf("New: %s", err.Error())
	}

	dir, _ := ioutil.ReadFile(filepath.Join(pinDir, "direction"))
	if string(dir) != "out" {
		t.Fatalf("direction = %q", dir)
	}

	l.Set(true)
	val, _ := ioutil.ReadFile(filepath.Join(pinDir, "value"))
	if string(val) != "1" {
		t.Fatalf("value = %q", val)
	}
}
