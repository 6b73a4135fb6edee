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

// Package led drives the status indicator.
package led

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DEFAULT_PIN = 32
const DEFAULT_GPIO_ROOT = "/sys/class/gpio"

type Driver interface {
	Init() error
	Write(on bool) error
}

// Led remembers the last requested state.  IsOn reports that state even if
// the driver failed to apply it.
type Led struct {
	drv Driver

	mtx sync.Mutex
	on  bool
}

// New initializes the driver and switches the indicator off.
func New(drv Driver) (*Led, error) {
	if err := drv.Init(); err != nil {
		return nil, err
	}

	l := &Led{drv: drv}
	l.Set(false)

	return l, nil
}

func (l *Led) Set(on bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.on = on
	if err := l.drv.Write(on); err != nil {
		log.Warnf("Failed to drive LED: %s", err.Error())
	}
}

func (l *Led) IsOn() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.on
}

type MemDriver struct {
	Level bool
	Err   error
}

func (d *MemDriver) Init() error {
	return nil
}

func (d *MemDriver) Write(on bool) error {
	if d.Err != nil {
		return d.Err
	}
	d.Level = on
	return nil
}

// SysfsDriver drives a pin through the legacy sysfs GPIO interface.
type SysfsDriver struct {
	Root string
	Pin  int
}

func NewSysfsDriver(root string, pin int) *SysfsDriver {
	if root == "" {
		root = DEFAULT_GPIO_ROOT
	}
	return &SysfsDriver{
		Root: root,
		Pin:  pin,
	}
}

func (d *SysfsDriver) pinDir() string {
	return filepath.Join(d.Root, fmt.Sprintf("gpio%d", d.Pin))
}

func (d *SysfsDriver) Init() error {
	if _, err := os.Stat(d.pinDir()); os.IsNotExist(err) {
		exp := filepath.Join(d.Root, "export")
		if err := ioutil.WriteFile(exp, []byte(fmt.Sprintf("%d", d.Pin)),
			0200); err != nil {

			return errors.Wrapf(err, "failed to export GPIO %d", d.Pin)
		}
	}

	dir := filepath.Join(d.pinDir(), "direction")
	if err := ioutil.WriteFile(dir, []byte("out"), 0644); err != nil {
		return errors.Wrapf(err, "failed to configure GPIO %d", d.Pin)
	}

	return nil
}

func (d *SysfsDriver) Write(on bool) error {
	val := "0"
	if on {
		val = "1"
	}

	return ioutil.WriteFile(filepath.Join(d.pinDir(), "value"), []byte(val),
		0644)
}
