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

package skserial

import (
	"bufio"
	"encoding/hex"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"mynewt.apache.org/skynet/skxact/skxutil"
)

type XportCfg struct {
	DevPath     string
	Baud        int
	ReadTimeout time.Duration
}

func NewXportCfg() XportCfg {
	return XportCfg{
		Baud:        115200,
		ReadTimeout: 10 * time.Second,
	}
}

// SerialLink carries blehostd messages over a UART using the console
// framing.  It satisfies bhd.Link.
type SerialLink struct {
	cfg     XportCfg
	port    *serial.Port
	scanner *bufio.Scanner
	dec     Decoder

	mtx     sync.Mutex
	closing bool
}

func NewSerialLink(cfg XportCfg) *SerialLink {
	return &SerialLink{
		cfg: cfg,
	}
}

func (sl *SerialLink) Start() error {
	c := &serial.Config{
		Name:        sl.cfg.DevPath,
		Baud:        sl.cfg.Baud,
		ReadTimeout: sl.cfg.ReadTimeout,
	}

	port, err := serial.OpenPort(c)
	if err != nil {
		return skxutil.FmtXportError("Failed to open %s: %s",
			sl.cfg.DevPath, err.Error())
	}

	if err := port.Flush(); err != nil {
		port.Close()
		return err
	}

	sl.mtx.Lock()
	sl.port = port
	sl.scanner = bufio.NewScanner(port)
	sl.closing = false
	sl.mtx.Unlock()

	return nil
}

func (sl *SerialLink) Stop() error {
	sl.mtx.Lock()
	defer sl.mtx.Unlock()

	if sl.closing || sl.port == nil {
		return nil
	}

	sl.closing = true
	return sl.port.Close()
}

func (sl *SerialLink) isClosing() bool {
	sl.mtx.Lock()
	defer sl.mtx.Unlock()

	return sl.closing
}

func (sl *SerialLink) txRaw(b []byte) error {
	log.Debugf("Tx serial\n%s", hex.Dump(b))

	_, err := sl.port.Write(b)
	return err
}

func (sl *SerialLink) Tx(data []byte) error {
	for i, frame := range EncodeFrames(data) {
		if i != 0 {
			// Slow targets have small receive buffers; give them time to
			// drain each frame.
			time.Sleep(20 * time.Millisecond)
		}
		if err := sl.txRaw(frame); err != nil {
			return err
		}
	}

	return nil
}

// Blocking receive.  Read timeouts are absorbed; only a closed or failed
// port ends the wait.
func (sl *SerialLink) Rx() ([]byte, error) {
	for {
		for sl.scanner.Scan() {
			msg, err := sl.dec.Feed(sl.scanner.Bytes())
			if err != nil {
				log.Warnf("Dropping serial frame: %s", err.Error())
				continue
			}
			if msg != nil {
				return msg, nil
			}
		}

		if sl.isClosing() {
			return nil, skxutil.NewXportError("serial link closed")
		}

		if err := sl.scanner.Err(); err != nil {
			return nil, skxutil.NewXportError(
				"serial read failed: " + err.Error())
		}

		// The scanner hit EOF, which only happens on a read timeout.
		sl.scanner = bufio.NewScanner(sl.port)
	}
}
