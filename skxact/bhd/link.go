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

package bhd

import (
	"encoding/hex"
	"sync"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/newt/util/unixchild"
	"mynewt.apache.org/skynet/skxact/skxutil"
)

// Link carries blehostd messages.  Each Tx and Rx moves exactly one JSON
// message.
type Link interface {
	Start() error
	Stop() error
	Tx(data []byte) error

	// Blocks until a message arrives or the link fails.
	Rx() ([]byte, error)
}

// ChildLink runs blehostd as a child process and talks to it over a UNIX
// domain socket.
type ChildLink struct {
	client   *unixchild.Client
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewChildLink(cfg XportCfg) *ChildLink {
	config := unixchild.Config{
		SockPath:  cfg.SockPath,
		ChildPath: cfg.BlehostdPath,
		ChildArgs: []string{cfg.DevPath, cfg.SockPath},
		Depth:     10,
		MaxMsgSz:  10240,
	}

	return &ChildLink{
		client: unixchild.New(config),
	}
}

func (cl *ChildLink) Start() error {
	cl.stopCh = make(chan struct{})
	cl.stopOnce = sync.Once{}
	if err := cl.client.Start(); err != nil {
		return skxutil.NewXportError(
			"Failed to start child process: " + err.Error())
	}

	return nil
}

func (cl *ChildLink) Stop() error {
	if cl.stopCh == nil {
		return nil
	}

	cl.stopOnce.Do(func() {
		close(cl.stopCh)
		cl.client.Stop()
	})
	return nil
}

func (cl *ChildLink) Tx(data []byte) error {
	log.Debugf("Tx to blehostd:\n%s", hex.Dump(data))
	cl.client.ToChild <- data
	return nil
}

func (cl *ChildLink) Rx() ([]byte, error) {
	select {
	case err := <-cl.client.ErrChild:
		return nil, skxutil.NewXportError("blehostd failed: " + err.Error())

	case buf := <-cl.client.FromChild:
		log.Debugf("Receive from blehostd:\n%s", hex.Dump(buf))
		return buf, nil

	case <-cl.stopCh:
		return nil, skxutil.NewXportError("blehostd link stopped")
	}
}
