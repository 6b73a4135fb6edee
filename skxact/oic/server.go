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
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/runtimeco/go-coap"
	log "github.com/sirupsen/logrus"
)

const MAX_DGRAM_SZ = 1280

type Server struct {
	addr string
	rm   ResMgr

	mtx  sync.Mutex
	conn *net.UDPConn
	wg   sync.WaitGroup
}

func NewServer(addr string) *Server {
	return &Server{
		addr: addr,
		rm:   NewResMgr(),
	}
}

func (s *Server) AddResource(r Resource) error {
	return s.rm.Add(r)
}

// @return                      Response to send back, if any.
func (s *Server) Rx(data []byte) (coap.Message, error) {
	m, err := coap.ParseDgramMessage(data)
	if err != nil {
		log.Debugf("CoAP parse failure: %s", err.Error())
		return nil, nil
	}

	var typ coap.COAPType
	switch m.Type() {
	case coap.Confirmable:
		typ = coap.Acknowledgement

	case coap.NonConfirmable:
		typ = coap.NonConfirmable

	default:
		return nil, fmt.Errorf("Don't know how to handle CoAP message with "+
			"type=%d (%s)", m.Type(), m.Type().String())
	}

	code, payload := s.rm.Access(m)

	// Acknowledgements echo the request's message ID.
	mid := m.MessageID()
	if typ == coap.NonConfirmable {
		mid = NextMessageId()
	}

	p := coap.MessageParams{
		Type:      typ,
		Code:      code,
		MessageID: mid,
		Token:     m.Token(),
		Payload:   payload,
	}

	return coap.NewDgramMessage(p), nil
}

func (s *Server) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.conn != nil {
		log.Infof("CoAP server already running")
		return nil
	}

	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "invalid CoAP address %s", s.addr)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.addr)
	}
	s.conn = conn

	s.wg.Add(1)
	go s.serve(conn)

	log.Infof("CoAP server started on %s", conn.LocalAddr().String())
	return nil
}

func (s *Server) serve(conn *net.UDPConn) {
	defer s.wg.Done()

	buf := make([]byte, MAX_DGRAM_SZ)
	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Closed.
			return
		}

		rsp, err := s.Rx(buf[:n])
		if err != nil {
			log.Debugf("%s", err.Error())
			continue
		}
		if rsp == nil {
			continue
		}

		b, err := Encode(rsp)
		if err != nil {
			log.Errorf("%s", err.Error())
			continue
		}

		if _, err := conn.WriteToUDP(b, peer); err != nil {
			log.Debugf("Failed to send CoAP response to %s: %s",
				peer.String(), err.Error())
		}
	}
}

func (s *Server) Addr() net.Addr {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Server) Stop() error {
	s.mtx.Lock()
	conn := s.conn
	s.conn = nil
	s.mtx.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	s.wg.Wait()

	return err
}
