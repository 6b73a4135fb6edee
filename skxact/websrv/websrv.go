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

// Package websrv serves the LED and string control page over HTTP.
package websrv

import (
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
)

// Largest accepted POST body is one less than this.
const MAX_BODY_SZ = 64

const MAX_CONNS = 7

type Indicator interface {
	Set(on bool)
	IsOn() bool
}

type StringStore interface {
	Get() string
	Save(val string) error
	Delete() error
}

type Server struct {
	addr string
	led  Indicator
	strs StringStore

	mtx sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func New(addr string, led Indicator, strs StringStore) *Server {
	return &Server{
		addr: addr,
		led:  led,
		strs: strs,
	}
}

const rootHtml = `<!DOCTYPE html>
<html>
<head><title>ESP32 Control</title></head>
<body>
<h1>ESP32 LED and String Control</h1>
<p>LED is currently: %s</p>
<p>
  <a href="/led?state=on">Turn LED ON</a><br>
  <a href="/led?state=off">Turn LED OFF</a>
</p>
<p>Stored string: '%s'</p>
<p>
  <form method="POST" action="/string">
    New string: <input type="text" name="value">
    <input type="submit" value="Save">
  </form>
</p>
<p>
  <form method="POST" action="/string?delete=1">
    <input type="submit" value="Delete string">
  </form>
</p>
</body>
</html>
`

func sendText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, text)
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func (s *Server) rootGet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	val := s.strs.Get()
	if val == "" {
		val = "(empty)"
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, rootHtml, onOff(s.led.IsOn()), val)
}

func (s *Server) ledGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Query().Get("state") {
	case "on":
		s.led.Set(true)
		sendText(w, "LED turned ON\n")
	case "off":
		s.led.Set(false)
		sendText(w, "LED turned OFF\n")
	default:
		sendText(w, "Use /led?state=on or /led?state=off\n")
	}
}

func (s *Server) stringAny(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.stringGet(w, r)
	case http.MethodPost:
		s.stringPost(w, r)
	case http.MethodDelete:
		s.stringDelete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) stringGet(w http.ResponseWriter, r *http.Request) {
	val := s.strs.Get()
	if val == "" {
		sendText(w, "(empty)\n")
	} else {
		sendText(w, val)
	}
}

func (s *Server) stringPost(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("delete") == "1" {
		s.stringDelete(w, r)
		return
	}

	if r.ContentLength >= MAX_BODY_SZ {
		http.Error(w, "String too long", http.StatusBadRequest)
		return
	}

	// Bodies of unknown length are read one byte past the limit to detect
	// overflow.
	body, err := ioutil.ReadAll(io.LimitReader(r.Body, MAX_BODY_SZ))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusInternalServerError)
		return
	}
	if len(body) >= MAX_BODY_SZ {
		http.Error(w, "String too long", http.StatusBadRequest)
		return
	}

	val := strings.TrimPrefix(string(body), "value=")
	if err := s.strs.Save(val); err != nil {
		log.Errorf("Failed to save string: %s", err.Error())
		http.Error(w, "Failed to save string",
			http.StatusInternalServerError)
		return
	}

	sendText(w, "String saved\n")
}

func (s *Server) stringDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.strs.Delete(); err != nil {
		log.Errorf("Failed to delete string: %s", err.Error())
		http.Error(w, "Failed to delete string",
			http.StatusInternalServerError)
		return
	}

	sendText(w, "String deleted\n")
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootGet)
	mux.HandleFunc("/led", s.ledGet)
	mux.HandleFunc("/string", s.stringAny)

	return mux
}

// Start begins serving in the background.  Starting a running server is a
// no-op.
func (s *Server) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.srv != nil {
		log.Infof("HTTP server already running")
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		log.Errorf("Failed to start HTTP server")
		return errors.Wrapf(err, "failed to listen on %s", s.addr)
	}
	ln = netutil.LimitListener(ln, MAX_CONNS)

	srv := &http.Server{Handler: s.Handler()}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("HTTP server failed: %s", err.Error())
		}
	}()

	s.srv = srv
	s.ln = ln
	log.Infof("HTTP server started")

	return nil
}

// Addr returns the bound address, or nil if the server is not running.
func (s *Server) Addr() net.Addr {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Stop() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.srv == nil {
		return nil
	}

	err := s.srv.Close()
	s.srv = nil
	s.ln = nil

	return err
}
