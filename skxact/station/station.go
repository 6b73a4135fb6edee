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

// Package station waits for the host's network link to come up.
package station

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/skynet/skxact/skxutil"
)

type Config struct {
	Iface         string
	MaxRetry      int
	RetryInterval time.Duration
}

func NewConfig() Config {
	return Config{
		MaxRetry:      5,
		RetryInterval: time.Second,
	}
}

type Outcome struct {
	Connected bool
	IP        net.IP
}

// AddrFunc reports the interface's IPv4 address, or nil if it has none.
type AddrFunc func(iface string) (net.IP, error)

type ReadyHook func(ip net.IP)

type Station struct {
	cfg    Config
	addrFn AddrFunc

	mtx     sync.Mutex
	hooks   []ReadyHook
	retries int
	outcome *Outcome
	bcast   skxutil.Bcaster
}

func New(cfg Config) *Station {
	return NewWithAddrFunc(cfg, InterfaceIPv4)
}

func NewWithAddrFunc(cfg Config, addrFn AddrFunc) *Station {
	return &Station{
		cfg:    cfg,
		addrFn: addrFn,
	}
}

// OnReady registers a hook to run, in registration order, once an address
// is acquired.
func (s *Station) OnReady(hook ReadyHook) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.hooks = append(s.hooks, hook)
}

// Listen returns a channel that receives the single Outcome.  If the
// outcome is already known it is delivered immediately.
func (s *Station) Listen() <-chan Outcome {
	ch := make(chan Outcome, 1)

	s.mtx.Lock()
	if s.outcome != nil {
		ch <- *s.outcome
		s.mtx.Unlock()
		return ch
	}
	bch := s.bcast.Listen()
	s.mtx.Unlock()

	go func() {
		if v, ok := <-bch; ok {
			ch <- v.(Outcome)
		}
	}()

	return ch
}

func (s *Station) finish(o Outcome) {
	s.mtx.Lock()
	s.outcome = &o
	s.mtx.Unlock()

	s.bcast.SendAndClear(o)
}

// Run polls the interface until it has an IPv4 address or the retry budget
// is spent.  stopCh aborts the wait.
func (s *Station) Run(stopCh <-chan struct{}) Outcome {
	log.Infof("Waiting for an address on %s...", s.cfg.Iface)

	for {
		ip, err := s.addrFn(s.cfg.Iface)
		if err != nil {
			log.Debugf("Address lookup on %s failed: %s",
				s.cfg.Iface, err.Error())
		}

		if ip != nil {
			return s.gotIP(ip)
		}

		s.mtx.Lock()
		if s.retries >= s.cfg.MaxRetry {
			s.mtx.Unlock()
			log.Infof("Giving up on the network after too many retries")
			o := Outcome{}
			s.finish(o)
			return o
		}
		s.retries++
		n := s.retries
		s.mtx.Unlock()

		log.Infof("Retry to acquire an address, try #%d", n)

		select {
		case <-stopCh:
			o := Outcome{}
			s.finish(o)
			return o
		case <-time.After(s.cfg.RetryInterval):
		}
	}
}

func (s *Station) gotIP(ip net.IP) Outcome {
	log.Infof("Got IP: %s", ip.String())

	s.mtx.Lock()
	s.retries = 0
	hooks := append([]ReadyHook{}, s.hooks...)
	s.mtx.Unlock()

	for _, h := range hooks {
		h(ip)
	}

	o := Outcome{Connected: true, IP: ip}
	s.finish(o)
	return o
}

func InterfaceIPv4(name string) (net.IP, error) {
	var addrs []net.Addr
	var err error

	if name == "" {
		addrs, err = net.InterfaceAddrs()
	} else {
		var itf *net.Interface
		itf, err = net.InterfaceByName(name)
		if err == nil {
			addrs, err = itf.Addrs()
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read addresses of %q", name)
	}

	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		if ip4 := ipn.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}

	return nil, nil
}
