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

package station

import (
	"net"
	"testing"
	"time"
)

func testCfg(maxRetry int) Config {
	return Config{
		Iface:         "wlan0",
		MaxRetry:      maxRetry,
		RetryInterval: time.Millisecond,
	}
}

func TestGotIPAfterRetries(t *testing.T) {
	calls := 0
	s := NewWithAddrFunc(testCfg(5), func(string) (net.IP, error) {
		calls++
		if calls < 3 {
			return nil, nil
		}
		return net.IPv4(192, 168, 1, 7), nil
	})

	var order []string
	s.OnReady(func(ip net.IP) { order = append(order, "led") })
	s.OnReady(func(ip net.IP) { order = append(order, "server") })

	ch := s.Listen()
	o := s.Run(nil)

	if !o.Connected || o.IP.String() != "192.168.1.7" {
		t.Fatalf("unexpected outcome %+v", o)
	}
	if len(order) != 2 || order[0] != "led" || order[1] != "server" {
		t.Fatalf("hooks ran as %v", order)
	}
	if s.retries != 0 {
		t.Fatalf("retry count not reset: %d", s.retries)
	}

	select {
	case got := <-ch:
		if !got.Connected {
			t.Fatalf("listener got failure")
		}
	case <-time.After(time.Second):
		t.Fatalf("listener never signalled")
	}

	// Late listeners see the same outcome.
	if got := <-s.Listen(); !got.Connected {
		t.Fatalf("late listener got failure")
	}
}

func TestGiveUp(t *testing.T) {
	calls := 0
	s := NewWithAddrFunc(testCfg(2), func(string) (net.IP, error) {
		calls++
		return nil, nil
	})

	ran := false
	s.OnReady(func(net.IP) { ran = true })

	o := s.Run(nil)
	if o.Connected {
		t.Fatalf("expected failure")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if ran {
		t.Fatalf("ready hook ran on failure")
	}
}

func TestStop(t *testing.T) {
	s := NewWithAddrFunc(Config{MaxRetry: 100, RetryInterval: time.Hour},
		func(string) (net.IP, error) { return nil, nil })

	stopCh := make(chan struct{})
	close(stopCh)

	if o := s.Run(stopCh); o.Connected {
		t.Fatalf("expected failure after stop")
	}
}
