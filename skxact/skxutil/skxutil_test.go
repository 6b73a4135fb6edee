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

package skxutil

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func TestDebugging(t *testing.T) {
	defer SetLogLevel(log.InfoLevel)

	SetLogLevel(log.InfoLevel)
	if Debugging() {
		t.Fatalf("debugging at info level")
	}

	SetLogLevel(log.DebugLevel)
	if !Debugging() {
		t.Fatalf("not debugging at debug level")
	}
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("logrus level not applied: %s", log.GetLevel())
	}
}

func TestStopAndDrainFiredTimer(t *testing.T) {
	tmr := time.NewTimer(time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	StopAndDrainTimer(tmr)

	// A drained timer can be reused without a stale tick.
	tmr.Reset(time.Hour)
	select {
	case <-tmr.C:
		t.Fatalf("stale tick after drain")
	case <-time.After(20 * time.Millisecond):
	}
	StopAndDrainTimer(tmr)
}

func TestBcasterSendAndClear(t *testing.T) {
	var b Bcaster

	a := b.Listen()
	c := b.Listen()
	b.SendAndClear(5)

	for _, ch := range []chan interface{}{a, c} {
		if v := <-ch; v != 5 {
			t.Fatalf("got %v, want 5", v)
		}
		if _, ok := <-ch; ok {
			t.Fatalf("listener not closed after send")
		}
	}

	// Listeners registered after a send wait for the next one.
	late := b.Listen()
	b.SendAndClear(6)
	if v := <-late; v != 6 {
		t.Fatalf("got %v, want 6", v)
	}
}

func TestErrorClassesSurviveWrap(t *testing.T) {
	err := errors.Wrap(NewRspTimeoutError("no reply"), "connect")
	if !IsRspTimeout(err) {
		t.Fatalf("wrapped timeout not recognized: %s", err)
	}
	if IsXport(err) {
		t.Fatalf("timeout misclassified as transport error")
	}

	err = errors.Wrap(FmtBleHostError(2, "busy"), "arm")
	if !IsBleHostStatus(err, 2) {
		t.Fatalf("wrapped host status not recognized: %s", err)
	}
	if IsBleHostStatus(err, 3) {
		t.Fatalf("host status matched wrong code")
	}
	if IsRspTimeout(err) {
		t.Fatalf("host error misclassified as timeout")
	}
}
