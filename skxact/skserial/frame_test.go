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
	"bytes"
	"testing"
)

func feedAll(t *testing.T, d *Decoder, frames [][]byte) []byte {
	var msg []byte
	for i, frame := range frames {
		if !bytes.HasSuffix(frame, []byte{'\n'}) {
			t.Fatalf("frame %d not newline terminated", i)
		}

		m, err := d.Feed(bytes.TrimSuffix(frame, []byte{'\n'}))
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %s", i, err.Error())
		}
		if m != nil {
			if i != len(frames)-1 {
				t.Fatalf("message completed early at frame %d", i)
			}
			msg = m
		}
	}

	return msg
}

func TestFrameRoundTrip(t *testing.T) {
	data := []byte(`{"op":0,"type":2,"seq":1}`)

	frames := EncodeFrames(data)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if !bytes.HasPrefix(frames[0], frameStart) {
		t.Fatalf("first frame lacks start designator: %v", frames[0][:2])
	}

	d := Decoder{}
	msg := feedAll(t, &d, frames)
	if !bytes.Equal(msg, data) {
		t.Fatalf("decoded %q, want %q", msg, data)
	}
}

func TestFrameMultiChunk(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 40)

	frames := EncodeFrames(data)
	if len(frames) < 2 {
		t.Fatalf("expected several frames, got %d", len(frames))
	}

	for i, frame := range frames {
		if len(frame) > maxChunkSz+3 {
			t.Fatalf("frame %d too long: %d", i, len(frame))
		}
		if i > 0 && !bytes.HasPrefix(frame, frameCont) {
			t.Fatalf("frame %d lacks continuation designator", i)
		}
	}

	d := Decoder{}
	msg := feedAll(t, &d, frames)
	if !bytes.Equal(msg, data) {
		t.Fatalf("multi-frame message mismatch")
	}
}

func TestFrameIgnoresNoise(t *testing.T) {
	data := []byte("hello")
	d := Decoder{}

	for _, noise := range []string{"", "x", "\r", "000123 main task started"} {
		m, err := d.Feed([]byte(noise))
		if m != nil || err != nil {
			t.Fatalf("noise %q produced msg=%v err=%v", noise, m, err)
		}
	}

	frame := EncodeFrames(data)[0]
	line := append([]byte{'\r'}, bytes.TrimSuffix(frame, []byte{'\n'})...)
	m, err := d.Feed(line)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if !bytes.Equal(m, data) {
		t.Fatalf("decoded %q, want %q", m, data)
	}
}

func TestFrameCrcError(t *testing.T) {
	// Hand-built packet: length 3, payload "abc" with no valid trailer.
	// base64 of {0x00, 0x03, 'a', 'b', 'c'}.
	line := append([]byte{}, frameStart...)
	line = append(line, []byte("AANhYmM=")...)

	d := Decoder{}
	m, err := d.Feed(line)
	if err == nil {
		t.Fatalf("expected CRC error, got msg %q", m)
	}

	// The decoder recovers for the next message.
	data := []byte("ok")
	m, err = d.Feed(bytes.TrimSuffix(EncodeFrames(data)[0], []byte{'\n'}))
	if err != nil || !bytes.Equal(m, data) {
		t.Fatalf("decoder did not recover: msg=%q err=%v", m, err)
	}
}

func TestContinuationWithoutStart(t *testing.T) {
	frames := EncodeFrames(bytes.Repeat([]byte("z"), 300))
	d := Decoder{}

	m, err := d.Feed(bytes.TrimSuffix(frames[1], []byte{'\n'}))
	if m != nil || err != nil {
		t.Fatalf("orphan continuation produced msg=%v err=%v", m, err)
	}
}
