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
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/joaojeronimo/go-crc16"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/newt/util"
)

var frameStart = []byte{6, 9}
var frameCont = []byte{4, 20}

// Keeps each frame, with its two byte designator and newline, inside the
// 128 byte console line of small targets.  Must be a multiple of 4.
const maxChunkSz = 124

// EncodeFrames wraps a message in the console framing: a big-endian length
// and CRC-16 trailer, base64 encoded and split into newline-terminated
// frames.
func EncodeFrames(data []byte) [][]byte {
	body := make([]byte, len(data), len(data)+2)
	copy(body, data)

	crc := make([]byte, 2)
	binary.BigEndian.PutUint16(crc, crc16.Crc16(data))
	body = append(body, crc...)

	pkt := make([]byte, 2, len(body)+2)
	binary.BigEndian.PutUint16(pkt, uint16(len(body)))
	pkt = append(pkt, body...)

	b64 := make([]byte, base64.StdEncoding.EncodedLen(len(pkt)))
	base64.StdEncoding.Encode(b64, pkt)

	var frames [][]byte
	for written := 0; written < len(b64); {
		var frame bytes.Buffer
		if written == 0 {
			frame.Write(frameStart)
		} else {
			frame.Write(frameCont)
		}

		n := util.Min(maxChunkSz, len(b64)-written)
		frame.Write(b64[written : written+n])
		frame.WriteByte('\n')

		frames = append(frames, frame.Bytes())
		written += n
	}

	return frames
}

type Packet struct {
	expectedLen uint16
	buffer      *bytes.Buffer
}

func NewPacket(expectedLen uint16) *Packet {
	return &Packet{
		expectedLen: expectedLen,
		buffer:      bytes.NewBuffer([]byte{}),
	}
}

// Reports whether the packet is complete.
func (pkt *Packet) AddBytes(b []byte) bool {
	pkt.buffer.Write(b)
	return pkt.buffer.Len() >= int(pkt.expectedLen)
}

func (pkt *Packet) GetBytes() []byte {
	return pkt.buffer.Bytes()
}

func (pkt *Packet) TrimEnd(count int) {
	if pkt.buffer.Len() < count {
		count = pkt.buffer.Len()
	}
	pkt.buffer.Truncate(pkt.buffer.Len() - count)
}

// Decoder reassembles messages from received console lines.
type Decoder struct {
	pkt *Packet
}

// Feed consumes one line (without its newline).  It returns a message once
// the final frame of one has been fed, and nil otherwise.  Lines that are
// not frames are console noise and are skipped.
func (d *Decoder) Feed(line []byte) ([]byte, error) {
	line = bytes.TrimLeft(line, "\r")
	line = bytes.TrimRight(line, "\r")

	if len(line) < 2 {
		return nil, nil
	}

	start := bytes.HasPrefix(line, frameStart)
	if !start && !bytes.HasPrefix(line, frameCont) {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(string(line[2:]))
	if err != nil {
		d.pkt = nil
		return nil, fmt.Errorf("Couldn't decode base64 string: %s\n"+
			"Packet hex dump:\n%s", line[2:], hex.Dump(line))
	}

	if start {
		if len(data) < 2 {
			return nil, nil
		}

		d.pkt = NewPacket(binary.BigEndian.Uint16(data[0:2]))
		data = data[2:]
	}

	if d.pkt == nil {
		return nil, nil
	}

	if !d.pkt.AddBytes(data) {
		return nil, nil
	}

	pkt := d.pkt
	d.pkt = nil

	if crc16.Crc16(pkt.GetBytes()) != 0 {
		return nil, fmt.Errorf("CRC error")
	}

	pkt.TrimEnd(2)
	b := pkt.GetBytes()
	log.Debugf("Decoded input:\n%s", hex.Dump(b))

	return b, nil
}
