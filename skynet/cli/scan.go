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

package cli

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	pb "gopkg.in/cheggaaa/pb.v1"

	"mynewt.apache.org/newt/util"
	. "mynewt.apache.org/skynet/skxact/bledefs"
	"mynewt.apache.org/skynet/skxact/link"
)

// Collects advertisements from a bare stack without any link policy.
type scanner struct {
	mtx     sync.Mutex
	reports map[string]BleAdvReport
	order   []string

	syncCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

func newScanner() *scanner {
	return &scanner{
		reports: map[string]BleAdvReport{},
		syncCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}
}

func (s *scanner) OnSync() {
	select {
	case s.syncCh <- struct{}{}:
	default:
	}
}

func (s *scanner) OnReset(reason int) {
	s.once.Do(func() { close(s.doneCh) })
}

func (s *scanner) OnEvent(ev link.Event) {
	switch e := ev.(type) {
	case *link.DiscEvt:
		key := e.Report.Sender.String()

		s.mtx.Lock()
		if _, ok := s.reports[key]; !ok {
			s.order = append(s.order, key)
		}
		// Keep the freshest RSSI, but never lose a name we already have.
		prev, ok := s.reports[key]
		if ok && e.Report.Fields.Name == nil {
			e.Report.Fields.Name = prev.Fields.Name
			e.Report.Fields.NameIsComplete = prev.Fields.NameIsComplete
		}
		s.reports[key] = e.Report
		s.mtx.Unlock()

	case *link.DiscCompleteEvt:
		s.once.Do(func() { close(s.doneCh) })
	}
}

func (s *scanner) results() []BleAdvReport {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	rs := make([]BleAdvReport, 0, len(s.order))
	for _, k := range s.order {
		rs = append(rs, s.reports[k])
	}
	return rs
}

func runScan(stack link.Stack, dur time.Duration, syncTimeout time.Duration) (
	[]BleAdvReport, error) {

	s := newScanner()
	stack.SetHandler(s)

	if err := stack.Start(); err != nil {
		return nil, err
	}
	defer stack.Stop()

	select {
	case <-s.syncCh:
	case <-time.After(syncTimeout):
		return nil, util.NewNewtError("Timeout waiting for BLE host sync")
	}

	own, err := stack.EnsureAddr()
	if err != nil {
		return nil, err
	}

	params := link.DefaultScanParams()
	params.DurationMs = int(dur / time.Millisecond)
	if err := stack.StartScan(own.AddrType, params); err != nil {
		return nil, err
	}

	secs := int(dur / time.Second)
	bar := pb.StartNew(secs)
	bar.Prefix("Scanning ")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	intCh := interruptChan()

	for {
		select {
		case <-ticker.C:
			bar.Increment()

		case <-intCh:
			stack.StopScan()
			bar.Finish()
			return s.results(), nil

		case <-s.doneCh:
			bar.Set(secs)
			bar.Finish()
			return s.results(), nil
		}
	}
}

func scanCmd() *cobra.Command {
	durSecs := 0

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List nearby BLE advertisers",
		Run: func(cmd *cobra.Command, args []string) {
			if durSecs <= 0 {
				skUsage(cmd, util.NewNewtError("Duration must be positive"))
			}

			stack, err := buildStack()
			if err != nil {
				skUsage(nil, err)
			}

			rs, err := runScan(stack, time.Duration(durSecs)*time.Second,
				10*time.Second)
			if err != nil {
				skUsage(nil, err)
			}

			for _, r := range rs {
				fmt.Println(strings.Join(link.DiscReport(r), "\n"))
			}
			fmt.Printf("%d device(s) found\n", len(rs))
		},
	}

	cmd.Flags().IntVarP(&durSecs, "duration", "d",
		link.SCAN_DURATION_MS/1000, "scan duration in seconds")

	return cmd
}
