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
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
)

var cleanupMtx sync.Mutex
var cleanups []func()

var interruptMtx sync.Mutex
var interruptCh chan struct{}

// AddCleanup registers fn to run, in reverse order, when the tool exits.
func AddCleanup(fn func()) {
	cleanupMtx.Lock()
	defer cleanupMtx.Unlock()

	cleanups = append(cleanups, fn)
}

func RunCleanup() {
	cleanupMtx.Lock()
	fns := cleanups
	cleanups = nil
	cleanupMtx.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// Returns the channel closed by Interrupt.  Requesting it marks the
// running command as interruptible.
func interruptChan() <-chan struct{} {
	interruptMtx.Lock()
	defer interruptMtx.Unlock()

	if interruptCh == nil {
		interruptCh = make(chan struct{})
	}
	return interruptCh
}

// Blocks until the user interrupts the tool.
func waitInterrupt() {
	<-interruptChan()
}

// Interrupt wakes a command blocked waiting for the user to quit.  It
// reports false if no command is waiting.
func Interrupt() bool {
	interruptMtx.Lock()
	defer interruptMtx.Unlock()

	if interruptCh == nil {
		return false
	}

	select {
	case <-interruptCh:
	default:
		close(interruptCh)
	}
	return true
}

func skExit(code int) {
	RunCleanup()
	os.Exit(code)
}

func skUsage(cmd *cobra.Command, err error) {
	if err != nil {
		if nerr, ok := err.(*util.NewtError); ok {
			log.Debugf("%s", nerr.StackTrace)
			fmt.Fprintf(os.Stderr, "Error: %s\n", nerr.Text)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		}
	}

	if cmd != nil {
		fmt.Printf("\n")
		fmt.Printf("%s - ", cmd.Name())
		cmd.Help()
	}

	skExit(1)
}
