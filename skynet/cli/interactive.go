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
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/abiosoft/ishell.v2"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/skynet/skxact/link"
)

// Prints link notices to the shell until the returned stop function is
// called.
func watchNotices(shell *ishell.Shell, rc roleCtlr) func() {
	ch := rc.Listen()
	done := make(chan struct{})

	go func() {
		for {
			select {
			case n, ok := <-ch:
				if !ok {
					return
				}
				shell.Println(n.String())
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		rc.Unlisten(ch)
	}
}

func statusCmd(rc roleCtlr) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "status",
		Help: "show the link session",
		Func: func(c *ishell.Context) {
			s := rc.Session()
			b, err := json.MarshalIndent(s, "", "    ")
			if err != nil {
				c.Println(err.Error())
				return
			}
			c.Println(string(b))
		},
	}
}

func disconnectCmd(rc roleCtlr) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "disconnect",
		Help: "terminate the current link",
		Func: func(c *ishell.Context) {
			if err := rc.Disconnect(); err != nil {
				c.Println("Error: " + err.Error())
			}
		},
	}
}

func armCmds(rc roleCtlr) []*ishell.Cmd {
	var arm, disarm func() error

	switch ctlr := rc.(type) {
	case *link.Peripheral:
		arm, disarm = ctlr.StartAdvertising, ctlr.StopAdvertising
	case *link.Central:
		arm, disarm = ctlr.StartScan, ctlr.StopScan
	default:
		return nil
	}

	run := func(fn func() error) func(c *ishell.Context) {
		return func(c *ishell.Context) {
			if err := fn(); err != nil {
				c.Println("Error: " + err.Error())
			}
		}
	}

	return []*ishell.Cmd{
		{
			Name: "arm",
			Help: "start advertising (periph) or scanning (central)",
			Func: run(arm),
		},
		{
			Name: "disarm",
			Help: "stop advertising (periph) or scanning (central)",
			Func: run(disarm),
		},
	}
}

func connectCmd(c *link.Central) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "connect",
		Help: "connect <addr> [public|random|rpa_pub|rpa_rnd]",
		Func: func(ctx *ishell.Context) {
			if len(ctx.Args) < 1 {
				ctx.Println("Usage: connect <addr> [addr-type]")
				return
			}

			addrType := "public"
			if len(ctx.Args) > 1 {
				addrType = ctx.Args[1]
			}

			peer, err := parsePeer(ctx.Args[0], addrType)
			if err != nil {
				ctx.Println("Error: " + err.Error())
				return
			}

			if err := c.ConnectToDevice(peer); err != nil {
				ctx.Println("Error: " + err.Error())
			}
		},
	}
}

func ownAddrCmd(rc roleCtlr) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "addr",
		Help: "show the own address",
		Func: func(c *ishell.Context) {
			own := rc.OwnAddr()
			c.Println(own.String())
		},
	}
}

func interactiveCmd() *cobra.Command {
	roleStr := ""
	name := ""

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Drive a role controller from an interactive console",
		Run: func(cmd *cobra.Command, args []string) {
			role, err := link.RoleFromString(strings.ToLower(roleStr))
			if err != nil {
				skUsage(cmd, util.ChildNewtError(err))
			}

			rc, err := startRoleCtlr(role, link.Config{Name: name})
			if err != nil {
				skUsage(nil, err)
			}

			shell := ishell.New()
			shell.SetPrompt(link.RoleToString(role) + "> ")

			shell.AddCmd(statusCmd(rc))
			shell.AddCmd(disconnectCmd(rc))
			shell.AddCmd(ownAddrCmd(rc))
			for _, c := range armCmds(rc) {
				shell.AddCmd(c)
			}
			if central, ok := rc.(*link.Central); ok {
				shell.AddCmd(connectCmd(central))
			}

			stop := watchNotices(shell, rc)
			defer stop()

			shell.Run()
			shell.Close()
		},
	}

	cmd.Flags().StringVar(&roleStr, "role",
		link.RoleToString(link.ROLE_PERIPHERAL), "peripheral or central")
	cmd.Flags().StringVar(&name, "name", link.DEVICE_NAME,
		"device name to advertise")

	return cmd
}
