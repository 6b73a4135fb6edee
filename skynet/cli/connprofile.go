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

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/skynet/skynet/config"
	"mynewt.apache.org/skynet/skynet/skutil"

	"github.com/spf13/cobra"
)

// Builds a profile from "type=..." and "connstring=..." assignments.
func parseProfileArgs(name string, vdefs []string) (*config.ConnProfile,
	error) {

	cp := &config.ConnProfile{Name: name}

	for _, vdef := range vdefs {
		kv := strings.SplitN(vdef, "=", 2)
		if len(kv) != 2 {
			return nil, util.FmtNewtError("expected varname=value: %s", vdef)
		}

		switch kv[0] {
		case "type":
			ct, err := config.ConnTypeFromString(kv[1])
			if err != nil {
				return nil, err
			}
			cp.Type = ct

		case "connstring":
			cp.ConnString = kv[1]

		default:
			return nil, util.FmtNewtError("unknown variable: %s", kv[0])
		}
	}

	if err := cp.Validate(); err != nil {
		return nil, err
	}

	// Catch a malformed connstring now rather than at connect time.
	if _, err := config.BuildStack(cp); err != nil {
		return nil, err
	}

	return cp, nil
}

func connProfileAddCmd(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		skUsage(cmd, util.NewNewtError("Need connection profile name"))
	}

	cp, err := parseProfileArgs(args[0], args[1:])
	if err != nil {
		skUsage(cmd, err)
	}

	if err := config.GlobalConnProfileMgr().AddConnProfile(cp); err != nil {
		skUsage(nil, err)
	}

	fmt.Printf("Connection profile %s successfully added\n", cp.Name)
}

func connProfileShowCmd(cmd *cobra.Command, args []string) {
	cpm := config.GlobalConnProfileMgr()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	found := false
	for _, cp := range cpm.GetConnProfileList() {
		if name != "" && cp.Name != name {
			continue
		}

		if !found {
			found = true
			fmt.Printf("Connection profiles: \n")
		}
		fmt.Printf("  %s: type=%s, connstring='%s'\n",
			cp.Name, config.ConnTypeToString(cp.Type), cp.ConnString)
	}

	if !found {
		if name == "" {
			fmt.Printf("No connection profiles found!\n")
		} else {
			fmt.Printf("No connection profiles found matching %s\n", name)
		}
	}
}

func connProfileDelCmd(cmd *cobra.Command, args []string) {
	cpm := config.GlobalConnProfileMgr()

	if len(args) == 0 {
		skUsage(cmd, util.NewNewtError("Need connection profile name"))
	}

	name := args[0]
	if err := cpm.DeleteConnProfile(name); err != nil {
		skUsage(cmd, err)
	}

	fmt.Printf("Connection profile %s successfully deleted.\n", name)
}

func connProfileCmd() *cobra.Command {
	cpCmd := &cobra.Command{
		Use:   "conn",
		Short: "Manage " + skutil.ToolInfo.ShortName + " connection profiles",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <conn_profile> <varname=value ...> ",
		Short: "Add a " + skutil.ToolInfo.ShortName + " connection profile",
		Example: "  " + skutil.ToolInfo.ExeName +
			" conn add usb type=serial connstring=dev=/dev/ttyUSB0\n" +
			"  " + skutil.ToolInfo.ExeName +
			" conn add hci0 type=ble connstring=ctlr_name=hci0",
		Run: connProfileAddCmd,
	}
	cpCmd.AddCommand(addCmd)

	deleCmd := &cobra.Command{
		Use:   "delete <conn_profile>",
		Short: "Delete a " + skutil.ToolInfo.ShortName + " connection profile",
		Run:   connProfileDelCmd,
	}
	cpCmd.AddCommand(deleCmd)

	connShowHelpText := "Show information for the conn_profile connection "
	connShowHelpText += "profile or for all\nconnection profiles "
	connShowHelpText += "if conn_profile is not specified.\n"

	showCmd := &cobra.Command{
		Use:   "show [conn_profile]",
		Short: "Show " + skutil.ToolInfo.ShortName + " connection profiles",
		Long:  connShowHelpText,
		Run:   connProfileShowCmd,
	}
	cpCmd.AddCommand(showCmd)

	return cpCmd
}
