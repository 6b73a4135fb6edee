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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/skynet/skxact/skxutil"
	"mynewt.apache.org/skynet/skynet/skutil"
)

var SkynetLogLevel log.Level

func Commands() *cobra.Command {
	logLevelStr := ""
	skCmd := &cobra.Command{
		Use:   skutil.ToolInfo.ExeName,
		Short: skutil.ToolInfo.ShortName + " runs a BLE link on this host",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			SkynetLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				skUsage(nil, util.ChildNewtError(err))
			}

			err = util.Init(SkynetLogLevel, "", util.VERBOSITY_DEFAULT)
			if err != nil {
				skUsage(nil, err)
			}
			skxutil.SetLogLevel(SkynetLogLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	skCmd.PersistentFlags().StringVarP(&skutil.ConnProfile, "conn", "c", "",
		"connection profile to use")

	skCmd.PersistentFlags().Float64VarP(&skutil.Timeout, "timeout", "t", 10.0,
		"host response timeout in seconds (partial seconds allowed)")

	skCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	skCmd.PersistentFlags().StringVar(&skutil.ConnType, "conntype", "",
		"Connection type to use instead of using the profile's type")

	skCmd.PersistentFlags().StringVar(&skutil.ConnString, "connstring", "",
		"Connection key-value pairs to use instead of using the profile's "+
			"connstring")

	skCmd.PersistentFlags().IntVarP(&skutil.HciIdx, "hci", "i",
		0, "HCI index for the controller on Linux machine")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + skutil.ToolInfo.ShortName + " version number",
		Example: "  " + skutil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				skutil.ToolInfo.LongName,
				skutil.ToolInfo.VersionString)
		},
	}
	skCmd.AddCommand(versCmd)

	skCmd.AddCommand(connProfileCmd())
	skCmd.AddCommand(periphCmd())
	skCmd.AddCommand(centralCmd())
	skCmd.AddCommand(scanCmd())
	skCmd.AddCommand(deviceCmd())
	skCmd.AddCommand(interactiveCmd())

	return skCmd
}
