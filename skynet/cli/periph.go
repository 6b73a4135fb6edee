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
	"github.com/spf13/cobra"

	"mynewt.apache.org/skynet/skxact/link"
	"mynewt.apache.org/skynet/skynet/skutil"
)

func periphCmd() *cobra.Command {
	name := ""

	cmd := &cobra.Command{
		Use:   "periph",
		Short: "Advertise and accept a single BLE connection",
		Example: "  " + skutil.ToolInfo.ExeName +
			" -c bhd0 periph --name ESP-SKYNET",
		Run: func(cmd *cobra.Command, args []string) {
			rc, err := startRoleCtlr(link.ROLE_PERIPHERAL,
				link.Config{Name: name})
			if err != nil {
				skUsage(nil, err)
			}

			go printNotices(rc.Listen())
			waitInterrupt()
		},
	}

	cmd.Flags().StringVar(&name, "name", link.DEVICE_NAME,
		"device name to advertise")

	return cmd
}
