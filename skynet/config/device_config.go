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

package config

import (
	"io/ioutil"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/skynet/skxact/led"
	"mynewt.apache.org/skynet/skxact/link"
)

// DeviceConfig describes the services `skynet device` brings up.
type DeviceConfig struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`

	Net struct {
		Iface         string  `yaml:"iface"`
		MaxRetry      int     `yaml:"max_retry"`
		RetryInterval float64 `yaml:"retry_interval"`
	} `yaml:"net"`

	Led struct {
		Driver   string `yaml:"driver"`
		Pin      int    `yaml:"pin"`
		GpioRoot string `yaml:"gpio_root"`
	} `yaml:"led"`

	StorePath string `yaml:"store_path"`
	HttpAddr  string `yaml:"http_addr"`
	CoapAddr  string `yaml:"coap_addr"`
}

func NewDeviceConfig() *DeviceConfig {
	dc := &DeviceConfig{
		Name:      link.DEVICE_NAME,
		Role:      link.RoleToString(link.ROLE_PERIPHERAL),
		StorePath: "skynet-store.bin",
		HttpAddr:  ":80",
		CoapAddr:  ":5683",
	}

	dc.Net.MaxRetry = 5
	dc.Net.RetryInterval = 1
	dc.Led.Driver = "sysfs"
	dc.Led.Pin = led.DEFAULT_PIN
	dc.Led.GpioRoot = led.DEFAULT_GPIO_ROOT

	return dc
}

func (dc *DeviceConfig) RetryInterval() time.Duration {
	return time.Duration(dc.Net.RetryInterval * float64(time.Second))
}

func (dc *DeviceConfig) BleRole() (link.Role, error) {
	r, err := link.RoleFromString(dc.Role)
	if err != nil {
		return r, util.FmtNewtError("invalid BLE role: %s", dc.Role)
	}
	return r, nil
}

func (dc *DeviceConfig) Validate() error {
	if _, err := dc.BleRole(); err != nil {
		return err
	}

	switch dc.Led.Driver {
	case "sysfs", "mem":
	default:
		return util.FmtNewtError("invalid LED driver: %s", dc.Led.Driver)
	}

	if dc.Net.MaxRetry < 0 {
		return util.FmtNewtError("invalid max_retry: %d", dc.Net.MaxRetry)
	}

	return nil
}

// LoadDeviceConfig reads a YAML device description.  Settings absent from
// the file keep their defaults; a missing file yields the defaults.
func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	dc := NewDeviceConfig()

	if path == "" {
		return dc, nil
	}

	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("No device config at %s; using defaults", path)
			return dc, nil
		}
		return nil, util.ChildNewtError(err)
	}

	if err := yaml.Unmarshal(b, dc); err != nil {
		return nil, util.FmtNewtError("error reading device config (%s): %s",
			path, err.Error())
	}

	if err := dc.Validate(); err != nil {
		return nil, err
	}

	return dc, nil
}
