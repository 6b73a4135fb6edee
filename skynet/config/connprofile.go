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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/skynet/skynet/skutil"
)

// Which host stack backend a profile selects.
type ConnType int

const (
	CONN_TYPE_NONE ConnType = iota
	CONN_TYPE_BHD
	CONN_TYPE_SERIAL
	CONN_TYPE_BLL
)

var ConnTypeStringMap = map[ConnType]string{
	CONN_TYPE_NONE:   "none",
	CONN_TYPE_BHD:    "bhd",
	CONN_TYPE_SERIAL: "serial",
	CONN_TYPE_BLL:    "ble",
}

func ConnTypeToString(ct ConnType) string {
	s := ConnTypeStringMap[ct]
	if s == "" {
		return "???"
	}
	return s
}

func ConnTypeFromString(s string) (ConnType, error) {
	for ct, name := range ConnTypeStringMap {
		if ct != CONN_TYPE_NONE && name == strings.ToLower(s) {
			return ct, nil
		}
	}

	return CONN_TYPE_NONE, util.FmtNewtError("invalid connection type: %s", s)
}

func (ct ConnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(ConnTypeToString(ct))
}

// An unknown type loads as CONN_TYPE_NONE so one stale profile doesn't
// make the whole file unreadable.
func (ct *ConnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	v, err := ConnTypeFromString(s)
	if err != nil {
		log.Warnf("Ignoring connection type %q", s)
	}
	*ct = v
	return nil
}

type ConnProfile struct {
	Name       string   `json:"name"`
	Type       ConnType `json:"type"`
	ConnString string   `json:"connstring"`
}

func (cp *ConnProfile) String() string {
	return fmt.Sprintf("name=%s type=%s connstring=%s",
		cp.Name, ConnTypeToString(cp.Type), cp.ConnString)
}

func (cp *ConnProfile) Validate() error {
	if cp.Name == "" {
		return util.NewNewtError("connection profile name is empty")
	}
	if strings.ContainsAny(cp.Name, " \t,=") {
		return util.FmtNewtError("invalid connection profile name: %q",
			cp.Name)
	}
	if cp.Type == CONN_TYPE_NONE {
		return util.FmtNewtError("connection profile \"%s\" has no type",
			cp.Name)
	}

	return nil
}

// ConnProfileMgr keeps the named profiles in a JSON file.
type ConnProfileMgr struct {
	path string

	mtx      sync.Mutex
	profiles map[string]ConnProfile
}

// The profile file lives in the user's home directory.
func DefaultConnProfilePath() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", util.ChildNewtError(err)
	}

	return filepath.Join(dir, skutil.ToolInfo.CfgFilename), nil
}

func NewConnProfileMgr() (*ConnProfileMgr, error) {
	path, err := DefaultConnProfilePath()
	if err != nil {
		return nil, err
	}

	return OpenConnProfileMgr(path)
}

// OpenConnProfileMgr loads the profiles stored at path.  A missing file is
// an empty profile set.
func OpenConnProfileMgr(path string) (*ConnProfileMgr, error) {
	cpm := &ConnProfileMgr{
		path:     path,
		profiles: map[string]ConnProfile{},
	}

	log.Debugf("Reading connection profiles from %s", path)

	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cpm, nil
		}
		return nil, util.ChildNewtError(err)
	}

	var list []ConnProfile
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, util.FmtNewtError("error reading connection profiles "+
			"(%s): %s", path, err.Error())
	}

	for _, cp := range list {
		cpm.profiles[cp.Name] = cp
	}

	return cpm, nil
}

func (cpm *ConnProfileMgr) list() []*ConnProfile {
	names := make([]string, 0, len(cpm.profiles))
	for name := range cpm.profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	cps := make([]*ConnProfile, len(names))
	for i, name := range names {
		cp := cpm.profiles[name]
		cps[i] = &cp
	}
	return cps
}

// GetConnProfileList returns copies of all profiles, sorted by name.
func (cpm *ConnProfileMgr) GetConnProfileList() []*ConnProfile {
	cpm.mtx.Lock()
	defer cpm.mtx.Unlock()

	return cpm.list()
}

// Writes to a sibling file and renames it over the old one.
func (cpm *ConnProfileMgr) save() error {
	b, err := json.MarshalIndent(cpm.list(), "", "    ")
	if err != nil {
		return util.ChildNewtError(err)
	}

	tmp := cpm.path + ".tmp"
	if err := ioutil.WriteFile(tmp, b, 0644); err != nil {
		return util.ChildNewtError(err)
	}
	if err := os.Rename(tmp, cpm.path); err != nil {
		os.Remove(tmp)
		return util.ChildNewtError(err)
	}

	return nil
}

func (cpm *ConnProfileMgr) GetConnProfile(name string) (*ConnProfile, error) {
	cpm.mtx.Lock()
	defer cpm.mtx.Unlock()

	cp, ok := cpm.profiles[name]
	if !ok {
		return nil, util.FmtNewtError("connection profile \"%s\" doesn't "+
			"exist", name)
	}

	return &cp, nil
}

// AddConnProfile inserts or replaces a profile and persists the set.
func (cpm *ConnProfileMgr) AddConnProfile(cp *ConnProfile) error {
	if err := cp.Validate(); err != nil {
		return err
	}

	cpm.mtx.Lock()
	defer cpm.mtx.Unlock()

	cpm.profiles[cp.Name] = *cp
	return cpm.save()
}

func (cpm *ConnProfileMgr) DeleteConnProfile(name string) error {
	cpm.mtx.Lock()
	defer cpm.mtx.Unlock()

	if _, ok := cpm.profiles[name]; !ok {
		return util.FmtNewtError("connection profile \"%s\" doesn't exist",
			name)
	}

	delete(cpm.profiles, name)
	return cpm.save()
}

var globalConnProfileMgr *ConnProfileMgr

func GlobalConnProfileMgr() *ConnProfileMgr {
	if globalConnProfileMgr == nil {
		panic("connection profile manager not initialized")
	}
	return globalConnProfileMgr
}

func InitGlobalConnProfileMgr() error {
	if globalConnProfileMgr != nil {
		return util.NewNewtError("connection profile manager initialized " +
			"twice")
	}

	cpm, err := NewConnProfileMgr()
	if err != nil {
		return err
	}

	globalConnProfileMgr = cpm
	return nil
}
