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

package strmgr

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/skynet/skxact/kvstore"
)

const (
	NAMESPACE = "storage"
	KEY       = "my_string"
)

// StrMgr keeps the user string in the store and mirrors it in memory.
type StrMgr struct {
	store *kvstore.Store

	mtx sync.Mutex
	val string
}

// Init loads the saved string.  A missing or unreadable value leaves the
// mirror empty.
func Init(store *kvstore.Store) *StrMgr {
	sm := &StrMgr{
		store: store,
	}

	val, err := store.GetStr(NAMESPACE, KEY)
	switch {
	case err == nil:
		log.Infof("Loaded string from store: '%s'", val)
		sm.val = val
	case err == kvstore.ErrNotFound:
		log.Infof("String key not found in store, using empty")
	default:
		log.Warnf("Error reading string from store: %s", err.Error())
	}

	return sm
}

func (sm *StrMgr) Get() string {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	return sm.val
}

// Save persists val, truncated to the store's value limit.  The mirror only
// changes once the store has committed.
func (sm *StrMgr) Save(val string) error {
	if len(val) > kvstore.MAX_VAL_LEN {
		val = val[:kvstore.MAX_VAL_LEN]
	}

	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	if err := sm.store.SetStr(NAMESPACE, KEY, val); err != nil {
		return errors.Wrap(err, "failed to set string")
	}
	if err := sm.store.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit string")
	}

	sm.val = val
	log.Infof("String saved to store: '%s'", val)

	return nil
}

// Delete removes the saved string.  Deleting an absent string succeeds.
func (sm *StrMgr) Delete() error {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	err := sm.store.Erase(NAMESPACE, KEY)
	switch {
	case err == kvstore.ErrNotFound:
		log.Infof("String key not found in store, nothing to delete")
	case err != nil:
		return errors.Wrap(err, "failed to erase string")
	default:
		log.Infof("String deleted from store")
	}

	if err := sm.store.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit erase")
	}

	sm.val = ""
	return nil
}
