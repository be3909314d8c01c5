/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package memx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vogo/vgoto/cores"
)

type cacheItem struct {
	value    string
	expireAt time.Time // zero never expires
}

// ttlMap is a map whose entries expire on the given clock.
type ttlMap struct {
	mutex sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
}

func newTTLMap(now func() time.Time) *ttlMap {
	if now == nil {
		now = time.Now
	}
	return &ttlMap{
		items: make(map[string]cacheItem),
		now:   now,
	}
}

func (m *ttlMap) get(key string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	item, exists := m.items[key]
	if !exists {
		return "", false
	}
	if !item.expireAt.IsZero() && !m.now().Before(item.expireAt) {
		return "", false
	}
	return item.value, true
}

func (m *ttlMap) set(key, value string, ttl time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if ttl <= 0 {
		delete(m.items, key)
		return
	}

	item := cacheItem{value: value}
	if ttl != cores.PermanentTTL {
		item.expireAt = m.now().Add(ttl)
	}
	m.items[key] = item
}

func (m *ttlMap) remove(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.items, key)
}

// MemoryLinkCache implements cores.PositiveCache with in-memory storage
type MemoryLinkCache struct {
	items *ttlMap
	Sets  atomic.Int64
}

func NewMemoryLinkCache(now func() time.Time) *MemoryLinkCache {
	return &MemoryLinkCache{items: newTTLMap(now)}
}

func (c *MemoryLinkCache) Get(_ context.Context, fullShortUrl string) (string, bool, error) {
	value, ok := c.items.get(fullShortUrl)
	return value, ok, nil
}

func (c *MemoryLinkCache) Set(_ context.Context, fullShortUrl, originUrl string, ttl time.Duration) error {
	c.Sets.Add(1)
	c.items.set(fullShortUrl, originUrl, ttl)
	return nil
}

func (c *MemoryLinkCache) Remove(_ context.Context, fullShortUrl string) error {
	c.items.remove(fullShortUrl)
	return nil
}

// MemoryNullCache implements cores.NegativeCache with in-memory storage
type MemoryNullCache struct {
	items *ttlMap
	Marks atomic.Int64
}

func NewMemoryNullCache(now func() time.Time) *MemoryNullCache {
	return &MemoryNullCache{items: newTTLMap(now)}
}

func (c *MemoryNullCache) IsAbsent(_ context.Context, fullShortUrl string) (bool, error) {
	_, ok := c.items.get(fullShortUrl)
	return ok, nil
}

func (c *MemoryNullCache) MarkAbsent(_ context.Context, fullShortUrl string, ttl time.Duration) error {
	c.Marks.Add(1)
	c.items.set(fullShortUrl, "-", ttl)
	return nil
}

func (c *MemoryNullCache) ClearAbsent(_ context.Context, fullShortUrl string) error {
	c.items.remove(fullShortUrl)
	return nil
}
