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

package cores

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type localEntry struct {
	originUrl string
	expireAt  time.Time
}

// localCache is the in-process hot layer in front of the positive cache.
type localCache struct {
	ttl time.Duration
	lru *expirable.LRU[string, localEntry]
}

func newLocalCache(size int, ttl time.Duration) *localCache {
	return &localCache{
		ttl: ttl,
		lru: expirable.NewLRU[string, localEntry](size, nil, ttl),
	}
}

func (c *localCache) get(fullShortUrl string, now time.Time) (string, bool) {
	if c == nil {
		return "", false
	}

	entry, ok := c.lru.Get(fullShortUrl)
	if !ok {
		return "", false
	}

	if !now.Before(entry.expireAt) {
		c.lru.Remove(fullShortUrl)
		return "", false
	}

	return entry.originUrl, true
}

// add keeps the entry for at most the local ttl and never past linkTTL.
func (c *localCache) add(fullShortUrl, originUrl string, linkTTL time.Duration, now time.Time) {
	if c == nil || linkTTL <= 0 {
		return
	}

	ttl := min(c.ttl, linkTTL)
	c.lru.Add(fullShortUrl, localEntry{originUrl: originUrl, expireAt: now.Add(ttl)})
}

func (c *localCache) remove(fullShortUrl string) {
	if c == nil {
		return
	}
	c.lru.Remove(fullShortUrl)
}
