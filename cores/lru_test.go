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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCacheBoundedByLinkTTL(t *testing.T) {
	cache := newLocalCache(8, time.Minute)
	now := time.Now()

	cache.add("nurl.ink/a", "https://example.com/a", time.Second, now)
	cache.add("nurl.ink/b", "https://example.com/b", PermanentTTL, now)
	cache.add("nurl.ink/c", "https://example.com/c", 0, now)

	origin, ok := cache.get("nurl.ink/a", now.Add(999*time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/a", origin)

	_, ok = cache.get("nurl.ink/a", now.Add(time.Second))
	assert.False(t, ok)

	_, ok = cache.get("nurl.ink/b", now.Add(30*time.Second))
	assert.True(t, ok)

	_, ok = cache.get("nurl.ink/c", now)
	assert.False(t, ok)

	cache.remove("nurl.ink/b")
	_, ok = cache.get("nurl.ink/b", now)
	assert.False(t, ok)
}

func TestLocalCacheNil(t *testing.T) {
	var cache *localCache

	cache.add("nurl.ink/a", "https://example.com/a", time.Second, time.Now())
	_, ok := cache.get("nurl.ink/a", time.Now())
	assert.False(t, ok)
	cache.remove("nurl.ink/a")
}
