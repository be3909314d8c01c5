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
	"context"
	"fmt"
	"time"
)

// PositiveCache maps a full short URL to its origin URL.
type PositiveCache interface {
	Get(ctx context.Context, fullShortUrl string) (string, bool, error)
	// Set stores the mapping. A ttl of PermanentTTL never expires and a ttl <= 0 leaves nothing behind.
	Set(ctx context.Context, fullShortUrl, originUrl string, ttl time.Duration) error
	Remove(ctx context.Context, fullShortUrl string) error
}

// NegativeCache records full short URLs confirmed absent.
type NegativeCache interface {
	IsAbsent(ctx context.Context, fullShortUrl string) (bool, error)
	MarkAbsent(ctx context.Context, fullShortUrl string, ttl time.Duration) error
	ClearAbsent(ctx context.Context, fullShortUrl string) error
}

// ExistenceFilter is a probabilistic set. MayContain never returns false for an added key.
type ExistenceFilter interface {
	MayContain(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
}

// SeedFilter adds the url of every non-deleted row in repo to filter and returns how many were added.
// An in-process filter must be seeded before serving, or live links resolve as not found.
func SeedFilter(ctx context.Context, repo ShortLinkRepository, filter ExistenceFilter) (int, error) {
	count := 0
	err := repo.ListLiveUrls(ctx, func(fullShortUrl string) error {
		if err := filter.Add(ctx, fullShortUrl); err != nil {
			return fmt.Errorf("add %s to existence filter: %w", fullShortUrl, err)
		}
		count++
		return nil
	})
	return count, err
}

// VisitorSet adds members to a per-key set, reporting whether the member is new.
type VisitorSet interface {
	Add(ctx context.Context, key, member string) (bool, error)
}

const (
	GotoShortLinkKey       = "goto:short-link:%s"
	GotoIsNullShortLinkKey = "goto:is-null:short-link:%s"
	StatsUvKey             = "stats:uv:%s"
	StatsUipKey            = "stats:uip:%s"

	LockCreateShortLinkKey = "lock:short-link:create"
	LockGotoShortLinkKey   = "lock:goto:%s"
	LockGidUpdateKey       = "lock:gid-update:%s"

	// NullCacheTTL is how long a confirmed-absent marker lives.
	NullCacheTTL = 30 * time.Minute
)
